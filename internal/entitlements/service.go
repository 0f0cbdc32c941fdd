package entitlements

import (
	"context"

	"github.com/ldraney/pal-e-billing/internal/subscribers"
	"github.com/ldraney/pal-e-billing/pkg/enums"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"gorm.io/gorm"
)

// Entitlement is the read model returned to the consuming application.
type Entitlement struct {
	IsActive        bool                     `json:"is_active"`
	Status          enums.SubscriptionStatus `json:"status"`
	Tier            *enums.Tier              `json:"tier"`
	Email           *string                  `json:"email"`
	AncillaryStatus enums.AncillaryStatus    `json:"ancillary_status"`
}

type AncillaryActivation struct {
	UserID          string                `json:"user_id"`
	AncillaryStatus enums.AncillaryStatus `json:"ancillary_status"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service answers entitlement queries.
type Service interface {
	Status(ctx context.Context, userID string) (Entitlement, error)
	ActivateAncillary(ctx context.Context, userID string) (AncillaryActivation, error)
}

type service struct {
	repo subscribers.Repository
	tx   txRunner
}

func NewService(repo subscribers.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber repo required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Status never writes; unknown users are reported as not entitled.
func (s *service) Status(ctx context.Context, userID string) (Entitlement, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Entitlement{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriber")
	}
	if sub == nil {
		return Entitlement{
			IsActive:        false,
			Status:          enums.SubscriptionStatusNone,
			AncillaryStatus: enums.AncillaryStatusNone,
		}, nil
	}
	tier := sub.Tier
	return Entitlement{
		IsActive:        sub.Status.IsEntitled(),
		Status:          sub.Status,
		Tier:            &tier,
		Email:           sub.Email,
		AncillaryStatus: sub.AncillaryStatus,
	}, nil
}

func (s *service) ActivateAncillary(ctx context.Context, userID string) (AncillaryActivation, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.Get(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriber")
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
		}
		updated, err := repo.UpdateAncillaryStatus(ctx, userID, enums.AncillaryStatusActive)
		if err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ancillary status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeInternal, "subscriber disappeared during ancillary activation")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate ancillary")
		}
		return AncillaryActivation{}, err
	}
	return AncillaryActivation{UserID: userID, AncillaryStatus: enums.AncillaryStatusActive}, nil
}
