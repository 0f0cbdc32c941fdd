package stripewebhook

import (
	"context"
	"fmt"

	"github.com/ldraney/pal-e-billing/internal/subscribers"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// Outcome summarizes what processing an event did to the store.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeSkipped Outcome = "skipped"
	OutcomeIgnored Outcome = "ignored"
)

// Result is returned for every acknowledged event.
type Result struct {
	Outcome      Outcome
	Reason       string
	RowsAffected int64
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              subscribers.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies reconciled events to the subscriber store.
type Service struct {
	repo     subscribers.Repository
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		repo:     params.Repo,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// HandleEvent reconciles a verified event and applies it inside one transaction. Anomalies
// such as unmatched subscriptions are logged and acknowledged; only store failures are
// returned as errors.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Result, error) {
	if event == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	if s.logg != nil {
		ctx = s.logg.WithEvent(ctx, event.ID, string(event.Type))
	}

	decision, err := Reconcile(event)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reconcile event")
	}
	for _, warning := range decision.Warnings {
		s.warn(ctx, warning)
	}

	switch decision.Action {
	case ActionIgnore:
		s.debug(ctx, "unhandled event type")
		return Result{Outcome: OutcomeIgnored, Reason: decision.Reason}, nil
	case ActionSkip:
		s.warn(ctx, fmt.Sprintf("event skipped: %s", decision.Reason))
		return Result{Outcome: OutcomeSkipped, Reason: decision.Reason}, nil
	case ActionUpsert:
		return s.applyUpsert(ctx, decision)
	case ActionUpdateStatus:
		return s.applyStatus(ctx, decision)
	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown action %q", decision.Action))
	}
}

func (s *Service) applyUpsert(ctx context.Context, d Decision) (Result, error) {
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Upsert(ctx, d.Upsert)
	})
	if err != nil {
		return Result{}, storeError(err, "upsert subscriber")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, d.Upsert.UserID), map[string]any{"tier": d.Upsert.Tier})
		s.logg.Info(logCtx, "subscriber activated")
	}
	return Result{Outcome: OutcomeApplied, RowsAffected: 1}, nil
}

// applyStatus issues a single update keyed by subscription id. An unmatched id is an
// anomaly to log, not a reason to touch other rows of the same customer.
func (s *Service) applyStatus(ctx context.Context, d Decision) (Result, error) {
	var rows int64
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).UpdateStatusBySubscription(ctx, d.SubscriptionID, d.Status)
		if err != nil {
			return err
		}
		rows = n
		return nil
	})
	if err != nil {
		return Result{}, storeError(err, "update subscription status")
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"subscription_id": d.SubscriptionID,
			"customer_id":     d.CustomerID,
			"status":          d.Status,
			"rows":            rows,
		})
	}
	if rows == 0 {
		s.warn(ctx, "subscription status update matched no subscriber")
		return Result{Outcome: OutcomeNoMatch}, nil
	}
	if s.logg != nil {
		s.logg.Info(ctx, "subscription status updated")
	}
	return Result{Outcome: OutcomeApplied, RowsAffected: rows}, nil
}

// storeError keeps typed validation failures and maps everything else to a retryable
// dependency error.
func storeError(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *Service) debug(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Debug(ctx, msg)
	}
}
