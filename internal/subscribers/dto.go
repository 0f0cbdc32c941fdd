package subscribers

import (
	"strings"

	"github.com/ldraney/pal-e-billing/pkg/db/models"
	"github.com/ldraney/pal-e-billing/pkg/enums"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
)

// UpsertInput carries the fields written when a purchase completes.
type UpsertInput struct {
	UserID                string
	BillingCustomerID     string
	BillingSubscriptionID *string
	Status                enums.SubscriptionStatus
	Tier                  enums.Tier
	Email                 *string
}

func (in UpsertInput) normalize() (UpsertInput, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.BillingCustomerID = strings.TrimSpace(in.BillingCustomerID)
	if in.UserID == "" {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if in.BillingCustomerID == "" {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "billing customer id is required")
	}
	if in.Status == "" {
		in.Status = enums.SubscriptionStatusActive
	}
	if in.Tier == "" {
		in.Tier = enums.TierBase
	}
	if !in.Tier.IsValid() {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier").
			WithDetails(map[string]any{"tier": in.Tier, "allowed": enums.Tiers()})
	}
	in.BillingSubscriptionID = blankToNil(in.BillingSubscriptionID)
	in.Email = blankToNil(in.Email)
	return in, nil
}

func (in UpsertInput) toModel() *models.Subscriber {
	return &models.Subscriber{
		UserID:                in.UserID,
		BillingCustomerID:     in.BillingCustomerID,
		BillingSubscriptionID: in.BillingSubscriptionID,
		Status:                in.Status,
		Tier:                  in.Tier,
		Email:                 in.Email,
		AncillaryStatus:       enums.AncillaryStatusNone,
	}
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}
