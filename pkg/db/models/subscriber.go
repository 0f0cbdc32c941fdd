package models

import (
	"time"

	"github.com/ldraney/pal-e-billing/pkg/enums"
)

// SubscriberTable is the single table owned by the billing service.
const SubscriberTable = "subscribers"

// Subscriber mirrors the provider-side subscription state for one external user.
type Subscriber struct {
	UserID                string                   `gorm:"column:user_id;primaryKey"`
	BillingCustomerID     string                   `gorm:"column:billing_customer_id;not null;index"`
	BillingSubscriptionID *string                  `gorm:"column:billing_subscription_id;index"`
	Status                enums.SubscriptionStatus `gorm:"column:status;not null"`
	Tier                  enums.Tier               `gorm:"column:tier;not null"`
	Email                 *string                  `gorm:"column:email"`
	AncillaryStatus       enums.AncillaryStatus    `gorm:"column:ancillary_status;not null"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscriber) TableName() string {
	return SubscriberTable
}
