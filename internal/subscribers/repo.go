package subscribers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ldraney/pal-e-billing/pkg/db/models"
	"github.com/ldraney/pal-e-billing/pkg/enums"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles subscriber persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, input UpsertInput) error
	UpdateStatusByCustomer(ctx context.Context, customerID string, status enums.SubscriptionStatus) (int64, error)
	UpdateStatusBySubscription(ctx context.Context, subscriptionID string, status enums.SubscriptionStatus) (int64, error)
	UpdateAncillaryStatus(ctx context.Context, userID string, status enums.AncillaryStatus) (bool, error)
	Get(ctx context.Context, userID string) (*models.Subscriber, error)
	GetByCustomer(ctx context.Context, customerID string) (*models.Subscriber, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a subscriber repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

// Upsert inserts the subscriber or merges the purchase into the existing row. Absent
// subscription ids and emails keep whatever is already stored.
func (r *repository) Upsert(ctx context.Context, input UpsertInput) error {
	in, err := input.normalize()
	if err != nil {
		return err
	}

	table := models.SubscriberTable
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"billing_customer_id":     gorm.Expr("excluded.billing_customer_id"),
				"billing_subscription_id": gorm.Expr("COALESCE(excluded.billing_subscription_id, " + table + ".billing_subscription_id)"),
				"status":                  gorm.Expr("excluded.status"),
				"tier":                    gorm.Expr("excluded.tier"),
				"email":                   gorm.Expr("COALESCE(excluded.email, " + table + ".email)"),
				"updated_at":              r.now().UTC(),
			}),
		}).
		Create(in.toModel()).Error
}

func (r *repository) UpdateStatusByCustomer(ctx context.Context, customerID string, status enums.SubscriptionStatus) (int64, error) {
	return r.updateStatus(ctx, "billing_customer_id", customerID, status)
}

func (r *repository) UpdateStatusBySubscription(ctx context.Context, subscriptionID string, status enums.SubscriptionStatus) (int64, error) {
	return r.updateStatus(ctx, "billing_subscription_id", subscriptionID, status)
}

func (r *repository) updateStatus(ctx context.Context, column, value string, status enums.SubscriptionStatus) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, column+" is required")
	}
	if status == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where(column+" = ?", value).
		UpdateColumns(map[string]any{
			"status":     status,
			"updated_at": r.now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// UpdateAncillaryStatus reports whether a row for userID existed.
func (r *repository) UpdateAncillaryStatus(ctx context.Context, userID string, status enums.AncillaryStatus) (bool, error) {
	if !status.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid ancillary status").
			WithDetails(map[string]any{"ancillary_status": status})
	}
	res := r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{
			"ancillary_status": status,
			"updated_at":       r.now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Get returns nil without error when the user has no row.
func (r *repository) Get(ctx context.Context, userID string) (*models.Subscriber, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *repository) GetByCustomer(ctx context.Context, customerID string) (*models.Subscriber, error) {
	return r.first(ctx, "billing_customer_id = ?", customerID)
}

func (r *repository) first(ctx context.Context, query string, arg string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.WithContext(ctx).Where(query, arg).Order("created_at").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
