package entitlements

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/ldraney/pal-e-billing/internal/subscribers"
	"github.com/ldraney/pal-e-billing/pkg/db"
	"github.com/ldraney/pal-e-billing/pkg/db/models"
	"github.com/ldraney/pal-e-billing/pkg/enums"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setup(t *testing.T) (Service, subscribers.Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, migrate.Evolve(context.Background(), conn, nil))

	repo := subscribers.NewRepository(conn)
	svc, err := NewService(repo, db.NewFromGorm(conn))
	require.NoError(t, err)
	return svc, repo, conn
}

func TestStatusUnknownUser(t *testing.T) {
	svc, _, conn := setup(t)

	got, err := svc.Status(context.Background(), "999")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, enums.SubscriptionStatusNone, got.Status)
	assert.Nil(t, got.Tier)
	assert.Nil(t, got.Email)
	assert.Equal(t, enums.AncillaryStatusNone, got.AncillaryStatus)

	var count int64
	require.NoError(t, conn.Model(&models.Subscriber{}).Count(&count).Error)
	assert.Zero(t, count, "status lookup must not create rows")
}

func TestStatusReflectsStoredRow(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	email := "a@example.com"
	require.NoError(t, repo.Upsert(ctx, subscribers.UpsertInput{
		UserID: "42", BillingCustomerID: "cus_A", Tier: enums.TierPro, Email: &email,
	}))

	got, err := svc.Status(ctx, "42")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.Tier)
	assert.Equal(t, enums.TierPro, *got.Tier)
	require.NotNil(t, got.Email)
	assert.Equal(t, email, *got.Email)

	_, err = repo.UpdateStatusByCustomer(ctx, "cus_A", "past_due")
	require.NoError(t, err)
	got, err = svc.Status(ctx, "42")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, enums.SubscriptionStatus("past_due"), got.Status)
}

func TestActivateAncillary(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, subscribers.UpsertInput{UserID: "8", BillingCustomerID: "cus_8"}))

	for i := 0; i < 2; i++ {
		got, err := svc.ActivateAncillary(ctx, "8")
		require.NoError(t, err)
		assert.Equal(t, AncillaryActivation{UserID: "8", AncillaryStatus: enums.AncillaryStatusActive}, got)
	}

	status, err := svc.Status(ctx, "8")
	require.NoError(t, err)
	assert.Equal(t, enums.AncillaryStatusActive, status.AncillaryStatus)
}

func TestActivateAncillaryUnknownUser(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.ActivateAncillary(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestActivateAncillaryVanishedRow(t *testing.T) {
	repo := &vanishingRepo{}
	svc, err := NewService(repo, passthroughTx{})
	require.NoError(t, err)

	_, err = svc.ActivateAncillary(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// vanishingRepo reports the row on read but matches nothing on update.
type vanishingRepo struct {
	subscribers.Repository
}

func (r *vanishingRepo) WithTx(*gorm.DB) subscribers.Repository { return r }

func (r *vanishingRepo) Get(context.Context, string) (*models.Subscriber, error) {
	return &models.Subscriber{UserID: "1"}, nil
}

func (r *vanishingRepo) UpdateAncillaryStatus(context.Context, string, enums.AncillaryStatus) (bool, error) {
	return false, nil
}
