package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadUser(t *testing.T, f *fixture, uid string) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, "uid = ?", uid).Error)
	return u
}

func TestHandleWebhookEvent_PurchaseAndExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setTier(t, identity("u1"), models.TierFree)

	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{
		ID: "evt-1", Type: "INITIAL_PURCHASE", AppUserID: "u1", OriginalAppUserID: "rc-u1", PeriodType: "NORMAL",
	}))
	u := loadUser(t, f, "u1")
	assert.Equal(t, models.TierPaid, u.SubscriptionTier)
	assert.True(t, u.SubscriptionActive)
	require.NotNil(t, u.RevenueCatCustomerID)
	assert.Equal(t, "rc-u1", *u.RevenueCatCustomerID)

	// Cancellation keeps access until the period ends.
	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{ID: "evt-2", Type: "CANCELLATION", AppUserID: "u1"}))
	assert.Equal(t, models.TierPaid, loadUser(t, f, "u1").SubscriptionTier)

	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{ID: "evt-3", Type: "EXPIRATION", AppUserID: "u1"}))
	u = loadUser(t, f, "u1")
	assert.Equal(t, models.TierFree, u.SubscriptionTier)
	assert.False(t, u.SubscriptionActive)

	assert.EqualValues(t, 3, f.count(t, &models.SubscriptionEvent{}, "user_id = ?", "u1"))
}

func TestHandleWebhookEvent_TrialRecordsDates(t *testing.T) {
	f := newFixture(t)
	f.setTier(t, identity("u1"), models.TierFree)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	require.NoError(t, f.subscriptions.HandleWebhookEvent(context.Background(), &dto.RevenueCatEvent{
		ID: "evt-1", Type: "INITIAL_PURCHASE", AppUserID: "u1", PeriodType: "TRIAL",
		PurchasedAtMs: start.UnixMilli(), ExpirationAtMs: end.UnixMilli(),
	}))

	u := loadUser(t, f, "u1")
	assert.Equal(t, models.TierTrial, u.SubscriptionTier)
	require.NotNil(t, u.TrialStartDate)
	require.NotNil(t, u.TrialEndDate)
	assert.Equal(t, "2026-03-01", *u.TrialStartDate)
	assert.Equal(t, "2026-03-08", *u.TrialEndDate)
	assert.Equal(t, "u1", *u.RevenueCatCustomerID)

	var event models.SubscriptionEvent
	require.NoError(t, f.db.First(&event, "event_id = ?", "evt-1").Error)
	require.NotNil(t, event.ExpiresAt)
	assert.True(t, event.ExpiresAt.Equal(end))
}

func TestHandleWebhookEvent_RedeliveryIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setTier(t, identity("u1"), models.TierFree)
	purchase := &dto.RevenueCatEvent{ID: "evt-1", Type: "INITIAL_PURCHASE", AppUserID: "u1"}

	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, purchase))
	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{ID: "evt-2", Type: "EXPIRATION", AppUserID: "u1"}))
	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, purchase))

	assert.Equal(t, models.TierFree, loadUser(t, f, "u1").SubscriptionTier)
	assert.EqualValues(t, 2, f.count(t, &models.SubscriptionEvent{}, ""))
}

func TestHandleWebhookEvent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{Type: "RENEWAL", AppUserID: "u1"})
	assert.True(t, callable.IsCode(err, callable.CodeInvalidArgument))

	// Users without a profile are recorded without failing the delivery.
	assert.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{ID: "evt-9", Type: "RENEWAL", AppUserID: "ghost"}))
	assert.EqualValues(t, 1, f.count(t, &models.SubscriptionEvent{}, "user_id = ?", "ghost"))
}

func TestHandleWebhookEvent_PurchaseBeforeProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{
		ID: "evt-1", Type: "INITIAL_PURCHASE", AppUserID: "early", PeriodType: "NORMAL",
	}))
	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{
		ID: "evt-2", Type: "CANCELLATION", AppUserID: "early",
	}))
	assert.Zero(t, f.count(t, &models.User{}, "uid = ?", "early"))

	caller, err := f.households.Resolve(ctx, identity("early"))
	require.NoError(t, err)
	assert.Equal(t, models.TierPaid, caller.User.SubscriptionTier)
	assert.True(t, caller.User.SubscriptionActive)

	// Later events apply directly and are not replayed again.
	require.NoError(t, f.subscriptions.HandleWebhookEvent(ctx, &dto.RevenueCatEvent{ID: "evt-3", Type: "EXPIRATION", AppUserID: "early"}))
	_, err = f.households.Resolve(ctx, identity("early"))
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, loadUser(t, f, "early").SubscriptionTier)
}
