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

func TestGetUserInfo_SynthesizesMissingProfileWithoutWriting(t *testing.T) {
	f := newFixture(t)

	resp, err := f.profiles.GetUserInfo(context.Background(), identity("u1"))
	require.NoError(t, err)

	assert.Equal(t, "u1", resp.UID)
	assert.Equal(t, models.UserStatusInactive, resp.Status)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "u1@example.com", *resp.Email)
	assert.Nil(t, resp.SubscriptionStatus)
	assert.Zero(t, f.count(t, &models.User{}, ""))
	assert.Zero(t, f.count(t, &models.Household{}, ""))
}

func TestUpdateUserProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")

	resp, err := f.profiles.UpdateUserProfile(ctx, id, dto.UpdateProfileRequest{
		DisplayName:         ptr("Sam"),
		OnboardingCompleted: ptr(true),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.DisplayName)
	assert.Equal(t, "Sam", *resp.DisplayName)
	assert.True(t, resp.OnboardingCompleted)
	assert.Equal(t, models.UserStatusActive, resp.Status)
	assert.Equal(t, "u1", resp.HouseholdID)
	require.NotNil(t, resp.SubscriptionStatus)
	assert.Equal(t, models.TierFree, resp.SubscriptionStatus.Tier)

	var owner models.HouseholdMember
	require.NoError(t, f.db.First(&owner, "household_id = ? AND uid = ?", "u1", "u1").Error)
	assert.Equal(t, "Sam", owner.DisplayName)

	// Omitted fields stay as they are.
	resp, err = f.profiles.UpdateUserProfile(ctx, id, dto.UpdateProfileRequest{Status: ptr(models.UserStatusInactive)})
	require.NoError(t, err)
	assert.Equal(t, "Sam", *resp.DisplayName)
	assert.True(t, resp.OnboardingCompleted)
	assert.Equal(t, models.UserStatusInactive, resp.Status)
}

func TestGetUserInfo_ReportsUsageCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)
	require.NoError(t, f.usage.Reserve(ctx, "u1", models.FeatureSpaceAnalysis, 10, time.Now()))

	resp, err := f.profiles.GetUserInfo(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, resp.SubscriptionStatus)
	assert.Equal(t, models.TierPaid, resp.SubscriptionStatus.Tier)
	assert.Equal(t, 1, resp.SubscriptionStatus.AIUsageCounters.SpaceAnalysesThisMonth)
}

func TestScheduleAndCancelAccountDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f.profiles.now = func() time.Time { return now }

	err := f.profiles.CancelAccountDeletion(ctx, id)
	assert.True(t, callable.IsCode(err, callable.CodeNotFound), "no profile yet")

	date, err := f.profiles.ScheduleAccountDeletion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-14", date)
	assert.Equal(t, []string{"u1@example.com 2026-04-14"}, f.mailer.deletions)

	resp, err := f.profiles.GetUserInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusScheduled, resp.DeletionStatus)
	require.NotNil(t, resp.DeletionExecutionDate)
	assert.Equal(t, "2026-04-14", *resp.DeletionExecutionDate)

	require.NoError(t, f.profiles.CancelAccountDeletion(ctx, id))

	resp, err = f.profiles.GetUserInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DeletionStatusActive, resp.DeletionStatus)
	assert.Nil(t, resp.DeletionExecutionDate)

	err = f.profiles.CancelAccountDeletion(ctx, id)
	assert.True(t, callable.IsCode(err, callable.CodeFailedPrecondition))
}

func TestRegisterPushToken_MovesTokenBetweenProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := dto.RegisterPushTokenRequest{Token: "device-1", Platform: "android"}

	require.NoError(t, f.profiles.RegisterPushToken(ctx, identity("a"), req))
	require.NoError(t, f.profiles.RegisterPushToken(ctx, identity("b"), req))

	var a, b models.User
	require.NoError(t, f.db.First(&a, "uid = ?", "a").Error)
	require.NoError(t, f.db.First(&b, "uid = ?", "b").Error)
	assert.Nil(t, a.PushToken)
	require.NotNil(t, b.PushToken)
	assert.Equal(t, "device-1", *b.PushToken)
	assert.Equal(t, "android", *b.PushPlatform)
}
