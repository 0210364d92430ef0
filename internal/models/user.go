package models

import (
	"time"
)

const (
	DeletionStatusActive    = "active"
	DeletionStatusScheduled = "scheduled_for_deletion"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User is the per-account profile. UID is the auth provider's user id.
type User struct {
	UID                 string  `gorm:"primaryKey;size:128" json:"uid"`
	Email               string  `gorm:"size:255;index" json:"email"`
	DisplayName         *string `gorm:"size:255" json:"displayName,omitempty"`
	Status              string  `gorm:"size:20;not null;default:'active'" json:"status"`
	OnboardingCompleted bool    `json:"onboardingCompleted"`
	HouseholdID         string  `gorm:"size:128;index" json:"householdId,omitempty"`

	// Subscription mirror, see SubscriptionService.
	SubscriptionTier     string  `gorm:"size:20;not null;default:'free'" json:"-"`
	SubscriptionActive   bool    `json:"-"`
	TrialStartDate       *string `gorm:"size:10" json:"-"`
	TrialEndDate         *string `gorm:"size:10" json:"-"`
	RevenueCatCustomerID *string `gorm:"size:255" json:"-"`

	DeletionStatus        string     `gorm:"size:40;not null;default:'active';index" json:"deletionStatus,omitempty"`
	DeletionScheduledAt   *time.Time `json:"deletionScheduledAt,omitempty"`
	DeletionExecutionDate *string    `gorm:"size:10;index" json:"deletionExecutionDate,omitempty"`

	PushToken          *string    `gorm:"size:512" json:"-"`
	PushPlatform       *string    `gorm:"size:20" json:"-"`
	PushTokenUpdatedAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// EffectiveTier returns the tier that gates AI features. A trial whose end
// date has passed counts as free.
func (u *User) EffectiveTier(now time.Time) string {
	switch u.SubscriptionTier {
	case TierPaid:
		return TierPaid
	case TierTrial:
		if u.TrialEndDate != nil && *u.TrialEndDate != "" && now.UTC().Format(DateLayout) > *u.TrialEndDate {
			return TierFree
		}
		return TierTrial
	default:
		return TierFree
	}
}

// IsScheduledForDeletion reports whether the account is waiting for deletion.
func (u *User) IsScheduledForDeletion() bool {
	return u.DeletionStatus == DeletionStatusScheduled
}
