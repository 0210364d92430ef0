package dto

import "time"

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName         *string `json:"displayName" validate:"omitempty,max=100"`
	Status              *string `json:"status" validate:"omitempty,oneof=active inactive"`
	OnboardingCompleted *bool   `json:"onboardingCompleted"`
}

type RegisterPushTokenRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type ProfileResponse struct {
	UID                   string              `json:"uid"`
	Email                 *string             `json:"email"`
	DisplayName           *string             `json:"displayName"`
	Status                string              `json:"status"`
	OnboardingCompleted   bool                `json:"onboardingCompleted"`
	HouseholdID           string              `json:"householdId,omitempty"`
	SubscriptionStatus    *SubscriptionStatus `json:"subscriptionStatus,omitempty"`
	DeletionStatus        string              `json:"deletionStatus,omitempty"`
	DeletionScheduledAt   *time.Time          `json:"deletionScheduledAt,omitempty"`
	DeletionExecutionDate *string             `json:"deletionExecutionDate,omitempty"`
	CreatedAt             *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt             *time.Time          `json:"updatedAt,omitempty"`
}

type SubscriptionStatus struct {
	Tier                 string          `json:"tier"`
	TrialStartDate       *string         `json:"trialStartDate,omitempty"`
	TrialEndDate         *string         `json:"trialEndDate,omitempty"`
	Active               bool            `json:"active"`
	RevenueCatCustomerID *string         `json:"revenuecatCustomerId,omitempty"`
	AIUsageCounters      AIUsageCounters `json:"aiUsageCounters"`
}

// AIUsageCounters reports the current period's usage per AI feature.
type AIUsageCounters struct {
	RotationSuggestionsToday   int    `json:"rotationSuggestionsToday"`
	LastRotationSuggestionDate string `json:"lastRotationSuggestionDate,omitempty"`
	ToyRecognitionsThisMonth   int    `json:"toyRecognitionsThisMonth"`
	LastToyRecognitionMonth    string `json:"lastToyRecognitionMonth,omitempty"`
	SpaceAnalysesThisMonth     int    `json:"spaceAnalysesThisMonth"`
	LastSpaceAnalysisMonth     string `json:"lastSpaceAnalysisMonth,omitempty"`
}

type DeletionScheduledResponse struct {
	DeletionDate string `json:"deletionDate"`
}
