package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"gorm.io/gorm"
)

type ProfileService struct {
	db     *gorm.DB
	cfg    *config.Config
	usage  *UsageService
	mailer notify.Mailer
	now    func() time.Time
}

func NewProfileService(db *gorm.DB, cfg *config.Config, usage *UsageService, mailer notify.Mailer) *ProfileService {
	return &ProfileService{db: db, cfg: cfg, usage: usage, mailer: mailer, now: time.Now}
}

// GetUserInfo returns the stored profile, or a synthesized inactive profile
// built from the token when none exists yet. It never writes.
func (s *ProfileService) GetUserInfo(ctx context.Context, id *tenant.Identity) (*dto.ProfileResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "uid = ?", id.UID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resp := &dto.ProfileResponse{
			UID:    id.UID,
			Email:  optional(id.Email),
			Status: models.UserStatusInactive,
		}
		resp.DisplayName = optional(id.Name)
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return s.toResponse(ctx, &user, id)
}

func (s *ProfileService) UpdateUserProfile(ctx context.Context, id *tenant.Identity, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = ensureProfile(tx, id, s.now())
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.DisplayName != nil {
			updates["display_name"] = *req.DisplayName
			user.DisplayName = req.DisplayName
		}
		if req.Status != nil {
			updates["status"] = *req.Status
			user.Status = *req.Status
		}
		if req.OnboardingCompleted != nil {
			updates["onboarding_completed"] = *req.OnboardingCompleted
			user.OnboardingCompleted = *req.OnboardingCompleted
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		if req.DisplayName != nil {
			return tx.Model(&models.HouseholdMember{}).
				Where("uid = ?", user.UID).
				Update("display_name", *req.DisplayName).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user profile updated", "user_id", id.UID)
	return s.toResponse(ctx, user, id)
}

// ScheduleAccountDeletion marks the account for deletion after the grace
// period and returns the execution date.
func (s *ProfileService) ScheduleAccountDeletion(ctx context.Context, id *tenant.Identity) (string, error) {
	now := s.now()
	deletionDate := now.UTC().AddDate(0, 0, s.graceDays()).Format(models.DateLayout)

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = ensureProfile(tx, id, now)
		if err != nil {
			return err
		}
		return tx.Model(user).Updates(map[string]interface{}{
			"deletion_status":         models.DeletionStatusScheduled,
			"deletion_scheduled_at":   now,
			"deletion_execution_date": deletionDate,
		}).Error
	})
	if err != nil {
		return "", err
	}

	slog.Info("account deletion scheduled", "user_id", id.UID, "deletion_date", deletionDate)
	if s.mailer != nil {
		if err := s.mailer.SendDeletionScheduled(ctx, user.Email, deletionDate); err != nil {
			slog.Error("deletion notice email failed", "user_id", id.UID, "error", err)
		}
	}
	return deletionDate, nil
}

func (s *ProfileService) CancelAccountDeletion(ctx context.Context, id *tenant.Identity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.First(&user, "uid = ?", id.UID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return callable.NotFound("User not found")
		}
		if err != nil {
			return err
		}
		if !user.IsScheduledForDeletion() {
			return callable.FailedPrecondition("Account is not scheduled for deletion")
		}
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"deletion_status":         models.DeletionStatusActive,
			"deletion_scheduled_at":   nil,
			"deletion_execution_date": nil,
		}).Error; err != nil {
			return err
		}
		slog.Info("account deletion cancelled", "user_id", id.UID)
		return nil
	})
}

// RegisterPushToken stores the device token on the caller's profile. A token
// belongs to one device, so it is cleared from any other profile first.
func (s *ProfileService) RegisterPushToken(ctx context.Context, id *tenant.Identity, req dto.RegisterPushTokenRequest) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureProfile(tx, id, now)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("push_token = ? AND uid <> ?", req.Token, user.UID).
			Updates(map[string]interface{}{"push_token": nil, "push_platform": nil}).Error; err != nil {
			return err
		}
		return tx.Model(user).Updates(map[string]interface{}{
			"push_token":            req.Token,
			"push_platform":         req.Platform,
			"push_token_updated_at": now,
		}).Error
	})
}

func (s *ProfileService) toResponse(ctx context.Context, user *models.User, id *tenant.Identity) (*dto.ProfileResponse, error) {
	now := s.now()
	counters, err := s.usage.Counters(ctx, user.UID, now)
	if err != nil {
		return nil, fmt.Errorf("load usage counters: %w", err)
	}

	email := id.Email
	if email == "" {
		email = user.Email
	}
	createdAt, updatedAt := user.CreatedAt, user.UpdatedAt
	return &dto.ProfileResponse{
		UID:                 user.UID,
		Email:               optional(email),
		DisplayName:         user.DisplayName,
		Status:              user.Status,
		OnboardingCompleted: user.OnboardingCompleted,
		HouseholdID:         user.HouseholdID,
		SubscriptionStatus: &dto.SubscriptionStatus{
			Tier:                 user.EffectiveTier(now),
			TrialStartDate:       user.TrialStartDate,
			TrialEndDate:         user.TrialEndDate,
			Active:               user.SubscriptionActive,
			RevenueCatCustomerID: user.RevenueCatCustomerID,
			AIUsageCounters:      counters,
		},
		DeletionStatus:        user.DeletionStatus,
		DeletionScheduledAt:   user.DeletionScheduledAt,
		DeletionExecutionDate: user.DeletionExecutionDate,
		CreatedAt:             &createdAt,
		UpdatedAt:             &updatedAt,
	}, nil
}

func (s *ProfileService) graceDays() int {
	if s.cfg.DeletionGraceDays > 0 {
		return s.cfg.DeletionGraceDays
	}
	return 30
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
