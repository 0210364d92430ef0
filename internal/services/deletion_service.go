package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"gorm.io/gorm"
)

// AuthUserDeleter removes the account from the identity provider.
type AuthUserDeleter interface {
	DeleteUser(ctx context.Context, uid string) error
}

// DeletionService executes account deletions whose grace period is over.
type DeletionService struct {
	db   *gorm.DB
	auth AuthUserDeleter
}

func NewDeletionService(db *gorm.DB, auth AuthUserDeleter) *DeletionService {
	return &DeletionService{db: db, auth: auth}
}

// ExecuteDue deletes every account scheduled on or before now's UTC date and
// returns how many were removed. One failing account does not stop the sweep.
func (s *DeletionService) ExecuteDue(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC().Format(models.DateLayout)

	var due []models.User
	if err := s.db.WithContext(ctx).
		Where("deletion_status = ? AND deletion_execution_date <= ?", models.DeletionStatusScheduled, today).
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("find due deletions: %w", err)
	}

	deleted := 0
	for i := range due {
		if err := s.Execute(ctx, &due[i], now); err != nil {
			slog.Error("account deletion failed", "user_id", due[i].UID, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Execute removes one account. An owner takes the whole household with
// them and their caregivers fall back to their own households. A caregiver
// only loses their membership.
func (s *DeletionService) Execute(ctx context.Context, user *models.User, now time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteOwnedHousehold(tx, user.UID, now); err != nil {
			return err
		}
		if err := tx.Where("uid = ?", user.UID).Delete(&models.HouseholdMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.UID).Delete(&models.AIUsage{}).Error; err != nil {
			return err
		}
		return tx.Where("uid = ?", user.UID).Delete(&models.User{}).Error
	})
	if err != nil {
		return err
	}

	if s.auth != nil {
		if err := s.auth.DeleteUser(ctx, user.UID); err != nil {
			slog.Warn("auth user deletion failed", "user_id", user.UID, "error", err)
		}
	}
	slog.Info("account deleted", "user_id", user.UID)
	return nil
}

func deleteOwnedHousehold(tx *gorm.DB, ownerUID string, now time.Time) error {
	var members []models.HouseholdMember
	if err := tx.Where("household_id = ? AND uid <> '' AND uid <> ?", ownerUID, ownerUID).Find(&members).Error; err != nil {
		return err
	}

	for _, model := range []interface{}{
		&models.Feedback{},
		&models.Rotation{},
		&models.Toy{},
		&models.Child{},
		&models.Invitation{},
		&models.HouseholdMember{},
	} {
		if err := tx.Where("household_id = ?", ownerUID).Delete(model).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("id = ?", ownerUID).Delete(&models.Household{}).Error; err != nil {
		return err
	}

	for _, m := range members {
		if err := detachFromHousehold(tx, m.UID, ownerUID, now); err != nil {
			return err
		}
	}
	return nil
}
