package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChildService struct {
	db         *gorm.DB
	cfg        *config.Config
	households *HouseholdService
	now        func() time.Time
}

func NewChildService(db *gorm.DB, cfg *config.Config, households *HouseholdService) *ChildService {
	return &ChildService{db: db, cfg: cfg, households: households, now: time.Now}
}

func (s *ChildService) List(ctx context.Context, id *tenant.Identity) ([]models.Child, error) {
	caller, err := s.households.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	children := []models.Child{}
	if err := s.db.WithContext(ctx).Scopes(tenant.ForHousehold(caller.HouseholdID)).
		Order("created_at ASC").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

func (s *ChildService) Add(ctx context.Context, id *tenant.Identity, req dto.AddChildRequest) (*models.Child, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, callable.InvalidArgument("Child name is required")
	}

	child := &models.Child{
		HouseholdID: caller.HouseholdID,
		Name:        name,
		DateOfBirth: req.DateOfBirth,
		Interests:   cleanStrings(req.Interests),
		RotationSettings: models.RotationSettings{
			DisplayCount: models.DefaultDisplayCount,
			DurationDays: models.DefaultDurationDays,
		},
	}
	applyRotationSettings(&child.RotationSettings, req.RotationSettings)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if limit := s.cfg.FreeMaxChildren; limit > 0 && ownerTier(tx, caller.HouseholdID, s.now()) == models.TierFree {
			var count int64
			if err := tx.Model(&models.Child{}).Scopes(tenant.ForHousehold(caller.HouseholdID)).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(limit) {
				return callable.Errorf(callable.CodePermissionDenied, "Free plan supports up to %d children. Upgrade to add more.", limit)
			}
		}
		return tx.Create(child).Error
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (s *ChildService) Update(ctx context.Context, id *tenant.Identity, req dto.UpdateChildRequest) (*models.Child, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	child, err := findChild(s.db.WithContext(ctx), caller.HouseholdID, req.ChildID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, callable.InvalidArgument("Child name cannot be empty")
		}
		child.Name = name
	}
	if req.DateOfBirth != nil {
		child.DateOfBirth = *req.DateOfBirth
	}
	if req.Interests != nil {
		child.Interests = cleanStrings(req.Interests)
	}
	applyRotationSettings(&child.RotationSettings, req.RotationSettings)

	if err := s.db.WithContext(ctx).Save(child).Error; err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return child, nil
}

// Delete removes the child with its rotations and feedback. Toys linked to
// the child are kept and unlinked; toys only on display for this child go
// back to resting.
func (s *ChildService) Delete(ctx context.Context, id *tenant.Identity, childID string) error {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		child, err := findChild(tx, caller.HouseholdID, childID)
		if err != nil {
			return err
		}
		if err := restActiveToys(tx, caller.HouseholdID, child.ID); err != nil {
			return err
		}
		if err := tx.Where("child_id = ?", child.ID).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("child_id = ?", child.ID).Delete(&models.Rotation{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Toy{}).Where("child_id = ?", child.ID).Update("child_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(child).Error
	})
}

// restActiveToys rests the toys of the child's active rotation unless
// another child's active rotation still shows them.
func restActiveToys(tx *gorm.DB, householdID string, childID uuid.UUID) error {
	var active []models.Rotation
	if err := tx.Scopes(tenant.ForHousehold(householdID)).
		Where("is_active = ?", true).Find(&active).Error; err != nil {
		return err
	}
	var shown []string
	var stillShown []uuid.UUID
	for _, r := range active {
		if r.ChildID == childID {
			shown = append(shown, r.ToyIDs...)
			continue
		}
		for _, raw := range r.ToyIDs {
			if id, err := uuid.Parse(raw); err == nil {
				stillShown = append(stillShown, id)
			}
		}
	}
	resting := subtractIDs(shown, stillShown)
	if len(resting) == 0 {
		return nil
	}
	return tx.Model(&models.Toy{}).Scopes(tenant.ForHousehold(householdID)).
		Where("id IN ? AND status = ?", resting, models.ToyStatusActive).
		Update("status", models.ToyStatusResting).Error
}

func findChild(db *gorm.DB, householdID, childID string) (*models.Child, error) {
	cid, err := uuid.Parse(childID)
	if err != nil {
		return nil, callable.InvalidArgument("childId is invalid")
	}
	var child models.Child
	err = db.Scopes(tenant.ForHousehold(householdID)).First(&child, "id = ?", cid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, callable.NotFound("Child not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load child: %w", err)
	}
	return &child, nil
}

func applyRotationSettings(dst *models.RotationSettings, in *dto.RotationSettingsInput) {
	if in == nil {
		return
	}
	if in.DisplayCount != nil {
		dst.DisplayCount = *in.DisplayCount
	}
	if in.DurationDays != nil {
		dst.DurationDays = *in.DurationDays
	}
	if in.ReminderTime != nil {
		dst.ReminderTime = *in.ReminderTime
	}
}

// ownerTier returns the effective tier of the household owner, which gates
// household-wide caps.
func ownerTier(tx *gorm.DB, householdID string, now time.Time) string {
	var owner models.User
	if err := tx.First(&owner, "uid = ?", householdID).Error; err != nil {
		return models.TierFree
	}
	return owner.EffectiveTier(now)
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
