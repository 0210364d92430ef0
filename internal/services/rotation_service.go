package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// createRotationAttempts bounds retries after losing the active-rotation
	// unique index race to a concurrent creator.
	createRotationAttempts = 3
	rotationHistoryLimit   = 50
)

type RotationService struct {
	db         *gorm.DB
	households *HouseholdService
	now        func() time.Time
}

func NewRotationService(db *gorm.DB, households *HouseholdService) *RotationService {
	return &RotationService{db: db, households: households, now: time.Now}
}

// Create starts a new rotation for a child. In one transaction it
// deactivates the child's current rotation, rests the toys that are not
// carried over, activates the selected toys and inserts the new rotation.
func (s *RotationService) Create(ctx context.Context, id *tenant.Identity, req dto.CreateRotationRequest) (*models.Rotation, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	toyIDs, err := parseToyIDs(req.ToyIDs)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	if req.StartDate != "" {
		start, err = time.Parse(models.DateLayout, req.StartDate)
		if err != nil {
			return nil, callable.InvalidArgument("startDate must be YYYY-MM-DD")
		}
	}

	var rotation *models.Rotation
	for attempt := 1; attempt <= createRotationAttempts; attempt++ {
		rotation, err = s.createOnce(ctx, caller.HouseholdID, req, toyIDs, start)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		slog.Warn("concurrent rotation create, retrying", "household_id", caller.HouseholdID, "child_id", req.ChildID, "attempt", attempt)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, callable.Internal("Could not create rotation, please try again")
	}
	if err != nil {
		return nil, err
	}

	slog.Info("rotation created", "household_id", caller.HouseholdID, "child_id", rotation.ChildID, "rotation_id", rotation.ID, "toys", len(toyIDs))
	return rotation, nil
}

func (s *RotationService) createOnce(ctx context.Context, householdID string, req dto.CreateRotationRequest, toyIDs []uuid.UUID, start time.Time) (*models.Rotation, error) {
	var rotation *models.Rotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		child, err := findChild(tx, householdID, req.ChildID)
		if err != nil {
			return err
		}

		var found int64
		if err := tx.Model(&models.Toy{}).Scopes(tenant.ForHousehold(householdID)).
			Where("id IN ? AND status <> ?", toyIDs, models.ToyStatusRetired).
			Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(toyIDs)) {
			return callable.InvalidArgument("toyIds must reference existing, non-retired toys")
		}

		duration := models.DefaultDurationDays
		if child.RotationSettings.DurationDays > 0 {
			duration = child.RotationSettings.DurationDays
		}
		if req.DurationDays != nil {
			duration = *req.DurationDays
		}

		var previous models.Rotation
		err = tx.Where("child_id = ? AND is_active = ?", child.ID, true).First(&previous).Error
		switch {
		case err == nil:
			if err := tx.Model(&previous).Update("is_active", false).Error; err != nil {
				return err
			}
			if resting := subtractIDs(previous.ToyIDs, toyIDs); len(resting) > 0 {
				if err := tx.Model(&models.Toy{}).Scopes(tenant.ForHousehold(householdID)).
					Where("id IN ? AND status = ?", resting, models.ToyStatusActive).
					Update("status", models.ToyStatusResting).Error; err != nil {
					return err
				}
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Model(&models.Toy{}).Scopes(tenant.ForHousehold(householdID)).
			Where("id IN ?", toyIDs).
			Update("status", models.ToyStatusActive).Error; err != nil {
			return err
		}

		ids := make([]string, len(toyIDs))
		for i, t := range toyIDs {
			ids[i] = t.String()
		}
		rotation = &models.Rotation{
			HouseholdID:    householdID,
			ChildID:        child.ID,
			StartDate:      start.Format(models.DateLayout),
			EndDate:        start.AddDate(0, 0, duration).Format(models.DateLayout),
			ToyIDs:         ids,
			Source:         defaultString(req.Source, models.SourceManual),
			InsightSummary: req.InsightSummary,
			IsActive:       true,
		}
		return tx.Create(rotation).Error
	})
	if err != nil {
		return nil, err
	}
	return rotation, nil
}

// Current returns the child's active rotation, or nil when there is none.
func (s *RotationService) Current(ctx context.Context, id *tenant.Identity, childID string) (*models.Rotation, error) {
	caller, err := s.households.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	cid, err := uuid.Parse(childID)
	if err != nil {
		return nil, callable.InvalidArgument("childId is invalid")
	}

	var rotations []models.Rotation
	if err := s.db.WithContext(ctx).Scopes(tenant.ForHousehold(caller.HouseholdID)).
		Where("child_id = ? AND is_active = ?", cid, true).
		Limit(1).Find(&rotations).Error; err != nil {
		return nil, fmt.Errorf("load current rotation: %w", err)
	}
	if len(rotations) == 0 {
		return nil, nil
	}
	return &rotations[0], nil
}

// List returns the most recent rotations, newest first.
func (s *RotationService) List(ctx context.Context, id *tenant.Identity, childID string) ([]models.Rotation, error) {
	caller, err := s.households.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Scopes(tenant.ForHousehold(caller.HouseholdID))
	if childID != "" {
		q = q.Where("child_id = ?", childID)
	}
	rotations := []models.Rotation{}
	if err := q.Order("start_date DESC").Order("created_at DESC").
		Limit(rotationHistoryLimit).Find(&rotations).Error; err != nil {
		return nil, fmt.Errorf("list rotations: %w", err)
	}
	return rotations, nil
}

func parseToyIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, callable.InvalidArgument("toyIds must contain at least one toy")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, callable.Errorf(callable.CodeInvalidArgument, "Invalid toy id %q", r)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// subtractIDs returns the ids in prev that are not in next.
func subtractIDs(prev []string, next []uuid.UUID) []uuid.UUID {
	keep := make(map[uuid.UUID]struct{}, len(next))
	for _, id := range next {
		keep[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, raw := range prev {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
