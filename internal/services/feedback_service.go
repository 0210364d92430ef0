package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const feedbackListLimit = 200

type FeedbackService struct {
	db         *gorm.DB
	households *HouseholdService
}

func NewFeedbackService(db *gorm.DB, households *HouseholdService) *FeedbackService {
	return &FeedbackService{db: db, households: households}
}

func (s *FeedbackService) Log(ctx context.Context, id *tenant.Identity, req dto.LogFeedbackRequest) (*models.Feedback, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	child, err := findChild(db, caller.HouseholdID, req.ChildID)
	if err != nil {
		return nil, err
	}
	toy, err := findToy(db, caller.HouseholdID, req.ToyID)
	if err != nil {
		return nil, err
	}
	rotation, err := findRotation(db, caller.HouseholdID, req.RotationID)
	if err != nil {
		return nil, err
	}
	if rotation.ChildID != child.ID {
		return nil, callable.InvalidArgument("Rotation does not belong to this child")
	}

	fb := &models.Feedback{
		HouseholdID: caller.HouseholdID,
		ToyID:       toy.ID,
		RotationID:  rotation.ID,
		ChildID:     child.ID,
		Engagement:  req.Engagement,
		Notes:       strings.TrimSpace(req.Notes),
		LoggedBy:    caller.User.UID,
	}
	if err := db.Create(fb).Error; err != nil {
		return nil, fmt.Errorf("log feedback: %w", err)
	}
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context, id *tenant.Identity, req dto.GetFeedbackRequest) ([]models.Feedback, error) {
	caller, err := s.households.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Scopes(tenant.ForHousehold(caller.HouseholdID))
	if req.RotationID != "" {
		q = q.Where("rotation_id = ?", req.RotationID)
	}
	if req.ToyID != "" {
		q = q.Where("toy_id = ?", req.ToyID)
	}
	if req.ChildID != "" {
		q = q.Where("child_id = ?", req.ChildID)
	}

	feedback := []models.Feedback{}
	if err := q.Order("created_at DESC").Limit(feedbackListLimit).Find(&feedback).Error; err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return feedback, nil
}

func findRotation(db *gorm.DB, householdID, rotationID string) (*models.Rotation, error) {
	rid, err := uuid.Parse(rotationID)
	if err != nil {
		return nil, callable.InvalidArgument("rotationId is invalid")
	}
	var rotation models.Rotation
	err = db.Scopes(tenant.ForHousehold(householdID)).First(&rotation, "id = ?", rid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, callable.NotFound("Rotation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load rotation: %w", err)
	}
	return &rotation, nil
}
