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

type ToyService struct {
	db         *gorm.DB
	cfg        *config.Config
	households *HouseholdService
	now        func() time.Time
}

func NewToyService(db *gorm.DB, cfg *config.Config, households *HouseholdService) *ToyService {
	return &ToyService{db: db, cfg: cfg, households: households, now: time.Now}
}

func (s *ToyService) List(ctx context.Context, id *tenant.Identity, req dto.GetToysRequest) ([]models.Toy, error) {
	caller, err := s.households.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Scopes(tenant.ForHousehold(caller.HouseholdID))
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if req.ChildID != "" {
		q = q.Where("child_id = ?", req.ChildID)
	}

	toys := []models.Toy{}
	if err := q.Order("created_at DESC").Find(&toys).Error; err != nil {
		return nil, fmt.Errorf("list toys: %w", err)
	}
	return toys, nil
}

func (s *ToyService) Add(ctx context.Context, id *tenant.Identity, req dto.AddToyRequest) (*models.Toy, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, callable.InvalidArgument("Toy name is required")
	}
	category, err := validCategory(req.Category)
	if err != nil {
		return nil, err
	}
	tags, err := validSkillTags(req.SkillTags)
	if err != nil {
		return nil, err
	}

	toy := &models.Toy{
		HouseholdID: caller.HouseholdID,
		Name:        name,
		Category:    category,
		AgeRange:    toAgeRange(req.AgeRange),
		SkillTags:   tags,
		Source:      defaultString(req.Source, models.SourceManual),
		Status:      defaultString(req.Status, models.ToyStatusResting),
		ImageURL:    req.ImageURL,
		Notes:       strings.TrimSpace(req.Notes),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ChildID != "" {
			child, err := findChild(tx, caller.HouseholdID, req.ChildID)
			if err != nil {
				return err
			}
			toy.ChildID = &child.ID
		}
		if toy.Status != models.ToyStatusRetired {
			if err := s.checkToyCap(tx, caller.HouseholdID); err != nil {
				return err
			}
		}
		return tx.Create(toy).Error
	})
	if err != nil {
		return nil, err
	}
	return toy, nil
}

func (s *ToyService) Update(ctx context.Context, id *tenant.Identity, req dto.UpdateToyRequest) (*models.Toy, error) {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	var toy *models.Toy
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		toy, err = findToy(tx, caller.HouseholdID, req.ToyID)
		if err != nil {
			return err
		}
		wasRetired := toy.Status == models.ToyStatusRetired

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return callable.InvalidArgument("Toy name cannot be empty")
			}
			toy.Name = name
		}
		if req.Category != nil {
			if toy.Category, err = validCategory(*req.Category); err != nil {
				return err
			}
		}
		if req.SkillTags != nil {
			if toy.SkillTags, err = validSkillTags(req.SkillTags); err != nil {
				return err
			}
		}
		if req.AgeRange != nil {
			toy.AgeRange = toAgeRange(req.AgeRange)
		}
		if req.Status != nil {
			toy.Status = *req.Status
		}
		if req.ImageURL != nil {
			toy.ImageURL = *req.ImageURL
		}
		if req.Notes != nil {
			toy.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.ChildID != nil {
			if *req.ChildID == "" {
				toy.ChildID = nil
			} else {
				child, err := findChild(tx, caller.HouseholdID, *req.ChildID)
				if err != nil {
					return err
				}
				toy.ChildID = &child.ID
			}
		}

		if wasRetired && toy.Status != models.ToyStatusRetired {
			if err := s.checkToyCap(tx, caller.HouseholdID); err != nil {
				return err
			}
		}
		return tx.Save(toy).Error
	})
	if err != nil {
		return nil, err
	}
	return toy, nil
}

// Delete retires the toy. The row is kept so rotation and feedback history
// stay intact.
func (s *ToyService) Delete(ctx context.Context, id *tenant.Identity, toyID string) error {
	caller, err := s.households.Resolve(ctx, id)
	if err != nil {
		return err
	}
	tid, err := uuid.Parse(toyID)
	if err != nil {
		return callable.InvalidArgument("toyId is invalid")
	}
	res := s.db.WithContext(ctx).Model(&models.Toy{}).
		Scopes(tenant.ForHousehold(caller.HouseholdID)).
		Where("id = ?", tid).
		Update("status", models.ToyStatusRetired)
	if res.Error != nil {
		return fmt.Errorf("retire toy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return callable.NotFound("Toy not found")
	}
	return nil
}

func (s *ToyService) checkToyCap(tx *gorm.DB, householdID string) error {
	limit := s.cfg.FreeMaxToys
	if limit <= 0 || ownerTier(tx, householdID, s.now()) != models.TierFree {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Toy{}).Scopes(tenant.ForHousehold(householdID)).
		Where("status <> ?", models.ToyStatusRetired).Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(limit) {
		return callable.Errorf(callable.CodePermissionDenied, "Free plan supports up to %d toys. Upgrade to add more.", limit)
	}
	return nil
}

func findToy(db *gorm.DB, householdID, toyID string) (*models.Toy, error) {
	tid, err := uuid.Parse(toyID)
	if err != nil {
		return nil, callable.InvalidArgument("toyId is invalid")
	}
	var toy models.Toy
	err = db.Scopes(tenant.ForHousehold(householdID)).First(&toy, "id = ?", tid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, callable.NotFound("Toy not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load toy: %w", err)
	}
	return &toy, nil
}

func validCategory(raw string) (string, error) {
	category := models.NormalizeCategory(raw)
	if category == "" {
		return "", callable.Errorf(callable.CodeInvalidArgument, "Unknown toy category %q", raw)
	}
	return category, nil
}

func validSkillTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tag := models.NormalizeSkillTag(r)
		if tag == "" {
			return nil, callable.Errorf(callable.CodeInvalidArgument, "Unknown skill tag %q", r)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}

func toAgeRange(in *dto.AgeRangeInput) *models.AgeRange {
	if in == nil {
		return nil
	}
	return &models.AgeRange{MinMonths: in.MinMonths, MaxMonths: in.MaxMonths}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
