package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageService is the per-user AI usage ledger. Each (user, feature, period)
// row is incremented with a conditional UPDATE so concurrent requests can
// never push the count past the limit.
type UsageService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewUsageService(db *gorm.DB, cfg *config.Config) *UsageService {
	return &UsageService{db: db, cfg: cfg}
}

// PeriodFor returns the ledger period for feature at now: the UTC day for
// rotation suggestions, the UTC month for everything else.
func PeriodFor(feature string, now time.Time) string {
	now = now.UTC()
	if feature == models.FeatureRotationSuggestion {
		return now.Format(models.DateLayout)
	}
	return now.Format("2006-01")
}

// LimitFor returns the per-period limit of feature for tier. Free tier gets 0.
func (s *UsageService) LimitFor(feature, tier string) int {
	if tier != models.TierTrial && tier != models.TierPaid {
		return 0
	}
	paid := tier == models.TierPaid
	switch feature {
	case models.FeatureRotationSuggestion:
		return s.cfg.SuggestionsPerDay
	case models.FeatureToyRecognition:
		if paid {
			return s.cfg.PaidRecognitionsPerMonth
		}
		return s.cfg.TrialRecognitionsPerMonth
	case models.FeatureSpaceAnalysis:
		if paid {
			return s.cfg.PaidSpaceAnalysesPerMonth
		}
		return s.cfg.TrialSpaceAnalysesPerMonth
	default:
		return 0
	}
}

// Reserve takes one use of feature for userID in the current period, or
// returns resource-exhausted when limit uses are already taken.
func (s *UsageService) Reserve(ctx context.Context, userID, feature string, limit int, now time.Time) error {
	if limit <= 0 {
		metrics.AIUsageRejected.WithLabelValues(feature).Inc()
		return exhausted(feature)
	}
	period := PeriodFor(feature, now)

	var reserved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.AIUsage{UserID: userID, Feature: feature, Period: period, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		res := tx.Model(&models.AIUsage{}).
			Where("user_id = ? AND feature = ? AND period = ? AND used < ?", userID, feature, period, limit).
			Updates(map[string]interface{}{
				"used":       gorm.Expr("used + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		reserved = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return fmt.Errorf("reserve %s usage: %w", feature, err)
	}
	if !reserved {
		metrics.AIUsageRejected.WithLabelValues(feature).Inc()
		return exhausted(feature)
	}
	return nil
}

// Used returns how many uses of feature userID has in the current period.
func (s *UsageService) Used(ctx context.Context, userID, feature string, now time.Time) (int, error) {
	var row models.AIUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND period = ?", userID, feature, PeriodFor(feature, now)).
		Limit(1).Find(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Used, nil
}

// Counters reports the current-period usage of every AI feature.
func (s *UsageService) Counters(ctx context.Context, userID string, now time.Time) (dto.AIUsageCounters, error) {
	day := PeriodFor(models.FeatureRotationSuggestion, now)
	month := PeriodFor(models.FeatureToyRecognition, now)

	var rows []models.AIUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period IN ?", userID, []string{day, month}).
		Find(&rows).Error
	if err != nil {
		return dto.AIUsageCounters{}, err
	}

	var c dto.AIUsageCounters
	for _, r := range rows {
		switch {
		case r.Feature == models.FeatureRotationSuggestion && r.Period == day:
			c.RotationSuggestionsToday = r.Used
			c.LastRotationSuggestionDate = day
		case r.Feature == models.FeatureToyRecognition && r.Period == month:
			c.ToyRecognitionsThisMonth = r.Used
			c.LastToyRecognitionMonth = month
		case r.Feature == models.FeatureSpaceAnalysis && r.Period == month:
			c.SpaceAnalysesThisMonth = r.Used
			c.LastSpaceAnalysisMonth = month
		}
	}
	return c, nil
}

func exhausted(feature string) error {
	switch feature {
	case models.FeatureRotationSuggestion:
		return callable.ResourceExhausted("Daily AI suggestion limit reached. Try again tomorrow.")
	case models.FeatureToyRecognition:
		return callable.ResourceExhausted("Monthly toy recognition limit reached")
	case models.FeatureSpaceAnalysis:
		return callable.ResourceExhausted("Monthly space analysis limit reached")
	default:
		return callable.ResourceExhausted("AI usage limit reached")
	}
}
