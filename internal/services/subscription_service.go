package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// HandleWebhookEvent records a RevenueCat event and mirrors the resulting
// tier onto the user profile. Redelivered events are ignored.
func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event *dto.RevenueCatEvent) error {
	if event.ID == "" || event.AppUserID == "" {
		return callable.InvalidArgument("event id and app_user_id are required")
	}

	payload, _ := json.Marshal(event)
	record := models.SubscriptionEvent{
		EventID:    event.ID,
		UserID:     event.AppUserID,
		Type:       event.Type,
		ProductID:  event.ProductID,
		PeriodType: event.PeriodType,
		Store:      event.Store,
		Payload:    datatypes.JSON(payload),
	}
	if event.ExpirationAtMs > 0 {
		t := msToTime(event.ExpirationAtMs)
		record.ExpiresAt = &t
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).Create(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			slog.Info("duplicate webhook event ignored", "event_id", event.ID)
			return nil
		}

		updates := tierUpdates(event)
		if updates == nil {
			return nil
		}
		res = tx.Model(&models.User{}).Where("uid = ?", event.AppUserID).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update subscription tier: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			slog.Info("webhook for user without profile stored for later", "user_id", event.AppUserID, "event_type", event.Type)
		}
		return nil
	})
}

// applyStoredSubscription replays the newest tier-changing event received
// before the user's profile existed.
func applyStoredSubscription(tx *gorm.DB, uid string) error {
	var events []models.SubscriptionEvent
	if err := tx.Where("user_id = ?", uid).Order("created_at DESC").Find(&events).Error; err != nil {
		return fmt.Errorf("load subscription events: %w", err)
	}
	for _, e := range events {
		var event dto.RevenueCatEvent
		if err := json.Unmarshal(e.Payload, &event); err != nil {
			slog.Warn("unreadable subscription event", "event_id", e.EventID, "error", err)
			continue
		}
		updates := tierUpdates(&event)
		if updates == nil {
			continue
		}
		if err := tx.Model(&models.User{}).Where("uid = ?", uid).Updates(updates).Error; err != nil {
			return fmt.Errorf("apply subscription event: %w", err)
		}
		slog.Info("stored subscription applied", "user_id", uid, "event_id", e.EventID, "event_type", event.Type)
		return nil
	}
	return nil
}

// tierUpdates returns the profile columns an event changes, or nil when the
// event is recorded only.
func tierUpdates(event *dto.RevenueCatEvent) map[string]interface{} {
	switch event.Type {
	case "INITIAL_PURCHASE", "RENEWAL", "UNCANCELLATION", "PRODUCT_CHANGE":
		updates := map[string]interface{}{
			"subscription_tier":       models.TierPaid,
			"subscription_active":     true,
			"revenue_cat_customer_id": customerID(event),
		}
		if event.PeriodType == "TRIAL" {
			updates["subscription_tier"] = models.TierTrial
			if event.PurchasedAtMs > 0 {
				updates["trial_start_date"] = msToTime(event.PurchasedAtMs).UTC().Format(models.DateLayout)
			}
			if event.ExpirationAtMs > 0 {
				updates["trial_end_date"] = msToTime(event.ExpirationAtMs).UTC().Format(models.DateLayout)
			}
		}
		return updates
	case "EXPIRATION":
		return map[string]interface{}{
			"subscription_tier":   models.TierFree,
			"subscription_active": false,
		}
	default:
		// CANCELLATION keeps access until EXPIRATION arrives.
		return nil
	}
}

func customerID(event *dto.RevenueCatEvent) string {
	if event.OriginalAppUserID != "" {
		return event.OriginalAppUserID
	}
	return event.AppUserID
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}
