package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TierFree  = "free"
	TierTrial = "trial"
	TierPaid  = "paid"
)

// SubscriptionEvent is one RevenueCat webhook delivery. EventID makes
// redeliveries idempotent.
type SubscriptionEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    string         `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	UserID     string         `gorm:"size:128;not null;index" json:"user_id"`
	Type       string         `gorm:"size:50;not null" json:"type"`
	ProductID  string         `gorm:"size:255" json:"product_id"`
	PeriodType string         `gorm:"size:20" json:"period_type"`
	Store      string         `gorm:"size:50" json:"store"`
	ExpiresAt  *time.Time     `json:"expires_at"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (e *SubscriptionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (SubscriptionEvent) TableName() string {
	return "subscription_events"
}
