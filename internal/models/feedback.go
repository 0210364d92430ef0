package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EngagementLiked   = "liked"
	EngagementNeutral = "neutral"
	EngagementIgnored = "ignored"
)

// Feedback is append-only; rows are never updated.
type Feedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID string    `gorm:"size:128;not null;index" json:"-"`
	ToyID       uuid.UUID `gorm:"type:uuid;not null;index" json:"toyId"`
	RotationID  uuid.UUID `gorm:"type:uuid;not null;index" json:"rotationId"`
	ChildID     uuid.UUID `gorm:"type:uuid;not null;index" json:"childId"`
	Engagement  string    `gorm:"size:20;not null" json:"engagement"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	LoggedBy    string    `gorm:"size:128;not null" json:"loggedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (Feedback) TableName() string {
	return "feedback"
}
