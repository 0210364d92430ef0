package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the calendar-date format used for rotation and deletion dates.
const DateLayout = "2006-01-02"

// Rotation is a time-boxed set of toys for one child. The partial unique
// index keeps at most one active rotation per child.
type Rotation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID    string     `gorm:"size:128;not null;index" json:"-"`
	ChildID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_rotations_active_child,where:is_active = true" json:"childId"`
	StartDate      string     `gorm:"size:10;not null" json:"startDate"`
	EndDate        string     `gorm:"size:10;not null;index" json:"endDate"`
	ToyIDs         []string   `gorm:"type:jsonb;serializer:json" json:"toyIds"`
	Source         string     `gorm:"size:20;not null" json:"source"`
	InsightSummary string     `gorm:"type:text" json:"insightSummary,omitempty"`
	IsActive       bool       `gorm:"not null;index" json:"isActive"`
	ReminderSentAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (r *Rotation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Rotation) TableName() string {
	return "rotations"
}
