package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultDisplayCount = 10
	DefaultDurationDays = 7
)

// RotationDurations are the rotation lengths the client offers, in days.
var RotationDurations = []int{1, 2, 3, 4, 7, 14, 30}

type RotationSettings struct {
	DisplayCount int    `gorm:"not null" json:"displayCount"`
	DurationDays int    `gorm:"not null" json:"durationDays"`
	ReminderTime string `gorm:"size:5" json:"reminderTime,omitempty"`
}

type Child struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID      string           `gorm:"size:128;not null;index" json:"-"`
	Name             string           `gorm:"size:255;not null" json:"name"`
	DateOfBirth      string           `gorm:"size:10;not null" json:"dateOfBirth"`
	Interests        []string         `gorm:"type:jsonb;serializer:json" json:"interests"`
	RotationSettings RotationSettings `gorm:"embedded;embeddedPrefix:rotation_" json:"rotationSettings"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (c *Child) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Child) TableName() string {
	return "children"
}

// AgeInMonths returns the child's age on the given day, or -1 if the birth date is unparseable.
func (c *Child) AgeInMonths(now time.Time) int {
	dob, err := time.Parse(DateLayout, c.DateOfBirth)
	if err != nil {
		return -1
	}
	months := (now.Year()-dob.Year())*12 + int(now.Month()) - int(dob.Month())
	if now.Day() < dob.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func IsRotationDuration(days int) bool {
	for _, d := range RotationDurations {
		if d == days {
			return true
		}
	}
	return false
}

func matchFold(list []string, s string) string {
	s = strings.TrimSpace(s)
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return item
		}
	}
	return ""
}
