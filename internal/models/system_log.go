package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemLog stores structured error logs for later querying.
type SystemLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Level       string         `gorm:"size:10;not null;index" json:"level"`
	Message     string         `gorm:"type:text" json:"message"`
	HouseholdID string         `gorm:"size:128;index" json:"household_id"`
	RequestID   string         `gorm:"size:36;index" json:"request_id"`
	UserID      *string        `gorm:"size:128" json:"user_id"`
	Function    string         `gorm:"size:100;index" json:"function"`
	Code        string         `gorm:"size:40" json:"code"`
	Error       string         `gorm:"type:text" json:"error"`
	LatencyMs   int            `json:"latency_ms"`
	Extra       datatypes.JSON `gorm:"type:jsonb" json:"extra"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (l *SystemLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
