package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConfigMinAppVersion   = "min_app_version"
	ConfigForceUpdate     = "force_update"
	ConfigUpdateMessage   = "update_message"
	ConfigMaintenanceMode = "maintenance_mode"
)

// RemoteConfig stores client-facing configuration values.
type RemoteConfig struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key       string    `gorm:"size:100;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Type      string    `gorm:"size:20;default:'string'" json:"type"` // string, bool, int, json
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUID is set before creation
func (rc *RemoteConfig) BeforeCreate(tx *gorm.DB) error {
	if rc.ID == uuid.Nil {
		rc.ID = uuid.New()
	}
	return nil
}

func (RemoteConfig) TableName() string {
	return "remote_configs"
}
