package logging

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"gorm.io/gorm"
)

// LogRetention is how long system_logs rows are kept.
const LogRetention = 30 * 24 * time.Hour

// PruneSystemLogs deletes system_logs older than retention and returns how
// many rows were removed.
func PruneSystemLogs(db *gorm.DB, retention time.Duration) func(ctx context.Context, now time.Time) (int, error) {
	return func(ctx context.Context, now time.Time) (int, error) {
		result := db.WithContext(ctx).Where("timestamp < ?", now.Add(-retention)).Delete(&models.SystemLog{})
		return int(result.RowsAffected), result.Error
	}
}
