package models

import "time"

const (
	FeatureRotationSuggestion = "rotation_suggestion"
	FeatureToyRecognition     = "toy_recognition"
	FeatureSpaceAnalysis      = "space_analysis"
)

// AIUsage counts uses of one AI feature by one user within one period
// (YYYY-MM-DD for daily limits, YYYY-MM for monthly limits).
type AIUsage struct {
	UserID    string `gorm:"primaryKey;size:128"`
	Feature   string `gorm:"primaryKey;size:40"`
	Period    string `gorm:"primaryKey;size:10"`
	Used      int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (AIUsage) TableName() string {
	return "ai_usage"
}
