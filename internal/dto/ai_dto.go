package dto

import "github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"

// MaxImageBase64Len caps uploaded photos at 4 MiB of base64 text.
const MaxImageBase64Len = 4 << 20

type RotationSuggestionRequest struct {
	ChildID string   `json:"childId" validate:"required,uuid"`
	ToyIDs  []string `json:"toyIds" validate:"omitempty,max=500,dive,uuid"`
}

type ImageRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required,max=4194304"`
}

type RotationSuggestionResponse struct {
	ToyIDs         []string `json:"toyIds"`
	InsightSummary string   `json:"insightSummary"`
	Reasoning      string   `json:"reasoning"`
	Fallback       bool     `json:"fallback"`
}

type ToyRecognitionResponse struct {
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	SkillTags  []string         `json:"skillTags"`
	AgeRange   *models.AgeRange `json:"ageRange,omitempty"`
	Confidence float64          `json:"confidence"`
	Fallback   bool             `json:"fallback"`
}

type SpaceAnalysisResponse struct {
	Observations              []string `json:"observations"`
	Insights                  string   `json:"insights"`
	DisplayCapacitySuggestion *int     `json:"displayCapacitySuggestion,omitempty"`
	AIPowered                 bool     `json:"aiPowered"`
	Fallback                  bool     `json:"fallback"`
}
