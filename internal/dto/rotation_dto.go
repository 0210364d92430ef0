package dto

type CreateRotationRequest struct {
	ChildID        string   `json:"childId" validate:"required,uuid"`
	ToyIDs         []string `json:"toyIds" validate:"required,min=1,max=100,dive,uuid"`
	StartDate      string   `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	DurationDays   *int     `json:"durationDays" validate:"omitempty,oneof=1 2 3 4 7 14 30"`
	Source         string   `json:"source" validate:"omitempty,oneof=manual ai"`
	InsightSummary string   `json:"insightSummary" validate:"max=2000"`
}

type GetRotationsRequest struct {
	ChildID string `json:"childId" validate:"omitempty,uuid"`
}
