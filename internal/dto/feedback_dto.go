package dto

type LogFeedbackRequest struct {
	ToyID      string `json:"toyId" validate:"required,uuid"`
	RotationID string `json:"rotationId" validate:"required,uuid"`
	ChildID    string `json:"childId" validate:"required,uuid"`
	Engagement string `json:"engagement" validate:"required,oneof=liked neutral ignored"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type GetFeedbackRequest struct {
	RotationID string `json:"rotationId" validate:"omitempty,uuid"`
	ToyID      string `json:"toyId" validate:"omitempty,uuid"`
	ChildID    string `json:"childId" validate:"omitempty,uuid"`
}
