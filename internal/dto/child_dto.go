package dto

type RotationSettingsInput struct {
	DisplayCount *int    `json:"displayCount" validate:"omitempty,min=1,max=50"`
	DurationDays *int    `json:"durationDays" validate:"omitempty,oneof=1 2 3 4 7 14 30"`
	ReminderTime *string `json:"reminderTime" validate:"omitempty,datetime=15:04"`
}

type AddChildRequest struct {
	Name             string                 `json:"name" validate:"required,max=100"`
	DateOfBirth      string                 `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Interests        []string               `json:"interests" validate:"omitempty,max=30,dive,max=60"`
	RotationSettings *RotationSettingsInput `json:"rotationSettings"`
}

// UpdateChildRequest is a partial update; nil fields are left unchanged.
type UpdateChildRequest struct {
	ChildID          string                 `json:"childId" validate:"required,uuid"`
	Name             *string                `json:"name" validate:"omitempty,min=1,max=100"`
	DateOfBirth      *string                `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Interests        []string               `json:"interests" validate:"omitempty,max=30,dive,max=60"`
	RotationSettings *RotationSettingsInput `json:"rotationSettings"`
}

type ChildIDRequest struct {
	ChildID string `json:"childId" validate:"required,uuid"`
}
