package dto

type AgeRangeInput struct {
	MinMonths int `json:"minMonths" validate:"min=0,max=216"`
	MaxMonths int `json:"maxMonths" validate:"min=0,max=216,gtefield=MinMonths"`
}

type AddToyRequest struct {
	Name      string         `json:"name" validate:"required,max=200"`
	Category  string         `json:"category" validate:"required"`
	AgeRange  *AgeRangeInput `json:"ageRange"`
	SkillTags []string       `json:"skillTags" validate:"omitempty,max=14"`
	Source    string         `json:"source" validate:"omitempty,oneof=manual ai"`
	Status    string         `json:"status" validate:"omitempty,oneof=active resting retired"`
	ImageURL  string         `json:"imageUrl" validate:"omitempty,url,max=2048"`
	Notes     string         `json:"notes" validate:"max=1000"`
	ChildID   string         `json:"childId" validate:"omitempty,uuid"`
}

// UpdateToyRequest is a partial update. An empty childId unlinks the toy.
type UpdateToyRequest struct {
	ToyID     string         `json:"toyId" validate:"required,uuid"`
	Name      *string        `json:"name" validate:"omitempty,min=1,max=200"`
	Category  *string        `json:"category"`
	AgeRange  *AgeRangeInput `json:"ageRange"`
	SkillTags []string       `json:"skillTags" validate:"omitempty,max=14"`
	Status    *string        `json:"status" validate:"omitempty,oneof=active resting retired"`
	ImageURL  *string        `json:"imageUrl" validate:"omitempty,url,max=2048"`
	Notes     *string        `json:"notes" validate:"omitempty,max=1000"`
	ChildID   *string        `json:"childId" validate:"omitnil,len=0|uuid"`
}

type GetToysRequest struct {
	Status  string `json:"status" validate:"omitempty,oneof=active resting retired"`
	ChildID string `json:"childId" validate:"omitempty,uuid"`
}

type ToyIDRequest struct {
	ToyID string `json:"toyId" validate:"required,uuid"`
}
