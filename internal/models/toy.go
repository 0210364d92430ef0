package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ToyStatusActive  = "active"
	ToyStatusResting = "resting"
	ToyStatusRetired = "retired"

	SourceManual = "manual"
	SourceAI     = "ai"

	CategoryOther = "Other"
)

// ToyCategories are the built-in categories shared with the client.
var ToyCategories = []string{
	"Building & Construction",
	"Pretend Play & Imagination",
	"Arts & Crafts",
	"Puzzles & Problem Solving",
	"Vehicles & Transport",
	"Dolls & Figures",
	"Musical & Sound",
	"Outdoor & Active Play",
	"Books & Learning",
	"Sensory & Comfort",
	CategoryOther,
}

var SkillTags = []string{
	"Fine Motor",
	"Gross Motor",
	"Language & Communication",
	"Problem Solving",
	"Creativity & Imagination",
	"Social & Emotional",
	"Sensory Exploration",
	"Cause & Effect",
	"Spatial Awareness",
	"Music & Rhythm",
	"Literacy & Reading",
	"Numeracy & Math",
	"Science & Discovery",
	"Self-Care & Independence",
}

var ToyStatuses = []string{ToyStatusActive, ToyStatusResting, ToyStatusRetired}

type AgeRange struct {
	MinMonths int `json:"minMonths"`
	MaxMonths int `json:"maxMonths"`
}

type Toy struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID string     `gorm:"size:128;not null;index" json:"-"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Category    string     `gorm:"size:64;not null" json:"category"`
	AgeRange    *AgeRange  `gorm:"type:jsonb;serializer:json" json:"ageRange,omitempty"`
	SkillTags   []string   `gorm:"type:jsonb;serializer:json" json:"skillTags"`
	Source      string     `gorm:"size:20;not null" json:"source"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	ImageURL    string     `gorm:"type:text" json:"imageUrl,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	ChildID     *uuid.UUID `gorm:"type:uuid;index" json:"childId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Toy) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (Toy) TableName() string {
	return "toys"
}

// NormalizeCategory returns the built-in category matching s case-insensitively, or "".
func NormalizeCategory(s string) string {
	return matchFold(ToyCategories, s)
}

// NormalizeSkillTag returns the built-in skill tag matching s case-insensitively, or "".
func NormalizeSkillTag(s string) string {
	return matchFold(SkillTags, s)
}
