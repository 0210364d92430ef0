package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleOwner     = "owner"
	RoleCaregiver = "caregiver"

	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// Household is the sharing boundary. Its ID is the owner's UID.
type Household struct {
	ID        string            `gorm:"primaryKey;size:128" json:"id"`
	OwnerUID  string            `gorm:"size:128;not null;index" json:"ownerUid"`
	Members   []HouseholdMember `gorm:"foreignKey:HouseholdID;references:ID" json:"members"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (Household) TableName() string {
	return "households"
}

// HouseholdMember is one caregiver entry. UID is empty until the invite is accepted.
type HouseholdMember struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	HouseholdID  string     `gorm:"size:128;not null;uniqueIndex:idx_household_members_email,priority:1" json:"-"`
	UID          string     `gorm:"size:128;index" json:"uid"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:idx_household_members_email,priority:2" json:"email"`
	DisplayName  string     `gorm:"size:255" json:"displayName,omitempty"`
	Role         string     `gorm:"size:20;not null" json:"role"`
	InviteStatus string     `gorm:"size:20;not null" json:"inviteStatus"`
	InvitedAt    *time.Time `json:"invitedAt,omitempty"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

func (m *HouseholdMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (HouseholdMember) TableName() string {
	return "household_members"
}

// Invitation is matched to its invitee by lower-cased email.
type Invitation struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	HouseholdID  string     `gorm:"size:128;not null;index" json:"householdId"`
	InviterUID   string     `gorm:"size:128;not null" json:"inviterUid"`
	InviterName  string     `gorm:"size:255" json:"inviterName,omitempty"`
	InviteeEmail string     `gorm:"size:255;not null;index" json:"inviteeEmail"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	ExpiresAt    time.Time  `gorm:"not null" json:"expiresAt"`
	RespondedAt  *time.Time `json:"respondedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
