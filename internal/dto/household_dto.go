package dto

type InviteCaregiverRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type InvitationIDRequest struct {
	InvitationID string `json:"invitationId" validate:"required,uuid"`
}

type RemoveCaregiverRequest struct {
	UID string `json:"uid" validate:"required,max=128"`
}
