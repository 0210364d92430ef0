package handlers

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetUserInfo returns the profile itself, without the envelope.
func (h *ProfileHandler) GetUserInfo(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	return h.profiles.GetUserInfo(c.UserContext(), id)
}

func (h *ProfileHandler) UpdateUserProfile(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.UpdateProfileRequest](c)
	if err != nil {
		return nil, err
	}
	profile, err := h.profiles.UpdateUserProfile(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Profile updated successfully", profile), nil
}

func (h *ProfileHandler) ScheduleAccountDeletion(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	date, err := h.profiles.ScheduleAccountDeletion(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	return callable.OK(
		fmt.Sprintf("Account deletion scheduled for %s. You have 30 days to cancel.", date),
		dto.DeletionScheduledResponse{DeletionDate: date},
	), nil
}

func (h *ProfileHandler) CancelAccountDeletion(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	if err := h.profiles.CancelAccountDeletion(c.UserContext(), id); err != nil {
		return nil, err
	}
	return callable.OK[any]("Account deletion cancelled successfully. Your account is now active.", nil), nil
}

func (h *ProfileHandler) RegisterPushToken(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.RegisterPushTokenRequest](c)
	if err != nil {
		return nil, err
	}
	if err := h.profiles.RegisterPushToken(c.UserContext(), id, req); err != nil {
		return nil, err
	}
	return callable.OK[any]("Push token registered", nil), nil
}
