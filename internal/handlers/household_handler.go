package handlers

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type HouseholdHandler struct {
	households *services.HouseholdService
}

func NewHouseholdHandler(households *services.HouseholdService) *HouseholdHandler {
	return &HouseholdHandler{households: households}
}

func (h *HouseholdHandler) GetHousehold(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	household, err := h.households.GetHousehold(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	return callable.OK("Household retrieved", household), nil
}

func (h *HouseholdHandler) InviteCaregiver(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.InviteCaregiverRequest](c)
	if err != nil {
		return nil, err
	}
	inv, err := h.households.InviteCaregiver(c.UserContext(), id, req.Email)
	if err != nil {
		return nil, err
	}
	return callable.OK("Invitation sent", inv), nil
}

func (h *HouseholdHandler) AcceptInvitation(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.InvitationIDRequest](c)
	if err != nil {
		return nil, err
	}
	household, err := h.households.AcceptInvitation(c.UserContext(), id, req.InvitationID)
	if err != nil {
		return nil, err
	}
	return callable.OK("Invitation accepted", household), nil
}

func (h *HouseholdHandler) DeclineInvitation(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.InvitationIDRequest](c)
	if err != nil {
		return nil, err
	}
	if err := h.households.DeclineInvitation(c.UserContext(), id, req.InvitationID); err != nil {
		return nil, err
	}
	return callable.OK[any]("Invitation declined", nil), nil
}

func (h *HouseholdHandler) GetPendingInvitations(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	invitations, err := h.households.GetPendingInvitations(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	return callable.OK("Pending invitations retrieved", invitations), nil
}

func (h *HouseholdHandler) RemoveCaregiver(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.RemoveCaregiverRequest](c)
	if err != nil {
		return nil, err
	}
	if err := h.households.RemoveCaregiver(c.UserContext(), id, req.UID); err != nil {
		return nil, err
	}
	return callable.OK[any]("Caregiver removed", nil), nil
}
