package handlers

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type RotationHandler struct {
	rotations *services.RotationService
	feedback  *services.FeedbackService
}

func NewRotationHandler(rotations *services.RotationService, feedback *services.FeedbackService) *RotationHandler {
	return &RotationHandler{rotations: rotations, feedback: feedback}
}

func (h *RotationHandler) CreateRotation(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.CreateRotationRequest](c)
	if err != nil {
		return nil, err
	}
	rotation, err := h.rotations.Create(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Rotation created", rotation), nil
}

func (h *RotationHandler) GetCurrentRotation(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.ChildIDRequest](c)
	if err != nil {
		return nil, err
	}
	rotation, err := h.rotations.Current(c.UserContext(), id, req.ChildID)
	if err != nil {
		return nil, err
	}
	return callable.OK("Current rotation retrieved", rotation), nil
}

func (h *RotationHandler) GetRotations(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.GetRotationsRequest](c)
	if err != nil {
		return nil, err
	}
	rotations, err := h.rotations.List(c.UserContext(), id, req.ChildID)
	if err != nil {
		return nil, err
	}
	return callable.OK("Rotations retrieved", rotations), nil
}

func (h *RotationHandler) LogFeedback(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.LogFeedbackRequest](c)
	if err != nil {
		return nil, err
	}
	fb, err := h.feedback.Log(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Feedback logged", fb), nil
}

func (h *RotationHandler) GetFeedback(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.GetFeedbackRequest](c)
	if err != nil {
		return nil, err
	}
	feedback, err := h.feedback.List(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Feedback retrieved", feedback), nil
}
