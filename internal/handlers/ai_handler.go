package handlers

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type AIHandler struct {
	ai *services.AIService
}

func NewAIHandler(ai *services.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

func (h *AIHandler) GetRotationSuggestion(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.RotationSuggestionRequest](c)
	if err != nil {
		return nil, err
	}
	suggestion, err := h.ai.GetRotationSuggestion(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Rotation suggestion generated", suggestion), nil
}

func (h *AIHandler) RecognizeToyFromPhoto(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.ImageRequest](c)
	if err != nil {
		return nil, err
	}
	result, err := h.ai.RecognizeToyFromPhoto(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Toy recognized", result), nil
}

func (h *AIHandler) AnalyzeSpace(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.ImageRequest](c)
	if err != nil {
		return nil, err
	}
	result, err := h.ai.AnalyzeSpace(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Space analyzed", result), nil
}
