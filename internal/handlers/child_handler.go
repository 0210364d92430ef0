package handlers

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type ChildHandler struct {
	children *services.ChildService
}

func NewChildHandler(children *services.ChildService) *ChildHandler {
	return &ChildHandler{children: children}
}

func (h *ChildHandler) GetChildProfiles(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	children, err := h.children.List(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	return callable.OK("Children retrieved", children), nil
}

func (h *ChildHandler) AddChildProfile(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.AddChildRequest](c)
	if err != nil {
		return nil, err
	}
	child, err := h.children.Add(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Child profile created", child), nil
}

func (h *ChildHandler) UpdateChildProfile(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.UpdateChildRequest](c)
	if err != nil {
		return nil, err
	}
	child, err := h.children.Update(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Child profile updated", child), nil
}

func (h *ChildHandler) DeleteChildProfile(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.ChildIDRequest](c)
	if err != nil {
		return nil, err
	}
	if err := h.children.Delete(c.UserContext(), id, req.ChildID); err != nil {
		return nil, err
	}
	return callable.OK[any]("Child profile deleted", nil), nil
}
