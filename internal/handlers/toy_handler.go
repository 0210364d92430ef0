package handlers

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type ToyHandler struct {
	toys *services.ToyService
}

func NewToyHandler(toys *services.ToyService) *ToyHandler {
	return &ToyHandler{toys: toys}
}

func (h *ToyHandler) GetToys(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.GetToysRequest](c)
	if err != nil {
		return nil, err
	}
	toys, err := h.toys.List(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Toys retrieved", toys), nil
}

func (h *ToyHandler) AddToy(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.AddToyRequest](c)
	if err != nil {
		return nil, err
	}
	toy, err := h.toys.Add(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Toy added", toy), nil
}

func (h *ToyHandler) UpdateToy(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.UpdateToyRequest](c)
	if err != nil {
		return nil, err
	}
	toy, err := h.toys.Update(c.UserContext(), id, req)
	if err != nil {
		return nil, err
	}
	return callable.OK("Toy updated", toy), nil
}

// DeleteToy retires the toy; the row is kept for rotation history.
func (h *ToyHandler) DeleteToy(c *fiber.Ctx, id *tenant.Identity) (interface{}, error) {
	req, err := bind[dto.ToyIDRequest](c)
	if err != nil {
		return nil, err
	}
	if err := h.toys.Delete(c.UserContext(), id, req.ToyID); err != nil {
		return nil, err
	}
	return callable.OK[any]("Toy retired", nil), nil
}
