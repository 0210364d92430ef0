package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	authSecret          string
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, authSecret string) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		authSecret:          authSecret,
	}
}

// HandleRevenueCat mirrors subscription events onto user profiles. The
// Authorization header must equal the configured shared secret.
func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	if h.authSecret == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhooks are not configured",
		})
	}

	authHeader := c.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(h.authSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var webhook dto.RevenueCatWebhook
	if err := c.BodyParser(&webhook); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}

	if err := h.subscriptionService.HandleWebhookEvent(c.UserContext(), &webhook.Event); err != nil {
		if callable.IsCode(err, callable.CodeInvalidArgument) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: callable.From(err).Message,
			})
		}
		slog.Error("webhook processing failed", "event_type", webhook.Event.Type, "user_id", webhook.Event.AppUserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "event_type", webhook.Event.Type, "user_id", webhook.Event.AppUserID)
	return c.JSON(fiber.Map{"received": true})
}
