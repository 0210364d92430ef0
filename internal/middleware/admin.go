package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired lets a request through when it carries the configured
// X-Admin-Token, or when the authenticated uid is listed in ADMIN_USER_IDS.
// Auth on the admin group must be optional for the token path to work.
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			got := c.Get("X-Admin-Token")
			if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminToken)) == 1 {
				return c.Next()
			}
		}

		uid := tenant.GetUserID(c)
		if uid == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if contains(adminUserIDs, uid) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

// OptionalAuth runs auth only when an Authorization header is present.
func OptionalAuth(auth fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return auth(c)
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
