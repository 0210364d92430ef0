package tenant

import (
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// Identity is the authenticated caller as reported by the token verifier.
type Identity struct {
	UID           string
	Email         string
	Name          string
	EmailVerified bool
}

// SetIdentity stores the caller identity in Fiber context locals.
func SetIdentity(c *fiber.Ctx, id *Identity) {
	c.Locals(identityKey, id)
}

// GetIdentity extracts the caller identity from Fiber context locals.
func GetIdentity(c *fiber.Ctx) (*Identity, error) {
	id, ok := c.Locals(identityKey).(*Identity)
	if !ok || id == nil || id.UID == "" {
		return nil, callable.Unauthenticated("User must be authenticated to call this function")
	}
	return id, nil
}

// GetUserID returns the caller uid, or "" when the request is anonymous.
func GetUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(identityKey).(*Identity); ok && id != nil {
		return id.UID
	}
	return ""
}
