package middleware

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Authenticate picks the verifier for cfg.AuthMode.
func Authenticate(cfg *config.Config, verifier TokenVerifier) fiber.Handler {
	if cfg.AuthMode == "jwt" {
		return JWTProtected(cfg)
	}
	return FirebaseProtected(verifier)
}

// FirebaseProtected verifies "Authorization: Bearer <idToken>" with Firebase Auth.
func FirebaseProtected(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		idToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(idToken) == "" {
			return unauthorized(c, "Missing bearer token")
		}
		if verifier == nil {
			return unauthorized(c, "Authentication is not configured")
		}

		token, err := verifier.VerifyIDToken(c.UserContext(), strings.TrimSpace(idToken))
		if err != nil {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		}

		id := &tenant.Identity{UID: token.UID}
		id.Email, _ = token.Claims["email"].(string)
		id.Name, _ = token.Claims["name"].(string)
		id.EmailVerified, _ = token.Claims["email_verified"].(bool)
		tenant.SetIdentity(c, id)
		return c.Next()
	}
}

// JWTProtected verifies HS256 tokens signed with JWT_SECRET and copies the
// sub/email/name claims into the request identity.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Unauthorized: invalid token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Unauthorized: invalid claims")
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return unauthorized(c, "Unauthorized: missing subject")
			}
			id := &tenant.Identity{UID: sub}
			id.Email, _ = claims["email"].(string)
			id.Name, _ = claims["name"].(string)
			id.EmailVerified, _ = claims["email_verified"].(bool)
			tenant.SetIdentity(c, id)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
	})
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(callable.ErrorResponse{
		Error:   true,
		Code:    callable.CodeUnauthenticated,
		Message: message,
	})
}
