// Package middleware provides the Fiber middleware shared by all routes.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"inkfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocal is the Fiber locals key holding the authenticated user id.
const UserIDLocal = "userID"

var (
	errMissingHeader = errors.New("Authorization header required")
	errHeaderFormat  = errors.New("Invalid authorization header format")
	errInvalidToken  = errors.New("Invalid or expired token")
	errSubject       = errors.New("Invalid user ID in token")
)

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := authenticate(c.Get(fiber.HeaderAuthorization), secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "UNAUTHORIZED",
			})
		}
		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise continues anonymously.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			if userID, err := authenticate(header, secret); err == nil {
				setUser(c, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(UserIDLocal).(uint)
	return id
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals(UserIDLocal, userID)
	c.SetUserContext(observability.WithUserID(c.UserContext(), userID))
}

func authenticate(header, secret string) (uint, error) {
	if header == "" {
		return 0, errMissingHeader
	}
	// Extract token from "Bearer <token>"
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, errHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	// Subject claim per RFC 7519
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errSubject
	}
	return uint(userID), nil
}
