package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/foxxcyber/household/internal/config"
)

// JWTClaims represents the claims in our JWT token. Tokens issued by the
// account service may carry the user id only in the subject.
type JWTClaims struct {
	UserID int    `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var errNoUser = errors.New("token has no user")

// userID returns the claimed user, preferring user_id over sub
func (c *JWTClaims) userID() (int, error) {
	if c.UserID > 0 {
		return c.UserID, nil
	}
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, errNoUser
	}
	return id, nil
}

// GenerateToken signs a token for the user valid for cfg.JWTExpiry
func GenerateToken(cfg *config.Config, userID int, email string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// AuthRequired accepts a bearer token or the auth cookie. Anything else gets
// 401 before the handler runs.
func AuthRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			tokenString = c.Cookies(cfg.JWTCookieName)
		}
		if tokenString == "" {
			return unauthenticated(c)
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil {
			return unauthenticated(c)
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid {
			return unauthenticated(c)
		}

		userID, err := claims.userID()
		if err != nil {
			return unauthenticated(c)
		}

		c.Locals("user_id", userID)

		return c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Unauthenticated.",
	})
}

// GetUserID extracts the user ID from the context
func GetUserID(c *fiber.Ctx) int {
	if id, ok := c.Locals("user_id").(int); ok {
		return id
	}
	return 0
}
