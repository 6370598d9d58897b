package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// CodeUnauthorized accompanies every authentication failure.
const CodeUnauthorized = "unauthorized"

var hmacMethods = []string{"HS256", "HS384", "HS512"}

// JWTProtected validates HMAC bearer tokens and exposes the user id and role as the
// "user_id" and "user_role" locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods(hmacMethods))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, CodeUnauthorized, "missing or malformed bearer token")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, CodeUnauthorized, "invalid token")
		}

		userID, ok := subjectOf(claims)
		if !ok {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, CodeUnauthorized, "token has no subject")
		}
		c.Locals("user_id", userID)
		if role := roleOf(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// subjectOf reads the numeric user id from sub, user_id or id, in that order.
func subjectOf(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, present := claims[key]
		if !present {
			continue
		}
		if id, err := toUserID(value); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func toUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid subject %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

// roleOf returns the first non-empty role from role or roles.
func roleOf(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := normalizeRole(v); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					if role := normalizeRole(str); role != "" {
						return role
					}
				}
			}
		}
	}
	return ""
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
