package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/quietdrop/quietdrop-api/pkg/errors"
	"github.com/quietdrop/quietdrop-api/pkg/response"
)

// ContextAdminKey is the gin context key storing the admin subject.
const ContextAdminKey = "adminSubject"

const adminRole = "admin"

// AdminClaims is the token payload for operator access.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth protects operator routes by requiring a bearer token signed
// with the shared admin secret and carrying the admin role.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token"))
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*AdminClaims)
		if !ok || !token.Valid || claims.Role != adminRole {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims"))
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims.Subject)
		c.Next()
	}
}

// MintAdminToken issues an operator token. Used by the token tooling
// and by tests.
func MintAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
