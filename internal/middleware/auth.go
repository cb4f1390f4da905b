package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserLookup reloads the user behind a token on every request.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type AuthMiddleware struct {
	users      UserLookup
	tokens     *token.Manager
	cookieName string
}

func NewAuthMiddleware(users UserLookup, tokens *token.Manager, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{users: users, tokens: tokens, cookieName: cookieName}
}

// RequireAuth rejects requests without a valid session with 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := m.extract(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if err := m.resolve(c, raw); err != nil {
			if errors.Is(err, apperror.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
				return
			}
			response.ResponseError(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid session is present and otherwise continues anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := m.extract(c); raw != "" {
			_ = m.resolve(c, raw)
		}
		c.Next()
	}
}

// RequireRoles allows the request when the caller's role is one of roles.
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, exists := c.Get(response.ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if _, ok := allowed[role.(string)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) extract(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(m.cookieName); err == nil {
		return cookie
	}
	return ""
}

// resolve stores the live user's id and role; the role claim is not trusted on its own.
func (m *AuthMiddleware) resolve(c *gin.Context, raw string) error {
	userID, _, err := m.tokens.Parse(raw)
	if err != nil {
		return apperror.ErrUnauthorized
	}

	u, err := m.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ErrUnauthorized
		}
		return err
	}

	c.Set(response.ContextUserID, u.ID)
	c.Set(response.ContextRole, u.RoleName())
	return nil
}
