package response

import (
	"errors"
	"net/http"

	"greenhouse.org/growersplatform/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, apperror.ErrUnauthorized
		}
		return id, nil
	}
	return uuid.Nil, apperror.ErrUnauthorized
}

// OptionalUserID returns the caller's ID when the request carried a valid session.
func OptionalUserID(c *gin.Context) *uuid.UUID {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// GetRole returns the role name resolved by the auth middleware, or "" for anonymous callers.
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	message := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	if code >= http.StatusInternalServerError {
		// the request logger reports c.Errors; clients get a generic message
		_ = c.Error(err)
		message = http.StatusText(code)
		if errors.Is(err, apperror.ErrExternalService) {
			message = "the service is temporarily unavailable, please try again shortly"
		}
	}

	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// ValidationError writes a 400 with per-field messages.
func ValidationError(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
}
