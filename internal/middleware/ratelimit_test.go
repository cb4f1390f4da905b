package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/ratelimiter"
	"greenhouse.org/growersplatform/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimiter.Result, error) {
	return ratelimiter.Result{}, errors.New("redis down")
}

func TestRateLimit_PerClientKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set(response.ContextUserID, userID)
		}
	})
	r.Use(RateLimit(ratelimiter.NewMemory(2, time.Minute), logger.Nop()))
	r.GET("/ai", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(asUser bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ai", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		if asUser {
			req.Header.Set("X-Test-User", "1")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := hit(false); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	w := hit(false)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third anonymous request: status %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Same IP, but authenticated callers are keyed by user id.
	if w := hit(true); w.Code != http.StatusOK {
		t.Fatalf("authenticated request: status %d", w.Code)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(failingLimiter{}, logger.Nop()))
	r.GET("/ai", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ai", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}
