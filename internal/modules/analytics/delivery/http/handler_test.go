package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"greenhouse.org/growersplatform/internal/modules/analytics/repository"
	analytics "greenhouse.org/growersplatform/internal/modules/analytics/service"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/logger"
)

func TestIngest_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	h := NewAnalyticsHandler(analytics.NewAnalyticsService(repository.NewAnalyticsRepository(db), logger.Nop()))
	r := gin.New()
	r.POST("/api/analytics/events", h.Ingest)

	tooMany := `{"events":[` + strings.TrimSuffix(strings.Repeat(`{"kind":"page_view"},`, 21), ",") + `]}`
	cases := []struct {
		name string
		body string
		want int
	}{
		{"accepted", `{"events":[{"kind":"page_view","path":"/"}]}`, http.StatusAccepted},
		{"empty batch", `{"events":[]}`, http.StatusBadRequest},
		{"too many", tooMany, http.StatusBadRequest},
		{"unknown kind", `{"events":[{"kind":"hover"}]}`, http.StatusBadRequest},
		{"missing kind", `{"events":[{"path":"/"}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analytics/events", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
