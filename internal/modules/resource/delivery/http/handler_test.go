package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	resource "greenhouse.org/growersplatform/internal/modules/resource/service"
	"greenhouse.org/growersplatform/pkg/logger"
	"github.com/gin-gonic/gin"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	// Query validation fails before the repository is touched.
	h := NewResourceHandler(resource.NewResourceService(nil, logger.Nop()))
	r := gin.New()
	r.GET("/api/resources", h.ListResources)
	r.GET("/api/resources/:id", h.GetResource)
	return r
}

func TestListResources_RejectsBadInput(t *testing.T) {
	r := newRouter()

	cases := map[string]url.Values{
		"malformed cursor": {"cursor": {"not-a-cursor"}},
		"unknown type":     {"type": {"spaceships"}},
		"unknown sort":     {"sort": {"popularity"}},
		"broken filters":   {"type": {"grants"}, "filters": {`{"amountMin":`}},
		"bad amount":       {"type": {"grants"}, "filters": {`{"amountMin":"lots"}`}},
		"negative limit":   {"limit": {"-4"}},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/resources?"+params.Encode(), nil)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestGetResource_RejectsNonUUID(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/resources/42", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
