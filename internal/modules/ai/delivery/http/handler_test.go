package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	aiDto "greenhouse.org/growersplatform/internal/modules/ai/dto"
	ai "greenhouse.org/growersplatform/internal/modules/ai/service"
	"greenhouse.org/growersplatform/pkg/apperror"
)

type scriptedService struct {
	chunks []string
	err    error
}

func (s scriptedService) FindGrower(context.Context, aiDto.FindGrowerInput) (*aiDto.FindGrowerResponse, error) {
	return &aiDto.FindGrowerResponse{Answer: "ok"}, nil
}

func (s scriptedService) StreamAssessment(_ context.Context, _ ai.Caller, _ aiDto.AssessmentChatInput, onDelta func(string) error) error {
	for _, c := range s.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return s.err
}

func post(svc ai.AIService, path, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := NewAIHandler(svc)
	r := gin.New()
	r.POST("/api/ai/assessment", h.Assessment)
	r.POST("/api/ai/find-grower", h.FindGrower)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const chatBody = `{"messages":[{"role":"user","content":"How should I heat my greenhouse?"}]}`

func TestAssessment_StreamsPlainText(t *testing.T) {
	w := post(scriptedService{chunks: []string{"Use ", "thermal curtains."}}, "/api/ai/assessment", chatBody)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.String() != "Use thermal curtains." {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestAssessment_FailureBeforeFirstChunkIs503(t *testing.T) {
	w := post(scriptedService{err: apperror.ErrExternalService}, "/api/ai/assessment", chatBody)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "temporarily unavailable") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAssessment_FailureMidStreamAppendsNotice(t *testing.T) {
	w := post(scriptedService{chunks: []string{"Start by "}, err: errors.New("reset")}, "/api/ai/assessment", chatBody)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "Start by ") || !strings.Contains(w.Body.String(), "interrupted") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		path, body string
	}{
		{"/api/ai/assessment", `{"messages":[]}`},
		{"/api/ai/assessment", `{"messages":[{"role":"system","content":"x"}]}`},
		{"/api/ai/find-grower", `{"query":"ab"}`},
	}
	for _, tc := range cases {
		if w := post(scriptedService{}, tc.path, tc.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s %s = %d, want 400", tc.path, tc.body, w.Code)
		}
	}
}
