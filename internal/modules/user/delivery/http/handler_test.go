package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/middleware"
	"greenhouse.org/growersplatform/internal/modules/user/repository"
	user "greenhouse.org/growersplatform/internal/modules/user/service"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/token"
	"github.com/gin-gonic/gin"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewUserRepository(testutil.SQLite(t))
	tokens := token.NewManager("test-secret", time.Hour)
	log := logger.Nop()
	svc := user.NewAuthService(repo, tokens, mailer.NewLog(log), nil, log, entity.RoleMember)
	h := NewAuthHandler(svc, CookieConfig{Name: "session", TTL: time.Hour})
	auth := middleware.NewAuthMiddleware(repo, tokens, "session")

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	r.GET("/api/auth/me", auth.RequireAuth(), h.Me)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_SecondRegistrationWithSameEmailIs409(t *testing.T) {
	r := newAuthRouter(t)
	body := map[string]string{
		"username":  "rosa",
		"email":     "rosa@example.com",
		"password":  "tomatoes-2024",
		"full_name": "Rosa Grower",
	}

	if w := postJSON(r, "/api/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register: status %d body %s", w.Code, w.Body.String())
	}

	body["username"] = "rosa2"
	w := postJSON(r, "/api/auth/register", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("second register: status %d, want 409", w.Code)
	}
}

func TestRegister_ValidatesInput(t *testing.T) {
	r := newAuthRouter(t)
	w := postJSON(r, "/api/auth/register", map[string]string{
		"username": "rosa",
		"email":    "not-an-email",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	for _, f := range []string{"email", "password", "full_name"} {
		if body.Fields[f] == "" {
			t.Errorf("missing field error for %s: %v", f, body.Fields)
		}
	}
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	r := newAuthRouter(t)
	postJSON(r, "/api/auth/register", map[string]string{
		"username": "rosa", "email": "rosa@example.com", "password": "tomatoes-2024", "full_name": "Rosa",
	})

	w := postJSON(r, "/api/auth/login", map[string]string{"email": "rosa@example.com", "password": "tomatoes-2024"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d", w.Code)
	}
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.SameSite != http.SameSiteLaxMode {
		t.Fatalf("session cookie = %+v", session)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: status %d", me.Code)
	}

	if w := postJSON(r, "/api/auth/login", map[string]string{"email": "rosa@example.com", "password": "wrong-pass"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", w.Code)
	}
}
