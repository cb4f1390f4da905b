package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"greenhouse.org/growersplatform/internal/entity"
	challengeDto "greenhouse.org/growersplatform/internal/modules/challenge/dto"
	"greenhouse.org/growersplatform/internal/modules/challenge/feed"
	"greenhouse.org/growersplatform/internal/modules/challenge/repository"
	challenge "greenhouse.org/growersplatform/internal/modules/challenge/service"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/response"
)

func newServer(t *testing.T) (*httptest.Server, *entity.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	log := logger.Nop()
	svc := challenge.NewChallengeService(repository.NewChallengeRepository(db), feed.NewMemoryFeed(), mailer.NewLog(log), "", log)
	h := NewChallengeHandler(svc, []string{"http://growers.test"}, log)
	user := testutil.SeedUser(t, db, "grower", entity.RoleMember)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(response.ContextUserID, user.ID)
		c.Next()
	})
	r.POST("/api/challenges", h.Create)
	r.PATCH("/api/admin/challenges/:id/flag", h.SetFlag)
	r.GET("/api/admin/challenges/ws", h.Stream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, user
}

func TestStreamDeliversNewSubmissions(t *testing.T) {
	srv, _ := newServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/challenges/ws"
	header := http.Header{"Origin": {"http://growers.test"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	body, _ := json.Marshal(challengeDto.CreateChallengeInput{Text: "Propane prices are killing our margins"})
	res, err := http.Post(srv.URL+"/api/challenges", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", res.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got challengeDto.ChallengeResponse
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Text != "Propane prices are killing our margins" {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	srv, _ := newServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/challenges/ws"
	_, res, err := websocket.DefaultDialer.DialContext(context.Background(), wsURL, http.Header{"Origin": {"http://evil.test"}})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("handshake response = %v", res)
	}
}

func TestSetFlagValidation(t *testing.T) {
	srv, _ := newServer(t)

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/admin/challenges/"+uuid.NewString()+"/flag", strings.NewReader(`{"flag":"urgent"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}
