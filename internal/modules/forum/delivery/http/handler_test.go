package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	forumDto "greenhouse.org/growersplatform/internal/modules/forum/dto"
	"greenhouse.org/growersplatform/internal/modules/forum/repository"
	forum "greenhouse.org/growersplatform/internal/modules/forum/service"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/response"
)

const testUserHeader = "X-Test-User"

func newRouter(t *testing.T) (*gin.Engine, forum.ForumService, *entity.User, *entity.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	svc := forum.NewForumService(repository.NewForumRepository(db))
	h := NewForumHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader(testUserHeader)); err == nil {
			c.Set(response.ContextUserID, id)
		}
		c.Next()
	})
	r.PUT("/api/forum/posts/:id", h.UpdatePost)
	r.DELETE("/api/forum/posts/:id", h.DeletePost)
	r.POST("/api/forum/posts/:id/vote", h.VotePost)

	return r, svc, testutil.SeedUser(t, db, "author", entity.RoleMember), testutil.SeedUser(t, db, "other", entity.RoleMember)
}

func do(r *gin.Engine, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, user.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdatePost_NonOwnerIsForbidden(t *testing.T) {
	r, svc, author, other := newRouter(t)
	post, err := svc.CreatePost(context.Background(), author.ID, forumDto.CreatePostInput{Title: "Bench heating", Content: "Anyone tried hydronic?"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	path := "/api/forum/posts/" + post.ID.String()

	w := do(r, http.MethodPut, path, other.ID, map[string]string{"content": "mine now"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("PUT by non-owner = %d, want 403 (%s)", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodDelete, path, other.ID, nil); w.Code != http.StatusForbidden {
		t.Fatalf("DELETE by non-owner = %d, want 403", w.Code)
	}

	w = do(r, http.MethodPut, path, author.ID, map[string]string{"content": "Anyone tried hydronic bench heat?"})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT by owner = %d (%s)", w.Code, w.Body.String())
	}
	var res forumDto.PostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.EditedAt == nil {
		t.Fatal("edited_at missing after edit")
	}
}

func TestVote_RejectsBadValue(t *testing.T) {
	r, svc, author, other := newRouter(t)
	post, err := svc.CreatePost(context.Background(), author.ID, forumDto.CreatePostInput{Title: "CO2", Content: "Worth it?"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	w := do(r, http.MethodPost, "/api/forum/posts/"+post.ID.String()+"/vote", other.ID, map[string]int{"value": 3})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	w = do(r, http.MethodPost, "/api/forum/posts/not-an-id/vote", other.ID, map[string]int{"value": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
}
