package forum

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	forumDto "greenhouse.org/growersplatform/internal/modules/forum/dto"
	"greenhouse.org/growersplatform/internal/modules/forum/repository"
	userRepo "greenhouse.org/growersplatform/internal/modules/user/repository"
	user "greenhouse.org/growersplatform/internal/modules/user/service"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   ForumService
	alice *entity.User
	bob   *entity.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.SQLite(t)
	svc := NewForumService(repository.NewForumRepository(db))
	return fixture{
		db:    db,
		svc:   svc,
		alice: testutil.SeedUser(t, db, "alice", entity.RoleMember),
		bob:   testutil.SeedUser(t, db, "bob", entity.RoleMember),
	}
}

func (f fixture) post(t *testing.T, author *entity.User, title string) *forumDto.PostResponse {
	t.Helper()
	p, err := f.svc.CreatePost(context.Background(), author.ID, forumDto.CreatePostInput{
		Title:    title,
		Content:  "<p>How do you handle " + title + "?</p>",
		Category: "Pest Management",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

func TestCreatePostSanitizesContent(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.CreatePost(context.Background(), f.alice.ID, forumDto.CreatePostInput{
		Title:   "Aphids <b>again</b>",
		Content: `<p onclick="steal()">Neem oil?</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.Title != "Aphids again" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Content != "<p>Neem oil?</p>" {
		t.Errorf("content = %q", p.Content)
	}
	if p.Author.Username != "alice" {
		t.Errorf("author = %q", p.Author.Username)
	}

	_, err = f.svc.CreatePost(context.Background(), f.alice.ID, forumDto.CreatePostInput{Title: "x", Content: "<script>only</script>"})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("empty sanitized content err = %v, want ErrInvalidInput", err)
	}
}

func TestVoteIsIdempotentPerValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "whiteflies")

	// Each Vote upserts and then reads the SUM in a separate statement, so the returned score is
	// only exact without concurrent voters; these calls are sequential.
	for i := 0; i < 2; i++ {
		res, err := f.svc.Vote(ctx, f.bob.ID, entity.VotePost, p.ID, 1)
		if err != nil {
			t.Fatalf("Vote #%d: %v", i+1, err)
		}
		if res.Score != 1 {
			t.Fatalf("score after vote #%d = %d, want 1", i+1, res.Score)
		}
	}

	res, err := f.svc.Vote(ctx, f.bob.ID, entity.VotePost, p.ID, -1)
	if err != nil {
		t.Fatalf("change vote: %v", err)
	}
	if res.Score != -1 || res.MyVote != -1 {
		t.Fatalf("after changing vote score=%d my_vote=%d, want -1/-1", res.Score, res.MyVote)
	}

	var rows int64
	f.db.Model(&entity.Vote{}).Where("entity_id = ?", p.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("vote rows = %d, want 1", rows)
	}

	if _, err := f.svc.Vote(ctx, f.alice.ID, entity.VotePost, p.ID, 1); err != nil {
		t.Fatalf("second voter: %v", err)
	}
	detail, err := f.svc.GetPost(ctx, &f.alice.ID, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if detail.Score != 0 || detail.MyVote != 1 {
		t.Fatalf("detail score=%d my_vote=%d, want 0/1", detail.Score, detail.MyVote)
	}
}

func TestVoteRejectsOutOfRangeValue(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, f.alice, "thrips")

	_, err := f.svc.Vote(context.Background(), f.bob.ID, entity.VotePost, p.ID, 2)
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveVoteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "mildew")

	res, err := f.svc.RemoveVote(ctx, f.bob.ID, entity.VotePost, p.ID)
	if err != nil {
		t.Fatalf("RemoveVote without a vote: %v", err)
	}
	if res.Score != 0 {
		t.Fatalf("score = %d, want 0", res.Score)
	}

	if _, err := f.svc.Vote(ctx, f.alice.ID, entity.VotePost, p.ID, 1); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	res, err = f.svc.RemoveVote(ctx, f.bob.ID, entity.VotePost, p.ID)
	if err != nil {
		t.Fatalf("RemoveVote of another user: %v", err)
	}
	if res.Score != 1 {
		t.Fatalf("unrelated removal changed score to %d", res.Score)
	}

	if _, err := f.svc.RemoveVote(ctx, uuid.New(), entity.VotePost, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unknown post err = %v, want ErrNotFound", err)
	}
}

func TestSoftDeleteKeepsThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "fungus gnats")

	root, err := f.svc.CreateComment(ctx, f.bob.ID, p.ID, forumDto.CreateCommentInput{Content: "Yellow sticky cards."})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	parent := root.ID.String()
	reply, err := f.svc.CreateComment(ctx, f.alice.ID, p.ID, forumDto.CreateCommentInput{Content: "Thanks!", ParentID: &parent})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	if err := f.svc.DeletePost(ctx, f.bob.ID, p.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-author delete err = %v, want ErrForbidden", err)
	}
	if err := f.svc.DeletePost(ctx, f.alice.ID, p.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}

	list, err := f.svc.ListPosts(ctx, nil, forumDto.ListPostsQuery{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if list.Meta.TotalItems != 0 {
		t.Fatalf("deleted post still listed: %+v", list.Data)
	}

	detail, err := f.svc.GetPost(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("GetPost after delete: %v", err)
	}
	if !detail.IsDeleted || detail.Content != entity.Tombstone {
		t.Fatalf("post not tombstoned: deleted=%v content=%q", detail.IsDeleted, detail.Content)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].ID != root.ID {
		t.Fatalf("comment thread lost: %+v", detail.Comments)
	}
	if len(detail.Comments[0].Replies) != 1 || detail.Comments[0].Replies[0].ID != reply.ID {
		t.Fatalf("reply not nested: %+v", detail.Comments[0].Replies)
	}

	title := "edit"
	_, err = f.svc.UpdatePost(ctx, f.alice.ID, p.ID, forumDto.UpdatePostInput{Title: &title})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("editing deleted post err = %v, want ErrInvalidInput", err)
	}
}

func TestThreadSurvivesAuthorDeactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "damping off")

	root, err := f.svc.CreateComment(ctx, f.alice.ID, p.ID, forumDto.CreateCommentInput{Content: "Seedlings collapse at the soil line."})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	parent := root.ID.String()
	reply, err := f.svc.CreateComment(ctx, f.bob.ID, p.ID, forumDto.CreateCommentInput{Content: "Try a bottom-watering schedule.", ParentID: &parent})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := f.svc.Vote(ctx, f.bob.ID, entity.VotePost, p.ID, 1); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	admin := testutil.SeedUser(t, f.db, "staff", entity.RoleAdmin)
	admins := user.NewAdminService(userRepo.NewUserRepository(f.db), logger.Nop())
	if err := admins.DeleteUser(ctx, admin.ID, f.alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	detail, err := f.svc.GetPost(ctx, &f.bob.ID, p.ID)
	if err != nil {
		t.Fatalf("GetPost after author removal: %v", err)
	}
	if detail.Author.Username != "alice" || detail.Score != 1 || detail.MyVote != 1 {
		t.Fatalf("post changed: author=%q score=%d my_vote=%d", detail.Author.Username, detail.Score, detail.MyVote)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].ID != root.ID {
		t.Fatalf("author's comment lost: %+v", detail.Comments)
	}
	if len(detail.Comments[0].Replies) != 1 || detail.Comments[0].Replies[0].ID != reply.ID {
		t.Fatalf("reply lost its parent: %+v", detail.Comments[0].Replies)
	}

	var rows int64
	f.db.Model(&entity.User{}).Where("id = ?", f.alice.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("user rows = %d, want the account kept", rows)
	}
}

func TestDeleteCommentTombstones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "root rot")

	c, err := f.svc.CreateComment(ctx, f.bob.ID, p.ID, forumDto.CreateCommentInput{Content: "Check drainage."})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := f.svc.UpdateComment(ctx, f.alice.ID, c.ID, forumDto.UpdateCommentInput{Content: "hijack"}); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-author edit err = %v, want ErrForbidden", err)
	}

	edited, err := f.svc.UpdateComment(ctx, f.bob.ID, c.ID, forumDto.UpdateCommentInput{Content: "Check drainage and EC."})
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if edited.EditedAt == nil {
		t.Fatal("edited_at not set")
	}

	if err := f.svc.DeleteComment(ctx, f.bob.ID, c.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	detail, err := f.svc.GetPost(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got := detail.Comments[0]; !got.IsDeleted || got.Content != entity.Tombstone {
		t.Fatalf("comment not tombstoned: %+v", got)
	}
	if detail.CommentCount != 1 {
		t.Fatalf("comment count = %d, want 1", detail.CommentCount)
	}
}

func TestCommentParentMustBelongToPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.post(t, f.alice, "heaters")
	second := f.post(t, f.alice, "fans")

	c, err := f.svc.CreateComment(ctx, f.bob.ID, first.ID, forumDto.CreateCommentInput{Content: "Propane or electric?"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	parent := c.ID.String()
	_, err = f.svc.CreateComment(ctx, f.bob.ID, second.ID, forumDto.CreateCommentInput{Content: "wrong thread", ParentID: &parent})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestListPostsSortsByScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.post(t, f.alice, "irrigation timers")
	newer := f.post(t, f.alice, "drip emitters")

	if _, err := f.svc.Vote(ctx, f.bob.ID, entity.VotePost, older.ID, 1); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	newest, err := f.svc.ListPosts(ctx, nil, forumDto.ListPostsQuery{})
	if err != nil {
		t.Fatalf("ListPosts newest: %v", err)
	}
	if newest.Data[0].ID != newer.ID {
		t.Fatalf("newest first = %s, want %s", newest.Data[0].Title, newer.Title)
	}

	top, err := f.svc.ListPosts(ctx, nil, forumDto.ListPostsQuery{Sort: "top"})
	if err != nil {
		t.Fatalf("ListPosts top: %v", err)
	}
	if top.Data[0].ID != older.ID || top.Data[0].Score != 1 {
		t.Fatalf("top first = %s (score %d), want %s", top.Data[0].Title, top.Data[0].Score, older.Title)
	}

	filtered, err := f.svc.ListPosts(ctx, nil, forumDto.ListPostsQuery{Q: "EMITTERS", Category: "pest management"})
	if err != nil {
		t.Fatalf("ListPosts q: %v", err)
	}
	if filtered.Meta.TotalItems != 1 || filtered.Data[0].ID != newer.ID {
		t.Fatalf("keyword filter returned %+v", filtered.Data)
	}
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.alice, "grow lights")

	on, err := f.svc.ToggleFavorite(ctx, f.bob.ID, p.ID)
	if err != nil || !on.Favorited {
		t.Fatalf("first toggle = %+v, %v", on, err)
	}
	favs, err := f.svc.ListFavorites(ctx, f.bob.ID, commonDto.PageQuery{})
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(favs.Data) != 1 || !favs.Data[0].Favorited {
		t.Fatalf("favorites = %+v", favs.Data)
	}

	off, err := f.svc.ToggleFavorite(ctx, f.bob.ID, p.ID)
	if err != nil || off.Favorited {
		t.Fatalf("second toggle = %+v, %v", off, err)
	}
	favs, err = f.svc.ListFavorites(ctx, f.bob.ID, commonDto.PageQuery{})
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if favs.Meta.TotalItems != 0 {
		t.Fatalf("favorites after untoggle = %d", favs.Meta.TotalItems)
	}
}

func TestAttachmentsMustBeOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	att := &entity.Attachment{UserID: f.alice.ID, FileURL: "/uploads/attachments/a.png", FileType: "image/png"}
	if err := f.db.Create(att).Error; err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	_, err := f.svc.CreatePost(ctx, f.bob.ID, forumDto.CreatePostInput{Title: "borrowed", Content: "pic", AttachmentIDs: []uint{att.ID}})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("foreign attachment err = %v, want ErrInvalidInput", err)
	}
	var posts int64
	f.db.Model(&entity.ForumPost{}).Count(&posts)
	if posts != 0 {
		t.Fatalf("failed create left %d posts behind", posts)
	}

	p, err := f.svc.CreatePost(ctx, f.alice.ID, forumDto.CreatePostInput{Title: "mine", Content: "pic", AttachmentIDs: []uint{att.ID, att.ID}})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if len(p.Attachments) != 1 || p.Attachments[0].ID != att.ID {
		t.Fatalf("attachments = %+v", p.Attachments)
	}
}
