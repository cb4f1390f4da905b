package blog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"greenhouse.org/growersplatform/internal/entity"
	blogDto "greenhouse.org/growersplatform/internal/modules/blog/dto"
	"greenhouse.org/growersplatform/internal/modules/blog/repository"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/apperror"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Spring Pest Outlook 2025!":   "spring-pest-outlook-2025",
		"  --Hydroponics & You--  ":  "hydroponics-you",
		"Ünïcode Heavy":              "n-code-heavy",
		"!!!":                        "",
		strings.Repeat("long ", 40): strings.TrimRight(strings.Repeat("long-", 16), "-"),
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreate_UniqueSlugsAndSanitizing(t *testing.T) {
	db := testutil.SQLite(t)
	admin := testutil.SeedUser(t, db, "editor", entity.RoleAdmin)
	svc := NewBlogService(repository.NewBlogRepository(db))
	ctx := context.Background()

	input := blogDto.CreateBlogPostInput{
		Title:     "Winter Heating Tips",
		Content:   `<p>Close curtains at dusk.</p><script>alert(1)</script>`,
		Published: true,
	}
	first, err := svc.Create(ctx, admin.ID, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, admin.ID, input)
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}

	if first.Slug != "winter-heating-tips" || second.Slug != "winter-heating-tips-2" {
		t.Errorf("slugs = %q, %q", first.Slug, second.Slug)
	}
	if strings.Contains(first.Content, "script") {
		t.Errorf("content not sanitised: %q", first.Content)
	}
	if first.Excerpt != "Close curtains at dusk." {
		t.Errorf("excerpt = %q", first.Excerpt)
	}
	if first.PublishedAt == nil || first.Author.Username != "editor" {
		t.Errorf("unexpected response %+v", first.BlogPostSummary)
	}

	// renaming a post onto its own slug keeps it
	same := "winter-heating-tips"
	updated, err := svc.Update(ctx, first.ID, blogDto.UpdateBlogPostInput{Slug: &same})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != same {
		t.Errorf("slug changed to %q", updated.Slug)
	}
}

func TestPublicReadsHideDrafts(t *testing.T) {
	db := testutil.SQLite(t)
	admin := testutil.SeedUser(t, db, "editor", entity.RoleAdmin)
	svc := NewBlogService(repository.NewBlogRepository(db))
	ctx := context.Background()

	draft, err := svc.Create(ctx, admin.ID, blogDto.CreateBlogPostInput{Title: "Draft notes", Content: "soon"})
	if err != nil {
		t.Fatal(err)
	}
	live, err := svc.Create(ctx, admin.ID, blogDto.CreateBlogPostInput{Title: "Member spotlight", Content: "hello", Published: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetPublished(ctx, draft.Slug); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("draft by slug err = %v, want not found", err)
	}
	if _, err := svc.GetPublished(ctx, live.Slug); err != nil {
		t.Errorf("published by slug: %v", err)
	}

	list, err := svc.ListPublished(ctx, blogDto.ListBlogQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != live.ID || list.Meta.TotalItems != 1 {
		t.Errorf("public list = %+v", list)
	}

	all, err := svc.AdminList(ctx, blogDto.AdminListBlogQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Meta.TotalItems != 2 {
		t.Errorf("admin total = %d", all.Meta.TotalItems)
	}

	published := true
	if _, err := svc.Update(ctx, draft.ID, blogDto.UpdateBlogPostInput{Published: &published}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetPublished(ctx, draft.Slug); err != nil {
		t.Errorf("after publishing: %v", err)
	}

	if err := svc.Delete(ctx, live.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, live.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
