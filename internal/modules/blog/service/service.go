package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	blogDto "greenhouse.org/growersplatform/internal/modules/blog/dto"
	"greenhouse.org/growersplatform/internal/modules/blog/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/sanitize"
)

const (
	defaultLimit  = 10
	maxSlugLength = 80
	excerptLength = 240
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

type BlogService interface {
	ListPublished(ctx context.Context, query blogDto.ListBlogQuery) (*commonDto.Paginated[blogDto.BlogPostSummary], error)
	GetPublished(ctx context.Context, slug string) (*blogDto.BlogPostResponse, error)

	AdminList(ctx context.Context, query blogDto.AdminListBlogQuery) (*commonDto.Paginated[blogDto.BlogPostSummary], error)
	AdminGet(ctx context.Context, id uuid.UUID) (*blogDto.BlogPostResponse, error)
	Create(ctx context.Context, authorID uuid.UUID, input blogDto.CreateBlogPostInput) (*blogDto.BlogPostResponse, error)
	Update(ctx context.Context, id uuid.UUID, input blogDto.UpdateBlogPostInput) (*blogDto.BlogPostResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type blogService struct {
	repo repository.BlogRepository
	now  func() time.Time
}

func NewBlogService(repo repository.BlogRepository) BlogService {
	return &blogService{repo: repo, now: time.Now}
}

func (s *blogService) ListPublished(ctx context.Context, query blogDto.ListBlogQuery) (*commonDto.Paginated[blogDto.BlogPostSummary], error) {
	published := true
	page, limit := query.Normalize(defaultLimit)
	posts, total, err := s.repo.List(ctx, repository.Filter{Published: &published, Q: strings.TrimSpace(query.Q)}, query.Offset(defaultLimit), limit)
	if err != nil {
		return nil, err
	}
	return paginate(posts, page, limit, total), nil
}

// GetPublished hides drafts behind the same 404 as a missing slug.
func (s *blogService) GetPublished(ctx context.Context, slug string) (*blogDto.BlogPostResponse, error) {
	post, err := s.repo.FindBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, fmt.Errorf("blog post %q: %w", slug, apperror.ErrNotFound)
	}
	return toResponse(post), nil
}

func (s *blogService) AdminList(ctx context.Context, query blogDto.AdminListBlogQuery) (*commonDto.Paginated[blogDto.BlogPostSummary], error) {
	var filter repository.Filter
	switch query.Status {
	case "published":
		v := true
		filter.Published = &v
	case "draft":
		v := false
		filter.Published = &v
	}
	page, limit := query.Normalize(defaultLimit)
	posts, total, err := s.repo.List(ctx, filter, query.Offset(defaultLimit), limit)
	if err != nil {
		return nil, err
	}
	return paginate(posts, page, limit, total), nil
}

func (s *blogService) AdminGet(ctx context.Context, id uuid.UUID) (*blogDto.BlogPostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(post), nil
}

func (s *blogService) Create(ctx context.Context, authorID uuid.UUID, input blogDto.CreateBlogPostInput) (*blogDto.BlogPostResponse, error) {
	post := &entity.BlogPost{
		ID:            uuid.New(),
		AuthorID:      authorID,
		Title:         sanitize.Text(input.Title),
		Content:       sanitize.HTML(input.Content),
		Excerpt:       sanitize.Text(input.Excerpt),
		CoverImageURL: input.CoverImageURL,
	}
	if post.Title == "" || post.Content == "" {
		return nil, fmt.Errorf("title and content must not be empty: %w", apperror.ErrInvalidInput)
	}
	if post.Excerpt == "" {
		post.Excerpt = sanitize.Truncate(sanitize.Text(post.Content), excerptLength)
	}

	base := post.Title
	if input.Slug != nil && strings.TrimSpace(*input.Slug) != "" {
		base = *input.Slug
	}
	slug, err := s.uniqueSlug(ctx, base, post.ID)
	if err != nil {
		return nil, err
	}
	post.Slug = slug
	s.setPublished(post, input.Published)

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, post.ID)
}

func (s *blogService) Update(ctx context.Context, id uuid.UUID, input blogDto.UpdateBlogPostInput) (*blogDto.BlogPostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if post.Title = sanitize.Text(*input.Title); post.Title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrInvalidInput)
		}
	}
	if input.Content != nil {
		if post.Content = sanitize.HTML(*input.Content); post.Content == "" {
			return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrInvalidInput)
		}
	}
	if input.Excerpt != nil {
		post.Excerpt = sanitize.Text(*input.Excerpt)
	}
	if input.CoverImageURL != nil {
		if *input.CoverImageURL == "" {
			post.CoverImageURL = nil
		} else {
			post.CoverImageURL = input.CoverImageURL
		}
	}
	if input.Slug != nil {
		if post.Slug, err = s.uniqueSlug(ctx, *input.Slug, post.ID); err != nil {
			return nil, err
		}
	}
	if input.Published != nil {
		s.setPublished(post, *input.Published)
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, post.ID)
}

func (s *blogService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// setPublished keeps the first publication time when a post is unpublished and republished.
func (s *blogService) setPublished(post *entity.BlogPost, published bool) {
	post.Published = published
	if published && post.PublishedAt == nil {
		now := s.now().UTC()
		post.PublishedAt = &now
	}
}

func (s *blogService) uniqueSlug(ctx context.Context, source string, id uuid.UUID) (string, error) {
	base := Slugify(source)
	if base == "" {
		base = "post"
	}

	slug := base
	for n := 2; ; n++ {
		taken, err := s.repo.SlugExists(ctx, slug, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		if n > 20 {
			return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// Slugify lower-cases s and joins its ASCII letter and digit runs with hyphens.
func Slugify(s string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

func paginate(posts []entity.BlogPost, page, limit int, total int64) *commonDto.Paginated[blogDto.BlogPostSummary] {
	data := make([]blogDto.BlogPostSummary, 0, len(posts))
	for i := range posts {
		data = append(data, toSummary(&posts[i]))
	}
	return &commonDto.Paginated[blogDto.BlogPostSummary]{Data: data, Meta: commonDto.NewPaginationMeta(page, limit, total)}
}

func toSummary(p *entity.BlogPost) blogDto.BlogPostSummary {
	author := commonDto.AuthorResponse{ID: p.AuthorID, Username: p.Author.Username, AvatarURL: p.Author.AvatarURL}
	return blogDto.BlogPostSummary{
		ID:            p.ID,
		Slug:          p.Slug,
		Title:         p.Title,
		Excerpt:       p.Excerpt,
		CoverImageURL: p.CoverImageURL,
		Published:     p.Published,
		PublishedAt:   p.PublishedAt,
		Author:        author,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toResponse(p *entity.BlogPost) *blogDto.BlogPostResponse {
	return &blogDto.BlogPostResponse{BlogPostSummary: toSummary(p), Content: p.Content, CreatedAt: p.CreatedAt}
}
