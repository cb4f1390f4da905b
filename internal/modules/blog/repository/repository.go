package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"gorm.io/gorm"
)

// Filter narrows blog listings. A nil Published lists drafts and published posts together.
type Filter struct {
	Published *bool
	Q         string
}

type BlogRepository interface {
	Create(ctx context.Context, post *entity.BlogPost) error
	Update(ctx context.Context, post *entity.BlogPost) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (*entity.BlogPost, error)
	SlugExists(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]entity.BlogPost, int64, error)
}

type blogRepository struct {
	db *gorm.DB
}

func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) Create(ctx context.Context, post *entity.BlogPost) error {
	return translate(r.db.WithContext(ctx).Omit("Author").Create(post).Error, post.Slug)
}

func (r *blogRepository) Update(ctx context.Context, post *entity.BlogPost) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("slug", "title", "excerpt", "content", "cover_image_url", "published", "published_at", "updated_at").
		Updates(post).Error
	return translate(err, post.Slug)
}

func (r *blogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.BlogPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("blog post %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

func (r *blogRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BlogPost, error) {
	var post entity.BlogPost
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("blog post %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *blogRepository) FindBySlug(ctx context.Context, slug string) (*entity.BlogPost, error) {
	var post entity.BlogPost
	if err := r.db.WithContext(ctx).Preload("Author").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("blog post %q: %w", slug, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *blogRepository) SlugExists(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BlogPost{}).
		Where("slug = ? AND id <> ?", slug, except).
		Count(&count).Error
	return count > 0, err
}

func (r *blogRepository) List(ctx context.Context, filter Filter, offset, limit int) ([]entity.BlogPost, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.BlogPost{})
	if filter.Published != nil {
		q = q.Where("published = ?", *filter.Published)
	}
	if filter.Q != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Q)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(excerpt) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []entity.BlogPost
	err := q.Preload("Author").
		Order("COALESCE(published_at, created_at) DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, total, err
}

func translate(err error, slug string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("slug %q is already taken: %w", slug, apperror.ErrConflict)
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
