package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostFilter struct {
	Category string
	Q        string
	// TopFirst orders by aggregate score before recency.
	TopFirst bool
}

type ForumRepository interface {
	CreatePost(ctx context.Context, post *entity.ForumPost, attachmentIDs []uint) error
	FindPost(ctx context.Context, id uuid.UUID) (*entity.ForumPost, error)
	ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]entity.ForumPost, int64, error)
	UpdatePost(ctx context.Context, post *entity.ForumPost, attachmentIDs []uint) error
	SoftDeletePost(ctx context.Context, id uuid.UUID) error

	CreateComment(ctx context.Context, comment *entity.ForumComment) error
	FindComment(ctx context.Context, id uuid.UUID) (*entity.ForumComment, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]entity.ForumComment, error)
	UpdateComment(ctx context.Context, comment *entity.ForumComment) error
	SoftDeleteComment(ctx context.Context, id uuid.UUID) error
	CommentCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	UpsertVote(ctx context.Context, vote *entity.Vote) error
	DeleteVote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID) error
	Score(ctx context.Context, entityType entity.VoteEntity, entityID uuid.UUID) (int64, error)
	Scores(ctx context.Context, entityType entity.VoteEntity, entityIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UserVotes(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityIDs []uuid.UUID) (map[uuid.UUID]int, error)

	ToggleFavorite(ctx context.Context, userID, postID uuid.UUID) (bool, error)
	FavoriteSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.ForumPost, int64, error)
}

type forumRepository struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

// CreatePost stores the post and claims the given uploads in one transaction.
func (r *forumRepository) CreatePost(ctx context.Context, post *entity.ForumPost, attachmentIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Attachments").Create(post).Error; err != nil {
			return err
		}
		return linkAttachments(tx, attachmentIDs, post.ID, post.UserID)
	})
}

// FindPost returns deleted posts too; the thread under them stays readable.
func (r *forumRepository) FindPost(ctx context.Context, id uuid.UUID) (*entity.ForumPost, error) {
	var post entity.ForumPost
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *forumRepository) ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]entity.ForumPost, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.ForumPost{}).Where("state = ?", entity.ContentActive)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if term := strings.TrimSpace(filter.Q); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(`(lower(title) LIKE ? ESCAPE '\' OR lower(content) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Preload("User").Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.TopFirst {
		page = page.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "COALESCE((SELECT SUM(v.value) FROM votes v WHERE v.entity_type = ? AND v.entity_id = forum_posts.id), 0) DESC, created_at DESC, id DESC",
			Vars:               []any{entity.VotePost},
			WithoutParentheses: true,
		}})
	} else {
		page = page.Order("created_at DESC").Order("id DESC")
	}

	var posts []entity.ForumPost
	if err := page.Offset(offset).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *forumRepository) UpdatePost(ctx context.Context, post *entity.ForumPost, attachmentIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(post).
			Select("title", "content", "category", "edited_at", "updated_at").
			Updates(post).Error
		if err != nil {
			return err
		}
		return linkAttachments(tx, attachmentIDs, post.ID, post.UserID)
	})
}

// linkAttachments only claims uploads owned by userID that are unlinked or already on postID.
func linkAttachments(tx *gorm.DB, ids []uint, postID, userID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res := tx.Model(&entity.Attachment{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Where("post_id IS NULL OR post_id = ?", postID).
		Update("post_id", postID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("%d of %d attachments are unknown or already used: %w", int64(len(ids))-res.RowsAffected, len(ids), apperror.ErrInvalidInput)
	}
	return nil
}

// SoftDeletePost tombstones the post and releases its attachments for cleanup.
// Comments and votes are left untouched.
func (r *forumRepository) SoftDeletePost(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.ForumPost{}).Where("id = ?", id).Updates(map[string]any{
			"title":   entity.Tombstone,
			"content": entity.Tombstone,
			"state":   entity.ContentDeleted,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %s: %w", id, apperror.ErrNotFound)
		}
		return tx.Model(&entity.Attachment{}).Where("post_id = ?", id).Update("post_id", nil).Error
	})
}

func (r *forumRepository) CreateComment(ctx context.Context, comment *entity.ForumComment) error {
	return r.db.WithContext(ctx).Omit("User").Create(comment).Error
}

func (r *forumRepository) FindComment(ctx context.Context, id uuid.UUID) (*entity.ForumComment, error) {
	var comment entity.ForumComment
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (r *forumRepository) ListComments(ctx context.Context, postID uuid.UUID) ([]entity.ForumComment, error) {
	var comments []entity.ForumComment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *forumRepository) UpdateComment(ctx context.Context, comment *entity.ForumComment) error {
	return r.db.WithContext(ctx).Model(comment).
		Select("content", "edited_at", "updated_at").
		Updates(comment).Error
}

func (r *forumRepository) SoftDeleteComment(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&entity.ForumComment{}).Where("id = ?", id).Updates(map[string]any{
		"content": entity.Tombstone,
		"state":   entity.ContentDeleted,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

func (r *forumRepository) CommentCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID uuid.UUID
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&entity.ForumComment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}

// UpsertVote inserts the ledger row or overwrites the value of the existing one.
func (r *forumRepository) UpsertVote(ctx context.Context, vote *entity.Vote) error {
	vote.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(vote).Error
}

func (r *forumRepository) DeleteVote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ?", userID, entityType, entityID).
		Delete(&entity.Vote{}).Error
}

func (r *forumRepository) Score(ctx context.Context, entityType entity.VoteEntity, entityID uuid.UUID) (int64, error) {
	var score int64
	err := r.db.WithContext(ctx).Model(&entity.Vote{}).
		Select("COALESCE(SUM(value), 0)").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Scan(&score).Error
	return score, err
}

func (r *forumRepository) Scores(ctx context.Context, entityType entity.VoteEntity, entityIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	scores := make(map[uuid.UUID]int64, len(entityIDs))
	if len(entityIDs) == 0 {
		return scores, nil
	}

	var rows []struct {
		EntityID uuid.UUID
		Score    int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Vote{}).
		Select("entity_id, COALESCE(SUM(value), 0) AS score").
		Where("entity_type = ? AND entity_id IN ?", entityType, entityIDs).
		Group("entity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		scores[row.EntityID] = row.Score
	}
	return scores, nil
}

func (r *forumRepository) UserVotes(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	votes := make(map[uuid.UUID]int, len(entityIDs))
	if len(entityIDs) == 0 {
		return votes, nil
	}

	var rows []entity.Vote
	err := r.db.WithContext(ctx).
		Select("entity_id", "value").
		Where("user_id = ? AND entity_type = ? AND entity_id IN ?", userID, entityType, entityIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, v := range rows {
		votes[v.EntityID] = v.Value
	}
	return votes, nil
}

// ToggleFavorite flips the (user, post) favorite and returns the resulting state.
func (r *forumRepository) ToggleFavorite(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&entity.PostFavorite{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			favorited = false
			return nil
		}

		fav := &entity.PostFavorite{UserID: userID, PostID: postID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error; err != nil {
			return err
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (r *forumRepository) FavoriteSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(postIDs))
	if len(postIDs) == 0 {
		return set, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.PostFavorite{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListFavorites skips favorites whose post has since been deleted.
func (r *forumRepository) ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.ForumPost, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.ForumPost{}).
		Joins("JOIN post_favorites pf ON pf.post_id = forum_posts.id").
		Where("pf.user_id = ? AND forum_posts.state = ?", userID, entity.ContentActive).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []entity.ForumPost
	err := q.Select("forum_posts.*").
		Preload("User").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("pf.created_at DESC").Order("forum_posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
