package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"gorm.io/gorm"
)

type Filter struct {
	Flag     entity.ChallengeFlag
	Category string
}

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *entity.GrowerChallenge) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.GrowerChallenge, error)
	// List returns newest first; limit <= 0 returns every match.
	List(ctx context.Context, filter Filter, offset, limit int) ([]entity.GrowerChallenge, int64, error)
	UpdateFlag(ctx context.Context, id uuid.UUID, flag entity.ChallengeFlag) error
}

type challengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) Create(ctx context.Context, challenge *entity.GrowerChallenge) error {
	return r.db.WithContext(ctx).Omit("User").Create(challenge).Error
}

func (r *challengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.GrowerChallenge, error) {
	var challenge entity.GrowerChallenge
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &challenge, nil
}

func (r *challengeRepository) List(ctx context.Context, filter Filter, offset, limit int) ([]entity.GrowerChallenge, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.GrowerChallenge{})
	if filter.Flag != "" {
		q = q.Where("flag = ?", filter.Flag)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Preload("User").Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		page = page.Offset(offset).Limit(limit)
	}
	var challenges []entity.GrowerChallenge
	if err := page.Find(&challenges).Error; err != nil {
		return nil, 0, err
	}
	return challenges, total, nil
}

func (r *challengeRepository) UpdateFlag(ctx context.Context, id uuid.UUID, flag entity.ChallengeFlag) error {
	res := r.db.WithContext(ctx).Model(&entity.GrowerChallenge{}).Where("id = ?", id).Update("flag", flag)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("challenge %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}
