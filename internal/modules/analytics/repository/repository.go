package repository

import (
	"context"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	analyticsDto "greenhouse.org/growersplatform/internal/modules/analytics/dto"
	"gorm.io/gorm"
)

type AnalyticsRepository interface {
	CreateBatch(ctx context.Context, events []entity.AnalyticsEvent) error
	CountByKind(ctx context.Context, since time.Time) ([]analyticsDto.KindCount, error)
	// List returns events since the given time, oldest first, at most limit rows.
	List(ctx context.Context, since time.Time, limit int) ([]entity.AnalyticsEvent, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CreateBatch(ctx context.Context, events []entity.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *analyticsRepository) CountByKind(ctx context.Context, since time.Time) ([]analyticsDto.KindCount, error) {
	var counts []analyticsDto.KindCount
	err := r.db.WithContext(ctx).
		Model(&entity.AnalyticsEvent{}).
		Select("kind, COUNT(*) AS count").
		Where("occurred_at >= ?", since).
		Group("kind").
		Scan(&counts).Error
	return counts, err
}

func (r *analyticsRepository) List(ctx context.Context, since time.Time, limit int) ([]entity.AnalyticsEvent, error) {
	var events []entity.AnalyticsEvent
	err := r.db.WithContext(ctx).
		Where("occurred_at >= ?", since).
		Order("occurred_at ASC").Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
