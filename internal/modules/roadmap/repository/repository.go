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

type RoadmapRepository interface {
	Create(ctx context.Context, assessment *entity.FarmAssessment, profile *entity.FarmProfile, recs []entity.FarmRecommendation) error
	FindAssessment(ctx context.Context, id uuid.UUID) (*entity.FarmAssessment, error)
	LatestAssessment(ctx context.Context, userID uuid.UUID) (*entity.FarmAssessment, error)
	// FindDerived returns recommendations ordered by priority, then creation order.
	FindDerived(ctx context.Context, assessmentID uuid.UUID) (*entity.FarmProfile, []entity.FarmRecommendation, error)
	ReplaceDerived(ctx context.Context, profile *entity.FarmProfile, recs []entity.FarmRecommendation) error
}

type roadmapRepository struct {
	db *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

func (r *roadmapRepository) Create(ctx context.Context, assessment *entity.FarmAssessment, profile *entity.FarmProfile, recs []entity.FarmRecommendation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assessment).Error; err != nil {
			return err
		}
		profile.AssessmentID = assessment.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return insertRecommendations(tx, profile.ID, recs)
	})
}

func (r *roadmapRepository) FindAssessment(ctx context.Context, id uuid.UUID) (*entity.FarmAssessment, error) {
	var a entity.FarmAssessment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assessment %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *roadmapRepository) LatestAssessment(ctx context.Context, userID uuid.UUID) (*entity.FarmAssessment, error) {
	var a entity.FarmAssessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no assessment submitted yet: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *roadmapRepository) FindDerived(ctx context.Context, assessmentID uuid.UUID) (*entity.FarmProfile, []entity.FarmRecommendation, error) {
	var p entity.FarmProfile
	if err := r.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("profile for assessment %s: %w", assessmentID, apperror.ErrNotFound)
		}
		return nil, nil, err
	}

	var recs []entity.FarmRecommendation
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", p.ID).
		Order("priority DESC").Order("position ASC").
		Find(&recs).Error
	if err != nil {
		return nil, nil, err
	}
	return &p, recs, nil
}

// ReplaceDerived overwrites the profile stored for profile.AssessmentID and its recommendations.
func (r *roadmapRepository) ReplaceDerived(ctx context.Context, profile *entity.FarmProfile, recs []entity.FarmRecommendation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.FarmProfile
		err := tx.Where("assessment_id = ?", profile.AssessmentID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			profile.ID = existing.ID
			profile.CreatedAt = existing.CreatedAt
			err := tx.Model(&existing).
				Select("overall_score", "category_scores", "strengths", "improvement_areas", "updated_at").
				Updates(profile).Error
			if err != nil {
				return err
			}
			if err := tx.Where("profile_id = ?", existing.ID).Delete(&entity.FarmRecommendation{}).Error; err != nil {
				return err
			}
		}
		return insertRecommendations(tx, profile.ID, recs)
	})
}

func insertRecommendations(tx *gorm.DB, profileID uuid.UUID, recs []entity.FarmRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	for i := range recs {
		recs[i].ProfileID = profileID
		recs[i].Position = i
	}
	return tx.Create(&recs).Error
}
