package roadmap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"greenhouse.org/growersplatform/internal/entity"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
	"greenhouse.org/growersplatform/internal/modules/roadmap/repository"
	"greenhouse.org/growersplatform/internal/modules/roadmap/scoring"
	"greenhouse.org/growersplatform/pkg/apperror"
)

type RoadmapService interface {
	Questions() roadmapDto.QuestionsResponse
	Submit(ctx context.Context, userID uuid.UUID, input roadmapDto.SubmitInput) (*roadmapDto.RoadmapResponse, error)
	Latest(ctx context.Context, userID uuid.UUID) (*roadmapDto.RoadmapResponse, error)
	// Get and Recompute are limited to the assessment's owner unless asAdmin is set.
	Get(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*roadmapDto.RoadmapResponse, error)
	Recompute(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*roadmapDto.RoadmapResponse, error)
}

type roadmapService struct {
	repo repository.RoadmapRepository
}

func NewRoadmapService(repo repository.RoadmapRepository) RoadmapService {
	return &roadmapService{repo: repo}
}

func (s *roadmapService) Questions() roadmapDto.QuestionsResponse {
	return roadmapDto.QuestionsResponse{Categories: scoring.Categories(), Questions: scoring.Questions()}
}

func (s *roadmapService) Submit(ctx context.Context, userID uuid.UUID, input roadmapDto.SubmitInput) (*roadmapDto.RoadmapResponse, error) {
	if err := scoring.Validate(input.Responses); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(input.Responses)
	if err != nil {
		return nil, err
	}

	assessment := &entity.FarmAssessment{UserID: userID, Responses: datatypes.JSON(raw)}
	profile, recs, err := derive(userID, input.Responses)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, assessment, profile, recs); err != nil {
		return nil, err
	}
	return s.load(ctx, assessment)
}

func (s *roadmapService) Latest(ctx context.Context, userID uuid.UUID) (*roadmapDto.RoadmapResponse, error) {
	assessment, err := s.repo.LatestAssessment(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, assessment)
}

func (s *roadmapService) Get(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*roadmapDto.RoadmapResponse, error) {
	assessment, err := s.owned(ctx, userID, asAdmin, assessmentID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, assessment)
}

// Recompute re-derives profile and recommendations from the stored responses,
// picking up changes to the question bank or scoring rules.
func (s *roadmapService) Recompute(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*roadmapDto.RoadmapResponse, error) {
	assessment, err := s.owned(ctx, userID, asAdmin, assessmentID)
	if err != nil {
		return nil, err
	}
	responses, err := decodeResponses(assessment)
	if err != nil {
		return nil, err
	}

	profile, recs, err := derive(assessment.UserID, responses)
	if err != nil {
		return nil, err
	}
	profile.AssessmentID = assessment.ID
	if err := s.repo.ReplaceDerived(ctx, profile, recs); err != nil {
		return nil, err
	}
	return s.load(ctx, assessment)
}

func (s *roadmapService) owned(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*entity.FarmAssessment, error) {
	assessment, err := s.repo.FindAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.UserID != userID && !asAdmin {
		return nil, fmt.Errorf("assessment belongs to another member: %w", apperror.ErrForbidden)
	}
	return assessment, nil
}

func (s *roadmapService) load(ctx context.Context, assessment *entity.FarmAssessment) (*roadmapDto.RoadmapResponse, error) {
	responses, err := decodeResponses(assessment)
	if err != nil {
		return nil, err
	}
	profile, recs, err := s.repo.FindDerived(ctx, assessment.ID)
	if err != nil {
		return nil, err
	}

	res := &roadmapDto.RoadmapResponse{
		Assessment: roadmapDto.AssessmentResponse{
			ID:        assessment.ID,
			Responses: responses,
			CreatedAt: assessment.CreatedAt,
		},
		Profile: roadmapDto.ProfileResponse{
			ID: profile.ID,
			Profile: scoring.Profile{
				OverallScore:     profile.OverallScore,
				CategoryScores:   []scoring.CategoryScore{},
				Strengths:        append([]string{}, profile.Strengths...),
				ImprovementAreas: append([]string{}, profile.ImprovementAreas...),
			},
			UpdatedAt: profile.UpdatedAt,
		},
		Recommendations: make([]scoring.Recommendation, 0, len(recs)),
	}
	if len(profile.CategoryScores) > 0 {
		if err := json.Unmarshal(profile.CategoryScores, &res.Profile.CategoryScores); err != nil {
			return nil, fmt.Errorf("decode category scores: %w", err)
		}
	}
	for _, r := range recs {
		res.Recommendations = append(res.Recommendations, scoring.Recommendation{
			Category:   r.Category,
			QuestionID: r.QuestionID,
			Title:      r.Title,
			Detail:     r.Detail,
			Priority:   r.Priority,
		})
	}
	return res, nil
}

func derive(userID uuid.UUID, responses scoring.Responses) (*entity.FarmProfile, []entity.FarmRecommendation, error) {
	p := scoring.CalculateFarmProfile(responses)
	scores, err := json.Marshal(p.CategoryScores)
	if err != nil {
		return nil, nil, err
	}

	profile := &entity.FarmProfile{
		UserID:           userID,
		OverallScore:     p.OverallScore,
		CategoryScores:   datatypes.JSON(scores),
		Strengths:        p.Strengths,
		ImprovementAreas: p.ImprovementAreas,
	}

	generated := scoring.GenerateRecommendations(p, responses)
	recs := make([]entity.FarmRecommendation, 0, len(generated))
	for _, r := range generated {
		recs = append(recs, entity.FarmRecommendation{
			QuestionID: r.QuestionID,
			Category:   r.Category,
			Title:      r.Title,
			Detail:     r.Detail,
			Priority:   r.Priority,
		})
	}
	return profile, recs, nil
}

func decodeResponses(a *entity.FarmAssessment) (scoring.Responses, error) {
	var responses scoring.Responses
	if err := json.Unmarshal(a.Responses, &responses); err != nil {
		return nil, fmt.Errorf("decode assessment %s: %w", a.ID, err)
	}
	return responses, nil
}
