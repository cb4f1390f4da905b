package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/agent/providers"
	aiDto "greenhouse.org/growersplatform/internal/modules/ai/dto"
	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/metrics"
)

const (
	growerMatches   = 5
	generateTimeout = 30 * time.Second
	streamTimeout   = 2 * time.Minute
)

// ErrStreamInterrupted reports a stream that failed after output was already sent.
var ErrStreamInterrupted = errors.New("assistant stream interrupted")

type MemberSearcher interface {
	SearchMembers(ctx context.Context, q string, limit int) (*profileDto.SearchResponse, error)
}

type AssessmentReader interface {
	Get(ctx context.Context, userID uuid.UUID, asAdmin bool, assessmentID uuid.UUID) (*roadmapDto.RoadmapResponse, error)
}

// Caller identifies who is asking; UserID is nil for anonymous requests.
type Caller struct {
	UserID  *uuid.UUID
	IsAdmin bool
}

type AIService interface {
	FindGrower(ctx context.Context, input aiDto.FindGrowerInput) (*aiDto.FindGrowerResponse, error)
	// StreamAssessment calls onDelta for each chunk. Errors before the first chunk wrap
	// apperror.ErrExternalService; later failures wrap ErrStreamInterrupted.
	StreamAssessment(ctx context.Context, caller Caller, input aiDto.AssessmentChatInput, onDelta func(string) error) error
}

type aiService struct {
	llm         providers.LLMProvider
	members     MemberSearcher
	assessments AssessmentReader
	log         *logger.Logger
}

func NewAIService(llm providers.LLMProvider, members MemberSearcher, assessments AssessmentReader, log *logger.Logger) AIService {
	return &aiService{llm: llm, members: members, assessments: assessments, log: log}
}

func (s *aiService) FindGrower(ctx context.Context, input aiDto.FindGrowerInput) (*aiDto.FindGrowerResponse, error) {
	found, err := s.members.SearchMembers(ctx, input.Query, growerMatches)
	if err != nil {
		metrics.AIRequests.WithLabelValues("find_grower", "error").Inc()
		return nil, err
	}
	growers := found.Data
	if growers == nil {
		growers = []profileDto.MemberResponse{}
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	answer, err := s.llm.GenerateText(genCtx, findGrowerSystem, findGrowerPrompt(input.Query, growers))
	if err != nil {
		s.log.Warn("find-grower completion failed, answering from directory", "error", err, "matches", len(growers))
		metrics.AIRequests.WithLabelValues("find_grower", "degraded").Inc()
		return &aiDto.FindGrowerResponse{Answer: directoryAnswer(growers), Growers: growers, Degraded: true}, nil
	}

	metrics.AIRequests.WithLabelValues("find_grower", "ok").Inc()
	return &aiDto.FindGrowerResponse{Answer: answer, Growers: growers}, nil
}

func (s *aiService) StreamAssessment(ctx context.Context, caller Caller, input aiDto.AssessmentChatInput, onDelta func(string) error) error {
	if input.Messages[len(input.Messages)-1].Role != providers.RoleUser {
		return fmt.Errorf("last message must come from the user: %w", apperror.ErrInvalidInput)
	}

	system := assessmentSystem
	if input.AssessmentID != nil {
		if caller.UserID == nil {
			return fmt.Errorf("sign in to discuss a saved assessment: %w", apperror.ErrUnauthorized)
		}
		roadmap, err := s.assessments.Get(ctx, *caller.UserID, caller.IsAdmin, *input.AssessmentID)
		if err != nil {
			return err
		}
		system += assessmentContext(roadmap)
	}

	streamCtx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	started := false
	err := s.llm.StreamText(streamCtx, system, input.Messages, func(chunk string) error {
		started = true
		return onDelta(chunk)
	})
	switch {
	case err == nil:
		metrics.AIRequests.WithLabelValues("assessment", "ok").Inc()
		return nil
	case !started:
		s.log.Warn("assessment stream failed before output", "error", err)
		metrics.AIRequests.WithLabelValues("assessment", "error").Inc()
		return fmt.Errorf("assessment chat: %v: %w", err, apperror.ErrExternalService)
	default:
		s.log.Warn("assessment stream interrupted", "error", err)
		metrics.AIRequests.WithLabelValues("assessment", "degraded").Inc()
		return fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
}
