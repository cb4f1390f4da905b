package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/agent/providers"
	aiDto "greenhouse.org/growersplatform/internal/modules/ai/dto"
	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
	"greenhouse.org/growersplatform/internal/modules/roadmap/scoring"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
)

type stubMembers struct {
	members []profileDto.MemberResponse
	query   string
}

func (s *stubMembers) SearchMembers(_ context.Context, q string, _ int) (*profileDto.SearchResponse, error) {
	s.query = q
	return &profileDto.SearchResponse{Data: s.members, Source: "database"}, nil
}

type stubAssessments struct {
	owner uuid.UUID
}

func (s stubAssessments) Get(_ context.Context, userID uuid.UUID, asAdmin bool, _ uuid.UUID) (*roadmapDto.RoadmapResponse, error) {
	if userID != s.owner && !asAdmin {
		return nil, apperror.ErrForbidden
	}
	res := &roadmapDto.RoadmapResponse{}
	res.Profile.OverallScore = 42
	res.Profile.ImprovementAreas = []string{"energy"}
	res.Recommendations = []scoring.Recommendation{{Title: "Schedule an energy audit", Priority: 90}}
	return res, nil
}

// recordingLLM captures the system prompt and replays scripted chunks, optionally failing after them.
type recordingLLM struct {
	chunks []string
	err    error
	system string
}

func (r *recordingLLM) GenerateText(_ context.Context, system, prompt string) (string, error) {
	r.system = system + "\n" + prompt
	if r.err != nil {
		return "", r.err
	}
	return strings.Join(r.chunks, ""), nil
}

func (r *recordingLLM) StreamText(_ context.Context, system string, _ []providers.Message, onDelta func(string) error) error {
	r.system = system
	for _, c := range r.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return r.err
}

func (r *recordingLLM) Close() {}

func farm(name string) *string { return &name }

func growers() []profileDto.MemberResponse {
	return []profileDto.MemberResponse{
		{UserID: uuid.New(), FullName: "Ada Green", FarmName: farm("Sunny Acres"), State: "OH", County: "Wayne", CropTypes: []string{"tomatoes"}},
		{UserID: uuid.New(), FullName: "Ben Fields", State: "PA"},
	}
}

func TestFindGrower_GroundsPromptInDirectory(t *testing.T) {
	llm := &recordingLLM{chunks: []string{"Talk to Ada Green."}}
	members := &stubMembers{members: growers()}
	svc := NewAIService(llm, members, stubAssessments{}, logger.Nop())

	res, err := svc.FindGrower(context.Background(), aiDto.FindGrowerInput{Query: "tomato growers in Ohio"})
	if err != nil {
		t.Fatalf("FindGrower: %v", err)
	}
	if res.Degraded || res.Answer != "Talk to Ada Green." || len(res.Growers) != 2 {
		t.Fatalf("unexpected response %+v", res)
	}
	if members.query != "tomato growers in Ohio" {
		t.Errorf("search query = %q", members.query)
	}
	if !strings.Contains(llm.system, "Ada Green of Sunny Acres (Wayne, OH") {
		t.Errorf("prompt missing directory entry:\n%s", llm.system)
	}
}

func TestFindGrower_ProviderFailureDegrades(t *testing.T) {
	llm := &recordingLLM{err: errors.New("quota exceeded")}
	svc := NewAIService(llm, &stubMembers{members: growers()}, stubAssessments{}, logger.Nop())

	res, err := svc.FindGrower(context.Background(), aiDto.FindGrowerInput{Query: "anyone near Pittsburgh"})
	if err != nil {
		t.Fatalf("FindGrower: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded response")
	}
	if !strings.Contains(res.Answer, "Ben Fields (PA)") {
		t.Errorf("degraded answer should list matches: %q", res.Answer)
	}
}

func TestStreamAssessment_FailureBeforeOutput(t *testing.T) {
	svc := NewAIService(&recordingLLM{err: errors.New("connection reset")}, &stubMembers{}, stubAssessments{}, logger.Nop())

	err := svc.StreamAssessment(context.Background(), Caller{}, chat("help"), func(string) error { return nil })
	if !errors.Is(err, apperror.ErrExternalService) {
		t.Fatalf("err = %v, want external service", err)
	}
}

func TestStreamAssessment_FailureAfterOutput(t *testing.T) {
	svc := NewAIService(&recordingLLM{chunks: []string{"Start with "}, err: errors.New("reset")}, &stubMembers{}, stubAssessments{}, logger.Nop())

	var got strings.Builder
	err := svc.StreamAssessment(context.Background(), Caller{}, chat("help"), func(s string) error {
		got.WriteString(s)
		return nil
	})
	if !errors.Is(err, ErrStreamInterrupted) || errors.Is(err, apperror.ErrExternalService) {
		t.Fatalf("err = %v, want interrupted", err)
	}
	if got.String() != "Start with " {
		t.Errorf("streamed %q", got.String())
	}
}

func TestStreamAssessment_AssessmentGrounding(t *testing.T) {
	owner := uuid.New()
	llm := &recordingLLM{chunks: []string{"ok"}}
	svc := NewAIService(llm, &stubMembers{}, stubAssessments{owner: owner}, logger.Nop())
	id := uuid.New()
	input := chat("what first?")
	input.AssessmentID = &id

	if err := svc.StreamAssessment(context.Background(), Caller{}, input, func(string) error { return nil }); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("anonymous err = %v, want unauthorized", err)
	}
	stranger := uuid.New()
	if err := svc.StreamAssessment(context.Background(), Caller{UserID: &stranger}, input, func(string) error { return nil }); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("stranger err = %v, want forbidden", err)
	}
	if err := svc.StreamAssessment(context.Background(), Caller{UserID: &owner}, input, func(string) error { return nil }); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if !strings.Contains(llm.system, "overall score 42/100") || !strings.Contains(llm.system, "Schedule an energy audit") {
		t.Errorf("system prompt not grounded:\n%s", llm.system)
	}
}

func TestStreamAssessment_LastMessageMustBeUser(t *testing.T) {
	svc := NewAIService(providers.NewOfflineProvider(), &stubMembers{}, stubAssessments{}, logger.Nop())
	input := aiDto.AssessmentChatInput{Messages: []providers.Message{{Role: providers.RoleAssistant, Content: "hi"}}}

	if err := svc.StreamAssessment(context.Background(), Caller{}, input, func(string) error { return nil }); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func chat(text string) aiDto.AssessmentChatInput {
	return aiDto.AssessmentChatInput{Messages: []providers.Message{{Role: providers.RoleUser, Content: text}}}
}
