package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	challengeDto "greenhouse.org/growersplatform/internal/modules/challenge/dto"
	"greenhouse.org/growersplatform/internal/modules/challenge/feed"
	"greenhouse.org/growersplatform/internal/modules/challenge/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/sanitize"
	"greenhouse.org/growersplatform/pkg/spreadsheet"
)

const (
	minTextLen      = 10
	maxTextLen      = 4000
	defaultPageSize = 20
	publishTimeout  = 5 * time.Second
)

type ChallengeService interface {
	Submit(ctx context.Context, userID uuid.UUID, input challengeDto.CreateChallengeInput) (*challengeDto.ChallengeResponse, error)
	List(ctx context.Context, query challengeDto.ListChallengesQuery) (*commonDto.Paginated[challengeDto.ChallengeResponse], error)
	SetFlag(ctx context.Context, id uuid.UUID, flag string) (*challengeDto.ChallengeResponse, error)
	// Export writes every challenge matching query as an XLSX workbook; paging is ignored.
	Export(ctx context.Context, w io.Writer, query challengeDto.ListChallengesQuery) error
	Feed() feed.Feed
}

type challengeService struct {
	repo       repository.ChallengeRepository
	feed       feed.Feed
	mail       mailer.Mailer
	adminEmail string
	log        *logger.Logger
}

func NewChallengeService(repo repository.ChallengeRepository, f feed.Feed, mail mailer.Mailer, adminEmail string, log *logger.Logger) ChallengeService {
	return &challengeService{repo: repo, feed: f, mail: mail, adminEmail: adminEmail, log: log}
}

func (s *challengeService) Submit(ctx context.Context, userID uuid.UUID, input challengeDto.CreateChallengeInput) (*challengeDto.ChallengeResponse, error) {
	text := sanitize.Text(input.Text)
	if n := utf8.RuneCountInString(text); n < minTextLen || n > maxTextLen {
		return nil, fmt.Errorf("text must be between %d and %d characters: %w", minTextLen, maxTextLen, apperror.ErrInvalidInput)
	}

	challenge := &entity.GrowerChallenge{
		UserID:   userID,
		Text:     text,
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, err
	}

	saved, err := s.repo.FindByID(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}
	res := toResponse(saved)

	s.publish(ctx, res)
	if s.adminEmail != "" {
		if msg, err := mailer.ChallengeSubmitted(s.adminEmail, res.Category, res.Text); err != nil {
			s.log.Warn("failed to render challenge email", "challenge_id", res.ID, "error", err)
		} else {
			mailer.SendBestEffort(s.mail, s.log, msg)
		}
	}
	return &res, nil
}

func (s *challengeService) publish(ctx context.Context, res challengeDto.ChallengeResponse) {
	if s.feed == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		s.log.Warn("failed to encode challenge for feed", "challenge_id", res.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.feed.Publish(ctx, payload); err != nil {
		s.log.Warn("failed to publish challenge", "challenge_id", res.ID, "error", err)
	}
}

func (s *challengeService) List(ctx context.Context, query challengeDto.ListChallengesQuery) (*commonDto.Paginated[challengeDto.ChallengeResponse], error) {
	page, limit := query.Normalize(defaultPageSize)
	challenges, total, err := s.repo.List(ctx, toFilter(query), query.Offset(defaultPageSize), limit)
	if err != nil {
		return nil, err
	}

	data := make([]challengeDto.ChallengeResponse, 0, len(challenges))
	for i := range challenges {
		data = append(data, toResponse(&challenges[i]))
	}
	return &commonDto.Paginated[challengeDto.ChallengeResponse]{Data: data, Meta: commonDto.NewPaginationMeta(page, limit, total)}, nil
}

func (s *challengeService) SetFlag(ctx context.Context, id uuid.UUID, flag string) (*challengeDto.ChallengeResponse, error) {
	f := entity.ChallengeFlag(flag)
	if !f.Valid() {
		return nil, fmt.Errorf("unknown flag %q: %w", flag, apperror.ErrInvalidInput)
	}
	if err := s.repo.UpdateFlag(ctx, id, f); err != nil {
		return nil, err
	}
	saved, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toResponse(saved)
	return &res, nil
}

func (s *challengeService) Export(ctx context.Context, w io.Writer, query challengeDto.ListChallengesQuery) error {
	challenges, _, err := s.repo.List(ctx, toFilter(query), 0, 0)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(challenges))
	for _, c := range challenges {
		rows = append(rows, []any{
			c.ID.String(),
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.User.Username,
			c.User.Email,
			c.Category,
			string(c.Flag),
			c.Text,
		})
	}
	header := []string{"ID", "Submitted At", "Username", "Email", "Category", "Flag", "Challenge"}
	return spreadsheet.WriteXLSX(w, "Challenges", header, rows)
}

func (s *challengeService) Feed() feed.Feed {
	return s.feed
}

func toFilter(query challengeDto.ListChallengesQuery) repository.Filter {
	return repository.Filter{
		Flag:     entity.ChallengeFlag(query.Flag),
		Category: strings.ToLower(strings.TrimSpace(query.Category)),
	}
}

func toResponse(c *entity.GrowerChallenge) challengeDto.ChallengeResponse {
	return challengeDto.ChallengeResponse{
		ID:       c.ID,
		Text:     c.Text,
		Category: c.Category,
		Flag:     string(c.Flag),
		Submitter: challengeDto.Submitter{
			ID:       c.UserID,
			Username: c.User.Username,
			Email:    c.User.Email,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
