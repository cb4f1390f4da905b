package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"greenhouse.org/growersplatform/internal/entity"
	analyticsDto "greenhouse.org/growersplatform/internal/modules/analytics/dto"
	"greenhouse.org/growersplatform/internal/modules/analytics/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/metrics"
	"greenhouse.org/growersplatform/pkg/spreadsheet"
)

const (
	maxMetadataBytes = 2048
	// client timestamps older than this, or in the future, are replaced by the receive time
	maxClockSkew   = 7 * 24 * time.Hour
	persistTimeout = 3 * time.Second
	exportLimit    = 50000
	defaultWindow  = 30 * 24 * time.Hour
)

type AnalyticsService interface {
	// Ingest validates a batch and stores it best-effort. It only fails on invalid input.
	Ingest(ctx context.Context, userID *uuid.UUID, input analyticsDto.BatchInput) (*analyticsDto.BatchResponse, error)
	Summary(ctx context.Context, since string) (*analyticsDto.SummaryResponse, error)
	Export(ctx context.Context, w io.Writer, since string) error
}

type analyticsService struct {
	repo repository.AnalyticsRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewAnalyticsService(repo repository.AnalyticsRepository, log *logger.Logger) AnalyticsService {
	return &analyticsService{repo: repo, log: log, now: time.Now}
}

func (s *analyticsService) Ingest(ctx context.Context, userID *uuid.UUID, input analyticsDto.BatchInput) (*analyticsDto.BatchResponse, error) {
	now := s.now().UTC()
	events := make([]entity.AnalyticsEvent, 0, len(input.Events))
	for i, in := range input.Events {
		kind := strings.ToLower(strings.TrimSpace(in.Kind))
		if !slices.Contains(analyticsDto.Kinds, kind) {
			return nil, fmt.Errorf("event %d: unknown kind %q: %w", i, in.Kind, apperror.ErrInvalidInput)
		}

		var meta datatypes.JSON
		if raw := bytes.TrimSpace(in.Metadata); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if raw[0] != '{' {
				return nil, fmt.Errorf("event %d: metadata must be an object: %w", i, apperror.ErrInvalidInput)
			}
			if len(raw) > maxMetadataBytes {
				return nil, fmt.Errorf("event %d: metadata exceeds %d bytes: %w", i, maxMetadataBytes, apperror.ErrInvalidInput)
			}
			meta = datatypes.JSON(raw)
		}

		occurred := now
		if in.OccurredAt != nil && !in.OccurredAt.After(now) && now.Sub(*in.OccurredAt) <= maxClockSkew {
			occurred = in.OccurredAt.UTC()
		}

		events = append(events, entity.AnalyticsEvent{
			Kind:       kind,
			Path:       in.Path,
			UserID:     userID,
			ResourceID: in.ResourceID,
			SessionKey: in.SessionKey,
			Metadata:   meta,
			OccurredAt: occurred,
		})
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.repo.CreateBatch(persistCtx, events); err != nil {
		s.log.Warn("failed to persist analytics events", "error", err, "count", len(events))
	} else {
		for _, e := range events {
			metrics.AnalyticsEvents.WithLabelValues(e.Kind).Inc()
		}
	}
	return &analyticsDto.BatchResponse{Accepted: len(events)}, nil
}

func (s *analyticsService) Summary(ctx context.Context, since string) (*analyticsDto.SummaryResponse, error) {
	from, err := s.parseSince(since)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByKind(ctx, from)
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]int64, len(counts))
	for _, c := range counts {
		byKind[c.Kind] = c.Count
	}
	res := &analyticsDto.SummaryResponse{Since: from, Counts: make([]analyticsDto.KindCount, 0, len(analyticsDto.Kinds))}
	for _, k := range analyticsDto.Kinds {
		res.Counts = append(res.Counts, analyticsDto.KindCount{Kind: k, Count: byKind[k]})
		res.Total += byKind[k]
	}
	return res, nil
}

func (s *analyticsService) Export(ctx context.Context, w io.Writer, since string) error {
	from, err := s.parseSince(since)
	if err != nil {
		return err
	}
	events, err := s.repo.List(ctx, from, exportLimit)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		user, resource := "", ""
		if e.UserID != nil {
			user = e.UserID.String()
		}
		if e.ResourceID != nil {
			resource = e.ResourceID.String()
		}
		rows = append(rows, []any{e.ID, e.OccurredAt.Format(time.RFC3339), e.Kind, e.Path, user, resource, e.SessionKey, string(e.Metadata)})
	}
	header := []string{"ID", "Occurred At", "Kind", "Path", "User ID", "Resource ID", "Session", "Metadata"}
	return spreadsheet.WriteXLSX(w, "Events", header, rows)
}

// parseSince accepts a date or RFC 3339 timestamp; empty means the last 30 days.
func (s *analyticsService) parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC().Add(-defaultWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("since must be YYYY-MM-DD or RFC 3339: %w", apperror.ErrInvalidInput)
}
