package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/resource/dto"
	"greenhouse.org/growersplatform/internal/modules/resource/query"
	"greenhouse.org/growersplatform/internal/modules/resource/repository"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/sanitize"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResourceService interface {
	List(ctx context.Context, req dto.ListResourcesRequest, userID *uuid.UUID) (*dto.ResourcePage, error)
	Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*dto.ResourceResponse, error)
	Create(ctx context.Context, input dto.ResourceInput) (*dto.ResourceResponse, error)
	Update(ctx context.Context, id uuid.UUID, input dto.ResourceInput) (*dto.ResourceResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// CreateIfAbsent stores input unless a resource with the same URL exists.
	CreateIfAbsent(ctx context.Context, input dto.ResourceInput) (bool, error)
	Import(ctx context.Context, fileName string, r io.Reader) (*dto.ImportResult, error)

	ToggleFavorite(ctx context.Context, userID, resourceID uuid.UUID) (*dto.FavoriteResponse, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*commonDto.Paginated[dto.ResourceResponse], error)
}

type resourceService struct {
	repo repository.ResourceRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewResourceService(repo repository.ResourceRepository, log *logger.Logger) ResourceService {
	return &resourceService{repo: repo, log: log, now: time.Now}
}

func (s *resourceService) List(ctx context.Context, req dto.ListResourcesRequest, userID *uuid.UUID) (*dto.ResourcePage, error) {
	q, err := query.Parse(query.Params{
		Type:    req.Type,
		Q:       req.Q,
		Filters: req.Filters,
		Sort:    req.Sort,
		Cursor:  req.Cursor,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, err
	}

	plan := q.Plan(query.Today(s.now()))
	rows, total, err := s.repo.Search(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search resources: %w", err)
	}

	page := &dto.ResourcePage{Items: []dto.ResourceResponse{}, Total: total}
	if len(rows) > q.Limit {
		last := rows[q.Limit-1]
		next := q.NextCursor(last.ID, last.Keys(plan.Terms))
		page.NextCursor = &next
		rows = rows[:q.Limit]
	}

	resources := make([]entity.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, row.Resource)
	}
	page.Items, err = s.withFavorites(ctx, resources, userID)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *resourceService) Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*dto.ResourceResponse, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.withFavorites(ctx, []entity.Resource{*res}, userID)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *resourceService) withFavorites(ctx context.Context, resources []entity.Resource, userID *uuid.UUID) ([]dto.ResourceResponse, error) {
	favs := map[uuid.UUID]bool{}
	if userID != nil && len(resources) > 0 {
		ids := make([]uuid.UUID, 0, len(resources))
		for _, r := range resources {
			ids = append(ids, r.ID)
		}
		var err error
		if favs, err = s.repo.FavoriteSet(ctx, *userID, ids); err != nil {
			return nil, fmt.Errorf("load favorites: %w", err)
		}
	}

	out := make([]dto.ResourceResponse, 0, len(resources))
	for i := range resources {
		out = append(out, toResponse(&resources[i], favs[resources[i].ID]))
	}
	return out, nil
}

func (s *resourceService) Create(ctx context.Context, input dto.ResourceInput) (*dto.ResourceResponse, error) {
	res, err := buildResource(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	out := toResponse(res, false)
	return &out, nil
}

func (s *resourceService) Update(ctx context.Context, id uuid.UUID, input dto.ResourceInput) (*dto.ResourceResponse, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := buildResource(input)
	if err != nil {
		return nil, err
	}

	existing.Type = updated.Type
	existing.Title = updated.Title
	existing.URL = updated.URL
	existing.Summary = updated.Summary
	existing.Tags = updated.Tags
	existing.Data = updated.Data

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update resource: %w", err)
	}
	out := toResponse(existing, false)
	return &out, nil
}

func (s *resourceService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *resourceService) CreateIfAbsent(ctx context.Context, input dto.ResourceInput) (bool, error) {
	if input.URL != "" {
		exists, err := s.repo.ExistsByURL(ctx, input.URL)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if _, err := s.Create(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}

func (s *resourceService) ToggleFavorite(ctx context.Context, userID, resourceID uuid.UUID) (*dto.FavoriteResponse, error) {
	state, err := s.repo.ToggleFavorite(ctx, userID, resourceID)
	if err != nil {
		return nil, err
	}
	return &dto.FavoriteResponse{ResourceID: resourceID, Favorited: state}, nil
}

func (s *resourceService) ListFavorites(ctx context.Context, userID uuid.UUID, pq commonDto.PageQuery) (*commonDto.Paginated[dto.ResourceResponse], error) {
	page, limit := pq.Normalize(query.DefaultLimit)
	resources, total, err := s.repo.ListFavorites(ctx, userID, pq.Offset(query.DefaultLimit), limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ResourceResponse, 0, len(resources))
	for i := range resources {
		items = append(items, toResponse(&resources[i], true))
	}
	return &commonDto.Paginated[dto.ResourceResponse]{Data: items, Meta: commonDto.NewPaginationMeta(page, limit, total)}, nil
}

// buildResource validates input and normalises it into an entity.
func buildResource(input dto.ResourceInput) (*entity.Resource, error) {
	rt := entity.ResourceType(strings.TrimSpace(input.Type))
	if !rt.Valid() {
		return nil, fmt.Errorf("unknown resource type %q: %w", input.Type, apperror.ErrInvalidInput)
	}

	title := sanitize.Text(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperror.ErrInvalidInput)
	}

	data := input.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %w", apperror.ErrInvalidInput)
	}

	return &entity.Resource{
		Type:    rt,
		Title:   title,
		URL:     strings.TrimSpace(input.URL),
		Summary: sanitize.Text(input.Summary),
		Tags:    datatypes.JSONSlice[string](normalizeTags(input.Tags)),
		Data:    datatypes.JSON(raw),
	}, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func toResponse(r *entity.Resource, favorited bool) dto.ResourceResponse {
	data := json.RawMessage(r.Data)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return dto.ResourceResponse{
		ID:        r.ID,
		Type:      string(r.Type),
		Title:     r.Title,
		URL:       r.URL,
		Summary:   r.Summary,
		Tags:      tags,
		Data:      data,
		Favorited: favorited,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
