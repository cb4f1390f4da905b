package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
	"greenhouse.org/growersplatform/internal/modules/profile/repository"
	"greenhouse.org/growersplatform/internal/modules/profile/search"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/sanitize"
	"greenhouse.org/growersplatform/pkg/storage"
)

const (
	maxAvatarBytes = 5 << 20
	indexTimeout   = 10 * time.Second
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *profileDto.AvatarFile) (*profileDto.ProfileResponse, error)
	ListMembers(ctx context.Context, query profileDto.DirectoryQuery) (*commonDto.Paginated[profileDto.MemberResponse], error)
	SearchMembers(ctx context.Context, q string, limit int) (*profileDto.SearchResponse, error)
	// IndexUser refreshes one member in the search index; failures are logged.
	IndexUser(ctx context.Context, userID uuid.UUID)
}

type profileService struct {
	repo    repository.ProfileRepository
	index   search.MemberIndex
	storage storage.FileStorage
	log     *logger.Logger
}

// NewProfileService builds the directory service. index and fileStorage may be nil.
func NewProfileService(repo repository.ProfileRepository, index search.MemberIndex, fileStorage storage.FileStorage, log *logger.Logger) ProfileService {
	return &profileService{repo: repo, index: index, storage: fileStorage, log: log}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	u, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := toProfileResponse(u)
	return &res, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *profileDto.AvatarFile) (*profileDto.ProfileResponse, error) {
	u, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyUpdate(u.Profile, input)
	if strings.TrimSpace(u.Profile.FullName) == "" {
		return nil, fmt.Errorf("full name cannot be empty: %w", apperror.ErrInvalidInput)
	}

	if avatar != nil && avatar.Reader != nil {
		url, err := s.uploadAvatar(ctx, avatar)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
			return nil, err
		}
		if u.AvatarURL != nil && s.storage != nil {
			old := *u.AvatarURL
			if err := s.storage.Delete(ctx, old); err != nil {
				s.log.Warn("failed to delete previous avatar", "user_id", userID, "error", err)
			}
		}
		u.AvatarURL = &url
	}

	if err := s.repo.Save(ctx, u.Profile); err != nil {
		return nil, err
	}

	s.reindex(ctx, u)
	res := toProfileResponse(u)
	return &res, nil
}

func (s *profileService) uploadAvatar(ctx context.Context, avatar *profileDto.AvatarFile) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("avatar storage: %w", apperror.ErrExternalService)
	}

	data, err := io.ReadAll(io.LimitReader(avatar.Reader, maxAvatarBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxAvatarBytes {
		return "", apperror.New(400, "avatar must be 5 MB or smaller", apperror.ErrInvalidInput)
	}

	_, ext, err := storage.Sniff(data, storage.ImageTypes)
	if err != nil {
		return "", err
	}
	return s.storage.Upload(ctx, bytes.NewReader(data), "avatars", uuid.NewString()+ext)
}

func applyUpdate(p *entity.Profile, in profileDto.UpdateProfileInput) {
	if in.FullName != nil {
		p.FullName = sanitize.Text(*in.FullName)
	}
	if in.FarmName != nil {
		p.FarmName = optionalText(*in.FarmName)
	}
	if in.Phone != nil {
		p.Phone = optionalText(*in.Phone)
	}
	if in.Website != nil {
		p.Website = optionalText(*in.Website)
	}
	if in.Bio != nil {
		p.Bio = optionalText(*in.Bio)
	}
	if in.State != nil {
		p.State = strings.ToUpper(strings.TrimSpace(*in.State))
	}
	if in.County != nil {
		p.County = sanitize.Text(*in.County)
	}
	if in.FarmType != nil {
		p.FarmType = strings.ToLower(sanitize.Text(*in.FarmType))
	}
	if in.CropTypes != nil {
		p.CropTypes = normalizeList(in.CropTypes)
	}
	if in.ClimateControls != nil {
		p.ClimateControls = normalizeList(in.ClimateControls)
	}
	if in.GreenhouseSqFt != nil {
		p.GreenhouseSqFt = in.GreenhouseSqFt
	}
	if in.DirectoryVisible != nil {
		p.DirectoryVisible = *in.DirectoryVisible
	}
}

func (s *profileService) ListMembers(ctx context.Context, query profileDto.DirectoryQuery) (*commonDto.Paginated[profileDto.MemberResponse], error) {
	pq := commonDto.PageQuery{Page: query.Page, Limit: query.Limit}
	page, limit := pq.Normalize(20)

	filter := repository.DirectoryFilter{
		Keywords: Keywords(query.Q),
		State:    query.State,
		FarmType: query.FarmType,
		Crop:     strings.TrimSpace(query.Crop),
	}
	users, total, err := s.repo.Directory(ctx, filter, pq.Offset(20), limit)
	if err != nil {
		return nil, err
	}

	return &commonDto.Paginated[profileDto.MemberResponse]{
		Data: toMembers(users),
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

// SearchMembers asks the search index first and falls back to a keyword query on the database.
func (s *profileService) SearchMembers(ctx context.Context, q string, limit int) (*profileDto.SearchResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, q, limit)
		if err == nil {
			users, err := s.repo.VisibleByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return &profileDto.SearchResponse{Data: toMembers(users), Source: "index"}, nil
		}
		s.log.Warn("member search index unavailable, using database", "error", err)
	}

	users, _, err := s.repo.Directory(ctx, repository.DirectoryFilter{Keywords: Keywords(q)}, 0, limit)
	if err != nil {
		return nil, err
	}
	return &profileDto.SearchResponse{Data: toMembers(users), Source: "database"}, nil
}

func (s *profileService) IndexUser(ctx context.Context, userID uuid.UUID) {
	if s.index == nil {
		return
	}
	u, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Warn("failed to load member for indexing", "user_id", userID, "error", err)
		return
	}
	s.reindex(ctx, u)
}

func (s *profileService) reindex(ctx context.Context, u *entity.User) {
	if s.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
	defer cancel()
	if err := s.index.Upsert(ctx, u); err != nil {
		s.log.Warn("failed to index member", "user_id", u.ID, "error", err)
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "who": true, "with": true, "any": true,
	"are": true, "near": true, "grow": true, "grows": true, "growing": true, "grower": true,
	"growers": true, "find": true, "someone": true, "that": true, "what": true, "farm": true,
}

// Keywords splits free text into lower-case search terms of three or more letters.
func Keywords(q string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == 8 {
			break
		}
	}
	return out
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		v = strings.ToLower(sanitize.Text(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func optionalText(s string) *string {
	s = sanitize.Text(s)
	if s == "" {
		return nil
	}
	return &s
}

func toMembers(users []entity.User) []profileDto.MemberResponse {
	out := make([]profileDto.MemberResponse, 0, len(users))
	for i := range users {
		out = append(out, toMember(&users[i]))
	}
	return out
}

func toMember(u *entity.User) profileDto.MemberResponse {
	m := profileDto.MemberResponse{
		UserID:          u.ID,
		Username:        u.Username,
		AvatarURL:       u.AvatarURL,
		CropTypes:       []string{},
		ClimateControls: []string{},
	}
	if p := u.Profile; p != nil {
		m.FullName = p.FullName
		m.FarmName = p.FarmName
		m.Website = p.Website
		m.Bio = p.Bio
		m.State = p.State
		m.County = p.County
		m.FarmType = p.FarmType
		m.GreenhouseSqFt = p.GreenhouseSqFt
		if p.CropTypes != nil {
			m.CropTypes = p.CropTypes
		}
		if p.ClimateControls != nil {
			m.ClimateControls = p.ClimateControls
		}
	}
	return m
}

func toProfileResponse(u *entity.User) profileDto.ProfileResponse {
	res := profileDto.ProfileResponse{
		MemberResponse: toMember(u),
		Email:          u.Email,
		Role:           u.RoleName(),
	}
	if u.Profile != nil {
		res.Phone = u.Profile.Phone
		res.DirectoryVisible = u.Profile.DirectoryVisible
		res.UpdatedAt = u.Profile.UpdatedAt
	}
	return res
}
