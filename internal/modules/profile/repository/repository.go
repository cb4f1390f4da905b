package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DirectoryFilter narrows the member directory. Keywords are OR-matched;
// every other field must match.
type DirectoryFilter struct {
	Keywords []string
	State    string
	FarmType string
	Crop     string
}

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	Save(ctx context.Context, profile *entity.Profile) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, url string) error
	Directory(ctx context.Context, filter DirectoryFilter, offset, limit int) ([]entity.User, int64, error)
	// VisibleByIDs returns directory-visible users in the order of ids.
	VisibleByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).Preload("Role").Preload("Profile").Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, apperror.ErrNotFound)
		}
		return nil, err
	}
	if u.Profile == nil {
		u.Profile = &entity.Profile{UserID: u.ID, FullName: u.Username, DirectoryVisible: true}
	}
	return &u, nil
}

func (r *profileRepository) Save(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *profileRepository) UpdateAvatar(ctx context.Context, userID uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", userID).Update("avatar_url", url).Error
}

func (r *profileRepository) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.directory_visible = ?", true)
}

func (r *profileRepository) Directory(ctx context.Context, filter DirectoryFilter, offset, limit int) ([]entity.User, int64, error) {
	q := r.visible(ctx)
	if filter.State != "" {
		q = q.Where("profiles.state = ?", strings.ToUpper(filter.State))
	}
	if filter.FarmType != "" {
		q = q.Where("lower(profiles.farm_type) = ?", strings.ToLower(filter.FarmType))
	}
	if filter.Crop != "" {
		// JSON arrays render elements as quoted strings on both postgres and sqlite
		q = q.Where(like("lower(CAST(profiles.crop_types AS TEXT))"), `%"`+escapeLike(strings.ToLower(filter.Crop))+`"%`)
	}
	if len(filter.Keywords) > 0 {
		var (
			clauses []string
			args    []any
		)
		for _, kw := range filter.Keywords {
			pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
			ors := make([]string, 0, len(keywordColumns))
			for _, col := range keywordColumns {
				ors = append(ors, like(col))
				args = append(args, pattern)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
		q = q.Where(strings.Join(clauses, " OR "), args...)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := q.Select("users.*").
		Preload("Profile").
		Order("profiles.full_name ASC").
		Order("users.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *profileRepository) VisibleByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []entity.User
	if err := r.visible(ctx).Select("users.*").Preload("Profile").Where("users.id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]entity.User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

var keywordColumns = []string{
	"lower(profiles.full_name)",
	"lower(COALESCE(profiles.farm_name, ''))",
	"lower(users.username)",
	"lower(profiles.county)",
	"lower(profiles.farm_type)",
	"lower(CAST(profiles.crop_types AS TEXT))",
	"lower(COALESCE(profiles.bio, ''))",
}

func like(expr string) string {
	return expr + ` LIKE ? ESCAPE '\'`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
