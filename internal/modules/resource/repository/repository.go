package repository

import (
	"context"
	"errors"
	"fmt"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/resource/query"
	"greenhouse.org/growersplatform/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is a resource plus the textual sort values used to build the next cursor.
type Row struct {
	entity.Resource `gorm:"embedded"`
	SortK0          *string `gorm:"column:sort_k0"`
	SortK1          *string `gorm:"column:sort_k1"`
	SortK2          *string `gorm:"column:sort_k2"`
}

func (r Row) Keys(n int) []string {
	all := []*string{r.SortK0, r.SortK1, r.SortK2}
	keys := make([]string, 0, n)
	for i := 0; i < n && i < len(all); i++ {
		if all[i] == nil {
			keys = append(keys, "")
			continue
		}
		keys = append(keys, *all[i])
	}
	return keys
}

type ResourceRepository interface {
	Search(ctx context.Context, plan query.Plan) ([]Row, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Resource, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	Create(ctx context.Context, resource *entity.Resource) error
	Update(ctx context.Context, resource *entity.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error

	ToggleFavorite(ctx context.Context, userID, resourceID uuid.UUID) (bool, error)
	FavoriteSet(ctx context.Context, userID uuid.UUID, resourceIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Resource, int64, error)
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

// Search runs the count and the page query from the same WHERE clause.
func (r *resourceRepository) Search(ctx context.Context, plan query.Plan) ([]Row, int64, error) {
	filtered := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&entity.Resource{}).
			Where("("+plan.Where.SQL+")", plan.Where.Args...)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filtered().Select(plan.Select.SQL, plan.Select.Args...)
	if plan.After != nil {
		page = page.Where("("+plan.After.SQL+")", plan.After.Args...)
	}
	page = page.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                plan.Order.SQL,
		Vars:               plan.Order.Args,
		WithoutParentheses: true,
	}})

	var rows []Row
	if err := page.Limit(plan.Fetch).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *resourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Resource, error) {
	var res entity.Resource
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resource %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &res, nil
}

func (r *resourceRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Resource{}).Where("url = ?", url).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *resourceRepository) Create(ctx context.Context, resource *entity.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *resourceRepository) Update(ctx context.Context, resource *entity.Resource) error {
	return r.db.WithContext(ctx).Save(resource).Error
}

func (r *resourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entity.Resource{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("resource %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

// ToggleFavorite flips the (user, resource) favorite and returns the resulting state.
func (r *resourceRepository) ToggleFavorite(ctx context.Context, userID, resourceID uuid.UUID) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("user_id = ? AND resource_id = ?", userID, resourceID).Delete(&entity.ResourceFavorite{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			favorited = false
			return nil
		}

		var count int64
		if err := tx.Model(&entity.Resource{}).Where("id = ?", resourceID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("resource %s: %w", resourceID, apperror.ErrNotFound)
		}

		fav := &entity.ResourceFavorite{UserID: userID, ResourceID: resourceID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error; err != nil {
			return err
		}
		favorited = true
		return nil
	})
	return favorited, err
}

func (r *resourceRepository) FavoriteSet(ctx context.Context, userID uuid.UUID, resourceIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return set, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.ResourceFavorite{}).
		Where("user_id = ? AND resource_id IN ?", userID, resourceIDs).
		Pluck("resource_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *resourceRepository) ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Resource, int64, error) {
	var favs []entity.ResourceFavorite
	var total int64

	q := r.db.WithContext(ctx).Model(&entity.ResourceFavorite{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Resource").Order("created_at DESC").Offset(offset).Limit(limit).Find(&favs).Error; err != nil {
		return nil, 0, err
	}

	out := make([]entity.Resource, 0, len(favs))
	for _, f := range favs {
		out = append(out, f.Resource)
	}
	return out, total, nil
}
