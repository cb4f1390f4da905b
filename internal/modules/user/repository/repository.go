package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindRoleByName(ctx context.Context, name string) (*entity.Role, error)
	// Taken reports whether the email or the username already belongs to a user.
	Taken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, roleID uint) error
	List(ctx context.Context, q string, offset, limit int) ([]entity.User, int64, error)
	// Deactivate disables the account and hides its profile; ErrNotFound when already disabled or missing.
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Role", "Profile").Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("email or username already registered: %w", apperror.ErrConflict)
			}
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			user.Profile = profile
		}

		return nil
	})
}

func (r *userRepository) first(ctx context.Context, where string, arg any) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Profile").
		Where("disabled_at IS NULL").
		Where(where, arg).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "lower(email) = ?", strings.ToLower(email))
}

func (r *userRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %q: %w", name, apperror.ErrInvalidInput)
		}
		return nil, err
	}
	return &role, nil
}

func (r *userRepository) Taken(ctx context.Context, email, username string) (bool, bool, error) {
	var rows []struct {
		Email    string
		Username string
	}
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Select("email, username").
		Where("lower(email) = ? OR lower(username) = ?", strings.ToLower(email), strings.ToLower(username)).
		Find(&rows).Error
	if err != nil {
		return false, false, err
	}

	var emailTaken, usernameTaken bool
	for _, row := range rows {
		emailTaken = emailTaken || strings.EqualFold(row.Email, email)
		usernameTaken = usernameTaken || strings.EqualFold(row.Username, username)
	}
	return emailTaken, usernameTaken, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, roleID uint) error {
	return r.updateColumn(ctx, id, "role_id", roleID)
}

func (r *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, q string, offset, limit int) ([]entity.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&entity.User{}).Where("disabled_at IS NULL")
	if q = strings.TrimSpace(q); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		base = base.Where("lower(username) LIKE ? OR lower(email) LIKE ?", pattern, pattern)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := base.
		Preload("Role").
		Preload("Profile").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.User{}).
			Where("id = ? AND disabled_at IS NULL", id).
			Update("disabled_at", at)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
		}
		return tx.Model(&entity.Profile{}).
			Where("user_id = ?", id).
			Update("directory_visible", false).Error
	})
}
