package bootstrap

import (
	"fmt"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Profile{},
		&entity.Resource{},
		&entity.ResourceFavorite{},
		&entity.ForumPost{},
		&entity.ForumComment{},
		&entity.Vote{},
		&entity.PostFavorite{},
		&entity.Attachment{},
		&entity.GrowerChallenge{},
		&entity.FarmAssessment{},
		&entity.FarmProfile{},
		&entity.FarmRecommendation{},
		&entity.AnalyticsEvent{},
		&entity.BlogPost{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Association staff with back-office access"},
		{Name: entity.RoleMember, Description: "Dues-paying grower member"},
		{Name: entity.RoleGuest, Description: "Registered visitor without member benefits"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

type AdminSeed struct {
	Email    string
	Username string
	Password string
}

// SeedAdminUser creates the first administrator when the seed is configured and absent.
func SeedAdminUser(db *gorm.DB, seed AdminSeed, log *logger.Logger) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", seed.Email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug("admin user already exists, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	username := seed.Username
	if username == "" {
		username = "admin"
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := entity.User{
			Username:     username,
			Email:        seed.Email,
			PasswordHash: string(hash),
			RoleID:       &adminRole.ID,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		profile := entity.Profile{UserID: admin.ID, FullName: "Association Administrator", DirectoryVisible: false}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		log.Info("admin user seeded", "username", username)
		return nil
	})
}
