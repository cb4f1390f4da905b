package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedUser creates a user with the given role and a visible directory profile.
func SeedUser(tb testing.TB, db *gorm.DB, username, role string) *entity.User {
	tb.Helper()

	var r entity.Role
	if err := db.Where("name = ?", role).First(&r).Error; err != nil {
		tb.Fatalf("load role %s: %v", role, err)
	}
	u := &entity.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.test",
		PasswordHash: "x",
		RoleID:       &r.ID,
		Role:         r,
	}
	if err := db.Omit("Role").Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	p := &entity.Profile{UserID: u.ID, FullName: username, State: "OH", DirectoryVisible: true}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	u.Profile = p
	return u
}

// SeedResource stores a resource whose data payload is the JSON encoding of data.
func SeedResource(tb testing.TB, db *gorm.DB, typ entity.ResourceType, title string, data map[string]any, tags ...string) *entity.Resource {
	tb.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		tb.Fatalf("marshal data: %v", err)
	}
	r := &entity.Resource{
		Type:  typ,
		Title: title,
		URL:   "https://example.test/" + uuid.NewString(),
		Tags:  datatypes.JSONSlice[string](tags),
		Data:  datatypes.JSON(raw),
	}
	if err := db.Create(r).Error; err != nil {
		tb.Fatalf("seed resource: %v", err)
	}
	return r
}
