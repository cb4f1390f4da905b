package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/user/dto"
	"greenhouse.org/growersplatform/internal/modules/user/repository"
	"greenhouse.org/growersplatform/internal/testutil"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type recordingIndexer struct{ ids []uuid.UUID }

func (r *recordingIndexer) IndexUser(_ context.Context, id uuid.UUID) { r.ids = append(r.ids, id) }

func newAuth(t *testing.T) (*authService, repository.UserRepository, *recordingIndexer) {
	t.Helper()
	db := testutil.SQLite(t)
	repo := repository.NewUserRepository(db)
	idx := &recordingIndexer{}
	log := logger.Nop()
	svc := NewAuthService(repo, token.NewManager("test-secret", time.Hour), mailer.NewLog(log), idx, log, entity.RoleMember).(*authService)
	svc.hashCost = bcrypt.MinCost
	return svc, repo, idx
}

func registerInput(username, email string) dto.RegisterInput {
	return dto.RegisterInput{
		Username: username,
		Email:    email,
		Password: "tomatoes-2024",
		FullName: "Rosa Grower",
		State:    "oh",
		FarmType: "Hydroponic",
	}
}

func TestRegister_CreatesMemberWithProfile(t *testing.T) {
	svc, repo, idx := newAuth(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, registerInput("rosa", "Rosa@Example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccessToken == "" || res.User.Role != entity.RoleMember {
		t.Fatalf("unexpected response %+v", res)
	}

	u, err := repo.FindByID(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.Email != "rosa@example.com" {
		t.Errorf("email = %q, want lower-cased", u.Email)
	}
	if u.Profile == nil || u.Profile.State != "OH" || u.Profile.FarmType != "hydroponic" {
		t.Errorf("profile = %+v", u.Profile)
	}
	if len(idx.ids) != 1 || idx.ids[0] != u.ID {
		t.Errorf("indexer calls = %v", idx.ids)
	}
}

func TestRegister_DuplicateEmailOrUsernameConflicts(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput("rosa", "rosa@example.com")); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	for name, in := range map[string]dto.RegisterInput{
		"same email":          registerInput("other", "ROSA@example.com"),
		"same username":       registerInput("Rosa", "other@example.com"),
		"same email+username": registerInput("rosa", "rosa@example.com"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, in)
			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("err = %v, want conflict", err)
			}
			if apperror.MapErrorToStatus(err) != 409 {
				t.Fatalf("status = %d", apperror.MapErrorToStatus(err))
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, registerInput("rosa", "rosa@example.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.Login(ctx, dto.LoginInput{Email: "rosa@example.com", Password: "tomatoes-2024"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, claims, err := svc.tokens.Parse(res.AccessToken)
	if err != nil || id != res.User.ID || claims.Role != entity.RoleMember {
		t.Fatalf("token does not describe the user: %v %v", id, err)
	}

	for _, in := range []dto.LoginInput{
		{Email: "rosa@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "tomatoes-2024"},
	} {
		if _, err := svc.Login(ctx, in); !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("Login(%s) err = %v, want unauthorized", in.Email, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, registerInput("rosa", "rosa@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = svc.ChangePassword(ctx, res.User.ID, dto.ChangePasswordInput{CurrentPassword: "nope", NewPassword: "cucumbers-2025"})
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("wrong current password: err = %v", err)
	}

	err = svc.ChangePassword(ctx, res.User.ID, dto.ChangePasswordInput{CurrentPassword: "tomatoes-2024", NewPassword: "cucumbers-2025"})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, dto.LoginInput{Email: "rosa@example.com", Password: "cucumbers-2025"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAdmin_ChangeRoleAndDelete(t *testing.T) {
	db := testutil.SQLite(t)
	repo := repository.NewUserRepository(db)
	admin := testutil.SeedUser(t, db, "boss", entity.RoleAdmin)
	member := testutil.SeedUser(t, db, "grower", entity.RoleMember)
	svc := NewAdminService(repo, logger.Nop())
	ctx := context.Background()

	res, err := svc.ChangeRole(ctx, admin.ID, member.ID, entity.RoleGuest)
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if res.Role != entity.RoleGuest {
		t.Errorf("role = %q", res.Role)
	}

	if _, err := svc.ChangeRole(ctx, admin.ID, admin.ID, entity.RoleMember); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("self demotion err = %v", err)
	}
	if _, err := svc.ChangeRole(ctx, admin.ID, member.ID, "superuser"); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Errorf("unknown role err = %v", err)
	}

	page, err := svc.ListUsers(ctx, dto.ListUsersQuery{Q: "grow"})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Meta.TotalItems != 1 || page.Data[0].Username != "grower" {
		t.Errorf("ListUsers = %+v", page)
	}

	if err := svc.DeleteUser(ctx, admin.ID, member.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := svc.DeleteUser(ctx, admin.ID, member.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	if _, err := repo.FindByID(ctx, member.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByID of disabled user err = %v, want ErrNotFound", err)
	}
	var kept entity.User
	if err := db.Preload("Profile").First(&kept, "id = ?", member.ID).Error; err != nil {
		t.Fatalf("user row removed: %v", err)
	}
	if kept.DisabledAt == nil || kept.Profile.DirectoryVisible {
		t.Errorf("disabled_at=%v directory_visible=%v", kept.DisabledAt, kept.Profile.DirectoryVisible)
	}
	page, err = svc.ListUsers(ctx, dto.ListUsersQuery{Q: "grow"})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Meta.TotalItems != 0 {
		t.Errorf("disabled user still listed: %+v", page.Data)
	}
}

func TestLogin_DisabledAccountRejected(t *testing.T) {
	svc, repo, _ := newAuth(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, registerInput("ivan", "ivan@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := repo.Deactivate(ctx, res.User.ID, time.Now()); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	_, err = svc.Login(ctx, dto.LoginInput{Email: "ivan@example.com", Password: "tomatoes-2024"})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("login err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Register(ctx, registerInput("ivan2", "ivan@example.com")); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("re-register with disabled email err = %v, want ErrConflict", err)
	}
}
