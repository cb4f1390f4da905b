package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/user/dto"
	"greenhouse.org/growersplatform/internal/modules/user/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/mailer"
	"greenhouse.org/growersplatform/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apperror.New(401, "invalid email or password", apperror.ErrUnauthorized)

// ProfileIndexer receives profiles that changed so the member search index can follow.
type ProfileIndexer interface {
	IndexUser(ctx context.Context, userID uuid.UUID)
}

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input dto.ChangePasswordInput) error
}

type authService struct {
	repo        repository.UserRepository
	tokens      *token.Manager
	mail        mailer.Mailer
	indexer     ProfileIndexer
	log         *logger.Logger
	defaultRole string
	hashCost    int
}

func NewAuthService(repo repository.UserRepository, tokens *token.Manager, mail mailer.Mailer, indexer ProfileIndexer, log *logger.Logger, defaultRole string) AuthService {
	if defaultRole == "" {
		defaultRole = entity.RoleMember
	}
	return &authService{
		repo:        repo,
		tokens:      tokens,
		mail:        mail,
		indexer:     indexer,
		log:         log,
		defaultRole: defaultRole,
		hashCost:    bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	emailTaken, usernameTaken, err := s.repo.Taken(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		return nil, apperror.New(409, "email is already registered", apperror.ErrConflict)
	}
	if usernameTaken {
		return nil, apperror.New(409, "username is already taken", apperror.ErrConflict)
	}

	role, err := s.repo.FindRoleByName(ctx, s.defaultRole)
	if err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       &role.ID,
	}
	profile := &entity.Profile{
		FullName:         strings.TrimSpace(input.FullName),
		FarmName:         optional(input.FarmName),
		State:            strings.ToUpper(input.State),
		County:           strings.TrimSpace(input.County),
		FarmType:         strings.ToLower(strings.TrimSpace(input.FarmType)),
		DirectoryVisible: true,
	}
	if err := s.repo.Create(ctx, u, profile); err != nil {
		return nil, err
	}
	u.Role = *role

	s.log.Info("user registered", "user_id", u.ID, "role", role.Name)
	if msg, err := mailer.Welcome(u.Email, profile.FullName); err == nil {
		mailer.SendBestEffort(s.mail, s.log, msg)
	}
	if s.indexer != nil {
		s.indexer.IndexUser(ctx, u.ID)
	}

	return s.authResponse(u)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.authResponse(u)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := ToUserResponse(u)
	return &res, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, input dto.ChangePasswordInput) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return apperror.New(400, "current password is incorrect", apperror.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.hashCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

func (s *authService) authResponse(u *entity.User) (*dto.AuthResponse, error) {
	signed, expiresAt, err := s.tokens.Issue(u.ID, u.RoleName())
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
		User:        ToUserResponse(u),
	}, nil
}

func ToUserResponse(u *entity.User) dto.UserResponse {
	res := dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.RoleName(),
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
	if u.Profile != nil {
		res.FullName = u.Profile.FullName
	}
	return res
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
