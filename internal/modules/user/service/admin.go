package user

import (
	"context"
	"fmt"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/internal/modules/user/dto"
	"greenhouse.org/growersplatform/internal/modules/user/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/logger"
	"github.com/google/uuid"
)

type AdminService interface {
	ListUsers(ctx context.Context, query dto.ListUsersQuery) (*commonDto.Paginated[dto.UserResponse], error)
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
}

type adminService struct {
	repo repository.UserRepository
	log  *logger.Logger
}

func NewAdminService(repo repository.UserRepository, log *logger.Logger) AdminService {
	return &adminService{repo: repo, log: log}
}

func (s *adminService) ListUsers(ctx context.Context, query dto.ListUsersQuery) (*commonDto.Paginated[dto.UserResponse], error) {
	pq := commonDto.PageQuery{Page: query.Page, Limit: query.Limit}
	page, limit := pq.Normalize(20)

	users, total, err := s.repo.List(ctx, query.Q, pq.Offset(20), limit)
	if err != nil {
		return nil, err
	}

	data := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, ToUserResponse(&users[i]))
	}
	return &commonDto.Paginated[dto.UserResponse]{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *adminService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*dto.UserResponse, error) {
	if !entity.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, apperror.ErrInvalidInput)
	}
	if actorID == userID && role != entity.RoleAdmin {
		return nil, apperror.New(400, "admins cannot demote themselves", apperror.ErrInvalidInput)
	}

	r, err := s.repo.FindRoleByName(ctx, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, userID, r.ID); err != nil {
		return nil, err
	}
	s.log.Info("user role changed", "user_id", userID, "role", role, "by", actorID)

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := ToUserResponse(u)
	return &res, nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return apperror.New(400, "admins cannot delete their own account", apperror.ErrInvalidInput)
	}
	if err := s.repo.Deactivate(ctx, userID, time.Now()); err != nil {
		return err
	}
	s.log.Info("user deactivated", "user_id", userID, "by", actorID)
	return nil
}
