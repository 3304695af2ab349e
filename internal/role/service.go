package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	rolerepo "github.com/ovaphlow/pitchfork/service-user-go/internal/role/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/pagination"
)

var (
	ErrRoleNotFound = apperr.NotFound("Role is not found")
	ErrRoleInUse    = apperr.BadRequest("Role is in use")
)

// CreateRequest is the payload of role.create.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// UpdateRequest is the payload of role.update.
type UpdateRequest struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"omitempty,max=100"`
}

// Service implements role CRUD and the role lookup used before every write
// that stores a role id.
type Service struct {
	repo   *rolerepo.RoleRepo
	logger *zap.SugaredLogger
}

func NewService(r *rolerepo.RoleRepo, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, logger: logger}
}

func (s *Service) Create(ctx context.Context, in *CreateRequest) (*entity.Role, error) {
	r, err := s.repo.Create(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	s.logger.Infow("role created", "id", r.ID, "name", r.Name)
	return r, nil
}

func (s *Service) FindAll(ctx context.Context, _ *dto.Empty) (dto.List[entity.Role], error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return dto.List[entity.Role]{}, fmt.Errorf("list roles: %w", err)
	}
	return dto.NewList(rows), nil
}

func (s *Service) FindAllByPagination(ctx context.Context, in *dto.ListQuery) (dto.List[entity.Role], error) {
	f := rolerepo.Filter{Search: in.Search}
	if st, ok := in.StatusFilter(); ok {
		f.Status = &st
	}
	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return dto.List[entity.Role]{}, fmt.Errorf("count roles: %w", err)
	}
	p := pagination.New(pagination.Params{Count: count, Page: in.Page, PerPage: in.Limit})
	rows, err := s.repo.List(ctx, f, p.Take, p.Skip)
	if err != nil {
		return dto.List[entity.Role]{}, fmt.Errorf("list roles: %w", err)
	}
	return dto.NewPage(rows, count, p.TotalPage), nil
}

// FindOne returns the active role with the given id, or ErrRoleNotFound.
func (s *Service) FindOne(ctx context.Context, in *dto.GetOne) (*entity.Role, error) {
	r, err := s.repo.GetActiveByID(ctx, in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, in *UpdateRequest) (*entity.Role, error) {
	r, err := s.FindOne(ctx, &dto.GetOne{ID: in.ID})
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return r, nil
	}
	updated, err := s.repo.Rename(ctx, r.ID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return updated, nil
}

// Delete refuses to remove a role that users still reference: active users
// block a soft delete, any user blocks a hard delete.
func (s *Service) Delete(ctx context.Context, in *dto.Delete) (*entity.Role, error) {
	users, err := s.repo.CountUsers(ctx, in.ID, !in.Delete)
	if err != nil {
		return nil, fmt.Errorf("count role users: %w", err)
	}
	if users > 0 {
		return nil, ErrRoleInUse
	}

	var r *entity.Role
	if in.Delete {
		r, err = s.repo.Delete(ctx, in.ID)
	} else {
		r, err = s.repo.SetStatus(ctx, in.ID, dto.StatusActive, dto.StatusInactive)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete role: %w", err)
	}
	s.logger.Infow("role deleted", "id", r.ID, "hard", in.Delete)
	return r, nil
}

// Restore reactivates an inactive role.
func (s *Service) Restore(ctx context.Context, in *dto.GetOne) (*entity.Role, error) {
	r, err := s.repo.SetStatus(ctx, in.ID, dto.StatusInactive, dto.StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore role: %w", err)
	}
	return r, nil
}
