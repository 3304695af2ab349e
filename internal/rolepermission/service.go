package rolepermission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	roleentity "github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/entity"
	grantrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/pagination"
)

var ErrGrantNotFound = apperr.NotFound("Role permission is not found")

// RoleLookup resolves an active role; implemented by role.Service.
type RoleLookup interface {
	FindOne(ctx context.Context, in *dto.GetOne) (*roleentity.Role, error)
}

type CreateRequest struct {
	RoleID     int64  `json:"roleId" validate:"required,gt=0"`
	Permission string `json:"permission" validate:"required,oneof=GET POST PUT PATCH DELETE get post put patch delete"`
	Path       string `json:"path" validate:"required,startswith=/,max=255"`
}

type UpdateRequest struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	RoleID     int64  `json:"roleId" validate:"omitempty,gt=0"`
	Permission string `json:"permission" validate:"omitempty,oneof=GET POST PUT PATCH DELETE get post put patch delete"`
	Path       string `json:"path" validate:"omitempty,startswith=/,max=255"`
}

// ListQuery extends the common list query with a role filter.
type ListQuery struct {
	dto.ListQuery
	RoleID int64 `json:"roleId" validate:"omitempty,gt=0"`
}

// Service implements grant CRUD.
type Service struct {
	repo   *grantrepo.RolePermissionRepo
	roles  RoleLookup
	logger *zap.SugaredLogger
}

func NewService(r *grantrepo.RolePermissionRepo, roles RoleLookup, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, roles: roles, logger: logger}
}

func (s *Service) Create(ctx context.Context, in *CreateRequest) (*entity.RolePermission, error) {
	role, err := s.roles.FindOne(ctx, &dto.GetOne{ID: in.RoleID})
	if err != nil {
		return nil, err
	}
	g, err := s.repo.Create(ctx, role.ID, strings.ToUpper(in.Permission), in.Path)
	if err != nil {
		return nil, fmt.Errorf("create role permission: %w", err)
	}
	s.logger.Infow("role permission created", "id", g.ID, "role_id", g.RoleID, "permission", g.Permission, "path", g.Path)
	return g, nil
}

func (s *Service) FindAll(ctx context.Context, _ *dto.Empty) (dto.List[entity.RolePermission], error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return dto.List[entity.RolePermission]{}, fmt.Errorf("list role permissions: %w", err)
	}
	return dto.NewList(rows), nil
}

func (s *Service) FindAllByPagination(ctx context.Context, in *ListQuery) (dto.List[entity.RolePermission], error) {
	f := grantrepo.Filter{Search: in.Search, RoleID: in.RoleID}
	if st, ok := in.StatusFilter(); ok {
		f.Status = &st
	}
	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return dto.List[entity.RolePermission]{}, fmt.Errorf("count role permissions: %w", err)
	}
	p := pagination.New(pagination.Params{Count: count, Page: in.Page, PerPage: in.Limit})
	rows, err := s.repo.List(ctx, f, p.Take, p.Skip)
	if err != nil {
		return dto.List[entity.RolePermission]{}, fmt.Errorf("list role permissions: %w", err)
	}
	return dto.NewPage(rows, count, p.TotalPage), nil
}

func (s *Service) FindOne(ctx context.Context, in *dto.GetOne) (*entity.RolePermission, error) {
	g, err := s.repo.GetActiveByID(ctx, in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role permission: %w", err)
	}
	return g, nil
}

// Update re-validates the role when a new roleId is supplied.
func (s *Service) Update(ctx context.Context, in *UpdateRequest) (*entity.RolePermission, error) {
	g, err := s.FindOne(ctx, &dto.GetOne{ID: in.ID})
	if err != nil {
		return nil, err
	}
	var p grantrepo.Patch
	if in.RoleID > 0 {
		if _, err := s.roles.FindOne(ctx, &dto.GetOne{ID: in.RoleID}); err != nil {
			return nil, err
		}
		p.RoleID = &in.RoleID
	}
	if in.Permission != "" {
		perm := strings.ToUpper(in.Permission)
		p.Permission = &perm
	}
	if in.Path != "" {
		p.Path = &in.Path
	}
	updated, err := s.repo.Update(ctx, g.ID, p)
	if err != nil {
		return nil, fmt.Errorf("update role permission: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, in *dto.Delete) (*entity.RolePermission, error) {
	var (
		g   *entity.RolePermission
		err error
	)
	if in.Delete {
		g, err = s.repo.Delete(ctx, in.ID)
	} else {
		g, err = s.repo.SetStatus(ctx, in.ID, dto.StatusActive, dto.StatusInactive)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete role permission: %w", err)
	}
	return g, nil
}

func (s *Service) Restore(ctx context.Context, in *dto.GetOne) (*entity.RolePermission, error) {
	g, err := s.repo.SetStatus(ctx, in.ID, dto.StatusInactive, dto.StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore role permission: %w", err)
	}
	return g, nil
}
