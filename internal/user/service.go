package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	roleentity "github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	grantentity "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/pagination"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

var (
	ErrUserNotFound         = apperr.NotFound("User is not found")
	ErrResendUserNotFound   = apperr.NotFound("Not found user")
	ErrInvalidCredentials   = apperr.Unauthorized("Invalid credentials")
	ErrIncorrectOldPassword = apperr.Unauthorized("Incorrect old password")
	ErrTimeIsOver           = apperr.BadRequest("Time is over")
	ErrCodeNotCorrect       = apperr.BadRequest("Code is not correct")
	ErrAttemptIsOver        = apperr.BadRequest("attempt is over")
	ErrUserAlreadyExist     = apperr.BadRequest("User already exist")
)

// RoleLookup resolves an active role; implemented by role.Service.
type RoleLookup interface {
	FindOne(ctx context.Context, in *dto.GetOne) (*roleentity.Role, error)
}

// GrantReader reads active grants; implemented by the role permission repo.
type GrantReader interface {
	HasActiveGrant(ctx context.Context, roleID int64, path, method string) (bool, error)
	ListActiveByRole(ctx context.Context, roleID int64) ([]grantentity.RolePermission, error)
}

// TokenIssuer signs gateway access tokens.
type TokenIssuer interface {
	Issue(userID, roleID int64) (string, error)
}

// Options holds account lifecycle knobs.
type Options struct {
	UserRoleID     int64
	BusinessRoleID int64
	OTPWindow      time.Duration
	MaxAttempts    int
}

// Deps are the collaborators of Service. Hasher, Codes, IDs, Clock and Logger
// fall back to production defaults when nil; Tokens may stay nil.
type Deps struct {
	Repo   *userrepo.UserRepo
	Roles  RoleLookup
	Grants GrantReader
	Hasher PasswordHasher
	Codes  CodeGenerator
	IDs    *utilities.IDGenerator
	Tokens TokenIssuer
	Clock  clockwork.Clock
	Logger *zap.SugaredLogger
}

// Service orchestrates authentication and user lifecycle flows.
type Service struct {
	repo   *userrepo.UserRepo
	roles  RoleLookup
	grants GrantReader
	hasher PasswordHasher
	codes  CodeGenerator
	ids    *utilities.IDGenerator
	tokens TokenIssuer
	clock  clockwork.Clock
	logger *zap.SugaredLogger
	opts   Options
}

func NewService(d Deps, opts Options) *Service {
	if d.Hasher == nil {
		d.Hasher = BcryptHasher{Cost: 10}
	}
	if d.Codes == nil {
		d.Codes = RandomCode{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if opts.UserRoleID == 0 {
		opts.UserRoleID = 1
	}
	if opts.BusinessRoleID == 0 {
		opts.BusinessRoleID = 6
	}
	if opts.OTPWindow == 0 {
		opts.OTPWindow = 60 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	return &Service{
		repo:   d.Repo,
		roles:  d.Roles,
		grants: d.Grants,
		hasher: d.Hasher,
		codes:  d.Codes,
		ids:    d.IDs,
		tokens: d.Tokens,
		clock:  d.Clock,
		logger: d.Logger,
		opts:   opts,
	}
}

func (s *Service) hashPassword(pw string) (*string, error) {
	h, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &h, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizePhone is applied to every phone number that is stored or looked up.
func normalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// Create adds a verified user in the given role.
func (s *Service) Create(ctx context.Context, in *CreateRequest) (*entity.User, error) {
	role, err := s.roles.FindOne(ctx, &dto.GetOne{ID: in.RoleID})
	if err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	numericID := in.NumericID
	if numericID == "" {
		numericID = s.ids.NextNumericID()
	}
	u, err := s.repo.Create(ctx, &entity.User{
		FullName:    optional(in.FullName),
		PhoneNumber: normalizePhone(in.PhoneNumber),
		Email:       optional(in.Email),
		Password:    hash,
		RoleID:      role.ID,
		NumericID:   numericID,
		Status:      dto.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user created", "id", u.ID, "role_id", u.RoleID)
	return u, nil
}

// FindAll returns every user with its role, newest first.
func (s *Service) FindAll(ctx context.Context, _ *dto.Empty) (dto.List[entity.Profile], error) {
	rows, err := s.repo.FindAll(ctx, userrepo.Filter{})
	if err != nil {
		return dto.List[entity.Profile]{}, fmt.Errorf("list users: %w", err)
	}
	return dto.NewList(rows), nil
}

// FindAllByPagination lists users; All returns every match as a single page.
func (s *Service) FindAllByPagination(ctx context.Context, in *dto.ListQuery) (dto.List[entity.Profile], error) {
	f := userrepo.Filter{Search: in.Search}
	if st, ok := in.StatusFilter(); ok {
		f.Status = &st
	}
	if in.All {
		rows, err := s.repo.FindAll(ctx, f)
		if err != nil {
			return dto.List[entity.Profile]{}, fmt.Errorf("list users: %w", err)
		}
		return dto.NewPage(rows, len(rows), 1), nil
	}
	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return dto.List[entity.Profile]{}, fmt.Errorf("count users: %w", err)
	}
	p := pagination.New(pagination.Params{Count: count, Page: in.Page, PerPage: in.Limit})
	rows, err := s.repo.List(ctx, f, p.Take, p.Skip)
	if err != nil {
		return dto.List[entity.Profile]{}, fmt.Errorf("list users: %w", err)
	}
	return dto.NewPage(rows, count, p.TotalPage), nil
}

func (s *Service) profile(find func() (*entity.Profile, error)) (*entity.Profile, error) {
	p, err := find()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return p, nil
}

// FindOne returns an active user with its role.
func (s *Service) FindOne(ctx context.Context, in *dto.GetOne) (*entity.Profile, error) {
	return s.profile(func() (*entity.Profile, error) { return s.repo.GetProfileByID(ctx, in.ID, true) })
}

// FindMe returns the calling user.
func (s *Service) FindMe(ctx context.Context, in *MeRequest) (*entity.Profile, error) {
	return s.profile(func() (*entity.Profile, error) { return s.repo.GetProfileByID(ctx, in.ID, true) })
}

func (s *Service) FindByNumericID(ctx context.Context, in *NumericIDRequest) (*entity.Profile, error) {
	return s.profile(func() (*entity.Profile, error) { return s.repo.GetActiveProfileByNumericID(ctx, in.NumericID) })
}

// checkOldPassword returns the new hash when a password change is requested.
func (s *Service) checkOldPassword(u *entity.User, oldPw, newPw string) (*string, error) {
	if newPw == "" {
		return nil, nil
	}
	if !u.HasPassword() || !s.hasher.Verify(*u.Password, oldPw) {
		return nil, ErrIncorrectOldPassword
	}
	return s.hashPassword(newPw)
}

// Update changes any user regardless of status. A supplied roleId is re-validated.
func (s *Service) Update(ctx context.Context, in *UpdateRequest) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	p := userrepo.Patch{
		FullName:    optional(in.FullName),
		PhoneNumber: optional(normalizePhone(in.PhoneNumber)),
		Email:       optional(in.Email),
		NumericID:   optional(in.NumericID),
	}
	if in.RoleID > 0 {
		if _, err := s.roles.FindOne(ctx, &dto.GetOne{ID: in.RoleID}); err != nil {
			return nil, err
		}
		p.RoleID = &in.RoleID
	}
	if p.Password, err = s.checkOldPassword(u, in.OldPassword, in.NewPassword); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, u.ID, p)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// UpdateMe lets an active user edit their own record. Business accounts may
// only change phone number and email.
func (s *Service) UpdateMe(ctx context.Context, in *UpdateMeRequest) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, in.ID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && u.Status != dto.StatusActive) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	p := userrepo.Patch{
		PhoneNumber: optional(normalizePhone(in.PhoneNumber)),
		Email:       optional(in.Email),
	}
	if u.RoleID != s.opts.BusinessRoleID {
		p.Email = nil
		p.FullName = optional(in.FullName)
		if p.Password, err = s.checkOldPassword(u, in.OldPassword, in.NewPassword); err != nil {
			return nil, err
		}
	}
	updated, err := s.repo.Update(ctx, u.ID, p)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// Delete soft-deletes an active user, or removes the row when Delete is set.
func (s *Service) Delete(ctx context.Context, in *dto.Delete) (*entity.User, error) {
	var (
		u   *entity.User
		err error
	)
	if in.Delete {
		u, err = s.repo.Delete(ctx, in.ID)
	} else {
		u, err = s.repo.SetStatus(ctx, in.ID, dto.StatusActive, dto.StatusInactive)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	s.logger.Infow("user deleted", "id", u.ID, "hard", in.Delete)
	return u, nil
}

// Restore reactivates an inactive user.
func (s *Service) Restore(ctx context.Context, in *dto.GetOne) (*entity.User, error) {
	u, err := s.repo.SetStatus(ctx, in.ID, dto.StatusInactive, dto.StatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore user: %w", err)
	}
	return u, nil
}
