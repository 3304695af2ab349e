package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
)

// Account states:
//
//	UNVERIFIED  status=INACTIVE, sms_code set, attempt >= 1
//	VERIFIED    status=ACTIVE, attempt = 0
//
// Business accounts also log in through a fresh OTP with no password.

func (s *Service) newCode() (int, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return 0, fmt.Errorf("issue otp: %w", err)
	}
	return code, nil
}

// CreateUser registers an unverified account in the standard user role and
// returns the code that verifies it.
func (s *Service) CreateUser(ctx context.Context, in *RegisterRequest) (*OTPResponse, error) {
	role, err := s.roles.FindOne(ctx, &dto.GetOne{ID: s.opts.UserRoleID})
	if err != nil {
		return nil, err
	}
	numericID := in.NumericID
	if numericID == "" {
		numericID = s.ids.NextNumericID()
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	u, err := s.repo.Create(ctx, &entity.User{
		FullName:    optional(in.FullName),
		PhoneNumber: normalizePhone(in.PhoneNumber),
		Password:    hash,
		RoleID:      role.ID,
		NumericID:   numericID,
		SmsCode:     &code,
		Attempt:     1,
		OtpDuration: &now,
		Status:      dto.StatusInactive,
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	s.logger.Infow("user registered", "id", u.ID)
	return &OTPResponse{UserID: u.ID, SmsCode: code}, nil
}

// VerifySmsCode activates the account when the code matches within the OTP
// window. A wrong code still costs an attempt. The returned user reflects the
// state after activation.
func (s *Service) VerifySmsCode(ctx context.Context, in *VerifyRequest) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, in.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.OtpDuration == nil || s.clock.Since(*u.OtpDuration) > s.opts.OTPWindow {
		return nil, ErrTimeIsOver
	}
	code := int(*in.SmsCode)
	if u.SmsCode == nil || *u.SmsCode != code {
		return nil, s.wrongCode(ctx, u.ID)
	}
	verified, err := s.repo.MarkVerified(ctx, u.ID, code)
	if errors.Is(err, sql.ErrNoRows) {
		// code was replaced between read and write
		return nil, s.wrongCode(ctx, u.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}
	s.logger.Infow("user verified", "id", verified.ID)
	return verified, nil
}

func (s *Service) wrongCode(ctx context.Context, id int64) error {
	attempt, err := s.repo.IncrementAttempt(ctx, id)
	if err != nil {
		return fmt.Errorf("increment attempt: %w", err)
	}
	s.logger.Debugw("sms code mismatch", "id", id, "attempt", attempt)
	return ErrCodeNotCorrect
}

// ResendSmsCode issues a new code while attempt has not passed MaxAttempts.
func (s *Service) ResendSmsCode(ctx context.Context, in *ResendRequest) (*OTPResponse, error) {
	u, err := s.repo.GetByID(ctx, in.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResendUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.Attempt > s.opts.MaxAttempts {
		return nil, ErrAttemptIsOver
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	// the guard is repeated in SQL so concurrent resends cannot overshoot
	if _, err := s.repo.ResendOTP(ctx, u.ID, code, s.clock.Now(), s.opts.MaxAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptIsOver
		}
		return nil, fmt.Errorf("resend otp: %w", err)
	}
	return &OTPResponse{UserID: u.ID, SmsCode: code}, nil
}

// authenticate returns the active user for phone if password matches its hash.
func (s *Service) authenticate(ctx context.Context, phone, password string) (*entity.Profile, error) {
	p, err := s.repo.GetActiveProfileByPhone(ctx, normalizePhone(phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !p.HasPassword() || !s.hasher.Verify(*p.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// LogIn checks phone and password and returns the user with its role, the
// role's active grants and an access token for the HTTP gateway.
func (s *Service) LogIn(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	p, err := s.authenticate(ctx, in.PhoneNumber, in.Password)
	if err != nil {
		return nil, err
	}
	grants, err := s.grants.ListActiveByRole(ctx, p.RoleID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	resp := &LoginResponse{
		User: p.User,
		Role: RoleWithGrants{Role: p.Role, RolePermissions: grants},
	}
	if s.tokens != nil {
		if resp.AccessToken, err = s.tokens.Issue(p.ID, p.RoleID); err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
	}
	s.logger.Infow("user logged in", "id", p.ID, "role_id", p.RoleID)
	return resp, nil
}

// LogInClient checks phone and password, then issues a fresh OTP.
func (s *Service) LogInClient(ctx context.Context, in *LoginRequest) (*OTPResponse, error) {
	p, err := s.authenticate(ctx, in.PhoneNumber, in.Password)
	if err != nil {
		return nil, err
	}
	return s.issueOTP(ctx, p.ID)
}

func (s *Service) issueOTP(ctx context.Context, id int64) (*OTPResponse, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	if err := s.repo.IssueOTP(ctx, id, code, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	return &OTPResponse{UserID: id, SmsCode: code}, nil
}

// LogInBusiness issues an OTP to the active business account holding the
// phone number, creating the account on first login.
func (s *Service) LogInBusiness(ctx context.Context, in *BusinessLoginRequest) (*OTPResponse, error) {
	phone := normalizePhone(in.PhoneNumber)
	u, err := s.repo.GetActiveByPhoneAndRole(ctx, phone, s.opts.BusinessRoleID)
	if err == nil {
		return s.issueOTP(ctx, u.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find business user: %w", err)
	}

	role, err := s.roles.FindOne(ctx, &dto.GetOne{ID: s.opts.BusinessRoleID})
	if err != nil {
		return nil, err
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	// new business accounts start ACTIVE, unlike registered users
	created, err := s.repo.Create(ctx, &entity.User{
		PhoneNumber: phone,
		RoleID:      role.ID,
		NumericID:   s.ids.NextNumericID(),
		SmsCode:     &code,
		Attempt:     1,
		OtpDuration: &now,
		Status:      dto.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create business user: %w", err)
	}
	s.logger.Infow("business user created on login", "id", created.ID)
	return &OTPResponse{UserID: created.ID, SmsCode: code}, nil
}

// CreateBusinessUser adds a passwordless business account unless an active
// one already holds the phone number.
func (s *Service) CreateBusinessUser(ctx context.Context, in *CreateBusinessRequest) (*entity.User, error) {
	phone := normalizePhone(in.PhoneNumber)
	_, err := s.repo.GetActiveByPhoneAndRole(ctx, phone, s.opts.BusinessRoleID)
	if err == nil {
		return nil, ErrUserAlreadyExist
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find business user: %w", err)
	}
	role, err := s.roles.FindOne(ctx, &dto.GetOne{ID: s.opts.BusinessRoleID})
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, &entity.User{
		PhoneNumber: phone,
		Email:       optional(in.Email),
		RoleID:      role.ID,
		NumericID:   s.ids.NextNumericID(),
		Status:      dto.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create business user: %w", err)
	}
	return u, nil
}

// Allowed reports whether the active user holding roleID has an active grant
// for method on path. Deny paths return false with a nil error.
func (s *Service) Allowed(ctx context.Context, userID, roleID int64, method, path string) (bool, error) {
	v, err := s.repo.GetAuthView(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	if v.RoleID != roleID {
		return false, nil
	}
	ok, err := s.grants.HasActiveGrant(ctx, roleID, path, strings.ToUpper(method))
	if err != nil {
		return false, fmt.Errorf("find grant: %w", err)
	}
	return ok, nil
}

// CheckPermission is the command form of Allowed.
func (s *Service) CheckPermission(ctx context.Context, in *CheckPermissionRequest) (bool, error) {
	return s.Allowed(ctx, in.UserID, in.RoleID, in.Method, in.Path)
}
