package user

import (
	roleentity "github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	grantentity "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
)

// RegisterRequest is the payload of user.createUser.
type RegisterRequest struct {
	FullName    string `json:"fullName" validate:"required,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	Password    string `json:"password" validate:"required,min=3,max=72"`
	NumericID   string `json:"numericId" validate:"omitempty,numeric,max=32"`
}

type VerifyRequest struct {
	UserID  int64    `json:"userId" validate:"required,gt=0"`
	SmsCode *SMSCode `json:"smsCode" validate:"required,gte=0,lte=999999"`
}

type ResendRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	Password    string `json:"password" validate:"required,max=72"`
}

type BusinessLoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
}

type CreateBusinessRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type CheckPermissionRequest struct {
	UserID int64  `json:"userId" validate:"required,gt=0"`
	RoleID int64  `json:"roleId" validate:"required,gt=0"`
	Method string `json:"method" validate:"required"`
	Path   string `json:"path" validate:"required"`
}

// CreateRequest is the payload of user.create.
type CreateRequest struct {
	FullName    string `json:"fullName" validate:"required,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=3,max=72"`
	RoleID      int64  `json:"roleId" validate:"required,gt=0"`
	NumericID   string `json:"numericId" validate:"omitempty,numeric,max=32"`
}

// UpdateRequest is the payload of user.update. Changing the password needs the old one.
type UpdateRequest struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	FullName    string `json:"fullName" validate:"omitempty,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	RoleID      int64  `json:"roleId" validate:"omitempty,gt=0"`
	NumericID   string `json:"numericId" validate:"omitempty,numeric,max=32"`
	OldPassword string `json:"oldPassword" validate:"required_with=NewPassword,max=72"`
	NewPassword string `json:"newPassword" validate:"omitempty,min=3,max=72"`
}

// MeRequest addresses the caller. The HTTP gateway fills ID from the access token.
type MeRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func (r *MeRequest) BindCaller(userID int64) { r.ID = userID }

type UpdateMeRequest struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	FullName    string `json:"fullName" validate:"omitempty,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	OldPassword string `json:"oldPassword" validate:"required_with=NewPassword,max=72"`
	NewPassword string `json:"newPassword" validate:"omitempty,min=3,max=72"`
}

func (r *UpdateMeRequest) BindCaller(userID int64) { r.ID = userID }

type NumericIDRequest struct {
	NumericID string `json:"numericId" validate:"required,numeric,max=32"`
}

// OTPResponse carries the issued code back to the caller; there is no SMS delivery.
type OTPResponse struct {
	UserID  int64 `json:"userId"`
	SmsCode int   `json:"smsCode"`
}

// RoleWithGrants is a role together with its active grants.
type RoleWithGrants struct {
	roleentity.Role
	RolePermissions []grantentity.RolePermission `json:"rolePermissions"`
}

// LoginResponse is the user with its role and grants, plus a gateway access token.
type LoginResponse struct {
	entity.User
	Role        RoleWithGrants `json:"role"`
	AccessToken string         `json:"accessToken,omitempty"`
}
