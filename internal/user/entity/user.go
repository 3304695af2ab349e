package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	roleentity "github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
)

// User represents an account row in the `users` table.
// Password and SmsCode never leave the service in responses.
type User struct {
	ID          int64      `db:"id" json:"id"`
	FullName    *string    `db:"full_name" json:"fullName"`
	PhoneNumber string     `db:"phone_number" json:"phoneNumber"`
	Email       *string    `db:"email" json:"email"`
	Password    *string    `db:"password" json:"-"`
	RoleID      int64      `db:"role_id" json:"roleId"`
	NumericID   string     `db:"numeric_id" json:"numericId"`
	SmsCode     *int       `db:"sms_code" json:"-"`
	Attempt     int        `db:"attempt" json:"attempt"`
	OtpDuration *time.Time `db:"otp_duration" json:"otpDuration"`
	Status      dto.Status `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasPassword reports whether the account can use the password login path.
func (u *User) HasPassword() bool { return u.Password != nil && *u.Password != "" }

// Profile is a user joined with its role.
type Profile struct {
	User
	Role roleentity.Role `db:"role" json:"role"`
}

// AuthView is the minimal projection needed by the permission check.
type AuthView struct {
	ID     int64      `db:"id"`
	RoleID int64      `db:"role_id"`
	Status dto.Status `db:"status"`
}
