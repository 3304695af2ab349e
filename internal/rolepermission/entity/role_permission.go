package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
)

// RolePermission grants a role one HTTP method on one path.
// Permission holds the upper-case method name.
type RolePermission struct {
	ID         int64      `db:"id" json:"id"`
	RoleID     int64      `db:"role_id" json:"roleId"`
	Permission string     `db:"permission" json:"permission"`
	Path       string     `db:"path" json:"path"`
	Status     dto.Status `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}
