package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
)

// Role is a named permission group stored in the `roles` table.
type Role struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Status    dto.Status `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}
