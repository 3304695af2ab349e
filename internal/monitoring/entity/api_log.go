package entity

import "time"

// ApiLog is one gateway request. User columns are copied at write time so the
// row survives later renames and deletions.
type ApiLog struct {
	ID            int64     `db:"id" json:"id"`
	UserID        *int64    `db:"user_id" json:"userId"`
	UserFullName  *string   `db:"user_full_name" json:"userFullName"`
	UserNumericID *string   `db:"user_numeric_id" json:"userNumericId"`
	Role          *string   `db:"role" json:"role"`
	Method        string    `db:"method" json:"method"`
	URL           string    `db:"url" json:"url"`
	StatusCode    int       `db:"status_code" json:"statusCode"`
	DurationMs    int64     `db:"duration_ms" json:"durationMs"`
	RequestID     string    `db:"request_id" json:"requestId"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
