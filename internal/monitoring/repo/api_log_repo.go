package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

const apiLogColumns = `id, user_id, user_full_name, user_numeric_id, role, method, url, status_code, duration_ms, request_id, created_at`

// Filter narrows list queries. Roles is matched with IN, Search against the
// user's full name.
type Filter struct {
	Roles  []string
	Search string
	UserID int64
}

func (f Filter) where() (*database.Where, error) {
	w := &database.Where{}
	if len(f.Roles) > 0 {
		expr, args, err := sqlx.In("role IN (?)", f.Roles)
		if err != nil {
			return nil, err
		}
		w.And(expr, args...)
	}
	if f.Search != "" {
		w.And(`user_full_name ILIKE ? ESCAPE '\'`, "%"+database.EscapeLike(f.Search)+"%")
	}
	if f.UserID > 0 {
		w.And("user_id = ?", f.UserID)
	}
	return w, nil
}

// Entry is what the gateway knows about a finished request.
type Entry struct {
	UserID     *int64
	Method     string
	URL        string
	StatusCode int
	DurationMs int64
	RequestID  string
}

type ApiLogRepo struct {
	db *sqlx.DB
}

func NewApiLogRepo(db *sqlx.DB) *ApiLogRepo { return &ApiLogRepo{db: db} }

// EnsureTable creates the api_logs table if not exists (idempotent).
func (r *ApiLogRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS api_logs (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT,
  user_full_name TEXT,
  user_numeric_id TEXT,
  role TEXT,
  method TEXT NOT NULL,
  url TEXT NOT NULL,
  status_code INT NOT NULL,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  request_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_api_logs_user_id ON api_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_api_logs_created_at ON api_logs(created_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Insert stores e, snapshotting the user's name, numeric id and role name.
// A missing or anonymous user leaves those columns NULL.
func (r *ApiLogRepo) Insert(ctx context.Context, e Entry) (int64, error) {
	const q = `INSERT INTO api_logs (user_id, user_full_name, user_numeric_id, role, method, url, status_code, duration_ms, request_id)
SELECT $1::BIGINT, u.full_name, u.numeric_id, rl.name, $2, $3, $4, $5, $6
FROM (SELECT 1) AS one
LEFT JOIN users u ON u.id = $1::BIGINT
LEFT JOIN roles rl ON rl.id = u.role_id
RETURNING id`
	var id int64
	err := r.db.GetContext(ctx, &id, q, e.UserID, e.Method, e.URL, e.StatusCode, e.DurationMs, e.RequestID)
	return id, err
}

// FindAll returns every log, newest first.
func (r *ApiLogRepo) FindAll(ctx context.Context) ([]entity.ApiLog, error) {
	const q = `SELECT ` + apiLogColumns + ` FROM api_logs ORDER BY created_at DESC`
	var rows []entity.ApiLog
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ApiLogRepo) Count(ctx context.Context, f Filter) (int, error) {
	w, err := f.where()
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM api_logs`+w.SQL()), w.Args()...)
	return n, err
}

func (r *ApiLogRepo) List(ctx context.Context, f Filter, take, skip int) ([]entity.ApiLog, error) {
	w, err := f.where()
	if err != nil {
		return nil, err
	}
	q := r.db.Rebind(`SELECT ` + apiLogColumns + ` FROM api_logs` + w.SQL() + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	var rows []entity.ApiLog
	if err := r.db.SelectContext(ctx, &rows, q, append(w.Args(), take, skip)...); err != nil {
		return nil, err
	}
	return rows, nil
}
