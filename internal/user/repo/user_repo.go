package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

const userColumns = `id, full_name, phone_number, email, password, role_id, numeric_id,
	sms_code, attempt, otp_duration, status, created_at, updated_at`

const profileSelect = `SELECT u.id, u.full_name, u.phone_number, u.email, u.password, u.role_id,
	u.numeric_id, u.sms_code, u.attempt, u.otp_duration, u.status, u.created_at, u.updated_at,
	r.id AS "role.id", r.name AS "role.name", r.status AS "role.status",
	r.created_at AS "role.created_at", r.updated_at AS "role.updated_at"
FROM users u JOIN roles r ON r.id = u.role_id`

// Filter narrows list queries. Search matches the full name.
type Filter struct {
	Status *dto.Status
	Search string
}

func (f Filter) where() *database.Where {
	w := &database.Where{}
	if f.Status != nil {
		w.And("u.status = ?", *f.Status)
	}
	if f.Search != "" {
		w.And(`u.full_name ILIKE ? ESCAPE '\'`, "%"+database.EscapeLike(f.Search)+"%")
	}
	return w
}

// Patch carries optional column updates; nil fields are left unchanged.
type Patch struct {
	FullName    *string
	PhoneNumber *string
	Email       *string
	Password    *string
	RoleID      *int64
	NumericID   *string
}

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent). Requires the roles table.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  full_name TEXT,
  phone_number TEXT NOT NULL,
  email TEXT,
  password TEXT,
  role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE RESTRICT,
  numeric_id TEXT NOT NULL,
  sms_code INT,
  attempt INT NOT NULL DEFAULT 0,
  otp_duration TIMESTAMPTZ,
  status SMALLINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_phone_number ON users(phone_number);
CREATE INDEX IF NOT EXISTS idx_users_numeric_id ON users(numeric_id);
CREATE INDEX IF NOT EXISTS idx_users_role_id ON users(role_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts u and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	const q = `INSERT INTO users (full_name, phone_number, email, password, role_id, numeric_id, sms_code, attempt, otp_duration, status)
		VALUES (:full_name, :phone_number, :email, :password, :role_id, :numeric_id, :sms_code, :attempt, :otp_duration, :status)
		RETURNING ` + userColumns
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("no row returned")
	}
	var out entity.User
	if err := rows.StructScan(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID fetches a user regardless of status.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetAuthView returns the id, role and status of an active user or sql.ErrNoRows.
func (r *UserRepo) GetAuthView(ctx context.Context, id int64) (*entity.AuthView, error) {
	const q = `SELECT id, role_id, status FROM users WHERE id=$1 AND status=1`
	var v entity.AuthView
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetActiveByPhoneAndRole returns the active user holding phone in the given role.
func (r *UserRepo) GetActiveByPhoneAndRole(ctx context.Context, phone string, roleID int64) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE phone_number=$1 AND role_id=$2 AND status=1 ORDER BY id LIMIT 1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, phone, roleID); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetActiveProfileByPhone returns the active user with the phone number, joined with its role.
func (r *UserRepo) GetActiveProfileByPhone(ctx context.Context, phone string) (*entity.Profile, error) {
	const q = profileSelect + ` WHERE u.phone_number=$1 AND u.status=1 ORDER BY u.id LIMIT 1`
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, phone); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByID returns the user joined with its role, optionally only when active.
func (r *UserRepo) GetProfileByID(ctx context.Context, id int64, activeOnly bool) (*entity.Profile, error) {
	q := profileSelect + ` WHERE u.id=$1`
	if activeOnly {
		q += ` AND u.status=1`
	}
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActiveProfileByNumericID looks a user up by the external numeric id.
func (r *UserRepo) GetActiveProfileByNumericID(ctx context.Context, numericID string) (*entity.Profile, error) {
	const q = profileSelect + ` WHERE u.numeric_id=$1 AND u.status=1 ORDER BY u.id LIMIT 1`
	var p entity.Profile
	if err := r.db.GetContext(ctx, &p, q, numericID); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindAll returns every user matching f, newest first.
func (r *UserRepo) FindAll(ctx context.Context, f Filter) ([]entity.Profile, error) {
	w := f.where()
	q := r.db.Rebind(profileSelect + w.SQL() + ` ORDER BY u.created_at DESC`)
	var rows []entity.Profile
	if err := r.db.SelectContext(ctx, &rows, q, w.Args()...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UserRepo) Count(ctx context.Context, f Filter) (int, error) {
	w := f.where()
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM users u`+w.SQL()), w.Args()...)
	return n, err
}

func (r *UserRepo) List(ctx context.Context, f Filter, take, skip int) ([]entity.Profile, error) {
	w := f.where()
	q := r.db.Rebind(profileSelect + w.SQL() + ` ORDER BY u.created_at DESC LIMIT ? OFFSET ?`)
	var rows []entity.Profile
	if err := r.db.SelectContext(ctx, &rows, q, append(w.Args(), take, skip)...); err != nil {
		return nil, err
	}
	return rows, nil
}

// IssueOTP stores a fresh code and restarts the attempt counter at 1.
func (r *UserRepo) IssueOTP(ctx context.Context, id int64, code int, at time.Time) error {
	const q = `UPDATE users SET sms_code=$2, attempt=1, otp_duration=$3, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, code, at)
	return err
}

// ResendOTP stores a fresh code and increments attempt in one statement, only
// while attempt <= maxAttempt. Returns the new attempt or sql.ErrNoRows.
func (r *UserRepo) ResendOTP(ctx context.Context, id int64, code int, at time.Time, maxAttempt int) (int, error) {
	const q = `UPDATE users SET sms_code=$2, attempt=attempt+1, otp_duration=$3, updated_at=NOW()
		WHERE id=$1 AND attempt <= $4 RETURNING attempt`
	var n int
	if err := r.db.GetContext(ctx, &n, q, id, code, at, maxAttempt); err != nil {
		return 0, err
	}
	return n, nil
}

// IncrementAttempt bumps the attempt counter atomically and returns the new value.
func (r *UserRepo) IncrementAttempt(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE users SET attempt=attempt+1, updated_at=NOW() WHERE id=$1 RETURNING attempt`
	var n int
	if err := r.db.GetContext(ctx, &n, q, id); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkVerified activates the user only if the stored code still equals code.
// sql.ErrNoRows means the code changed since it was read.
func (r *UserRepo) MarkVerified(ctx context.Context, id int64, code int) (*entity.User, error) {
	const q = `UPDATE users SET attempt=0, status=1, updated_at=NOW() WHERE id=$1 AND sms_code=$2 RETURNING ` + userColumns
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id, code); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies p to the user.
func (r *UserRepo) Update(ctx context.Context, id int64, p Patch) (*entity.User, error) {
	const q = `UPDATE users SET
  full_name = COALESCE($2, full_name),
  phone_number = COALESCE($3, phone_number),
  email = COALESCE($4, email),
  password = COALESCE($5, password),
  role_id = COALESCE($6, role_id),
  numeric_id = COALESCE($7, numeric_id),
  updated_at = NOW()
WHERE id=$1 RETURNING ` + userColumns
	var row entity.User
	err := r.db.GetContext(ctx, &row, q, id, p.FullName, p.PhoneNumber, p.Email, p.Password, p.RoleID, p.NumericID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SetStatus moves a user from one status to another; sql.ErrNoRows when nothing matched.
func (r *UserRepo) SetStatus(ctx context.Context, id int64, from, to dto.Status) (*entity.User, error) {
	const q = `UPDATE users SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2 RETURNING ` + userColumns
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id, from, to); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) (*entity.User, error) {
	const q = `DELETE FROM users WHERE id=$1 RETURNING ` + userColumns
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}
