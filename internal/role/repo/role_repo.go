package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

const roleColumns = `id, name, status, created_at, updated_at`

// Filter narrows list queries. A nil Status matches every status.
type Filter struct {
	Status *dto.Status
	Search string
}

func (f Filter) where() *database.Where {
	w := &database.Where{}
	if f.Status != nil {
		w.And("status = ?", *f.Status)
	}
	if f.Search != "" {
		w.And(`name ILIKE ? ESCAPE '\'`, "%"+database.EscapeLike(f.Search)+"%")
	}
	return w
}

// RoleRepo provides data access for the roles table.
type RoleRepo struct {
	db *sqlx.DB
}

func NewRoleRepo(db *sqlx.DB) *RoleRepo { return &RoleRepo{db: db} }

// EnsureTable creates the roles table if not exists (idempotent).
func (r *RoleRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS roles (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  status SMALLINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_roles_name ON roles(name);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts an active role.
func (r *RoleRepo) Create(ctx context.Context, name string) (*entity.Role, error) {
	const q = `INSERT INTO roles (name) VALUES ($1) RETURNING ` + roleColumns
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, name); err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertWithID inserts a role under a fixed id and moves the id sequence past it.
// Returns false when a row with that id already exists.
func (r *RoleRepo) InsertWithID(ctx context.Context, id int64, name string) (bool, error) {
	const q = `INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING RETURNING id`
	var got int64
	err := r.db.GetContext(ctx, &got, q, id, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	const seq = `SELECT setval(pg_get_serial_sequence('roles', 'id'), (SELECT MAX(id) FROM roles))`
	if _, err := r.db.ExecContext(ctx, seq); err != nil {
		return true, err
	}
	return true, nil
}

// FindAll returns every role, newest first.
func (r *RoleRepo) FindAll(ctx context.Context) ([]entity.Role, error) {
	const q = `SELECT ` + roleColumns + ` FROM roles ORDER BY created_at DESC`
	var rows []entity.Role
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of roles matching f.
func (r *RoleRepo) Count(ctx context.Context, f Filter) (int, error) {
	w := f.where()
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM roles`+w.SQL()), w.Args()...)
	return n, err
}

// List returns one page of roles matching f, newest first.
func (r *RoleRepo) List(ctx context.Context, f Filter, take, skip int) ([]entity.Role, error) {
	w := f.where()
	q := r.db.Rebind(`SELECT ` + roleColumns + ` FROM roles` + w.SQL() + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	var rows []entity.Role
	if err := r.db.SelectContext(ctx, &rows, q, append(w.Args(), take, skip)...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID fetches a role regardless of status.
func (r *RoleRepo) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	const q = `SELECT ` + roleColumns + ` FROM roles WHERE id=$1`
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetActiveByID fetches an active role or returns sql.ErrNoRows.
func (r *RoleRepo) GetActiveByID(ctx context.Context, id int64) (*entity.Role, error) {
	const q = `SELECT ` + roleColumns + ` FROM roles WHERE id=$1 AND status=1`
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByName fetches the first role with the given name regardless of status.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*entity.Role, error) {
	const q = `SELECT ` + roleColumns + ` FROM roles WHERE name=$1 ORDER BY id LIMIT 1`
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, name); err != nil {
		return nil, err
	}
	return &row, nil
}

// Rename updates the role name.
func (r *RoleRepo) Rename(ctx context.Context, id int64, name string) (*entity.Role, error) {
	const q = `UPDATE roles SET name=$2, updated_at=NOW() WHERE id=$1 RETURNING ` + roleColumns
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, id, name); err != nil {
		return nil, err
	}
	return &row, nil
}

// SetStatus moves a role from one status to another. sql.ErrNoRows means no
// row with that id was in the from status.
func (r *RoleRepo) SetStatus(ctx context.Context, id int64, from, to dto.Status) (*entity.Role, error) {
	const q = `UPDATE roles SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2 RETURNING ` + roleColumns
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, id, from, to); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the row.
func (r *RoleRepo) Delete(ctx context.Context, id int64) (*entity.Role, error) {
	const q = `DELETE FROM roles WHERE id=$1 RETURNING ` + roleColumns
	var row entity.Role
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// CountUsers counts users referencing the role, optionally only active ones.
func (r *RoleRepo) CountUsers(ctx context.Context, id int64, activeOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM users WHERE role_id=$1`
	if activeOnly {
		q += ` AND status=1`
	}
	var n int
	err := r.db.GetContext(ctx, &n, q, id)
	return n, err
}
