package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
)

const grantColumns = `id, role_id, permission, path, status, created_at, updated_at`

// Filter narrows list queries. Search matches the path.
type Filter struct {
	Status *dto.Status
	RoleID int64
	Search string
}

func (f Filter) where() *database.Where {
	w := &database.Where{}
	if f.Status != nil {
		w.And("status = ?", *f.Status)
	}
	if f.RoleID > 0 {
		w.And("role_id = ?", f.RoleID)
	}
	if f.Search != "" {
		w.And(`path ILIKE ? ESCAPE '\'`, "%"+database.EscapeLike(f.Search)+"%")
	}
	return w
}

// Patch carries optional column updates; nil fields are left unchanged.
type Patch struct {
	RoleID     *int64
	Permission *string
	Path       *string
}

// RolePermissionRepo provides data access for the role_permissions table.
type RolePermissionRepo struct {
	db *sqlx.DB
}

func NewRolePermissionRepo(db *sqlx.DB) *RolePermissionRepo { return &RolePermissionRepo{db: db} }

// EnsureTable creates the role_permissions table if not exists (idempotent).
// Requires the roles table.
func (r *RolePermissionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS role_permissions (
  id BIGSERIAL PRIMARY KEY,
  role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE RESTRICT,
  permission TEXT NOT NULL,
  path TEXT NOT NULL,
  status SMALLINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_role_permissions_lookup ON role_permissions(role_id, path, permission);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RolePermissionRepo) Create(ctx context.Context, roleID int64, permission, path string) (*entity.RolePermission, error) {
	const q = `INSERT INTO role_permissions (role_id, permission, path) VALUES ($1, $2, $3) RETURNING ` + grantColumns
	var row entity.RolePermission
	if err := r.db.GetContext(ctx, &row, q, roleID, permission, path); err != nil {
		return nil, err
	}
	return &row, nil
}

// Exists reports whether any grant row, active or not, has the triple.
func (r *RolePermissionRepo) Exists(ctx context.Context, roleID int64, path, permission string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id=$1 AND path=$2 AND permission=$3)`
	var ok bool
	err := r.db.GetContext(ctx, &ok, q, roleID, path, permission)
	return ok, err
}

// HasActiveGrant reports whether an active grant matches the triple exactly.
func (r *RolePermissionRepo) HasActiveGrant(ctx context.Context, roleID int64, path, method string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id=$1 AND path=$2 AND permission=$3 AND status=1)`
	var ok bool
	err := r.db.GetContext(ctx, &ok, q, roleID, path, method)
	return ok, err
}

// ListActiveByRole returns the active grants of a role.
func (r *RolePermissionRepo) ListActiveByRole(ctx context.Context, roleID int64) ([]entity.RolePermission, error) {
	const q = `SELECT ` + grantColumns + ` FROM role_permissions WHERE role_id=$1 AND status=1 ORDER BY id`
	rows := []entity.RolePermission{}
	if err := r.db.SelectContext(ctx, &rows, q, roleID); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindAll returns every grant, newest first.
func (r *RolePermissionRepo) FindAll(ctx context.Context) ([]entity.RolePermission, error) {
	const q = `SELECT ` + grantColumns + ` FROM role_permissions ORDER BY created_at DESC`
	var rows []entity.RolePermission
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RolePermissionRepo) Count(ctx context.Context, f Filter) (int, error) {
	w := f.where()
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM role_permissions`+w.SQL()), w.Args()...)
	return n, err
}

func (r *RolePermissionRepo) List(ctx context.Context, f Filter, take, skip int) ([]entity.RolePermission, error) {
	w := f.where()
	q := r.db.Rebind(`SELECT ` + grantColumns + ` FROM role_permissions` + w.SQL() + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	var rows []entity.RolePermission
	if err := r.db.SelectContext(ctx, &rows, q, append(w.Args(), take, skip)...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetActiveByID fetches an active grant or returns sql.ErrNoRows.
func (r *RolePermissionRepo) GetActiveByID(ctx context.Context, id int64) (*entity.RolePermission, error) {
	const q = `SELECT ` + grantColumns + ` FROM role_permissions WHERE id=$1 AND status=1`
	var row entity.RolePermission
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies p to the grant.
func (r *RolePermissionRepo) Update(ctx context.Context, id int64, p Patch) (*entity.RolePermission, error) {
	const q = `UPDATE role_permissions SET
  role_id = COALESCE($2, role_id),
  permission = COALESCE($3, permission),
  path = COALESCE($4, path),
  updated_at = NOW()
WHERE id=$1 RETURNING ` + grantColumns
	var row entity.RolePermission
	if err := r.db.GetContext(ctx, &row, q, id, p.RoleID, p.Permission, p.Path); err != nil {
		return nil, err
	}
	return &row, nil
}

// SetStatus moves a grant from one status to another; sql.ErrNoRows when nothing matched.
func (r *RolePermissionRepo) SetStatus(ctx context.Context, id int64, from, to dto.Status) (*entity.RolePermission, error) {
	const q = `UPDATE role_permissions SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2 RETURNING ` + grantColumns
	var row entity.RolePermission
	if err := r.db.GetContext(ctx, &row, q, id, from, to); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *RolePermissionRepo) Delete(ctx context.Context, id int64) (*entity.RolePermission, error) {
	const q = `DELETE FROM role_permissions WHERE id=$1 RETURNING ` + grantColumns
	var row entity.RolePermission
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}
