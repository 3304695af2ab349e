package user

import (
	"context"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	roleentity "github.com/ovaphlow/pitchfork/service-user-go/internal/role/entity"
	grantentity "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
)

type MockGrants struct {
	mock.Mock
}

func (m *MockGrants) HasActiveGrant(ctx context.Context, roleID int64, path, method string) (bool, error) {
	args := m.Called(roleID, path, method)
	return args.Bool(0), args.Error(1)
}

func (m *MockGrants) ListActiveByRole(ctx context.Context, roleID int64) ([]grantentity.RolePermission, error) {
	args := m.Called(roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]grantentity.RolePermission), args.Error(1)
}

// stubRoles serves the active roles it holds.
type stubRoles map[int64]string

func (s stubRoles) FindOne(ctx context.Context, in *dto.GetOne) (*roleentity.Role, error) {
	name, ok := s[in.ID]
	if !ok {
		return nil, apperr.NotFound("Role is not found")
	}
	return &roleentity.Role{ID: in.ID, Name: name, Status: dto.StatusActive}, nil
}

// fixedCodes hands out codes in order.
type fixedCodes struct {
	codes []int
	next  int
}

func (f *fixedCodes) Generate() (int, error) {
	c := f.codes[f.next%len(f.codes)]
	f.next++
	return c, nil
}

type stubTokens struct{}

func (stubTokens) Issue(userID, roleID int64) (string, error) {
	return fmt.Sprintf("token-%d-%d", userID, roleID), nil
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var userCols = []string{
	"id", "full_name", "phone_number", "email", "password", "role_id", "numeric_id",
	"sms_code", "attempt", "otp_duration", "status", "created_at", "updated_at",
}

var profileCols = append(append([]string{}, userCols...),
	"role.id", "role.name", "role.status", "role.created_at", "role.updated_at")

var testHasher = BcryptHasher{Cost: bcrypt.MinCost}

type fixture struct {
	svc    *Service
	sql    sqlmock.Sqlmock
	grants *MockGrants
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, codes ...int) *fixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if len(codes) == 0 {
		codes = []int{482913}
	}
	f := &fixture{
		sql:    sqlMock,
		grants: &MockGrants{},
		clock:  clockwork.NewFakeClockAt(t0),
	}
	f.svc = NewService(Deps{
		Repo:   userrepo.NewUserRepo(sqlx.NewDb(db, "postgres")),
		Roles:  stubRoles{1: "User", 3: "Operator", 6: "Business"},
		Grants: f.grants,
		Hasher: testHasher,
		Codes:  &fixedCodes{codes: codes},
		Tokens: stubTokens{},
		Clock:  f.clock,
	}, Options{})
	return f
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := testHasher.Hash(pw)
	require.NoError(t, err)
	return h
}

// userRow builds a users row. code, otpAt and hash may be nil.
func userRow(id int64, roleID int64, code any, attempt int, otpAt any, status dto.Status, hash any) []any {
	return []any{id, "Alice", "+111", nil, hash, roleID, "7001", code, attempt, otpAt, int(status), t0, t0}
}

func profileRow(id int64, roleID int64, roleName string, status dto.Status, hash any) []any {
	row := userRow(id, roleID, nil, 0, nil, status, hash)
	return append(row, roleID, roleName, 1, t0, t0)
}

func rows(cols []string, values ...[]any) *sqlmock.Rows {
	r := sqlmock.NewRows(cols)
	for _, v := range values {
		drv := make([]driver.Value, len(v))
		for i := range v {
			drv[i] = v[i]
		}
		r.AddRow(drv...)
	}
	return r
}
