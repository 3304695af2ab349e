package user

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
)

func TestService_FindOneOmitsPassword(t *testing.T) {
	f := newFixture(t)
	f.sql.ExpectQuery("WHERE u.id=\\$1 AND u.status=1").
		WithArgs(42).
		WillReturnRows(rows(profileCols, profileRow(42, 1, "User", dto.StatusActive, mustHash(t, "pw1"))))

	p, err := f.svc.FindOne(context.Background(), &dto.GetOne{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, "User", p.Role.Name)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$")
	assert.NotContains(t, string(raw), "smsCode")
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestService_FindOneNotFound(t *testing.T) {
	f := newFixture(t)
	f.sql.ExpectQuery("WHERE u.id=\\$1 AND u.status=1").
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := f.svc.FindOne(context.Background(), &dto.GetOne{ID: 404})
	assert.EqualError(t, err, "User is not found")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_FindAllByPagination(t *testing.T) {
	ctx := context.Background()

	t.Run("all returns a single page", func(t *testing.T) {
		f := newFixture(t)
		inactive := dto.StatusInactive
		f.sql.ExpectQuery("WHERE u.status = \\$1 ORDER BY u.created_at DESC$").
			WithArgs(0).
			WillReturnRows(rows(profileCols,
				profileRow(2, 1, "User", dto.StatusInactive, nil),
				profileRow(1, 1, "User", dto.StatusInactive, nil)))

		out, err := f.svc.FindAllByPagination(ctx, &dto.ListQuery{All: true, Status: &inactive})
		require.NoError(t, err)
		assert.Equal(t, 2, out.TotalDocs)
		assert.Equal(t, 1, *out.TotalPage)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("search on full name with default status", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users u WHERE u.status = \\$1 AND u.full_name ILIKE \\$2").
			WithArgs(1, "%ali%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		f.sql.ExpectQuery("LIMIT \\$3 OFFSET \\$4").
			WithArgs(1, "%ali%", 10, 0).
			WillReturnRows(rows(profileCols, profileRow(42, 1, "User", dto.StatusActive, nil)))

		out, err := f.svc.FindAllByPagination(ctx, &dto.ListQuery{Search: "ali"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.TotalDocs)
		assert.Equal(t, 1, *out.TotalPage)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})
}

func TestService_Create(t *testing.T) {
	t.Run("unknown role", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(context.Background(), &CreateRequest{
			FullName: "Bob", PhoneNumber: "+333", Password: "pw", RoleID: 99,
		})
		assert.EqualError(t, err, "Role is not found")
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("stores an active user with a hashed password", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("INSERT INTO users").
			WithArgs("Bob", "+333", "bob@example.com", sqlmock.AnyArg(), 3, "123", nil, 0, nil, 1).
			WillReturnRows(rows(userCols, userRow(60, 3, nil, 0, nil, dto.StatusActive, "hash")))

		u, err := f.svc.Create(context.Background(), &CreateRequest{
			FullName: "Bob", PhoneNumber: "+333", Email: "bob@example.com", Password: "pw", RoleID: 3, NumericID: "123",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(60), u.ID)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong old password", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("FROM users WHERE id=\\$1$").
			WithArgs(42).
			WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusActive, mustHash(t, "pw1"))))

		_, err := f.svc.Update(ctx, &UpdateRequest{ID: 42, OldPassword: "bad", NewPassword: "pw2"})
		assert.EqualError(t, err, "Incorrect old password")
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("role is re-validated", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("FROM users WHERE id=\\$1$").
			WithArgs(42).
			WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusActive, nil)))

		_, err := f.svc.Update(ctx, &UpdateRequest{ID: 42, RoleID: 77})
		assert.EqualError(t, err, "Role is not found")
	})

	t.Run("partial update keeps unspecified columns", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("FROM users WHERE id=\\$1$").
			WithArgs(42).
			WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusActive, nil)))
		f.sql.ExpectQuery("UPDATE users SET").
			WithArgs(42, "Alice B", nil, nil, nil, 3, nil).
			WillReturnRows(rows(userCols, userRow(42, 3, nil, 0, nil, dto.StatusActive, nil)))

		u, err := f.svc.Update(ctx, &UpdateRequest{ID: 42, FullName: "Alice B", RoleID: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(3), u.RoleID)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})
}

func TestService_UpdateMeBusinessOnlyContactFields(t *testing.T) {
	f := newFixture(t)
	f.sql.ExpectQuery("FROM users WHERE id=\\$1$").
		WithArgs(50).
		WillReturnRows(rows(userCols, userRow(50, 6, nil, 0, nil, dto.StatusActive, nil)))
	// full name and password are ignored for business accounts
	f.sql.ExpectQuery("UPDATE users SET").
		WithArgs(50, nil, "+444", "biz@example.com", nil, nil, nil).
		WillReturnRows(rows(userCols, userRow(50, 6, nil, 0, nil, dto.StatusActive, nil)))

	_, err := f.svc.UpdateMe(context.Background(), &UpdateMeRequest{
		ID: 50, FullName: "ignored", PhoneNumber: "+444\t", Email: "biz@example.com", NewPassword: "x", OldPassword: "y",
	})
	require.NoError(t, err)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestService_UpdateMeInactiveUser(t *testing.T) {
	f := newFixture(t)
	f.sql.ExpectQuery("FROM users WHERE id=\\$1$").
		WithArgs(42).
		WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusInactive, nil)))

	_, err := f.svc.UpdateMe(context.Background(), &UpdateMeRequest{ID: 42, FullName: "x"})
	assert.Equal(t, ErrUserNotFound, err)
}

func TestService_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("UPDATE users SET status=\\$3").
			WithArgs(42, 1, 0).
			WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusInactive, nil)))

		u, err := f.svc.Delete(ctx, &dto.Delete{ID: 42})
		require.NoError(t, err)
		assert.Equal(t, dto.StatusInactive, u.Status)
	})

	t.Run("hard delete", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("DELETE FROM users WHERE id=\\$1").
			WithArgs(42).
			WillReturnRows(rows(userCols, userRow(42, 1, nil, 0, nil, dto.StatusActive, nil)))

		_, err := f.svc.Delete(ctx, &dto.Delete{ID: 42, Delete: true})
		assert.NoError(t, err)
		assert.NoError(t, f.sql.ExpectationsWereMet())
	})

	t.Run("restore of an active user is not found", func(t *testing.T) {
		f := newFixture(t)
		f.sql.ExpectQuery("UPDATE users SET status=\\$3").
			WithArgs(42, 0, 1).
			WillReturnRows(sqlmock.NewRows(userCols))

		_, err := f.svc.Restore(ctx, &dto.GetOne{ID: 42})
		assert.Equal(t, ErrUserNotFound, err)
	})
}
