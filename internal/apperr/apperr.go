// Package apperr holds the error taxonomy shared by services and transports.
//
// Services return *Error values for business failures. Transports call From
// to normalize anything else (driver errors, sql.ErrNoRows, panics turned into
// errors) before writing the {code, error} envelope.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Error is a failure with a wire status code and a caller-facing message.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string { return e.Message }

// Is matches on status code so callers can use errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// kind sentinels, only the code is compared
var (
	ErrBadRequest   = &Error{Code: http.StatusBadRequest}
	ErrUnauthorized = &Error{Code: http.StatusUnauthorized}
	ErrForbidden    = &Error{Code: http.StatusForbidden}
	ErrNotFound     = &Error{Code: http.StatusNotFound}
	ErrInternal     = &Error{Code: http.StatusInternalServerError}
)

func NotFound(msg string) *Error     { return &Error{Code: http.StatusNotFound, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Code: http.StatusUnauthorized, Message: msg} }
func BadRequest(msg string) *Error   { return &Error{Code: http.StatusBadRequest, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Code: http.StatusForbidden, Message: msg} }

// Internal is the message every unclassified failure is reduced to.
func Internal() *Error {
	return &Error{Code: http.StatusInternalServerError, Message: "Internal server error"}
}

// From converts any error into an *Error. Constraint violations reported by
// either postgres driver become 400s with a descriptive message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound("Record is not found")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return BadRequest(fmt.Sprintf("DatabaseError: %s %s!", pqErr.Message, pqErr.Table))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return BadRequest(fmt.Sprintf("DatabaseError: %s %s!", pgErr.Message, pgErr.TableName))
	}
	return Internal()
}
