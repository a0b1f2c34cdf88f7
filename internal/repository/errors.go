package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres error codes for objects that are not provisioned.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// IsMissingSchema reports whether err comes from a table or column that does
// not exist, as opposed to a connectivity or data problem.
func IsMissingSchema(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such column") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
