package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgDuplicateColumn is SQLSTATE duplicate_column.
const pgDuplicateColumn = "42701"

// IsDuplicateColumn reports whether err is the "column already exists" failure raised by
// ALTER TABLE ... ADD COLUMN on SQLite or Postgres.
func IsDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateColumn
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
