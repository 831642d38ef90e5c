package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique constraint violation from
// Postgres (pgx or lib/pq) or SQLite. A non-empty constraintName must match on Postgres.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if diag, ok := pkgerrors.Postgres(err); ok {
		if diag.Code != pkgerrors.SQLStateUniqueViolation {
			return false
		}
		return constraintName == "" || diag.Constraint == constraintName
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite reports table.column rather than the index name
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
