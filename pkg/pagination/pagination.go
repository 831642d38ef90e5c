// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque to clients.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrMalformedCursor = errors.New("malformed cursor")

// Params holds the client supplied page size and cursor.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for zero
// or negative values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// EncodeCursor renders c as a URL safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "," + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token produced by EncodeCursor. A blank token means
// the first page and yields nil.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	at, id, ok := strings.Cut(string(raw), ",")
	if !ok {
		return nil, ErrMalformedCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrMalformedCursor, err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrMalformedCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: rowID}, nil
}

// Find runs qb as one page of results ordered newest first. key extracts the
// cursor of a row; the returned token is empty on the last page. A malformed
// cursor is a validation error.
func Find[T any](qb *gorm.DB, params Params, key func(T) Cursor) ([]T, string, error) {
	after, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if after != nil {
		qb = qb.Where("((created_at < ?) OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	limit := NormalizeLimit(params.Limit)

	var rows []T
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := Trim(rows, limit, key)
	if page == nil {
		page = []T{}
	}
	return page, next, nil
}

// Trim cuts rows fetched with one row of look-ahead down to limit and reports
// the cursor of the page's last row when more rows follow.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}
