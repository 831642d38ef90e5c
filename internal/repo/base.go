// Package repo holds the plumbing shared by the domain repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by repositories that can run inside a caller's transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds ctx to the base connection. A nil ctx returns it untouched.
func (b Base) DB(ctx context.Context) *gorm.DB {
	return bind(b.db, ctx)
}

// Conn is DB, except that a non-nil tx wins over the base connection.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return b.DB(ctx)
	}
	return bind(tx, ctx)
}

func bind(conn *gorm.DB, ctx context.Context) *gorm.DB {
	if ctx == nil {
		return conn
	}
	return conn.WithContext(ctx)
}

// Take loads the one row matched by qb, or gorm.ErrRecordNotFound.
func Take[T any](qb *gorm.DB) (*T, error) {
	var row T
	if err := qb.Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Touched turns an UPDATE that matched nothing into gorm.ErrRecordNotFound.
func Touched(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
