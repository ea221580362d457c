// Package store persists businesses, users, products and sales with gorm.
// Every read and write is scoped to one business id.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record already exists")
	ErrEmptySale = errors.New("sale has no items")
)

// Store is the gorm-backed implementation of every repository.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Page selects the n-th block of size PageSize (1-based). A zero Page
// disables paging.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Page < 1 || p.PageSize < 1 {
		return q
	}
	return q.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
