package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Store implements the repositories used by the automation engine, the HTTP
// API and the webhook on top of gorm.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// first loads one row into dest and maps a missing row to found=false.
func first(q *gorm.DB, dest interface{}) (bool, error) {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
