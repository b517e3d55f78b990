package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, namespaceID int64, key string) (*Row, error)
	// Upsert writes the row when its current version matches expectedVersion
	// (0 meaning the row must not exist yet). Returns false on a version miss.
	Upsert(ctx context.Context, db *gorm.DB, row *Row, expectedVersion int64) (bool, error)
	List(ctx context.Context, db *gorm.DB, namespaceID int64) ([]Row, error)
}
