package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, grant *Grant) error
	FindNewest(ctx context.Context, db *gorm.DB) (*Grant, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Grant, error)
	List(ctx context.Context, db *gorm.DB) ([]Grant, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
