package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, namespace *Namespace) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Namespace, error)
	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindMember(ctx context.Context, db *gorm.DB, namespaceID, userID int64) (*Member, error)
	CountMembers(ctx context.Context, db *gorm.DB, namespaceID int64) (int64, error)
}
