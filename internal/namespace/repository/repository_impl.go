package repository

import (
	"context"

	"github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, namespace *domain.Namespace) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO namespaces (
			id, parent_id, kind, name, path, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		namespace.ID,
		namespace.ParentID,
		namespace.Kind,
		namespace.Name,
		namespace.Path,
		namespace.CreatedAt,
		namespace.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Namespace, error) {
	var n domain.Namespace
	err := db.WithContext(ctx).Raw(
		`SELECT id, parent_id, kind, name, path, created_at, updated_at
		 FROM namespaces WHERE id = ?`,
		id,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO namespace_members (
			id, namespace_id, user_id, role, created_at
		) VALUES (?, ?, ?, ?, ?)`,
		member.ID,
		member.NamespaceID,
		member.UserID,
		member.Role,
		member.CreatedAt,
	).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, namespaceID, userID int64) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, namespace_id, user_id, role, created_at
		 FROM namespace_members WHERE namespace_id = ? AND user_id = ?
		 LIMIT 1`,
		namespaceID,
		userID,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) CountMembers(ctx context.Context, db *gorm.DB, namespaceID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM namespace_members WHERE namespace_id = ?`,
		namespaceID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
