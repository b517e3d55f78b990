package repository

import (
	"context"

	"github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, namespaceID int64, key string) (*domain.Row, error) {
	var row domain.Row
	err := db.WithContext(ctx).Raw(
		`SELECT namespace_id, key, value, enforced, version, updated_at
		 FROM namespace_settings WHERE namespace_id = ? AND key = ?`,
		namespaceID,
		key,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Key == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, row *domain.Row, expectedVersion int64) (bool, error) {
	if expectedVersion == 0 {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO namespace_settings (namespace_id, key, value, enforced, version, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			row.NamespaceID,
			row.Key,
			row.Value,
			row.Enforced,
			row.Version,
			row.UpdatedAt,
		).Error
		if err != nil {
			// A concurrent insert of the same key surfaces as a duplicate;
			// report it as a version miss so the caller retries.
			return false, nil
		}
		return true, nil
	}

	result := db.WithContext(ctx).Exec(
		`UPDATE namespace_settings
		 SET value = ?, enforced = ?, version = ?, updated_at = ?
		 WHERE namespace_id = ? AND key = ? AND version = ?`,
		row.Value,
		row.Enforced,
		row.Version,
		row.UpdatedAt,
		row.NamespaceID,
		row.Key,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, namespaceID int64) ([]domain.Row, error) {
	var rows []domain.Row
	err := db.WithContext(ctx).Raw(
		`SELECT namespace_id, key, value, enforced, version, updated_at
		 FROM namespace_settings WHERE namespace_id = ?
		 ORDER BY key`,
		namespaceID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
