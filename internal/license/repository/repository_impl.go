package repository

import (
	"context"

	"github.com/smallbiznis/gatekeeper/internal/license/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, grant *domain.Grant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO licenses (
			id, plan, starts_at, expires_at, restricted_user_count, historical_max_users, add_ons, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		grant.ID,
		grant.Plan,
		grant.StartsAt,
		grant.ExpiresAt,
		grant.RestrictedUserCount,
		grant.HistoricalMaxUsers,
		grant.AddOns,
		grant.CreatedAt,
	).Error
}

func (r *repo) FindNewest(ctx context.Context, db *gorm.DB) (*domain.Grant, error) {
	var g domain.Grant
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan, starts_at, expires_at, restricted_user_count, historical_max_users, add_ons, created_at
		 FROM licenses ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Grant, error) {
	var g domain.Grant
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan, starts_at, expires_at, restricted_user_count, historical_max_users, add_ons, created_at
		 FROM licenses WHERE id = ?`,
		id,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Grant, error) {
	var items []domain.Grant
	err := db.WithContext(ctx).Raw(
		`SELECT id, plan, starts_at, expires_at, restricted_user_count, historical_max_users, add_ons, created_at
		 FROM licenses ORDER BY created_at DESC, id DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM licenses WHERE id = ?`, id).Error
}
