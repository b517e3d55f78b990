package repository

import (
	"context"

	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_events (
			id, event_type, actor_id, target_type, target_id, namespace_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EventType,
		entry.ActorID,
		entry.TargetType,
		entry.TargetID,
		entry.NamespaceID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req auditdomain.ListRequest) ([]auditdomain.Entry, error) {
	stmt := db.WithContext(ctx).Model(&auditdomain.Entry{})

	if req.EventType != "" {
		stmt = stmt.Where("event_type = ?", req.EventType)
	}
	if req.ActorID != nil {
		stmt = stmt.Where("actor_id = ?", *req.ActorID)
	}
	if req.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *req.StartAt)
	}
	if req.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *req.EndAt)
	}

	var items []auditdomain.Entry
	if err := stmt.Order("created_at DESC, id DESC").Limit(req.Limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
