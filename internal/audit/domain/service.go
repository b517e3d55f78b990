package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Record describes one auditable occurrence. ActorID is nil for system actions.
type Record struct {
	EventType   string
	ActorID     *snowflake.ID
	TargetType  string
	TargetID    *string
	NamespaceID *snowflake.ID
	Metadata    map[string]any
}

type ListRequest struct {
	EventType string
	ActorID   *snowflake.ID
	StartAt   *time.Time
	EndAt     *time.Time
	Limit     int
}

// Service is the audit sink. Writes are best-effort: a failed write is logged
// and counted, never propagated into an entitlement decision.
type Service interface {
	Record(ctx context.Context, record Record) error
	List(ctx context.Context, req ListRequest) ([]Entry, error)
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
