// Package counter reads usage snapshots (storage bytes, seat counts) that
// external collectors maintain. The evaluator never writes these rows.
package counter

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Resource identifies a metered resource kind.
type Resource string

const (
	ResourceStorage Resource = "storage"
	ResourceSeats   Resource = "seats"
)

func (r Resource) Valid() bool {
	return r == ResourceStorage || r == ResourceSeats
}

type Store interface {
	Usage(ctx context.Context, namespaceID snowflake.ID, resource Resource) (int64, error)
}

var ErrInvalidResource = errors.New("invalid_resource")

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Usage(ctx context.Context, namespaceID snowflake.ID, resource Resource) (int64, error) {
	if !resource.Valid() {
		return 0, ErrInvalidResource
	}
	var usage int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(usage, 0) FROM usage_counters
		 WHERE namespace_id = ? AND resource = ?`,
		namespaceID,
		resource,
	).Scan(&usage).Error
	if err != nil {
		return 0, err
	}
	if usage < 0 {
		usage = 0
	}
	return usage, nil
}

// Fake is an in-memory Store for tests.
type Fake struct {
	mu     sync.Mutex
	usage  map[string]int64
	FailOn Resource
	Err    error
}

func NewFake() *Fake {
	return &Fake{usage: make(map[string]int64)}
}

func (f *Fake) SetUsage(namespaceID snowflake.ID, resource Resource, value int64) {
	f.mu.Lock()
	f.usage[fakeKey(namespaceID, resource)] = value
	f.mu.Unlock()
}

func (f *Fake) Usage(ctx context.Context, namespaceID snowflake.ID, resource Resource) (int64, error) {
	if f.Err != nil && (f.FailOn == "" || f.FailOn == resource) {
		return 0, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[fakeKey(namespaceID, resource)], nil
}

func fakeKey(namespaceID snowflake.ID, resource Resource) string {
	return namespaceID.String() + "|" + string(resource)
}

// Module provides the usage counter store.
var Module = fx.Module("counter",
	fx.Provide(NewStore),
)
