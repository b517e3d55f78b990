package counter

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE usage_counters (
		namespace_id BIGINT NOT NULL,
		resource TEXT NOT NULL,
		usage BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP,
		PRIMARY KEY (namespace_id, resource)
	)`).Error)
	return NewStore(db), db
}

func TestUsage(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	namespaceID := snowflake.ID(4001)

	require.NoError(t, db.Exec(
		`INSERT INTO usage_counters (namespace_id, resource, usage) VALUES (?, ?, ?)`,
		namespaceID, ResourceStorage, int64(12345),
	).Error)

	usage, err := store.Usage(ctx, namespaceID, ResourceStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), usage)
}

func TestUsageMissingRowReadsZero(t *testing.T) {
	store, _ := newTestStore(t)

	usage, err := store.Usage(context.Background(), snowflake.ID(9999), ResourceSeats)
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestUsageNegativeClampsToZero(t *testing.T) {
	store, db := newTestStore(t)
	namespaceID := snowflake.ID(4001)

	require.NoError(t, db.Exec(
		`INSERT INTO usage_counters (namespace_id, resource, usage) VALUES (?, ?, ?)`,
		namespaceID, ResourceSeats, int64(-5),
	).Error)

	usage, err := store.Usage(context.Background(), namespaceID, ResourceSeats)
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestUsageInvalidResource(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Usage(context.Background(), snowflake.ID(1), Resource("bandwidth"))
	assert.ErrorIs(t, err, ErrInvalidResource)
}
