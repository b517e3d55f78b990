package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/gatekeeper/internal/actorcontext"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/audit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) auditdomain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestRecordAndList(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	actor := snowflake.ID(7001)
	err := svc.Record(ctx, auditdomain.Record{
		EventType:  auditdomain.EventForceOverride,
		ActorID:    &actor,
		TargetType: "feature",
		Metadata:   map[string]any{"override_actor": "ops-oncall", "override_reason": "incident 4821"},
	})
	require.NoError(t, err)

	entries, err := svc.List(ctx, auditdomain.ListRequest{EventType: auditdomain.EventForceOverride})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditdomain.EventForceOverride, entries[0].EventType)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, actor, *entries[0].ActorID)
	assert.Equal(t, "ops-oncall", entries[0].Metadata["override_actor"])
	assert.Equal(t, "incident 4821", entries[0].Metadata["override_reason"])
}

func TestRecordThreadsRequestID(t *testing.T) {
	svc := newService(t)
	ctx := actorcontext.WithRequestID(context.Background(), "req-123")

	err := svc.Record(ctx, auditdomain.Record{
		EventType:  auditdomain.EventSettingsUpdate,
		TargetType: "settings",
	})
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].Metadata["request_id"])
}

func TestRecordValidation(t *testing.T) {
	svc := newService(t)

	err := svc.Record(context.Background(), auditdomain.Record{TargetType: "feature"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidEventType)

	err = svc.Record(context.Background(), auditdomain.Record{EventType: "   "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidEventType)
}

func TestListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	alice := snowflake.ID(1)
	bob := snowflake.ID(2)
	require.NoError(t, svc.Record(ctx, auditdomain.Record{EventType: auditdomain.EventAccessDenied, ActorID: &alice}))
	require.NoError(t, svc.Record(ctx, auditdomain.Record{EventType: auditdomain.EventAccessDenied, ActorID: &bob}))
	require.NoError(t, svc.Record(ctx, auditdomain.Record{EventType: auditdomain.EventMemberAdd, ActorID: &alice}))

	entries, err := svc.List(ctx, auditdomain.ListRequest{EventType: auditdomain.EventAccessDenied})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = svc.List(ctx, auditdomain.ListRequest{ActorID: &alice})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = svc.List(ctx, auditdomain.ListRequest{EventType: auditdomain.EventMemberAdd, ActorID: &bob})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListInvalidTimeRange(t *testing.T) {
	svc := newService(t)

	end := time.Now().UTC()
	start := end.Add(time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
