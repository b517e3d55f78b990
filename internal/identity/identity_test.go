package identity

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	namespacerepository "github.com/smallbiznis/gatekeeper/internal/namespace/repository"
	namespaceservice "github.com/smallbiznis/gatekeeper/internal/namespace/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	guestID      = snowflake.ID(11)
	reporterID   = snowflake.ID(12)
	developerID  = snowflake.ID(13)
	maintainerID = snowflake.ID(14)
	ownerID      = snowflake.ID(15)
	strangerID   = snowflake.ID(99)
)

func newTestStore(t *testing.T) (Store, namespacedomain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&namespacedomain.Namespace{}, &namespacedomain.Member{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	namespaceSvc := namespaceservice.New(namespaceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  namespacerepository.Provide(),
	})

	store := NewStore(Params{
		Log:          zap.NewNop(),
		Enforcer:     enforcer,
		NamespaceSvc: namespaceSvc,
	})
	return store, namespaceSvc
}

func seedGroup(t *testing.T, namespaceSvc namespacedomain.Service) snowflake.ID {
	t.Helper()
	ctx := context.Background()

	group, err := namespaceSvc.Create(ctx, namespacedomain.CreateRequest{
		Kind: namespacedomain.KindGroup,
		Name: "acme",
	})
	require.NoError(t, err)

	members := map[snowflake.ID]namespacedomain.Role{
		guestID:      namespacedomain.RoleGuest,
		reporterID:   namespacedomain.RoleReporter,
		developerID:  namespacedomain.RoleDeveloper,
		maintainerID: namespacedomain.RoleMaintainer,
		ownerID:      namespacedomain.RoleOwner,
	}
	for userID, role := range members {
		_, err := namespaceSvc.AddMember(ctx, namespacedomain.AddMemberRequest{
			NamespaceID: group.ID,
			UserID:      userID.String(),
			Role:        role,
		})
		require.NoError(t, err)
	}

	groupID, err := snowflake.ParseString(group.ID)
	require.NoError(t, err)
	return groupID
}

func TestAuthorizeCapabilityMatrix(t *testing.T) {
	store, namespaceSvc := newTestStore(t)
	groupID := seedGroup(t, namespaceSvc)
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  snowflake.ID
		object string
		action string
		want   bool
	}{
		{"guest cannot read features", guestID, ObjectFeature, ActionRead, false},
		{"reporter reads features", reporterID, ObjectFeature, ActionRead, true},
		{"reporter cannot write", reporterID, ObjectFeature, ActionWrite, false},
		{"developer inherits read", developerID, ObjectFeature, ActionRead, true},
		{"developer reads settings", developerID, ObjectSettings, ActionRead, true},
		{"developer cannot write", developerID, ObjectFeature, ActionWrite, false},
		{"maintainer inherits read", maintainerID, ObjectFeature, ActionRead, true},
		{"maintainer writes features", maintainerID, ObjectFeature, ActionWrite, true},
		{"maintainer writes settings", maintainerID, ObjectSettings, ActionWrite, true},
		{"maintainer writes members", maintainerID, ObjectMember, ActionWrite, true},
		{"maintainer lacks admin", maintainerID, ObjectSettings, ActionAdmin, false},
		{"owner inherits read", ownerID, ObjectFeature, ActionRead, true},
		{"owner inherits write", ownerID, ObjectMember, ActionWrite, true},
		{"owner administers settings", ownerID, ObjectSettings, ActionAdmin, true},
		{"owner administers licenses", ownerID, ObjectLicense, ActionAdmin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Authorize(ctx, tt.actor, groupID, tt.object, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizeNonMember(t *testing.T) {
	store, namespaceSvc := newTestStore(t)
	groupID := seedGroup(t, namespaceSvc)

	allowed, err := store.Authorize(context.Background(), strangerID, groupID, ObjectFeature, ActionRead)
	require.NoError(t, err)
	assert.False(t, allowed)
}

// Membership in an ancestor group carries into descendants: the role walks the
// chain even though the enforcer is only graded for the target namespace.
func TestAuthorizeAncestorMembership(t *testing.T) {
	store, namespaceSvc := newTestStore(t)
	groupID := seedGroup(t, namespaceSvc)
	ctx := context.Background()

	parent := groupID.String()
	sub, err := namespaceSvc.Create(ctx, namespacedomain.CreateRequest{
		Kind:     namespacedomain.KindGroup,
		Name:     "platform",
		ParentID: &parent,
	})
	require.NoError(t, err)
	subID, err := snowflake.ParseString(sub.ID)
	require.NoError(t, err)

	allowed, err := store.Authorize(ctx, developerID, subID, ObjectFeature, ActionRead)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Authorize(ctx, maintainerID, subID, ObjectSettings, ActionWrite)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRoleRejectsInvalidActor(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.Role(context.Background(), 0, snowflake.ID(1))
	assert.ErrorIs(t, err, ErrInvalidActor)
}
