package identity

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	defaultrolemanager "github.com/casbin/casbin/v2/rbac/default-role-manager"
	"github.com/casbin/casbin/v2/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log          *zap.Logger
	Enforcer     *casbin.SyncedEnforcer
	NamespaceSvc namespacedomain.Service
}

type StoreImpl struct {
	log          *zap.Logger
	enforcer     *casbin.SyncedEnforcer
	namespaceSvc namespacedomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	// Role links are seeded in domain "*" while users are graded into roles in
	// concrete ns:<id> domains. The role manager needs a domain matcher or the
	// "*" links never apply outside the literal "*" domain.
	rm, ok := enforcer.GetRoleManager().(*defaultrolemanager.RoleManagerImpl)
	if !ok {
		return nil, fmt.Errorf("unexpected role manager %T", enforcer.GetRoleManager())
	}
	rm.AddDomainMatchingFunc("keyMatch", util.KeyMatch)
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewStore(p Params) Store {
	return &StoreImpl{
		log:          p.Log.Named("identity.store"),
		enforcer:     p.Enforcer,
		namespaceSvc: p.NamespaceSvc,
	}
}

func (s *StoreImpl) Role(ctx context.Context, actorID, namespaceID snowflake.ID) (namespacedomain.Role, bool, error) {
	if actorID == 0 || namespaceID == 0 {
		return "", false, ErrInvalidActor
	}
	return s.namespaceSvc.EffectiveRole(ctx, namespaceID.String(), actorID.String())
}

func (s *StoreImpl) Authorize(ctx context.Context, actorID, namespaceID snowflake.ID, object, action string) (bool, error) {
	role, ok, err := s.Role(ctx, actorID, namespaceID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	subject := fmt.Sprintf("user:%s", actorID.String())
	domain := fmt.Sprintf("ns:%s", namespaceID.String())
	roleName := fmt.Sprintf("role:%s", strings.ToLower(string(role)))
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return false, err
	}

	return s.enforcer.Enforce(subject, domain, object, action)
}

func (s *StoreImpl) ensureGrouping(subject, roleName, domain string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

// seedPolicies installs the role/capability matrix once. Reporters and above
// can read gated resources; maintainers and above can write; owners hold
// admin capabilities (settings enforcement, member management).
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:reporter", "*", ObjectFeature, ActionRead},
		{"role:reporter", "*", ObjectSettings, ActionRead},
		{"role:maintainer", "*", ObjectFeature, ActionWrite},
		{"role:maintainer", "*", ObjectSettings, ActionWrite},
		{"role:maintainer", "*", ObjectMember, ActionWrite},
		{"role:owner", "*", ObjectSettings, ActionAdmin},
		{"role:owner", "*", ObjectMember, ActionAdmin},
		{"role:owner", "*", ObjectLicense, ActionAdmin},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2], p[3]); err != nil {
			return err
		}
	}

	// Role links: each role inherits the one below it in every domain.
	groupings := [][]string{
		{"role:owner", "role:maintainer", "*"},
		{"role:maintainer", "role:developer", "*"},
		{"role:developer", "role:reporter", "*"},
		{"role:reporter", "role:guest", "*"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1], g[2]); err != nil {
			return err
		}
	}
	return nil
}

// Module provides the casbin-backed identity store.
var Module = fx.Module("identity",
	fx.Provide(NewEnforcer),
	fx.Provide(NewStore),
)
