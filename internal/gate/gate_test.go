package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/config"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	"github.com/smallbiznis/gatekeeper/internal/entitlement"
	"github.com/smallbiznis/gatekeeper/internal/identity"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"github.com/smallbiznis/gatekeeper/internal/quota"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Stubs --

type licenseStub struct {
	plan   licensedomain.Plan
	active *licensedomain.Response
}

func (s *licenseStub) Upload(context.Context, licensedomain.UploadRequest) (*licensedomain.Response, error) {
	return nil, nil
}
func (s *licenseStub) Delete(context.Context, string) error { return nil }
func (s *licenseStub) LoadActive(context.Context) (*licensedomain.Response, error) {
	return s.active, nil
}
func (s *licenseStub) CurrentPlan(context.Context) licensedomain.Plan     { return s.plan }
func (s *licenseStub) List(context.Context) ([]licensedomain.Response, error) { return nil, nil }

type settingsStub struct{}

func (s *settingsStub) Resolve(_ context.Context, _ int64, key string) (settingsdomain.Resolved, error) {
	value, recognized := settingsdomain.DefaultFor(key)
	if !recognized {
		return settingsdomain.Resolved{}, settingsdomain.ErrUnknownKey
	}
	return settingsdomain.Resolved{Key: key, Value: value, Source: settingsdomain.SourceDefault}, nil
}

func (s *settingsStub) Update(context.Context, settingsdomain.UpdateRequest) error { return nil }

type namespaceStub struct{}

func (s *namespaceStub) Create(context.Context, namespacedomain.CreateRequest) (*namespacedomain.Response, error) {
	return nil, nil
}
func (s *namespaceStub) Get(_ context.Context, id string) (*namespacedomain.Response, error) {
	return &namespacedomain.Response{ID: id, Kind: namespacedomain.KindGroup, Path: "acme"}, nil
}
func (s *namespaceStub) AncestorChain(context.Context, string) ([]namespacedomain.Response, error) {
	return nil, nil
}
func (s *namespaceStub) AddMember(context.Context, namespacedomain.AddMemberRequest) (*namespacedomain.MemberResponse, error) {
	return nil, nil
}
func (s *namespaceStub) EffectiveRole(context.Context, string, string) (namespacedomain.Role, bool, error) {
	return "", false, nil
}
func (s *namespaceStub) MemberCount(context.Context, string) (int64, error) { return 0, nil }

type fixture struct {
	gate     *Gate
	license  *licenseStub
	identity *identity.Fake
	counters *counter.Fake
}

const (
	actorID     = snowflake.ID(7001)
	namespaceID = snowflake.ID(4001)
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		license:  &licenseStub{plan: licensedomain.PlanPremium},
		identity: &identity.Fake{Roles: map[snowflake.ID]namespacedomain.Role{actorID: namespacedomain.RoleDeveloper}},
		counters: counter.NewFake(),
	}

	engine := entitlement.New(entitlement.Params{
		Log:          zap.NewNop(),
		Cfg:          config.Config{CollaboratorTimeout: 100 * time.Millisecond},
		Catalog:      catalog.New(),
		LicenseSvc:   f.license,
		SettingsSvc:  &settingsStub{},
		NamespaceSvc: &namespaceStub{},
		Identity:     f.identity,
	})

	enforcer := quota.New(quota.Params{
		Log:          zap.NewNop(),
		SettingsSvc:  &settingsStub{},
		LicenseSvc:   f.license,
		NamespaceSvc: &namespaceStub{},
		Counters:     f.counters,
	})

	f.gate = New(Params{
		Log:      zap.NewNop(),
		Engine:   engine,
		Enforcer: enforcer,
	})
	return f
}

// -- Tests --

func TestEvaluateAndEnforceWithoutQuota(t *testing.T) {
	f := newFixture(t)

	decision, err := f.gate.EvaluateAndEnforce(context.Background(), Request{
		ActorID:     actorID,
		NamespaceID: namespaceID,
		Feature:     "epics",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, entitlement.ReasonOK, decision.Reason)
	assert.Nil(t, decision.Quota)
}

func TestEvaluateAndEnforceQuotaDenies(t *testing.T) {
	f := newFixture(t)
	f.license.active = &licensedomain.Response{Plan: licensedomain.PlanPremium, RestrictedUserCount: 5}
	f.counters.SetUsage(namespaceID, counter.ResourceSeats, 5)

	decision, err := f.gate.EvaluateAndEnforce(context.Background(), Request{
		ActorID:     actorID,
		NamespaceID: namespaceID,
		Feature:     "epics",
		Resource:    counter.ResourceSeats,
		Delta:       1,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, entitlement.ReasonQuotaExceeded, decision.Reason)
	assert.True(t, decision.Entitlement.Allowed)
	require.NotNil(t, decision.Quota)
	assert.False(t, decision.Quota.OK)
}

func TestEvaluateAndEnforceEntitlementDenialWins(t *testing.T) {
	f := newFixture(t)
	f.license.plan = licensedomain.PlanFree

	decision, err := f.gate.EvaluateAndEnforce(context.Background(), Request{
		ActorID:     actorID,
		NamespaceID: namespaceID,
		Feature:     "epics",
		Resource:    counter.ResourceSeats,
		Delta:       1,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, entitlement.ReasonFeatureUnlicensed, decision.Reason)
	assert.Equal(t, entitlement.ProvenanceLicense, decision.Provenance)
	// The quota leg still ran and passed; the merged decision keeps the
	// entitlement reason.
	require.NotNil(t, decision.Quota)
	assert.True(t, decision.Quota.OK)
}

func TestEvaluateAndEnforceQuotaError(t *testing.T) {
	f := newFixture(t)
	f.counters.Err = errors.New("counter store down")
	f.license.active = &licensedomain.Response{Plan: licensedomain.PlanPremium, RestrictedUserCount: 5}

	_, err := f.gate.EvaluateAndEnforce(context.Background(), Request{
		ActorID:     actorID,
		NamespaceID: namespaceID,
		Feature:     "epics",
		Resource:    counter.ResourceSeats,
		Delta:       1,
	})
	assert.Error(t, err)
}
