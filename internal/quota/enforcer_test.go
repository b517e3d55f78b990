package quota

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Stubs --

type settingsStub struct {
	values map[string]any
}

func (s *settingsStub) Resolve(_ context.Context, _ int64, key string) (settingsdomain.Resolved, error) {
	if value, ok := s.values[key]; ok {
		return settingsdomain.Resolved{Key: key, Value: value, Source: settingsdomain.SourceSelf}, nil
	}
	value, recognized := settingsdomain.DefaultFor(key)
	if !recognized {
		return settingsdomain.Resolved{}, settingsdomain.ErrUnknownKey
	}
	return settingsdomain.Resolved{Key: key, Value: value, Source: settingsdomain.SourceDefault}, nil
}

func (s *settingsStub) Update(context.Context, settingsdomain.UpdateRequest) error { return nil }

type licenseStub struct {
	active *licensedomain.Response
	err    error
}

func (s *licenseStub) Upload(context.Context, licensedomain.UploadRequest) (*licensedomain.Response, error) {
	return nil, nil
}
func (s *licenseStub) Delete(context.Context, string) error { return nil }
func (s *licenseStub) LoadActive(context.Context) (*licensedomain.Response, error) {
	return s.active, s.err
}
func (s *licenseStub) CurrentPlan(context.Context) licensedomain.Plan {
	return licensedomain.PlanPremium
}
func (s *licenseStub) List(context.Context) ([]licensedomain.Response, error) { return nil, nil }

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
	enforcer *Enforcer
	settings *settingsStub
	license  *licenseStub
	counters *counter.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		settings: &settingsStub{values: map[string]any{}},
		license:  &licenseStub{},
		counters: counter.NewFake(),
	}
	f.enforcer = New(Params{
		Log:          zap.NewNop(),
		SettingsSvc:  f.settings,
		LicenseSvc:   f.license,
		NamespaceSvc: &namespaceStub{},
		Counters:     f.counters,
	})
	return f
}

const namespaceID = snowflake.ID(4001)

// -- Tests --

func TestCheckStorageLimit(t *testing.T) {
	f := newFixture(t)
	f.settings.values[settingsdomain.KeyStorageLimitEnabled] = true
	f.settings.values[settingsdomain.KeyStorageLimitBytes] = int64(1000)
	f.counters.SetUsage(namespaceID, counter.ResourceStorage, 900)

	verdict, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 50)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.Equal(t, int64(950), verdict.Projected)

	verdict, err = f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 200)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Equal(t, ReasonQuotaExceeded, verdict.Reason)
	assert.Equal(t, "acme has reached its storage limit of 1000 bytes", verdict.Message)
}

// A zero delta is the pre-flight probe: an existing overage alone must reject.
func TestCheckPreFlightOverage(t *testing.T) {
	f := newFixture(t)
	f.settings.values[settingsdomain.KeyStorageLimitEnabled] = true
	f.settings.values[settingsdomain.KeyStorageLimitBytes] = int64(1000)
	f.counters.SetUsage(namespaceID, counter.ResourceStorage, 1200)

	verdict, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 0)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Equal(t, int64(1200), verdict.Current)
}

func TestCheckDisabledLimit(t *testing.T) {
	f := newFixture(t)
	f.counters.SetUsage(namespaceID, counter.ResourceStorage, 1<<40)

	// storage_limit_enabled defaults to false.
	verdict, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 1<<30)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckZeroLimitIsUnlimited(t *testing.T) {
	f := newFixture(t)
	f.settings.values[settingsdomain.KeyStorageLimitEnabled] = true
	f.settings.values[settingsdomain.KeyStorageLimitBytes] = int64(0)
	f.counters.SetUsage(namespaceID, counter.ResourceStorage, 1<<40)

	verdict, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 1)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckSeatLimitFromLicense(t *testing.T) {
	f := newFixture(t)
	f.license.active = &licensedomain.Response{Plan: licensedomain.PlanPremium, RestrictedUserCount: 10}
	f.counters.SetUsage(namespaceID, counter.ResourceSeats, 10)

	verdict, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceSeats, 1)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Equal(t, "cannot be added since you've reached your 10 member limit for acme", verdict.Message)

	// No license means no seat ceiling.
	f.license.active = nil
	verdict, err = f.enforcer.Check(context.Background(), namespaceID, counter.ResourceSeats, 1)
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckInvalidResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.enforcer.Check(context.Background(), namespaceID, "bandwidth", 1)
	assert.ErrorIs(t, err, counter.ErrInvalidResource)
}

func TestCheckCounterFailure(t *testing.T) {
	f := newFixture(t)
	f.settings.values[settingsdomain.KeyStorageLimitEnabled] = true
	f.settings.values[settingsdomain.KeyStorageLimitBytes] = int64(1000)
	f.counters.Err = errors.New("counter store down")

	_, err := f.enforcer.Check(context.Background(), namespaceID, counter.ResourceStorage, 1)
	assert.Error(t, err)
}

// The batch consumes quota as it goes: members before the ceiling land,
// members past it are rejected, and nothing rolls back.
func TestCheckBatchPartialSuccess(t *testing.T) {
	f := newFixture(t)
	f.license.active = &licensedomain.Response{Plan: licensedomain.PlanPremium, RestrictedUserCount: 10}
	f.counters.SetUsage(namespaceID, counter.ResourceSeats, 8)

	subjects := []string{"alice", "bob", "carol", "dave"}
	verdicts, err := f.enforcer.CheckBatch(context.Background(), namespaceID, counter.ResourceSeats, subjects)
	require.NoError(t, err)
	require.Len(t, verdicts, 4)

	assert.True(t, verdicts["alice"].OK)
	assert.True(t, verdicts["bob"].OK)
	assert.False(t, verdicts["carol"].OK)
	assert.False(t, verdicts["dave"].OK)

	for _, subject := range []string{"carol", "dave"} {
		assert.Equal(t,
			fmt.Sprintf("cannot be added since you've reached your %d member limit for %s", 10, "acme"),
			verdicts[subject].Message)
	}
}

// A subject listed twice consumes one seat and keeps its first verdict; the
// duplicate must not overwrite an accepted subject with a rejection.
func TestCheckBatchDuplicateSubjects(t *testing.T) {
	f := newFixture(t)
	f.license.active = &licensedomain.Response{Plan: licensedomain.PlanPremium, RestrictedUserCount: 10}
	f.counters.SetUsage(namespaceID, counter.ResourceSeats, 9)

	verdicts, err := f.enforcer.CheckBatch(context.Background(), namespaceID, counter.ResourceSeats, []string{"alice", "alice", "bob"})
	require.NoError(t, err)
	require.Len(t, verdicts, 2)

	assert.True(t, verdicts["alice"].OK)
	assert.False(t, verdicts["bob"].OK)
	assert.Equal(t, int64(10), verdicts["bob"].Current)
}

func TestCheckBatchDisabledLimit(t *testing.T) {
	f := newFixture(t)
	f.settings.values[settingsdomain.KeySeatLimitEnabled] = false
	f.counters.SetUsage(namespaceID, counter.ResourceSeats, 100)

	verdicts, err := f.enforcer.CheckBatch(context.Background(), namespaceID, counter.ResourceSeats, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, verdicts["a"].OK)
	assert.True(t, verdicts["b"].OK)
}
