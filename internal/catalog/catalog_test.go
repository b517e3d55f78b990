package catalog

import (
	"testing"

	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanOrdering(t *testing.T) {
	assert.True(t, licensedomain.PlanUltimate.Covers(licensedomain.PlanPremium))
	assert.True(t, licensedomain.PlanPremium.Covers(licensedomain.PlanFree))
	assert.False(t, licensedomain.PlanFree.Covers(licensedomain.PlanPremium))
	assert.True(t, licensedomain.PlanPremium.Covers(licensedomain.PlanPremium))
}

func TestResolveEffectiveState(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		feature  string
		plan     licensedomain.Plan
		override Override
		want     bool
		wantErr  error
	}{
		{
			name:    "free feature on free plan",
			feature: "issue_boards",
			plan:    licensedomain.PlanFree,
			want:    true,
		},
		{
			name:    "premium feature blocked on free plan",
			feature: "epics",
			plan:    licensedomain.PlanFree,
			want:    false,
		},
		{
			name:    "premium feature on premium plan",
			feature: "epics",
			plan:    licensedomain.PlanPremium,
			want:    true,
		},
		{
			name:    "ultimate feature blocked on premium plan",
			feature: "security_dashboard",
			plan:    licensedomain.PlanPremium,
			want:    false,
		},
		{
			name:     "forced override unlocks a plan-gated feature",
			feature:  "epics",
			plan:     licensedomain.PlanFree,
			override: ForcedOverride("ops-oncall", "incident 4821"),
			want:     true,
		},
		{
			name:     "forced override refused on licensed-only feature",
			feature:  "security_dashboard",
			plan:     licensedomain.PlanFree,
			override: ForcedOverride("ops-oncall", "incident 4821"),
			want:     false,
		},
		{
			name:    "unknown feature",
			feature: "time_travel",
			plan:    licensedomain.PlanUltimate,
			wantErr: ErrUnknownFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ResolveEffectiveState(tt.feature, tt.plan, tt.override)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForcedOverrideRequiresActorAndReason(t *testing.T) {
	assert.False(t, ForcedOverride("", "incident").Forced())
	assert.False(t, ForcedOverride("ops", "").Forced())
	assert.False(t, ForcedOverride("  ", "  ").Forced())

	forced := ForcedOverride("ops", "incident 4821")
	assert.True(t, forced.Forced())
	assert.Equal(t, "ops", forced.Actor())
	assert.Equal(t, "incident 4821", forced.Reason())
}

func TestIsForceOverridable(t *testing.T) {
	c := New()

	assert.True(t, c.IsForceOverridable("epics"))
	assert.False(t, c.IsForceOverridable("security_dashboard"))
	assert.False(t, c.IsForceOverridable("custom_roles"))
	assert.False(t, c.IsForceOverridable("time_travel"))
}

func TestRequiresPlan(t *testing.T) {
	c := New()

	plan, gated, err := c.RequiresPlan("epics")
	require.NoError(t, err)
	assert.True(t, gated)
	assert.Equal(t, licensedomain.PlanPremium, plan)

	_, gated, err = c.RequiresPlan("issue_boards")
	require.NoError(t, err)
	assert.False(t, gated)

	_, _, err = c.RequiresPlan("time_travel")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}
