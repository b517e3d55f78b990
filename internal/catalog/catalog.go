// Package catalog holds the fixed feature registry: which plan tier each
// feature requires, its default toggle state, and whether it is licensed-only.
// The catalog is built once at process start and never mutated at runtime.
package catalog

import (
	"errors"
	"sort"
	"strings"

	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	"go.uber.org/fx"
)

var ErrUnknownFeature = errors.New("unknown_feature")

// Definition describes one gated feature.
type Definition struct {
	Code           string
	RequiredPlan   *licensedomain.Plan // nil means available to all tiers
	DefaultEnabled bool
	LicensedOnly   bool
}

// Catalog is an immutable feature registry.
type Catalog struct {
	defs map[string]Definition
}

// FromDefinitions builds a catalog from an explicit definition set.
func FromDefinitions(defs []Definition) *Catalog {
	index := make(map[string]Definition, len(defs))
	for _, def := range defs {
		code := strings.ToLower(strings.TrimSpace(def.Code))
		if code == "" {
			continue
		}
		def.Code = code
		index[code] = def
	}
	return &Catalog{defs: index}
}

// New returns the built-in catalog.
func New() *Catalog {
	return FromDefinitions(builtin)
}

func planPtr(p licensedomain.Plan) *licensedomain.Plan { return &p }

var builtin = []Definition{
	{Code: "package_registry", RequiredPlan: nil, DefaultEnabled: true},
	{Code: "issue_boards", RequiredPlan: nil, DefaultEnabled: true},
	{Code: "merge_request_approvers", RequiredPlan: planPtr(licensedomain.PlanPremium), DefaultEnabled: true},
	{Code: "epics", RequiredPlan: planPtr(licensedomain.PlanPremium), DefaultEnabled: true},
	{Code: "group_wikis", RequiredPlan: planPtr(licensedomain.PlanPremium), DefaultEnabled: true},
	{Code: "protected_environments", RequiredPlan: planPtr(licensedomain.PlanPremium), DefaultEnabled: true},
	{Code: "audit_events", RequiredPlan: planPtr(licensedomain.PlanPremium), DefaultEnabled: true, LicensedOnly: true},
	{Code: "security_dashboard", RequiredPlan: planPtr(licensedomain.PlanUltimate), DefaultEnabled: true, LicensedOnly: true},
	{Code: "custom_roles", RequiredPlan: planPtr(licensedomain.PlanUltimate), DefaultEnabled: true, LicensedOnly: true},
	{Code: "dependency_scanning", RequiredPlan: planPtr(licensedomain.PlanUltimate), DefaultEnabled: true},
}

// Definitions returns every registered feature sorted by code.
func (c *Catalog) Definitions() []Definition {
	defs := make([]Definition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}

// Definition returns the registered definition for a feature code.
func (c *Catalog) Definition(code string) (Definition, error) {
	def, ok := c.defs[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Definition{}, ErrUnknownFeature
	}
	return def, nil
}

// RequiresPlan returns the tier a feature needs; ok is false when the feature
// is available to all tiers.
func (c *Catalog) RequiresPlan(code string) (licensedomain.Plan, bool, error) {
	def, err := c.Definition(code)
	if err != nil {
		return "", false, err
	}
	if def.RequiredPlan == nil {
		return "", false, nil
	}
	return *def.RequiredPlan, true, nil
}

// IsForceOverridable reports whether the break-glass path may toggle the
// feature. Licensed-only features refuse it.
func (c *Catalog) IsForceOverridable(code string) bool {
	def, err := c.Definition(code)
	if err != nil {
		return false
	}
	return !def.LicensedOnly
}

// ResolveEffectiveState decides whether the feature is available under the
// current plan. A forced override on an overridable feature wins
// unconditionally; callers must audit that path.
func (c *Catalog) ResolveEffectiveState(code string, currentPlan licensedomain.Plan, override Override) (bool, error) {
	def, err := c.Definition(code)
	if err != nil {
		return false, err
	}

	if override.Forced() && !def.LicensedOnly {
		return true, nil
	}

	if def.RequiredPlan != nil && !currentPlan.Covers(*def.RequiredPlan) {
		return false, nil
	}
	return def.DefaultEnabled, nil
}

// Module provides the built-in catalog.
var Module = fx.Module("catalog",
	fx.Provide(New),
)
