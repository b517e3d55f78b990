package domain

import "strings"

// Recognized setting keys and their in-memory defaults. A namespace with no
// settings rows still resolves every one of these.
const (
	KeyPreventForkingOutsideGroup = "prevent_forking_outside_group"
	KeyMembershipLock             = "membership_lock"
	KeyStorageLimitEnabled        = "storage_limit_enabled"
	KeyStorageLimitBytes          = "storage_limit_bytes"
	KeySeatLimitEnabled           = "seat_limit_enabled"
	KeyDefaultBranchProtected     = "default_branch_protected"
	KeyPackageRegistryEnabled     = "package_registry_enabled"
)

// FeatureTogglePrefix namespaces per-feature enablement keys, e.g.
// "feature_enabled:epics". They default to enabled; an explicit false row
// disables a feature the plan would otherwise allow.
const FeatureTogglePrefix = "feature_enabled:"

var defaults = map[string]any{
	KeyPreventForkingOutsideGroup: false,
	KeyMembershipLock:             false,
	KeyStorageLimitEnabled:        false,
	KeyStorageLimitBytes:          int64(0),
	KeySeatLimitEnabled:           true,
	KeyDefaultBranchProtected:     true,
	KeyPackageRegistryEnabled:     true,
}

// DefaultFor returns the documented default for a recognized key.
func DefaultFor(key string) (any, bool) {
	if v, ok := defaults[key]; ok {
		return v, true
	}
	if strings.HasPrefix(key, FeatureTogglePrefix) && len(key) > len(FeatureTogglePrefix) {
		return true, true
	}
	return nil, false
}

// FeatureToggleKey builds the setting key controlling one feature.
func FeatureToggleKey(featureCode string) string {
	return FeatureTogglePrefix + strings.ToLower(strings.TrimSpace(featureCode))
}
