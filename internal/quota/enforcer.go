// Package quota evaluates resource usage against configured ceilings. The
// enforcer only reads counters; it never mutates them, so concurrent batches
// in different processes cannot double-account outside their own running
// projection.
package quota

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ReasonOK            = "ok"
	ReasonQuotaExceeded = "quota_exceeded"
)

// Verdict is the outcome of one quota check.
type Verdict struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason"`
	Current   int64  `json:"current"`
	Limit     int64  `json:"limit"`
	Projected int64  `json:"projected"`
	Message   string `json:"message,omitempty"`
}

type Params struct {
	fx.In

	Log          *zap.Logger
	SettingsSvc  settingsdomain.Service
	LicenseSvc   licensedomain.Service
	NamespaceSvc namespacedomain.Service
	Counters     counter.Store
}

type Enforcer struct {
	log          *zap.Logger
	settingsSvc  settingsdomain.Service
	licenseSvc   licensedomain.Service
	namespaceSvc namespacedomain.Service
	counters     counter.Store
}

func New(p Params) *Enforcer {
	return &Enforcer{
		log:          p.Log.Named("quota.enforcer"),
		settingsSvc:  p.SettingsSvc,
		licenseSvc:   p.LicenseSvc,
		namespaceSvc: p.NamespaceSvc,
		counters:     p.Counters,
	}
}

// Check evaluates a single usage delta. A delta of 0 is the pre-flight mode:
// an existing overage alone rejects new writes even though nothing is being
// added, which is exactly what the projected > limit comparison yields.
func (e *Enforcer) Check(ctx context.Context, namespaceID snowflake.ID, resource counter.Resource, delta int64) (Verdict, error) {
	if !resource.Valid() {
		return Verdict{}, counter.ErrInvalidResource
	}

	enabled, limit, err := e.limitFor(ctx, namespaceID, resource)
	if err != nil {
		return Verdict{}, err
	}
	if !enabled {
		return Verdict{OK: true, Reason: ReasonOK, Limit: limit}, nil
	}

	current, err := e.counters.Usage(ctx, namespaceID, resource)
	if err != nil {
		return Verdict{}, err
	}

	return e.verdict(ctx, namespaceID, resource, current, delta, limit), nil
}

// CheckBatch evaluates subjects sequentially against a running projected
// total: each accepted subject consumes quota the next one sees. The first
// failure does not roll prior successes back; callers receive one verdict per
// distinct subject keyed by identifier. A repeated identifier is evaluated
// once, on first occurrence, so its verdict cannot be overwritten by a later
// duplicate landing past the ceiling.
func (e *Enforcer) CheckBatch(ctx context.Context, namespaceID snowflake.ID, resource counter.Resource, subjects []string) (map[string]Verdict, error) {
	if !resource.Valid() {
		return nil, counter.ErrInvalidResource
	}

	verdicts := make(map[string]Verdict, len(subjects))

	enabled, limit, err := e.limitFor(ctx, namespaceID, resource)
	if err != nil {
		return nil, err
	}
	if !enabled {
		for _, subject := range subjects {
			if _, seen := verdicts[subject]; seen {
				continue
			}
			verdicts[subject] = Verdict{OK: true, Reason: ReasonOK, Limit: limit}
		}
		return verdicts, nil
	}

	current, err := e.counters.Usage(ctx, namespaceID, resource)
	if err != nil {
		return nil, err
	}

	running := current
	for _, subject := range subjects {
		if _, seen := verdicts[subject]; seen {
			continue
		}
		verdict := e.verdict(ctx, namespaceID, resource, running, 1, limit)
		verdicts[subject] = verdict
		if verdict.OK {
			running++
		}
	}
	return verdicts, nil
}

func (e *Enforcer) verdict(ctx context.Context, namespaceID snowflake.ID, resource counter.Resource, current, delta, limit int64) Verdict {
	projected := current + delta
	v := Verdict{
		Reason:    ReasonOK,
		Current:   current,
		Limit:     limit,
		Projected: projected,
	}

	// A limit of 0 means unconstrained regardless of the enforcement flag.
	if limit == 0 || projected <= limit {
		v.OK = true
		return v
	}

	v.OK = false
	v.Reason = ReasonQuotaExceeded
	v.Message = e.message(ctx, namespaceID, resource, limit)
	return v
}

func (e *Enforcer) message(ctx context.Context, namespaceID snowflake.ID, resource counter.Resource, limit int64) string {
	name := namespaceID.String()
	if ns, err := e.namespaceSvc.Get(ctx, namespaceID.String()); err == nil {
		name = ns.Path
	}
	switch resource {
	case counter.ResourceSeats:
		return fmt.Sprintf("cannot be added since you've reached your %d member limit for %s", limit, name)
	default:
		return fmt.Sprintf("%s has reached its storage limit of %d bytes", name, limit)
	}
}

// limitFor resolves the enforcement flag and ceiling per resource kind.
// Storage limits come from namespace settings; seat ceilings come from the
// active license's restricted user count.
func (e *Enforcer) limitFor(ctx context.Context, namespaceID snowflake.ID, resource counter.Resource) (bool, int64, error) {
	switch resource {
	case counter.ResourceStorage:
		enabled, err := e.settingsSvc.Resolve(ctx, namespaceID.Int64(), settingsdomain.KeyStorageLimitEnabled)
		if err != nil {
			return false, 0, err
		}
		if !enabled.BoolValue() {
			return false, 0, nil
		}
		limit, err := e.settingsSvc.Resolve(ctx, namespaceID.Int64(), settingsdomain.KeyStorageLimitBytes)
		if err != nil {
			return false, 0, err
		}
		return true, limit.Int64Value(), nil

	case counter.ResourceSeats:
		enabled, err := e.settingsSvc.Resolve(ctx, namespaceID.Int64(), settingsdomain.KeySeatLimitEnabled)
		if err != nil {
			return false, 0, err
		}
		if !enabled.BoolValue() {
			return false, 0, nil
		}
		active, err := e.licenseSvc.LoadActive(ctx)
		if err != nil {
			return false, 0, err
		}
		if active == nil {
			return true, 0, nil
		}
		return true, int64(active.RestrictedUserCount), nil

	default:
		return false, 0, counter.ErrInvalidResource
	}
}

// Module provides the quota enforcer.
var Module = fx.Module("quota",
	fx.Provide(New),
)
