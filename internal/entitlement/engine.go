// Package entitlement combines license grants, the feature catalog and
// resolved settings into a single allow/deny verdict with provenance.
package entitlement

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/config"
	"github.com/smallbiznis/gatekeeper/internal/identity"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"github.com/smallbiznis/gatekeeper/internal/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Action is the capability class the caller needs.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

type Request struct {
	ActorID     snowflake.ID
	NamespaceID snowflake.ID
	Feature     string
	// Action defaults to read.
	Action   string
	Override catalog.Override
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	Catalog      *catalog.Catalog
	LicenseSvc   licensedomain.Service
	SettingsSvc  settingsdomain.Service
	NamespaceSvc namespacedomain.Service
	Identity     identity.Store
	AuditSvc     auditdomain.Service `optional:"true"`
	Metrics      *telemetry.Metrics  `optional:"true"`
}

type Engine struct {
	log          *zap.Logger
	catalog      *catalog.Catalog
	licenseSvc   licensedomain.Service
	settingsSvc  settingsdomain.Service
	namespaceSvc namespacedomain.Service
	identity     identity.Store
	auditSvc     auditdomain.Service
	metrics      *telemetry.Metrics
	timeout      time.Duration
}

func New(p Params) *Engine {
	return &Engine{
		log:          p.Log.Named("entitlement.engine"),
		catalog:      p.Catalog,
		licenseSvc:   p.LicenseSvc,
		settingsSvc:  p.SettingsSvc,
		namespaceSvc: p.NamespaceSvc,
		identity:     p.Identity,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
		timeout:      p.Cfg.CollaboratorTimeout,
	}
}

// Evaluate runs the fixed decision order: resolve the current plan, resolve
// the feature's effective state, then the caller's capability. Denials reveal
// as little as possible: a caller without read access always gets not_found,
// never a licensing hint.
func (e *Engine) Evaluate(ctx context.Context, req Request) Verdict {
	verdict := e.evaluate(ctx, req)
	if e.metrics != nil {
		e.metrics.Decision(string(verdict.Reason))
	}
	if !verdict.Allowed && verdict.Reason != ReasonNotFound {
		e.auditDenied(ctx, req, verdict)
	}
	return verdict
}

func (e *Engine) evaluate(ctx context.Context, req Request) Verdict {
	if req.ActorID == 0 || req.NamespaceID == 0 || req.Feature == "" {
		return deny(ReasonNotFound, ProvenanceNone)
	}
	action := req.Action
	if action == "" {
		action = ActionRead
	}

	plan := e.licenseSvc.CurrentPlan(ctx)

	effective, err := e.catalog.ResolveEffectiveState(req.Feature, plan, req.Override)
	if err != nil {
		// Unknown features are indistinguishable from missing resources.
		return deny(ReasonNotFound, ProvenanceNone)
	}

	forced := req.Override.Forced() && e.catalog.IsForceOverridable(req.Feature)

	canRead, err := e.authorize(ctx, req.ActorID, req.NamespaceID, identity.ActionRead)
	if err != nil {
		e.log.Warn("identity store unavailable, failing closed",
			zap.String("feature", req.Feature), zap.Error(err))
		return deny(ReasonNotFound, ProvenanceNone)
	}
	if !canRead {
		return deny(ReasonNotFound, ProvenanceNone)
	}

	if forced {
		e.auditForceOverride(ctx, req)
	} else {
		if !effective {
			return deny(ReasonFeatureUnlicensed, ProvenanceLicense)
		}

		toggle, err := e.settingsSvc.Resolve(ctx, req.NamespaceID.Int64(), settingsdomain.FeatureToggleKey(req.Feature))
		if err != nil {
			e.log.Warn("settings resolution failed, failing closed",
				zap.String("feature", req.Feature), zap.Error(err))
			return deny(ReasonNotFound, ProvenanceNone)
		}
		if !toggle.BoolValue() {
			if toggle.Locked {
				return deny(ReasonLockedByInstance, ProvenanceInstance)
			}
			return deny(ReasonFeatureDisabled, e.toggleProvenance(ctx, req.NamespaceID, toggle))
		}
	}

	if action == ActionWrite {
		canWrite, err := e.authorize(ctx, req.ActorID, req.NamespaceID, identity.ActionWrite)
		if err != nil {
			e.log.Warn("identity store unavailable, failing closed",
				zap.String("feature", req.Feature), zap.Error(err))
			return deny(ReasonNotFound, ProvenanceNone)
		}
		if !canWrite {
			return deny(ReasonForbidden, ProvenanceNone)
		}
	}

	return allow()
}

func (e *Engine) authorize(ctx context.Context, actorID, namespaceID snowflake.ID, action string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.identity.Authorize(ctx, actorID, namespaceID, identity.ObjectFeature, action)
}

// toggleProvenance maps the resolved setting's source namespace onto the
// group/project provenance layers.
func (e *Engine) toggleProvenance(ctx context.Context, namespaceID snowflake.ID, toggle settingsdomain.Resolved) Provenance {
	sourceID := namespaceID.String()
	if toggle.Source == settingsdomain.SourceAncestor && toggle.InheritedFrom != nil {
		sourceID = *toggle.InheritedFrom
	}
	ns, err := e.namespaceSvc.Get(ctx, sourceID)
	if err != nil {
		return ProvenanceGroup
	}
	if ns.Kind == namespacedomain.KindProject {
		return ProvenanceProject
	}
	return ProvenanceGroup
}

func (e *Engine) auditForceOverride(ctx context.Context, req Request) {
	if e.auditSvc == nil {
		return
	}
	actorID := req.ActorID
	namespaceID := req.NamespaceID
	feature := req.Feature
	_ = e.auditSvc.Record(ctx, auditdomain.Record{
		EventType:   auditdomain.EventForceOverride,
		ActorID:     &actorID,
		TargetType:  "feature",
		TargetID:    &feature,
		NamespaceID: &namespaceID,
		Metadata: map[string]any{
			"override_actor":  req.Override.Actor(),
			"override_reason": req.Override.Reason(),
		},
	})
}

func (e *Engine) auditDenied(ctx context.Context, req Request, verdict Verdict) {
	if e.auditSvc == nil {
		return
	}
	actorID := req.ActorID
	namespaceID := req.NamespaceID
	feature := req.Feature
	_ = e.auditSvc.Record(ctx, auditdomain.Record{
		EventType:   auditdomain.EventAccessDenied,
		ActorID:     &actorID,
		TargetType:  "feature",
		TargetID:    &feature,
		NamespaceID: &namespaceID,
		Metadata: map[string]any{
			"reason":     string(verdict.Reason),
			"provenance": string(verdict.Provenance),
		},
	})
}

// Module provides the entitlement engine.
var Module = fx.Module("entitlement",
	fx.Provide(New),
)
