// Package gate is the single entry point callers use to answer "may this
// actor do this thing here, and is there room for it". It fans the feature
// entitlement check and the optional quota check out in parallel and merges
// the results into one decision.
package gate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	"github.com/smallbiznis/gatekeeper/internal/entitlement"
	"github.com/smallbiznis/gatekeeper/internal/quota"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	ActorID     snowflake.ID
	NamespaceID snowflake.ID
	Feature     string
	Action      string
	Override    catalog.Override

	// Resource, when set, additionally checks quota headroom for Delta units.
	Resource counter.Resource
	Delta    int64
}

// Decision merges the entitlement verdict with the optional quota verdict.
// Allowed is true only when every requested check passed.
type Decision struct {
	Allowed     bool                   `json:"allowed"`
	Reason      entitlement.Reason     `json:"reason"`
	Provenance  entitlement.Provenance `json:"provenance"`
	Entitlement entitlement.Verdict    `json:"entitlement"`
	Quota       *quota.Verdict         `json:"quota,omitempty"`
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Engine   *entitlement.Engine
	Enforcer *quota.Enforcer
}

type Gate struct {
	log      *zap.Logger
	engine   *entitlement.Engine
	enforcer *quota.Enforcer
}

func New(p Params) *Gate {
	return &Gate{
		log:      p.Log.Named("gate"),
		engine:   p.Engine,
		enforcer: p.Enforcer,
	}
}

// EvaluateAndEnforce runs the entitlement and quota checks concurrently. The
// quota leg only runs when the request names a resource. An infrastructure
// failure on either leg denies the whole request.
func (g *Gate) EvaluateAndEnforce(ctx context.Context, req Request) (Decision, error) {
	var (
		verdict      entitlement.Verdict
		quotaVerdict *quota.Verdict
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		verdict = g.engine.Evaluate(ctx, entitlement.Request{
			ActorID:     req.ActorID,
			NamespaceID: req.NamespaceID,
			Feature:     req.Feature,
			Action:      req.Action,
			Override:    req.Override,
		})
		return nil
	})
	if req.Resource != "" {
		group.Go(func() error {
			v, err := g.enforcer.Check(ctx, req.NamespaceID, req.Resource, req.Delta)
			if err != nil {
				return err
			}
			quotaVerdict = &v
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		g.log.Warn("quota check failed", zap.String("feature", req.Feature), zap.Error(err))
		return Decision{}, err
	}

	decision := Decision{
		Allowed:     verdict.Allowed,
		Reason:      verdict.Reason,
		Provenance:  verdict.Provenance,
		Entitlement: verdict,
		Quota:       quotaVerdict,
	}
	if verdict.Allowed && quotaVerdict != nil && !quotaVerdict.OK {
		decision.Allowed = false
		decision.Reason = entitlement.ReasonQuotaExceeded
		decision.Provenance = entitlement.ProvenanceNone
	}
	return decision, nil
}

// Module provides the access gate.
var Module = fx.Module("gate",
	fx.Provide(New),
)
