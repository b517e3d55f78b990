package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/cache"
	"github.com/smallbiznis/gatekeeper/internal/clock"
	"github.com/smallbiznis/gatekeeper/internal/license/domain"
	"github.com/smallbiznis/gatekeeper/internal/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock
	Bus      notify.Bus
	Cache    cache.ResolverCache `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	bus      notify.Bus
	cache    cache.ResolverCache
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("license.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		bus:      p.Bus,
		cache:    p.Cache,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Upload(ctx context.Context, req domain.UploadRequest) (*domain.Response, error) {
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if req.StartsAt.IsZero() || req.ExpiresAt.IsZero() || req.StartsAt.After(req.ExpiresAt) {
		return nil, domain.ErrInvalidPeriod
	}
	if req.RestrictedUserCount < 0 {
		return nil, domain.ErrInvalidPayload
	}

	grant := &domain.Grant{
		ID:                  s.genID.Generate(),
		Plan:                plan,
		StartsAt:            req.StartsAt.UTC(),
		ExpiresAt:           req.ExpiresAt.UTC(),
		RestrictedUserCount: req.RestrictedUserCount,
		AddOns:              addOnSet(req.AddOns),
		CreatedAt:           s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, grant); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.audit(ctx, auditdomain.EventLicenseUpload, grant, req.UploadedBy)

	resp := s.toResponse(grant)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	grantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || grantID == 0 {
		return domain.ErrInvalidID
	}

	grant, err := s.repo.FindByID(ctx, s.db, grantID.Int64())
	if err != nil {
		return err
	}
	if grant == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, grantID.Int64()); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.audit(ctx, auditdomain.EventLicenseDelete, grant, nil)
	return nil
}

// LoadActive returns the authoritative grant: newest by creation time, id
// breaking ties. Returns nil when no grant exists or the stored row fails
// validation, which downstream checks treat as the free tier.
func (s *Service) LoadActive(ctx context.Context) (*domain.Response, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetActiveLicense(); ok {
			return cached, nil
		}
	}

	grant, err := s.repo.FindNewest(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		s.setCached(nil)
		return nil, nil
	}
	if !grant.Plan.Valid() || grant.StartsAt.After(grant.ExpiresAt) {
		s.log.Warn("stored license failed validation, treating instance as unlicensed",
			zap.String("license_id", grant.ID.String()))
		s.setCached(nil)
		return nil, nil
	}

	resp := s.toResponse(grant)
	s.setCached(&resp)
	return &resp, nil
}

// CurrentPlan resolves the effective tier. An expired grant downgrades every
// plan-gated check to free without erroring; seat fields stay queryable via
// LoadActive and List.
func (s *Service) CurrentPlan(ctx context.Context) domain.Plan {
	active, err := s.LoadActive(ctx)
	if err != nil {
		s.log.Warn("license load failed, failing closed to free tier", zap.Error(err))
		return domain.PlanFree
	}
	if active == nil || active.Expired {
		return domain.PlanFree
	}
	return active.Plan
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	grants, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(grants))
	for i := range grants {
		resp = append(resp, s.toResponse(&grants[i]))
	}
	return resp, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateLicense()
	}
	if err := s.bus.Publish(ctx, notify.Event{Kind: notify.EventLicenseChanged}); err != nil {
		s.log.Warn("failed to publish license invalidation", zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, eventType string, grant *domain.Grant, actor *string) {
	if s.auditSvc == nil {
		return
	}
	target := grant.ID.String()
	metadata := map[string]any{
		"plan":                  string(grant.Plan),
		"expires_at":            grant.ExpiresAt,
		"restricted_user_count": grant.RestrictedUserCount,
	}
	if actor != nil {
		metadata["uploaded_by"] = *actor
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Record{
		EventType:  eventType,
		TargetType: "license",
		TargetID:   &target,
		Metadata:   metadata,
	})
}

func (s *Service) setCached(resp *domain.Response) {
	if s.cache != nil {
		s.cache.SetActiveLicense(resp)
	}
}

func (s *Service) toResponse(g *domain.Grant) domain.Response {
	return domain.Response{
		ID:                  g.ID.String(),
		Plan:                g.Plan,
		StartsAt:            g.StartsAt,
		ExpiresAt:           g.ExpiresAt,
		RestrictedUserCount: g.RestrictedUserCount,
		HistoricalMaxUsers:  g.HistoricalMaxUsers,
		AddOns:              addOnList(g.AddOns),
		Expired:             g.Expired(s.clock.Now()),
		CreatedAt:           g.CreatedAt,
	}
}

func addOnSet(addOns []string) datatypes.JSONMap {
	if len(addOns) == 0 {
		return nil
	}
	set := datatypes.JSONMap{}
	for _, addOn := range addOns {
		trimmed := strings.ToLower(strings.TrimSpace(addOn))
		if trimmed == "" {
			continue
		}
		set[trimmed] = true
	}
	return set
}

func addOnList(set datatypes.JSONMap) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for addOn := range set {
		out = append(out, addOn)
	}
	sort.Strings(out)
	return out
}
