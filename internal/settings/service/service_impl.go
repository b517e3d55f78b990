package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/cache"
	"github.com/smallbiznis/gatekeeper/internal/config"
	"github.com/smallbiznis/gatekeeper/internal/lock"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"github.com/smallbiznis/gatekeeper/internal/notify"
	"github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Repo         domain.Repository
	NamespaceSvc namespacedomain.Service
	Bus          notify.Bus
	Locker       *lock.Locker        `optional:"true"`
	Cache        cache.ResolverCache `optional:"true"`
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	namespaceSvc namespacedomain.Service
	bus          notify.Bus
	locker       *lock.Locker
	cache        cache.ResolverCache
	auditSvc     auditdomain.Service
	lockTTL      time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("settings.service"),
		repo:         p.Repo,
		namespaceSvc: p.NamespaceSvc,
		bus:          p.Bus,
		locker:       p.Locker,
		cache:        p.Cache,
		auditSvc:     p.AuditSvc,
		lockTTL:      p.Cfg.SettingsLockTTL,
	}
}

// Resolve applies the precedence order: enforced instance value, then the
// nearest explicit value walking up from the namespace itself, then the
// non-enforced instance value, then the documented default.
func (s *Service) Resolve(ctx context.Context, namespaceID int64, key string) (domain.Resolved, error) {
	defaultValue, recognized := domain.DefaultFor(key)
	if !recognized {
		return domain.Resolved{}, domain.ErrUnknownKey
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetResolvedSetting(namespaceID, key); ok {
			return cached, nil
		}
	}

	resolved, err := s.resolve(ctx, namespaceID, key, defaultValue)
	if err != nil {
		return domain.Resolved{}, err
	}

	if s.cache != nil {
		s.cache.SetResolvedSetting(namespaceID, key, resolved)
	}
	return resolved, nil
}

func (s *Service) resolve(ctx context.Context, namespaceID int64, key string, defaultValue any) (domain.Resolved, error) {
	instanceRow, err := s.repo.Find(ctx, s.db, domain.InstanceNamespaceID, key)
	if err != nil {
		return domain.Resolved{}, err
	}

	if instanceRow != nil && instanceRow.Enforced {
		inherited := domain.InheritedFromInstance
		return domain.Resolved{
			Key:           key,
			Value:         decodeValue(instanceRow.Value),
			Locked:        true,
			InheritedFrom: &inherited,
			Source:        domain.SourceInstance,
		}, nil
	}

	if namespaceID != domain.InstanceNamespaceID {
		chain, err := s.namespaceSvc.AncestorChain(ctx, snowflake.ID(namespaceID).String())
		if err != nil {
			return domain.Resolved{}, err
		}
		for i, node := range chain {
			nodeID, err := strconv.ParseInt(node.ID, 10, 64)
			if err != nil {
				continue
			}
			row, err := s.repo.Find(ctx, s.db, nodeID, key)
			if err != nil {
				return domain.Resolved{}, err
			}
			if row == nil {
				continue
			}
			resolved := domain.Resolved{
				Key:    key,
				Value:  decodeValue(row.Value),
				Locked: false,
				Source: domain.SourceSelf,
			}
			if i > 0 {
				ancestor := node.ID
				resolved.InheritedFrom = &ancestor
				resolved.Source = domain.SourceAncestor
			}
			return resolved, nil
		}
	}

	if instanceRow != nil {
		inherited := domain.InheritedFromInstance
		return domain.Resolved{
			Key:           key,
			Value:         decodeValue(instanceRow.Value),
			Locked:        false,
			InheritedFrom: &inherited,
			Source:        domain.SourceInstance,
		}, nil
	}

	return domain.Resolved{
		Key:    key,
		Value:  defaultValue,
		Locked: false,
		Source: domain.SourceDefault,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) error {
	if len(req.Entries) == 0 {
		return domain.ErrEmptyUpdate
	}
	if req.Enforced && req.NamespaceID != domain.InstanceNamespaceID {
		return domain.ErrEnforceScope
	}

	for key, value := range req.Entries {
		if _, ok := domain.DefaultFor(key); !ok {
			return domain.ErrUnknownKey
		}
		if !validValue(value) {
			return domain.ErrInvalidValue
		}
		if req.NamespaceID != domain.InstanceNamespaceID {
			instanceRow, err := s.repo.Find(ctx, s.db, domain.InstanceNamespaceID, key)
			if err != nil {
				return err
			}
			if instanceRow != nil && instanceRow.Enforced {
				return domain.ErrLockedByInstance
			}
		}
	}

	if s.locker != nil {
		lockKey := "settings:lock:" + strconv.FormatInt(req.NamespaceID, 10)
		token, acquired, err := s.locker.TryLock(ctx, lockKey, s.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			return domain.ErrLockUnavailable
		}
		defer func() {
			if err := s.locker.Release(ctx, lockKey, token); err != nil {
				s.log.Warn("failed to release settings lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for key, value := range req.Entries {
			current, err := s.repo.Find(ctx, tx, req.NamespaceID, key)
			if err != nil {
				return err
			}

			currentVersion := int64(0)
			if current != nil {
				currentVersion = current.Version
			}
			if expected, ok := req.ExpectedVersion[key]; ok && expected != currentVersion {
				return domain.ErrWriteConflict
			}

			encoded, err := json.Marshal(value)
			if err != nil {
				return domain.ErrInvalidValue
			}
			row := &domain.Row{
				NamespaceID: req.NamespaceID,
				Key:         key,
				Value:       datatypes.JSON(encoded),
				Enforced:    req.Enforced,
				Version:     currentVersion + 1,
				UpdatedAt:   now,
			}
			ok, err := s.repo.Upsert(ctx, tx, row, currentVersion)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrWriteConflict
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, req.NamespaceID)
	s.audit(ctx, req)
	return nil
}

func (s *Service) invalidate(ctx context.Context, namespaceID int64) {
	if s.cache != nil {
		s.cache.InvalidateSettings(namespaceID)
	}
	event := notify.Event{
		Kind: notify.EventSettingsChanged,
		Key:  strconv.FormatInt(namespaceID, 10),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish settings invalidation", zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, req domain.UpdateRequest) {
	if s.auditSvc == nil {
		return
	}
	keys := make([]string, 0, len(req.Entries))
	for key := range req.Entries {
		keys = append(keys, key)
	}
	target := strconv.FormatInt(req.NamespaceID, 10)
	var actorID *snowflake.ID
	if req.ActorID != nil {
		if parsed, err := snowflake.ParseString(*req.ActorID); err == nil {
			actorID = &parsed
		}
	}
	var namespaceRef *snowflake.ID
	if req.NamespaceID != domain.InstanceNamespaceID {
		id := snowflake.ID(req.NamespaceID)
		namespaceRef = &id
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Record{
		EventType:   auditdomain.EventSettingsUpdate,
		ActorID:     actorID,
		TargetType:  "namespace_settings",
		TargetID:    &target,
		NamespaceID: namespaceRef,
		Metadata: map[string]any{
			"keys":     keys,
			"enforced": req.Enforced,
		},
	})
}

func decodeValue(raw datatypes.JSON) any {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

func validValue(value any) bool {
	switch value.(type) {
	case bool, int, int64, float64:
		return true
	default:
		return false
	}
}
