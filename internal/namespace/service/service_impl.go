package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/actorcontext"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"github.com/smallbiznis/gatekeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxDepth bounds ancestor-chain walks; a well-formed tree never gets close,
// so hitting it means a corrupted parent reference.
const maxDepth = 64

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("namespace.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	if req.Kind != domain.KindGroup && req.Kind != domain.KindProject {
		return nil, domain.ErrInvalidKind
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	path := slugify(name)
	var parentID *snowflake.ID
	if req.ParentID != nil {
		parsed, err := parseID(*req.ParentID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		parent, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.ErrParentNotFound
		}
		// Projects are leaves: nothing nests under them.
		if parent.Kind == domain.KindProject {
			return nil, domain.ErrInvalidParent
		}
		parentID = &parsed
		path = parent.Path + "/" + path
	} else if req.Kind == domain.KindProject {
		// A project always lives inside a group.
		return nil, domain.ErrInvalidParent
	}

	now := time.Now().UTC()
	record := &domain.Namespace{
		ID:        s.genID.Generate(),
		ParentID:  parentID,
		Kind:      req.Kind,
		Name:      name,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	namespaceID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	record, err := s.repo.FindByID(ctx, s.db, namespaceID.Int64())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) AncestorChain(ctx context.Context, id string) ([]domain.Response, error) {
	namespaceID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	chain := make([]domain.Response, 0, 4)
	seen := map[snowflake.ID]bool{}
	current := namespaceID
	for depth := 0; depth < maxDepth; depth++ {
		if seen[current] {
			return nil, domain.ErrAncestryCycle
		}
		seen[current] = true

		record, err := s.repo.FindByID(ctx, s.db, current.Int64())
		if err != nil {
			return nil, err
		}
		if record == nil {
			if depth == 0 {
				return nil, domain.ErrNotFound
			}
			// A dangling parent reference terminates the chain rather than
			// failing the whole resolution.
			s.log.Warn("namespace chain has dangling parent", zap.String("namespace_id", current.String()))
			return chain, nil
		}
		chain = append(chain, toResponse(record))
		if record.ParentID == nil {
			return chain, nil
		}
		current = *record.ParentID
	}
	return nil, domain.ErrAncestryCycle
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (*domain.MemberResponse, error) {
	namespaceID, err := parseID(req.NamespaceID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	record, err := s.repo.FindByID(ctx, s.db, namespaceID.Int64())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}

	member := &domain.Member{
		ID:          s.genID.Generate(),
		NamespaceID: namespaceID,
		UserID:      userID,
		Role:        req.Role,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertMember(ctx, s.db, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, err
	}

	s.auditMemberAdd(ctx, member)

	return &domain.MemberResponse{
		ID:          member.ID.String(),
		NamespaceID: member.NamespaceID.String(),
		UserID:      member.UserID.String(),
		Role:        member.Role,
		CreatedAt:   member.CreatedAt,
	}, nil
}

func (s *Service) auditMemberAdd(ctx context.Context, member *domain.Member) {
	if s.auditSvc == nil {
		return
	}
	target := member.UserID.String()
	record := auditdomain.Record{
		EventType:   auditdomain.EventMemberAdd,
		TargetType:  "member",
		TargetID:    &target,
		NamespaceID: &member.NamespaceID,
		Metadata:    map[string]any{"role": string(member.Role)},
	}
	if actorID, ok := actorcontext.ActorIDFromContext(ctx); ok {
		record.ActorID = &actorID
	}
	_ = s.auditSvc.Record(ctx, record)
}

// EffectiveRole walks the ancestor chain and returns the highest role found.
// Membership in an ancestor group carries into every descendant.
func (s *Service) EffectiveRole(ctx context.Context, namespaceID, userID string) (domain.Role, bool, error) {
	uid, err := parseID(userID)
	if err != nil {
		return "", false, domain.ErrInvalidID
	}

	chain, err := s.AncestorChain(ctx, namespaceID)
	if err != nil {
		return "", false, err
	}

	var best domain.Role
	found := false
	for _, node := range chain {
		nodeID, err := parseID(node.ID)
		if err != nil {
			continue
		}
		member, err := s.repo.FindMember(ctx, s.db, nodeID.Int64(), uid.Int64())
		if err != nil {
			return "", false, err
		}
		if member == nil {
			continue
		}
		if !found {
			best = member.Role
			found = true
			continue
		}
		best = domain.Max(best, member.Role)
	}
	return best, found, nil
}

func (s *Service) MemberCount(ctx context.Context, namespaceID string) (int64, error) {
	parsed, err := parseID(namespaceID)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return s.repo.CountMembers(ctx, s.db, parsed.Int64())
}

func toResponse(n *domain.Namespace) domain.Response {
	resp := domain.Response{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Name:      n.Name,
		Path:      n.Path,
		CreatedAt: n.CreatedAt,
	}
	if n.ParentID != nil {
		parent := n.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
