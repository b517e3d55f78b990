package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	// AncestorChain returns the namespace and its ancestors, self first.
	AncestorChain(ctx context.Context, id string) ([]Response, error)
	AddMember(ctx context.Context, req AddMemberRequest) (*MemberResponse, error)
	// EffectiveRole returns the highest role the user holds in the namespace
	// or any ancestor; ok is false for non-members.
	EffectiveRole(ctx context.Context, namespaceID, userID string) (Role, bool, error)
	MemberCount(ctx context.Context, namespaceID string) (int64, error)
}

type CreateRequest struct {
	Kind     Kind    `json:"kind"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type AddMemberRequest struct {
	NamespaceID string `json:"namespace_id"`
	UserID      string `json:"user_id"`
	Role        Role   `json:"role"`
}

type Response struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	ID          string    `json:"id"`
	NamespaceID string    `json:"namespace_id"`
	UserID      string    `json:"user_id"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrInvalidKind     = errors.New("invalid_kind")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrNotFound        = errors.New("not_found")
	ErrParentNotFound  = errors.New("parent_not_found")
	ErrInvalidParent   = errors.New("invalid_parent")
	ErrAlreadyMember   = errors.New("already_member")
	ErrAncestryCycle   = errors.New("ancestry_cycle")
)
