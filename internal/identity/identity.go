// Package identity answers role capability questions for the entitlement
// engine. The engine depends on the Store contract only; the casbin-backed
// implementation lives alongside a deterministic fake for tests.
package identity

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
)

const (
	ObjectFeature  = "feature"
	ObjectSettings = "settings"
	ObjectMember   = "member"
	ObjectLicense  = "license"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

type Store interface {
	// Role returns the actor's effective role in the namespace; ok is false
	// for non-members.
	Role(ctx context.Context, actorID, namespaceID snowflake.ID) (namespacedomain.Role, bool, error)
	Authorize(ctx context.Context, actorID, namespaceID snowflake.ID, object, action string) (bool, error)
}

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrUnavailable  = errors.New("identity_store_unavailable")
)

// Fake is a deterministic in-memory Store for tests.
type Fake struct {
	Roles map[snowflake.ID]namespacedomain.Role // actorID -> role, any namespace
	Err   error
}

func (f *Fake) Role(ctx context.Context, actorID, namespaceID snowflake.ID) (namespacedomain.Role, bool, error) {
	if f.Err != nil {
		return "", false, f.Err
	}
	role, ok := f.Roles[actorID]
	return role, ok, nil
}

func (f *Fake) Authorize(ctx context.Context, actorID, namespaceID snowflake.ID, object, action string) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	role, ok := f.Roles[actorID]
	if !ok {
		return false, nil
	}
	switch action {
	case ActionRead:
		return role.AtLeast(namespacedomain.RoleReporter), nil
	case ActionWrite:
		return role.AtLeast(namespacedomain.RoleMaintainer), nil
	case ActionAdmin:
		return role.AtLeast(namespacedomain.RoleOwner), nil
	default:
		return false, nil
	}
}
