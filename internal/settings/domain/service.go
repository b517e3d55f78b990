package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Resolve computes the effective value of a recognized key for a
	// namespace, honoring instance locks, ancestor inheritance and defaults.
	Resolve(ctx context.Context, namespaceID int64, key string) (Resolved, error)
	// Update applies a multi-key write atomically. Writers for the same
	// namespace are serialized; a stale ExpectedVersion fails the whole
	// request with ErrWriteConflict.
	Update(ctx context.Context, req UpdateRequest) error
}

type UpdateRequest struct {
	// NamespaceID 0 targets instance-wide settings.
	NamespaceID int64          `json:"namespace_id"`
	Entries     map[string]any `json:"entries"`
	// Enforced locks descendants to the written values. Instance level only.
	Enforced bool `json:"enforced"`
	// ExpectedVersion holds the version each key's row had when the caller
	// read it; 0 means the caller expects no existing row.
	ExpectedVersion map[string]int64 `json:"expected_version,omitempty"`
	ActorID         *string          `json:"-"`
}

var (
	ErrUnknownKey       = errors.New("unknown_setting_key")
	ErrInvalidValue     = errors.New("invalid_setting_value")
	ErrEmptyUpdate      = errors.New("empty_update")
	ErrEnforceScope     = errors.New("enforce_requires_instance")
	ErrLockedByInstance = errors.New("locked_by_instance")
	ErrWriteConflict    = errors.New("settings_write_conflict")
	ErrLockUnavailable  = errors.New("settings_lock_unavailable")
)
