package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Upload(ctx context.Context, req UploadRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	LoadActive(ctx context.Context) (*Response, error)
	CurrentPlan(ctx context.Context) Plan
	List(ctx context.Context) ([]Response, error)
}

// UploadRequest carries a validated, already-trusted license payload. Signature
// verification happens upstream; this service only checks shape.
type UploadRequest struct {
	Plan                string     `json:"plan"`
	StartsAt            time.Time  `json:"starts_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	RestrictedUserCount int        `json:"restricted_user_count"`
	AddOns              []string   `json:"add_ons,omitempty"`
	UploadedBy          *string    `json:"-"`
}

type Response struct {
	ID                  string    `json:"id"`
	Plan                Plan      `json:"plan"`
	StartsAt            time.Time `json:"starts_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	RestrictedUserCount int       `json:"restricted_user_count"`
	HistoricalMaxUsers  int       `json:"historical_max_users"`
	AddOns              []string  `json:"add_ons,omitempty"`
	Expired             bool      `json:"expired"`
	CreatedAt           time.Time `json:"created_at"`
}

var (
	ErrInvalidPayload = errors.New("invalid_license_payload")
	ErrInvalidPlan    = errors.New("invalid_plan")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
