package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ActorContextKey is the request context key for the acting user ID.
type ActorContextKey struct{}

// NamespaceContextKey is the request context key for the target namespace ID.
type NamespaceContextKey struct{}

// RequestIDContextKey carries the correlation ID attached by the HTTP layer.
type RequestIDContextKey struct{}

// WithActorID stores the actor ID in the context.
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, actorID)
}

// ActorIDFromContext returns the actor ID from context, if set.
func ActorIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return idFromValue(ctx.Value(ActorContextKey{}))
}

// WithNamespaceID stores the target namespace ID in the context.
func WithNamespaceID(ctx context.Context, namespaceID int64) context.Context {
	return context.WithValue(ctx, NamespaceContextKey{}, namespaceID)
}

// NamespaceIDFromContext returns the target namespace ID from context, if set.
func NamespaceIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return idFromValue(ctx.Value(NamespaceContextKey{}))
}

// WithRequestID stores the correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the correlation ID, if set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(RequestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

func idFromValue(value any) (snowflake.ID, bool) {
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
