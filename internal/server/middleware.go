package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/gatekeeper/internal/actorcontext"
)

const (
	headerRequestID = "X-Request-ID"
	headerActorID   = "X-Actor-ID"
)

// RequestContextMiddleware threads the correlation ID and the acting user
// through the request context so services and the audit trail can pick them
// up without touching gin.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = actorcontext.WithRequestID(ctx, requestID)
		c.Header(headerRequestID, requestID)

		if raw := strings.TrimSpace(c.GetHeader(headerActorID)); raw != "" {
			if actorID, err := snowflake.ParseString(raw); err == nil {
				ctx = actorcontext.WithActorID(ctx, actorID.Int64())
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authorizeNamespaceAction gates a namespace-scoped route on the caller's
// capability. Callers without read access get 404, not 403: the route must
// not confirm the namespace exists.
func (s *Server) authorizeNamespaceAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		actorID, ok := actorcontext.ActorIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		namespaceID, err := snowflake.ParseString(c.Param("id"))
		if err != nil {
			AbortWithError(c, ErrNotFound)
			return
		}

		canRead, err := s.identitySvc.Authorize(ctx, actorID, namespaceID, object, "read")
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !canRead {
			AbortWithError(c, ErrNotFound)
			return
		}

		if action != "read" {
			allowed, err := s.identitySvc.Authorize(ctx, actorID, namespaceID, object, action)
			if err != nil {
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !allowed {
				AbortWithError(c, ErrForbidden)
				return
			}
		}

		c.Next()
	}
}
