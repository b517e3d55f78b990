package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
)

func (s *Server) ListAuditEvents(c *gin.Context) {
	req := auditdomain.ListRequest{
		EventType: strings.TrimSpace(c.Query("event_type")),
	}

	if raw := strings.TrimSpace(c.Query("actor_id")); raw != "" {
		actorID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid value"))
			return
		}
		req.ActorID = &actorID
	}

	if raw := strings.TrimSpace(c.Query("start_at")); raw != "" {
		startAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid value"))
			return
		}
		req.StartAt = &startAt
	}
	if raw := strings.TrimSpace(c.Query("end_at")); raw != "" {
		endAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid value"))
			return
		}
		req.EndAt = &endAt
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid value"))
			return
		}
		req.Limit = limit
	}

	entries, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_events": entries})
}
