package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	"github.com/smallbiznis/gatekeeper/internal/entitlement"
	"github.com/smallbiznis/gatekeeper/internal/gate"
)

type forceOverrideRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type evaluateRequest struct {
	ActorID       string                `json:"actor_id"`
	NamespaceID   string                `json:"namespace_id"`
	Feature       string                `json:"feature"`
	Action        string                `json:"action"`
	ForceOverride *forceOverrideRequest `json:"force_override,omitempty"`
	Resource      string                `json:"resource,omitempty"`
	Delta         int64                 `json:"delta,omitempty"`
}

// Evaluate answers one access question. The body always carries the full
// decision; the status code mirrors the denial reason so plain HTTP clients
// see 404 for hidden resources, 403 for withheld features and 400 for quota
// rejections.
func (s *Server) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actorID, err := snowflake.ParseString(strings.TrimSpace(req.ActorID))
	if err != nil {
		AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid value"))
		return
	}
	namespaceID, err := snowflake.ParseString(strings.TrimSpace(req.NamespaceID))
	if err != nil {
		AbortWithError(c, newValidationError("namespace_id", "invalid_namespace_id", "invalid value"))
		return
	}

	override := catalog.OverrideNone()
	if req.ForceOverride != nil {
		override = catalog.ForcedOverride(req.ForceOverride.Actor, req.ForceOverride.Reason)
		if !override.Forced() {
			AbortWithError(c, newValidationError("force_override", "invalid_force_override", "actor and reason are required"))
			return
		}
	}

	decision, err := s.gate.EvaluateAndEnforce(c.Request.Context(), gate.Request{
		ActorID:     actorID,
		NamespaceID: namespaceID,
		Feature:     req.Feature,
		Action:      req.Action,
		Override:    override,
		Resource:    counter.Resource(req.Resource),
		Delta:       req.Delta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(decisionStatus(decision), decision)
}

func decisionStatus(decision gate.Decision) int {
	if decision.Allowed {
		return http.StatusOK
	}
	switch decision.Reason {
	case entitlement.ReasonNotFound:
		return http.StatusNotFound
	case entitlement.ReasonQuotaExceeded:
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

type quotaCheckRequest struct {
	NamespaceID string `json:"namespace_id"`
	Resource    string `json:"resource"`
	Delta       int64  `json:"delta"`
}

func (s *Server) CheckQuota(c *gin.Context) {
	var req quotaCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	namespaceID, err := snowflake.ParseString(strings.TrimSpace(req.NamespaceID))
	if err != nil {
		AbortWithError(c, newValidationError("namespace_id", "invalid_namespace_id", "invalid value"))
		return
	}

	verdict, err := s.quotaSvc.Check(c.Request.Context(), namespaceID, counter.Resource(req.Resource), req.Delta)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}

type quotaCheckBatchRequest struct {
	NamespaceID string   `json:"namespace_id"`
	Resource    string   `json:"resource"`
	Subjects    []string `json:"subjects"`
}

func (s *Server) CheckQuotaBatch(c *gin.Context) {
	var req quotaCheckBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Subjects) == 0 {
		AbortWithError(c, newValidationError("subjects", "invalid_subjects", "at least one subject is required"))
		return
	}

	namespaceID, err := snowflake.ParseString(strings.TrimSpace(req.NamespaceID))
	if err != nil {
		AbortWithError(c, newValidationError("namespace_id", "invalid_namespace_id", "invalid value"))
		return
	}

	verdicts, err := s.quotaSvc.CheckBatch(c.Request.Context(), namespaceID, counter.Resource(req.Resource), req.Subjects)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": verdicts})
}
