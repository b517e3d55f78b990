package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"github.com/smallbiznis/gatekeeper/internal/quota"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
)

func (s *Server) CreateNamespace(c *gin.Context) {
	var req namespacedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.namespaceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) GetNamespace(c *gin.Context) {
	ns, err := s.namespaceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ns)
}

func (s *Server) GetAncestorChain(c *gin.Context) {
	chain, err := s.namespaceSvc.AncestorChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ancestors": chain})
}

type addMemberRequest struct {
	UserID string               `json:"user_id"`
	Role   namespacedomain.Role `json:"role"`
}

// membershipLocked reports whether member additions are refused for the
// namespace, either by its own setting, an ancestor group, or an instance
// enforcement.
func (s *Server) membershipLocked(c *gin.Context, namespaceID snowflake.ID) (bool, error) {
	resolved, err := s.settingsSvc.Resolve(c.Request.Context(), int64(namespaceID), settingsdomain.KeyMembershipLock)
	if err != nil {
		return false, err
	}
	return resolved.BoolValue(), nil
}

// AddMember checks seat headroom before creating the membership. A rejected
// add surfaces the quota verdict so callers can show the seat-limit message
// verbatim.
func (s *Server) AddMember(c *gin.Context) {
	namespaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	locked, err := s.membershipLocked(c, namespaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if locked {
		AbortWithError(c, settingsdomain.ErrLockedByInstance)
		return
	}

	verdict, err := s.quotaSvc.Check(c.Request.Context(), namespaceID, counter.ResourceSeats, 1)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !verdict.OK {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: errorPayload{
			Type:    quota.ReasonQuotaExceeded,
			Message: verdict.Message,
		}})
		return
	}

	member, err := s.namespaceSvc.AddMember(c.Request.Context(), namespacedomain.AddMemberRequest{
		NamespaceID: namespaceID.String(),
		UserID:      req.UserID,
		Role:        req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

type addMembersBatchRequest struct {
	Members []addMemberRequest `json:"members"`
}

type memberResult struct {
	UserID  string                          `json:"user_id"`
	Status  string                          `json:"status"`
	Message string                          `json:"message,omitempty"`
	Member  *namespacedomain.MemberResponse `json:"member,omitempty"`
}

// AddMembersBatch applies the batch with partial success: members before the
// seat ceiling are added, members past it are rejected, and one rejection
// never rolls earlier adds back.
func (s *Server) AddMembersBatch(c *gin.Context) {
	namespaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req addMembersBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Members) == 0 {
		AbortWithError(c, newValidationError("members", "invalid_members", "at least one member is required"))
		return
	}

	locked, err := s.membershipLocked(c, namespaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if locked {
		AbortWithError(c, settingsdomain.ErrLockedByInstance)
		return
	}

	subjects := make([]string, 0, len(req.Members))
	for _, m := range req.Members {
		subjects = append(subjects, m.UserID)
	}

	verdicts, err := s.quotaSvc.CheckBatch(c.Request.Context(), namespaceID, counter.ResourceSeats, subjects)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	results := make([]memberResult, 0, len(req.Members))
	rejected := false
	for _, m := range req.Members {
		verdict := verdicts[m.UserID]
		if !verdict.OK {
			rejected = true
			results = append(results, memberResult{
				UserID:  m.UserID,
				Status:  "rejected",
				Message: verdict.Message,
			})
			continue
		}

		member, err := s.namespaceSvc.AddMember(c.Request.Context(), namespacedomain.AddMemberRequest{
			NamespaceID: namespaceID.String(),
			UserID:      m.UserID,
			Role:        m.Role,
		})
		if err != nil {
			rejected = true
			_, payload := mapError(err)
			results = append(results, memberResult{
				UserID:  m.UserID,
				Status:  "error",
				Message: payload.Type,
			})
			continue
		}
		results = append(results, memberResult{
			UserID: m.UserID,
			Status: "added",
			Member: member,
		})
	}

	status := http.StatusCreated
	if rejected {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"results": results})
}
