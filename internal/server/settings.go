package server

import (
	"net/http"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gatekeeper/internal/actorcontext"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
)

func (s *Server) ResolveSetting(c *gin.Context) {
	namespaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	resolved, err := s.settingsSvc.Resolve(c.Request.Context(), namespaceID.Int64(), c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}

func (s *Server) ResolveInstanceSetting(c *gin.Context) {
	resolved, err := s.settingsSvc.Resolve(c.Request.Context(), settingsdomain.InstanceNamespaceID, c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}

type updateSettingsRequest struct {
	Entries         map[string]any   `json:"entries"`
	Enforced        bool             `json:"enforced"`
	ExpectedVersion map[string]int64 `json:"expected_version,omitempty"`
}

func (s *Server) UpdateSettings(c *gin.Context) {
	namespaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	s.updateSettings(c, namespaceID.Int64())
}

func (s *Server) UpdateInstanceSettings(c *gin.Context) {
	s.updateSettings(c, settingsdomain.InstanceNamespaceID)
}

func (s *Server) updateSettings(c *gin.Context, namespaceID int64) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := settingsdomain.UpdateRequest{
		NamespaceID:     namespaceID,
		Entries:         req.Entries,
		Enforced:        req.Enforced,
		ExpectedVersion: req.ExpectedVersion,
	}
	if actorID, ok := actorcontext.ActorIDFromContext(c.Request.Context()); ok {
		actor := actorID.String()
		update.ActorID = &actor
	}

	if err := s.settingsSvc.Update(c.Request.Context(), update); err != nil {
		AbortWithError(c, err)
		return
	}

	keys := make([]string, 0, len(req.Entries))
	for key := range req.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	c.JSON(http.StatusOK, gin.H{"updated": keys})
}
