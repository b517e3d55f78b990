package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gatekeeper/internal/actorcontext"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
)

// GetActiveLicense returns the newest grant, expired or not. The plan the
// instance actually runs under is reported separately so clients do not have
// to re-derive the expiry fallback.
func (s *Server) GetActiveLicense(c *gin.Context) {
	ctx := c.Request.Context()

	active, err := s.licenseSvc.LoadActive(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"license":      active,
		"current_plan": s.licenseSvc.CurrentPlan(ctx),
	})
}

func (s *Server) ListLicenses(c *gin.Context) {
	licenses, err := s.licenseSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": licenses})
}

func (s *Server) UploadLicense(c *gin.Context) {
	var req licensedomain.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if actorID, ok := actorcontext.ActorIDFromContext(c.Request.Context()); ok {
		actor := actorID.String()
		req.UploadedBy = &actor
	}

	created, err := s.licenseSvc.Upload(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) DeleteLicense(c *gin.Context) {
	if err := s.licenseSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListFeatures(c *gin.Context) {
	type featureView struct {
		Code           string  `json:"code"`
		RequiredPlan   *string `json:"required_plan,omitempty"`
		DefaultEnabled bool    `json:"default_enabled"`
		LicensedOnly   bool    `json:"licensed_only"`
	}

	defs := s.catalogSvc.Definitions()
	views := make([]featureView, 0, len(defs))
	for _, def := range defs {
		view := featureView{
			Code:           def.Code,
			DefaultEnabled: def.DefaultEnabled,
			LicensedOnly:   def.LicensedOnly,
		}
		if def.RequiredPlan != nil {
			plan := string(*def.RequiredPlan)
			view.RequiredPlan = &plan
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"features": views})
}
