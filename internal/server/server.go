package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/gatekeeper/internal/audit/domain"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/config"
	"github.com/smallbiznis/gatekeeper/internal/gate"
	"github.com/smallbiznis/gatekeeper/internal/identity"
	licensedomain "github.com/smallbiznis/gatekeeper/internal/license/domain"
	namespacedomain "github.com/smallbiznis/gatekeeper/internal/namespace/domain"
	"github.com/smallbiznis/gatekeeper/internal/quota"
	settingsdomain "github.com/smallbiznis/gatekeeper/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestContextMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	gate         *gate.Gate
	quotaSvc     *quota.Enforcer
	catalogSvc   *catalog.Catalog
	licenseSvc   licensedomain.Service
	settingsSvc  settingsdomain.Service
	namespaceSvc namespacedomain.Service
	identitySvc  identity.Store
	auditSvc     auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Gate         *gate.Gate
	QuotaSvc     *quota.Enforcer
	CatalogSvc   *catalog.Catalog
	LicenseSvc   licensedomain.Service
	SettingsSvc  settingsdomain.Service
	NamespaceSvc namespacedomain.Service
	IdentitySvc  identity.Store
	AuditSvc     auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		gate:         p.Gate,
		quotaSvc:     p.QuotaSvc,
		catalogSvc:   p.CatalogSvc,
		licenseSvc:   p.LicenseSvc,
		settingsSvc:  p.SettingsSvc,
		namespaceSvc: p.NamespaceSvc,
		identitySvc:  p.IdentitySvc,
		auditSvc:     p.AuditSvc,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/evaluate", s.Evaluate)

	// -------- Quota --------
	v1.POST("/quota/check", s.CheckQuota)
	v1.POST("/quota/check-batch", s.CheckQuotaBatch)

	// -------- License --------
	v1.GET("/license", s.GetActiveLicense)
	v1.GET("/licenses", s.ListLicenses)
	v1.POST("/license", s.UploadLicense)
	v1.DELETE("/licenses/:id", s.DeleteLicense)

	// -------- Catalog --------
	v1.GET("/features", s.ListFeatures)

	// -------- Namespaces --------
	v1.POST("/namespaces", s.CreateNamespace)
	v1.GET("/namespaces/:id", s.GetNamespace)
	v1.GET("/namespaces/:id/ancestors", s.GetAncestorChain)
	v1.POST("/namespaces/:id/members", s.AddMember)
	v1.POST("/namespaces/:id/members/batch", s.AddMembersBatch)

	// -------- Settings --------
	v1.GET("/namespaces/:id/settings/:key", s.ResolveSetting)
	v1.PUT("/namespaces/:id/settings", s.authorizeNamespaceAction(identity.ObjectSettings, identity.ActionWrite), s.UpdateSettings)
	v1.GET("/settings/:key", s.ResolveInstanceSetting)
	v1.PUT("/settings", s.UpdateInstanceSettings)

	// -------- Audit --------
	v1.GET("/audit-events", s.ListAuditEvents)
}
