package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gatekeeper/internal/audit"
	"github.com/smallbiznis/gatekeeper/internal/cache"
	"github.com/smallbiznis/gatekeeper/internal/catalog"
	"github.com/smallbiznis/gatekeeper/internal/clock"
	"github.com/smallbiznis/gatekeeper/internal/config"
	"github.com/smallbiznis/gatekeeper/internal/counter"
	"github.com/smallbiznis/gatekeeper/internal/entitlement"
	"github.com/smallbiznis/gatekeeper/internal/gate"
	"github.com/smallbiznis/gatekeeper/internal/identity"
	"github.com/smallbiznis/gatekeeper/internal/license"
	"github.com/smallbiznis/gatekeeper/internal/lock"
	"github.com/smallbiznis/gatekeeper/internal/logger"
	"github.com/smallbiznis/gatekeeper/internal/migration"
	"github.com/smallbiznis/gatekeeper/internal/namespace"
	"github.com/smallbiznis/gatekeeper/internal/notify"
	"github.com/smallbiznis/gatekeeper/internal/quota"
	"github.com/smallbiznis/gatekeeper/internal/server"
	"github.com/smallbiznis/gatekeeper/internal/settings"
	"github.com/smallbiznis/gatekeeper/internal/telemetry"
	"github.com/smallbiznis/gatekeeper/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		notify.Module,
		lock.Module,
		telemetry.Module,
		cache.Module,

		// Domains
		audit.Module,
		license.Module,
		catalog.Module,
		namespace.Module,
		settings.Module,
		identity.Module,
		counter.Module,
		entitlement.Module,
		quota.Module,
		gate.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
