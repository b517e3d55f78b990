package namespace

import (
	"github.com/smallbiznis/gatekeeper/internal/namespace/repository"
	"github.com/smallbiznis/gatekeeper/internal/namespace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("namespace.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
