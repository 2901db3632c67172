package commissionrule

import (
	"github.com/haulbase/haulbase/internal/commissionrule/repository"
	"github.com/haulbase/haulbase/internal/commissionrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commissionrule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
