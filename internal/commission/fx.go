package commission

import (
	"github.com/haulbase/haulbase/internal/commission/collector"
	"github.com/haulbase/haulbase/internal/commission/coordinator"
	"github.com/haulbase/haulbase/internal/commission/store"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.engine",
	fx.Provide(collector.New),
	fx.Provide(store.New),
	fx.Provide(coordinator.New),
)
