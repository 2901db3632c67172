package load

import (
	loaddomain "github.com/haulbase/haulbase/internal/load/domain"
	"github.com/haulbase/haulbase/internal/load/service"
	"github.com/haulbase/haulbase/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("load.service",
	fx.Provide(repository.ProvideStore[loaddomain.Load]),
	fx.Provide(repository.ProvideStore[loaddomain.FreightInvoice]),
	fx.Provide(service.New),
)
