package lead

import (
	leaddomain "github.com/haulbase/haulbase/internal/lead/domain"
	"github.com/haulbase/haulbase/internal/lead/service"
	"github.com/haulbase/haulbase/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.ProvideStore[leaddomain.Lead]),
	fx.Provide(service.New),
)
