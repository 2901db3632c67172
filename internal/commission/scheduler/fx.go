package scheduler

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("commission.scheduler",
	fx.Provide(New),
	fx.Invoke(RunSweep),
)

func RunSweep(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
