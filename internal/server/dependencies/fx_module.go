package dependencies

import (
	"context"

	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/server/db"
)

var Module = fx.Module("dependencies",
	fx.Provide(log.New),
	fx.Provide(db.NewClient),
	fx.Provide(metrics.NewRecorderFromSDK),
	fx.Provide(NewExecutors),
	fx.Invoke(func(lc fx.Lifecycle, cfg db.Config, client *db.Client) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if !cfg.AutoMigrate {
					return client.Ping(ctx)
				}

				return client.Migrate(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),
	fx.Invoke(func(lc fx.Lifecycle, executor executors.ScheduledExecutor) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return executor.Shutdown(ctx)
			},
		})
	}),
)
