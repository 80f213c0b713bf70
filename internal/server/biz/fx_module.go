package biz

import (
	"context"

	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/log"
)

var Module = fx.Module("biz",
	fx.Provide(NewPermissionNotifier),
	fx.Provide(NewPermissionService),
	fx.Provide(NewMembershipService),
	fx.Provide(NewOrganizationService),
	fx.Provide(NewStatusService),
	fx.Provide(NewTransitionValidator),
	fx.Provide(NewAccessResolver),
	fx.Provide(NewCasePolicy),
	fx.Provide(NewCaseService),
	fx.Provide(NewAuthService),
	fx.Invoke(func(lc fx.Lifecycle, svc *PermissionService, cfg PermissionConfig) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if cfg.SeedDefaults {
					n, err := svc.SeedDefaults(authz.NewSystemContext(ctx))
					if err != nil {
						return err
					}

					log.Info(ctx, "permission defaults seeded", log.Int("inserted", n))
				}

				return svc.Start(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return svc.Stop(ctx)
			},
		})
	}),
)
