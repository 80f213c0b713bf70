package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(NewSystemHandlers),
	fx.Provide(NewPermissionHandlers),
	fx.Provide(NewCaseHandlers),
	fx.Provide(NewOrganizationHandlers),
)
