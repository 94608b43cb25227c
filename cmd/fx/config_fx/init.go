package config_fx

import (
	"go.uber.org/fx"

	"subforecast/internal/config"
)

var Module = fx.Provide(
	config.Load,
)
