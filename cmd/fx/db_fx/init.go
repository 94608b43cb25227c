package db_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"subforecast/internal/config"
	"subforecast/internal/infra"
)

var Module = fx.Provide(
	provideDB,
)

func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return infra.InitPostgresql(cfg.PostgresURL, log)
}
