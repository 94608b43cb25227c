package forecast_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"subforecast/internal/config"
	"subforecast/internal/repositories"
	"subforecast/internal/services"
)

var Module = fx.Provide(
	provideForecastRepo,
	provideEstimator,
	provideRetentionService,
	provideReportService,
)

func provideForecastRepo(db *gorm.DB) repositories.ForecastRepository {
	return repositories.NewForecastRepository(db)
}

func provideEstimator(repo repositories.ForecastRepository, log *zap.Logger) services.RenewalEstimator {
	return services.NewRenewalEstimator(repo, services.DefaultPrior, log)
}

func provideRetentionService(repo repositories.ForecastRepository, log *zap.Logger) services.RetentionService {
	return services.NewRetentionService(repo, log)
}

func provideReportService(
	repo repositories.ForecastRepository,
	estimator services.RenewalEstimator,
	retention services.RetentionService,
	cfg *config.Config,
	log *zap.Logger,
) services.ReportService {
	return services.NewReportService(repo, estimator, retention, cfg, log)
}
