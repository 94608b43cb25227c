package controllers_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"subforecast/internal/api/controllers"
	"subforecast/internal/services"
)

var Module = fx.Provide(
	provideReportController,
)

func provideReportController(reports services.ReportService, log *zap.Logger) *controllers.ReportController {
	return controllers.NewReportController(reports, log)
}
