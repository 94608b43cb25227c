package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"subforecast/cmd/fx/config_fx"
	"subforecast/cmd/fx/controllers_fx"
	"subforecast/cmd/fx/db_fx"
	"subforecast/cmd/fx/forecast_fx"
	"subforecast/cmd/fx/logger_fx"
	"subforecast/internal/api/controllers"
	"subforecast/internal/config"
	"subforecast/pkg/middleware"
)

func main() {
	app := fx.New(
		logger_fx.Module,
		config_fx.Module,
		db_fx.Module,
		forecast_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting HTTP server", zap.String("port", cfg.Port))
				if err := engine.Run(":" + cfg.Port); err != nil {
					log.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(reportController *controllers.ReportController, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, reportController, cfg)

	return r
}

func RegisterRoutes(r *gin.Engine, reportController *controllers.ReportController, cfg *config.Config) {
	admin := r.Group("/admin", middleware.AdminAuthMiddleware(cfg.JWTSecret))
	admin.GET("/forecast/report", reportController.GetForecastReport)
}
