package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subforecast/internal/models/response_models"
	"subforecast/internal/services"
	"subforecast/pkg/utils"
)

type ReportController struct {
	reports services.ReportService
	log     *zap.Logger
}

func NewReportController(reports services.ReportService, log *zap.Logger) *ReportController {
	return &ReportController{reports: reports, log: log}
}

// GetForecastReport handles GET /admin/forecast/report. The report is a
// plain nested-value structure; any rendering is the caller's concern.
// An optional ?mode= query switches the completion mode for this call.
func (rc *ReportController) GetForecastReport(c *gin.Context) {
	req := services.ReportRequest{
		Mode: response_models.CompletionMode(c.Query("mode")),
	}
	report, err := rc.reports.GenerateReport(c.Request.Context(), time.Now(), req)
	if err != nil {
		utils.HandleServiceError(c, rc.log, err)
		return
	}
	utils.RespondSuccess(c, report, "")
}
