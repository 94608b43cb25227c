package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"subforecast/internal/config"
	resp "subforecast/internal/models/response_models"
	"subforecast/internal/repositories"
	"subforecast/pkg/utils"
)

// ReportRequest optionally overrides the configured defaults for one
// report generation. Zero values mean "use what is configured".
type ReportRequest struct {
	Mode          resp.CompletionMode
	ProbOverrides map[string]float64
	GlobalProb    *float64
}

// ReportService runs the whole pipeline for one report request: window
// resolution, probability source selection, forecast composition,
// retention analysis and KPI aggregation. Stateless and re-entrant;
// every invocation re-queries the store.
type ReportService interface {
	GenerateReport(ctx context.Context, now time.Time, req ReportRequest) (*resp.RevenueReport, error)
}

type reportService struct {
	repo      repositories.ForecastRepository
	estimator RenewalEstimator
	retention RetentionService
	cfg       *config.Config
	log       *zap.Logger
}

func NewReportService(
	repo repositories.ForecastRepository,
	estimator RenewalEstimator,
	retention RetentionService,
	cfg *config.Config,
	log *zap.Logger,
) ReportService {
	return &reportService{repo: repo, estimator: estimator, retention: retention, cfg: cfg, log: log}
}

func (s *reportService) GenerateReport(ctx context.Context, now time.Time, req ReportRequest) (*resp.RevenueReport, error) {
	now = now.UTC()
	start, end := utils.MonthBoundsUTC(now)
	pol := repositories.QueryPolicy{
		SkipFrozen:    s.cfg.SkipFrozen,
		ExcludeTrials: s.cfg.ExcludeTrials,
	}

	mode := s.cfg.CompletionMode
	if req.Mode != "" {
		switch req.Mode {
		case resp.ModeCash, resp.ModeAccrual, resp.ModePlanVsForecast:
			mode = req.Mode
		default:
			return nil, utils.ErrUnknownCompletionMode
		}
	}

	probs, err := s.probabilitySource(ctx, now, pol, req)
	if err != nil {
		return nil, err
	}

	expiring, err := s.repo.ExpiringByPlan(ctx, start, end, pol)
	if err != nil {
		return nil, err
	}
	baseline, err := s.repo.BaselineExpiringByPlan(ctx, start, end, pol)
	if err != nil {
		return nil, err
	}
	received, err := s.repo.ReceivedRevenue(ctx, start, end)
	if err != nil {
		return nil, err
	}

	liveForecast, byPlan := ComposeForecast(expiring, probs)
	// The baseline forecast must resolve probabilities exactly like the
	// live one, or the completion figures compare apples to oranges.
	planBaseline, baselineByPlan := ComposeForecast(baseline, probs)

	var accrualTotal float64
	if mode == resp.ModeAccrual && planBaseline > 0 {
		accrual, err := s.repo.AccrualRecognized(ctx, start, now, pol)
		if err != nil {
			return nil, err
		}
		accrualTotal = accrual.Total
	}

	completionPct, planGap, err := CompletionFigures(
		mode, planBaseline, liveForecast, received.Net, accrualTotal)
	if err != nil {
		return nil, err
	}

	retention, err := s.retention.Analyze(ctx, start, end, pol, probs)
	if err != nil {
		return nil, err
	}

	kpis, err := s.aggregateKPIs(ctx, start, end, now, pol)
	if err != nil {
		return nil, err
	}

	s.log.Info("revenue report generated",
		zap.Time("window_start", start),
		zap.Time("window_end", end),
		zap.String("mode", string(mode)),
		zap.Float64("forecast", liveForecast),
		zap.Float64("received", received.Net))

	return &resp.RevenueReport{
		GeneratedAt: now,
		Window:      resp.TimeRange{Start: start, End: end},
		Probs:       probs.Overrides,
		Forecast: resp.ForecastSection{
			Mode:              string(mode),
			Forecast:          liveForecast,
			Received:          received.Net,
			ToEarn:            ToEarn(liveForecast, received.Net),
			PlanBaseline:      planBaseline,
			PlanCompletionPct: completionPct,
			PlanGap:           planGap,
			ByPlan:            byPlan,
			BaselineByPlan:    baselineByPlan,
		},
		Retention: retention,
		KPIs:      kpis,
	}, nil
}

// probabilitySource prefers caller-supplied overrides, then configured
// ones, then a global probability; only with none of those does the
// learned estimate run.
func (s *reportService) probabilitySource(ctx context.Context, now time.Time, pol repositories.QueryPolicy, req ReportRequest) (ProbabilitySource, error) {
	overrides := req.ProbOverrides
	if overrides == nil {
		overrides = s.cfg.ProbOverrides
	}
	global := req.GlobalProb
	if global == nil {
		global = s.cfg.RenewalProbability
	}
	if len(overrides) > 0 || global != nil {
		return ProbabilitySource{Overrides: overrides, Global: global}, nil
	}
	learned, err := s.estimator.EstimateProbs(ctx, now, s.cfg.HistoryMonthsBack, s.cfg.RenewalGraceDays, pol)
	if err != nil {
		return ProbabilitySource{}, err
	}
	return ProbabilitySource{Overrides: learned}, nil
}

func (s *reportService) aggregateKPIs(ctx context.Context, start, end, now time.Time, pol repositories.QueryPolicy) (resp.KPISection, error) {
	paidSum, paidCount, err := s.repo.PaymentStats(ctx, start, end)
	if err != nil {
		return resp.KPISection{}, err
	}
	var avgCheck float64
	if paidCount > 0 {
		avgCheck = float64(paidSum) / float64(paidCount)
	}

	activeUsers, err := s.repo.ActiveUserCount(ctx, start, end, pol)
	if err != nil {
		return resp.KPISection{}, err
	}
	var arpu float64
	if activeUsers > 0 {
		arpu = float64(paidSum) / float64(activeUsers)
	}

	mrr, err := s.repo.ActiveBaseMRR(ctx, now, pol)
	if err != nil {
		return resp.KPISection{}, err
	}

	return resp.KPISection{
		AvgCheck:      avgCheck,
		PaidCount:     paidCount,
		ActiveUsers:   activeUsers,
		ARPU:          arpu,
		MRRActiveBase: mrr,
	}, nil
}
