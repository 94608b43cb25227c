package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	dbm "subforecast/internal/models/db_models"
	"subforecast/internal/repositories"
)

// SmoothingPrior parametrizes the additive smoothing applied to renewal
// tallies: p = (renewed + Alpha) / (cohort + Alpha + Beta). The default
// (1, 1) is the Laplace prior, so an empty cohort estimates 0.5 and no
// cohort, however lopsided, ever reaches exactly 0 or 1.
type SmoothingPrior struct {
	Alpha float64
	Beta  float64
}

var DefaultPrior = SmoothingPrior{Alpha: 1, Beta: 1}

// Smooth returns the smoothed renewal probability for one bucket tally.
func (sp SmoothingPrior) Smooth(cohort, renewed int64) float64 {
	alpha, beta := sp.Alpha, sp.Beta
	if alpha <= 0 || beta <= 0 {
		alpha, beta = DefaultPrior.Alpha, DefaultPrior.Beta
	}
	p := (float64(renewed) + alpha) / (float64(cohort) + alpha + beta)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// RenewalEstimator learns per-bucket renewal probabilities from the
// trailing months' cohorts. Callers bypass it entirely when explicit
// overrides or a global probability are configured.
type RenewalEstimator interface {
	EstimateProbs(ctx context.Context, now time.Time, monthsBack, graceDays int, pol repositories.QueryPolicy) (map[string]float64, error)
}

type renewalEstimator struct {
	repo  repositories.ForecastRepository
	prior SmoothingPrior
	log   *zap.Logger
}

func NewRenewalEstimator(repo repositories.ForecastRepository, prior SmoothingPrior, log *zap.Logger) RenewalEstimator {
	return &renewalEstimator{repo: repo, prior: prior, log: log}
}

func (e *renewalEstimator) EstimateProbs(ctx context.Context, now time.Time, monthsBack, graceDays int, pol repositories.QueryPolicy) (map[string]float64, error) {
	history, err := e.repo.RenewalHistory(ctx, now, monthsBack, graceDays, pol)
	if err != nil {
		return nil, err
	}

	probs := make(map[string]float64, len(dbm.AllBuckets))
	for _, bucket := range dbm.AllBuckets {
		tally := history[bucket]
		probs[string(bucket)] = e.prior.Smooth(tally.Cohort, tally.Renewed)
	}
	e.log.Debug("estimated renewal probabilities",
		zap.Int("months_back", monthsBack),
		zap.Any("probs", probs))
	return probs, nil
}
