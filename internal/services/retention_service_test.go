package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbm "subforecast/internal/models/db_models"
	"subforecast/internal/repositories"
)

var (
	window1Start = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	window1End   = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
)

func i64Ptr(v int64) *int64 { return &v }

func newRetention(repo repositories.ForecastRepository) RetentionService {
	return NewRetentionService(repo, zap.NewNop())
}

func TestAnalyze_EmptyCohortIsUnknown(t *testing.T) {
	svc := newRetention(&fakeForecastRepo{})

	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)

	assert.Nil(t, section.RetentionRate)
	assert.Nil(t, section.ChurnRate)
	assert.Zero(t, section.RenewedCount)
	assert.Zero(t, section.NotRenewedYet)
	assert.Equal(t, 0.0, section.PredictedChurn)
}

func TestAnalyze_ConservationAndRates(t *testing.T) {
	renewedKey := repositories.RenewalCandidate{
		AccountID:    uuid.New(),
		ExpiryTimeMs: i64Ptr(window1End.UnixMilli() + dbm.MillisPerDay),
		DurationDays: 30,
	}
	lapsedKey := repositories.RenewalCandidate{
		AccountID:    uuid.New(),
		ExpiryTimeMs: i64Ptr(window1Start.UnixMilli() + 10*dbm.MillisPerDay),
		DurationDays: 30,
	}
	svc := newRetention(&fakeForecastRepo{
		candidates: []repositories.RenewalCandidate{renewedKey, lapsedKey, lapsedKey},
	})

	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)

	total := section.RenewedCount + section.NotRenewedYet
	assert.Equal(t, int64(3), total)
	require.NotNil(t, section.RetentionRate)
	require.NotNil(t, section.ChurnRate)
	assert.InDelta(t, 1.0, *section.RetentionRate+*section.ChurnRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, *section.RetentionRate, 1e-9)
}

func TestAnalyze_FallbackReconstruction(t *testing.T) {
	// Legacy account: no key row, but its last successful payment matches a
	// 30-day plan and implies a cycle ending inside the window.
	legacy := uuid.New()
	paidAt := window1Start.AddDate(0, 0, -20)
	repo := &fakeForecastRepo{
		lastPays: []repositories.LastPayment{
			{AccountID: legacy, AmountMinor: 999, PaidAtSec: paidAt.Unix()},
		},
		priceIndex: map[int64]repositories.PlanTerms{
			999: {DurationDays: 30},
		},
	}
	svc := newRetention(repo)

	// Not renewed: no payment inside the window.
	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), section.RenewedCount)
	assert.Equal(t, int64(1), section.NotRenewedYet)

	// Renewed: same account paid again inside the window.
	repo.paidIn = map[uuid.UUID]struct{}{legacy: {}}
	section, err = svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), section.RenewedCount)
	assert.Equal(t, int64(0), section.NotRenewedYet)
}

func TestAnalyze_FallbackSkipsUnmatchedAndOutOfWindow(t *testing.T) {
	repo := &fakeForecastRepo{
		lastPays: []repositories.LastPayment{
			// amount matches no plan
			{AccountID: uuid.New(), AmountMinor: 123, PaidAtSec: window1Start.AddDate(0, 0, -10).Unix()},
			// implied cycle ended before the window
			{AccountID: uuid.New(), AmountMinor: 999, PaidAtSec: window1Start.AddDate(0, 0, -90).Unix()},
		},
		priceIndex: map[int64]repositories.PlanTerms{999: {DurationDays: 30}},
	}
	svc := newRetention(repo)

	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)
	assert.Nil(t, section.RetentionRate)
	assert.Zero(t, section.RenewedCount+section.NotRenewedYet)
}

func TestAnalyze_DedupByAccount(t *testing.T) {
	// The invariant: an account with a live key in the cohort must not be
	// admitted again through the payment-reconstruction path, even when an
	// old payment of matching price would qualify.
	account := uuid.New()
	repo := &fakeForecastRepo{
		candidates: []repositories.RenewalCandidate{
			{
				AccountID:    account,
				ExpiryTimeMs: i64Ptr(window1End.UnixMilli() + dbm.MillisPerDay),
				DurationDays: 30,
			},
		},
		lastPays: []repositories.LastPayment{
			{AccountID: account, AmountMinor: 999, PaidAtSec: window1Start.AddDate(0, 0, -15).Unix()},
		},
		priceIndex: map[int64]repositories.PlanTerms{999: {DurationDays: 30}},
	}
	svc := newRetention(repo)

	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), section.RenewedCount+section.NotRenewedYet, "account counted twice")
	assert.Equal(t, int64(1), section.RenewedCount)
}

func TestAnalyze_PredictedChurnWeighting(t *testing.T) {
	mk := func(days int32) repositories.RenewalCandidate {
		return repositories.RenewalCandidate{
			AccountID:    uuid.New(),
			ExpiryTimeMs: i64Ptr(window1Start.UnixMilli()), // lapsed
			DurationDays: days,
		}
	}
	svc := newRetention(&fakeForecastRepo{
		candidates: []repositories.RenewalCandidate{mk(30), mk(30), mk(365)},
	})
	probs := ProbabilitySource{Overrides: map[string]float64{"1m": 0.75, "12m": 0.9}}

	section, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, probs)
	require.NoError(t, err)

	// 2 monthly x (1-0.75) + 1 yearly x (1-0.9)
	assert.InDelta(t, 2*0.25+1*0.1, section.PredictedChurn, 1e-9)
}

func TestAnalyze_StoreFailureAborts(t *testing.T) {
	svc := newRetention(&fakeForecastRepo{err: assert.AnError})
	_, err := svc.Analyze(context.Background(), window1Start, window1End, repositories.QueryPolicy{}, ProbabilitySource{})
	assert.Error(t, err)
}
