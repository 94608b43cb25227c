package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	dbm "subforecast/internal/models/db_models"
	"subforecast/internal/repositories"
)

// fakeForecastRepo is an in-memory stand-in for the store. Fields are the
// canned results each query returns; err, when set, fails every call so
// abort-on-failure behavior can be exercised.
type fakeForecastRepo struct {
	history    map[dbm.RenewalBucket]repositories.RenewalTally
	expiring   map[string]repositories.PlanSnapshot
	baseline   map[string]repositories.PlanSnapshot
	received   repositories.Received
	accrual    repositories.AccrualResult
	candidates []repositories.RenewalCandidate
	paidIn     map[uuid.UUID]struct{}
	lastPays   []repositories.LastPayment
	priceIndex map[int64]repositories.PlanTerms

	paySum      int64
	payCount    int64
	activeUsers int64
	mrr         float64

	err error
}

func (f *fakeForecastRepo) RenewalHistory(ctx context.Context, now time.Time, monthsBack, graceDays int, pol repositories.QueryPolicy) (map[dbm.RenewalBucket]repositories.RenewalTally, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.history == nil {
		return map[dbm.RenewalBucket]repositories.RenewalTally{}, nil
	}
	return f.history, nil
}

func (f *fakeForecastRepo) ExpiringByPlan(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy) (map[string]repositories.PlanSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.expiring, nil
}

func (f *fakeForecastRepo) BaselineExpiringByPlan(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy) (map[string]repositories.PlanSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.baseline, nil
}

func (f *fakeForecastRepo) ReceivedRevenue(ctx context.Context, start, end time.Time) (repositories.Received, error) {
	if f.err != nil {
		return repositories.Received{}, f.err
	}
	return f.received, nil
}

func (f *fakeForecastRepo) AccrualRecognized(ctx context.Context, start, now time.Time, pol repositories.QueryPolicy) (repositories.AccrualResult, error) {
	if f.err != nil {
		return repositories.AccrualResult{}, f.err
	}
	return f.accrual, nil
}

func (f *fakeForecastRepo) RenewalCandidates(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy) ([]repositories.RenewalCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeForecastRepo) AccountsWithPaymentIn(ctx context.Context, start, end time.Time) (map[uuid.UUID]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.paidIn == nil {
		return map[uuid.UUID]struct{}{}, nil
	}
	return f.paidIn, nil
}

func (f *fakeForecastRepo) LastPaymentsBefore(ctx context.Context, end time.Time) ([]repositories.LastPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lastPays, nil
}

func (f *fakeForecastRepo) PlanPriceIndex(ctx context.Context) (map[int64]repositories.PlanTerms, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.priceIndex == nil {
		return map[int64]repositories.PlanTerms{}, nil
	}
	return f.priceIndex, nil
}

func (f *fakeForecastRepo) PaymentStats(ctx context.Context, start, end time.Time) (int64, int64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.paySum, f.payCount, nil
}

func (f *fakeForecastRepo) ActiveUserCount(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.activeUsers, nil
}

func (f *fakeForecastRepo) ActiveBaseMRR(ctx context.Context, now time.Time, pol repositories.QueryPolicy) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.mrr, nil
}
