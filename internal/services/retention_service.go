package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "subforecast/internal/models/db_models"
	resp "subforecast/internal/models/response_models"
	"subforecast/internal/repositories"
)

// RetentionService builds the current-month renewal cohort and classifies
// every candidate as renewed or not yet renewed.
type RetentionService interface {
	Analyze(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy, probs ProbabilitySource) (resp.RetentionSection, error)
}

type retentionService struct {
	repo repositories.ForecastRepository
	log  *zap.Logger
}

func NewRetentionService(repo repositories.ForecastRepository, log *zap.Logger) RetentionService {
	return &retentionService{repo: repo, log: log}
}

func (s *retentionService) Analyze(ctx context.Context, start, end time.Time, pol repositories.QueryPolicy, probs ProbabilitySource) (resp.RetentionSection, error) {
	candidates, err := s.repo.RenewalCandidates(ctx, start, end, pol)
	if err != nil {
		return resp.RetentionSection{}, err
	}

	seenAccounts := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		seenAccounts[c.AccountID] = struct{}{}
	}

	synthetic, err := s.reconstructCandidates(ctx, start, end, seenAccounts)
	if err != nil {
		return resp.RetentionSection{}, err
	}
	candidates = append(candidates, synthetic...)

	if len(candidates) == 0 {
		// No rates to report: an empty cohort is "unknown", not zero churn.
		return resp.RetentionSection{}, nil
	}

	paidInMonth, err := s.repo.AccountsWithPaymentIn(ctx, start, end)
	if err != nil {
		return resp.RetentionSection{}, err
	}

	endMs := end.UnixMilli()
	var renewed, notRenewed int64
	notRenewedByBucket := map[dbm.RenewalBucket]int64{}
	for _, c := range candidates {
		if s.isRenewed(c, endMs, paidInMonth) {
			renewed++
			continue
		}
		notRenewed++
		notRenewedByBucket[dbm.BucketForPlan(c.GroupCode, c.DurationDays)]++
	}

	total := float64(len(candidates))
	retentionRate := float64(renewed) / total
	churnRate := float64(notRenewed) / total

	var predictedChurn float64
	for bucket, count := range notRenewedByBucket {
		p := probs.Resolve("", nil, bucket)
		predictedChurn += (1 - p) * float64(count)
	}

	s.log.Debug("retention cohort classified",
		zap.Int("candidates", len(candidates)),
		zap.Int("reconstructed", len(synthetic)),
		zap.Int64("renewed", renewed),
		zap.Int64("not_renewed", notRenewed))

	return resp.RetentionSection{
		RetentionRate:  &retentionRate,
		ChurnRate:      &churnRate,
		RenewedCount:   renewed,
		NotRenewedYet:  notRenewed,
		PredictedChurn: predictedChurn,
	}, nil
}

// reconstructCandidates is the fallback path for legacy, denormalized
// history: accounts with no key row in the cohort but whose last
// successful payment implies a cycle ending inside the window. Accounts
// already present in the real cohort are never admitted twice.
func (s *retentionService) reconstructCandidates(ctx context.Context, start, end time.Time, seen map[uuid.UUID]struct{}) ([]repositories.RenewalCandidate, error) {
	lastPays, err := s.repo.LastPaymentsBefore(ctx, end)
	if err != nil {
		return nil, err
	}
	priceIndex, err := s.repo.PlanPriceIndex(ctx)
	if err != nil {
		return nil, err
	}

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	var out []repositories.RenewalCandidate
	for _, pay := range lastPays {
		if _, ok := seen[pay.AccountID]; ok {
			continue
		}
		terms, ok := priceIndex[pay.AmountMinor]
		if !ok {
			continue // amount matches no plan; not reconstructable
		}
		prevExpiryMs := pay.PaidAtSec*1000 + int64(dbm.NormalizeDuration(terms.DurationDays))*dbm.MillisPerDay
		if prevExpiryMs < startMs || prevExpiryMs >= endMs {
			continue
		}
		out = append(out, repositories.RenewalCandidate{
			AccountID:    pay.AccountID,
			GroupCode:    terms.GroupCode,
			DurationDays: terms.DurationDays,
			PriceMinor:   pay.AmountMinor,
			Synthetic:    true,
		})
	}
	return out, nil
}

// isRenewed: a real candidate renewed if its key already extends past the
// window; a reconstructed one if the account paid successfully inside it.
func (s *retentionService) isRenewed(c repositories.RenewalCandidate, endMs int64, paidInMonth map[uuid.UUID]struct{}) bool {
	if c.ExpiryTimeMs != nil {
		return *c.ExpiryTimeMs >= endMs
	}
	_, paid := paidInMonth[c.AccountID]
	return paid
}
