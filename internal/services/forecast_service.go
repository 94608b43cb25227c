package services

import (
	dbm "subforecast/internal/models/db_models"
	resp "subforecast/internal/models/response_models"
	"subforecast/internal/repositories"
	"subforecast/pkg/utils"
)

// ProbabilitySource resolves a renewal probability for a plan. Overrides
// win over the global probability; the global fills only what no override
// covers; with neither, renewal is assumed certain (probability 1).
type ProbabilitySource struct {
	// Overrides keys may be plan names, group codes or bucket names.
	Overrides map[string]float64
	Global    *float64
}

// Resolve walks plan name, group code, bucket, then the global
// probability. The most specific match wins.
func (s ProbabilitySource) Resolve(planName string, groupCode *string, bucket dbm.RenewalBucket) float64 {
	if p, ok := s.Overrides[planName]; ok && planName != "" {
		return p
	}
	if groupCode != nil {
		if p, ok := s.Overrides[*groupCode]; ok {
			return p
		}
	}
	if p, ok := s.Overrides[string(bucket)]; ok {
		return p
	}
	if s.Global != nil {
		return *s.Global
	}
	return 1.0
}

// ComposeForecast turns an expiring-value snapshot into expected revenue:
// price x count x renewal probability per plan, summed.
func ComposeForecast(snapshot map[string]repositories.PlanSnapshot, probs ProbabilitySource) (float64, map[string]resp.PlanForecast) {
	var forecast float64
	byPlan := make(map[string]resp.PlanForecast, len(snapshot))
	for name, snap := range snapshot {
		p := probs.Resolve(name, snap.GroupCode, snap.Bucket)
		expected := float64(snap.PriceMinor) * float64(snap.Count) * p
		forecast += expected
		byPlan[name] = resp.PlanForecast{
			Count:        snap.Count,
			PriceMinor:   snap.PriceMinor,
			PeriodMonths: snap.PeriodMonths,
			GroupCode:    snap.GroupCode,
			Bucket:       string(snap.Bucket),
			Prob:         p,
			Expected:     expected,
		}
	}
	return forecast, byPlan
}

// ToEarn is what remains to collect against the live forecast, never
// negative even when receipts already exceed it.
func ToEarn(forecast, received float64) float64 {
	if diff := forecast - received; diff > 0 {
		return diff
	}
	return 0
}

// CompletionFigures derives the plan-completion percentage and the
// remaining gap against the month-start baseline under the selected
// recognition mode. A zero baseline has no completion to measure: the
// percentage is nil and the gap zero.
func CompletionFigures(mode resp.CompletionMode, planBaseline, liveForecast, received, accrualTotal float64) (*float64, float64, error) {
	if planBaseline <= 0 {
		return nil, 0, nil
	}

	var pct, gap float64
	switch mode {
	case resp.ModeCash:
		pct = received / planBaseline * 100
		gap = planBaseline - received
	case resp.ModeAccrual:
		pct = accrualTotal / planBaseline * 100
		gap = planBaseline - accrualTotal
	case resp.ModePlanVsForecast:
		// How much of the original plan is locked in versus still
		// probabilistic; the gap is the still-probabilistic part itself.
		pct = (planBaseline - liveForecast) / planBaseline * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		gap = liveForecast
	default:
		return nil, 0, utils.ErrUnknownCompletionMode
	}

	if gap < 0 {
		gap = 0
	}
	return &pct, gap, nil
}
