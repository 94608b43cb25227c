package response_models

import (
	"time"
)

// CompletionMode selects which recognition semantics the plan-completion
// figures follow.
type CompletionMode string

const (
	ModeCash           CompletionMode = "cash"
	ModeAccrual        CompletionMode = "accrual"
	ModePlanVsForecast CompletionMode = "plan_vs_forecast"
)

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PlanForecast is the per-plan breakdown line of the forecast section.
type PlanForecast struct {
	Count        int64   `json:"count"`
	PriceMinor   int64   `json:"price_minor"`
	PeriodMonths *int32  `json:"period_months,omitempty"`
	GroupCode    *string `json:"group_code,omitempty"`
	Bucket       string  `json:"bucket"`
	Prob         float64 `json:"prob"`
	Expected     float64 `json:"expected"`
}

// ForecastSection carries month-to-date revenue figures under the selected
// recognition mode. PlanCompletionPct is nil when the baseline is zero:
// "no plan to complete" is not the same as 0% complete.
type ForecastSection struct {
	Mode              string                  `json:"mode"`
	Forecast          float64                 `json:"forecast"`
	Received          float64                 `json:"received"`
	ToEarn            float64                 `json:"to_earn"`
	PlanBaseline      float64                 `json:"plan_baseline"`
	PlanCompletionPct *float64                `json:"plan_completion_pct,omitempty"`
	PlanGap           float64                 `json:"plan_gap"`
	ByPlan            map[string]PlanForecast `json:"by_plan"`
	BaselineByPlan    map[string]PlanForecast `json:"baseline_by_plan"`
}

// RetentionSection reports current-month renewal behavior. Rates are nil
// when the candidate cohort is empty; an empty cohort has no retention,
// not a retention of zero.
type RetentionSection struct {
	RetentionRate  *float64 `json:"retention_rate,omitempty"`
	ChurnRate      *float64 `json:"churn_rate,omitempty"`
	RenewedCount   int64    `json:"renewed_count"`
	NotRenewedYet  int64    `json:"not_renewed_yet"`
	PredictedChurn float64  `json:"predicted_churn"`
}

type KPISection struct {
	AvgCheck      float64 `json:"avg_check"`
	PaidCount     int64   `json:"paid_count"`
	ActiveUsers   int64   `json:"active_users"`
	ARPU          float64 `json:"arpu"`
	MRRActiveBase float64 `json:"mrr_active_base"`
}

// RevenueReport is the engine's single externally consumed output.
type RevenueReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Window      TimeRange          `json:"window"`
	Probs       map[string]float64 `json:"renewal_probs"`
	Forecast    ForecastSection    `json:"forecast"`
	Retention   RetentionSection   `json:"retention"`
	KPIs        KPISection         `json:"kpis"`
}
