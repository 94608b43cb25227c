package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "subforecast/internal/models/db_models"
	"subforecast/pkg/utils"
)

// QueryPolicy carries the two switches every cohort read honors.
type QueryPolicy struct {
	// SkipFrozen drops frozen keys from every cohort.
	SkipFrozen bool
	// ExcludeTrials drops keys whose plan is tagged "trial" or priced at zero.
	ExcludeTrials bool
}

// RenewalTally is one bucket's aggregated renewal history: how many keys
// finished a cycle in the trailing months and how many went on to renew.
type RenewalTally struct {
	Cohort  int64
	Renewed int64
}

// PlanSnapshot is one plan's slice of an expiring-value snapshot.
type PlanSnapshot struct {
	Count        int64
	PriceMinor   int64
	PeriodMonths *int32
	GroupCode    *string
	Bucket       dbm.RenewalBucket
}

type Received struct {
	Paid    float64
	Refunds float64
	Net     float64
}

type AccrualResult struct {
	Total  float64
	ByPlan map[string]PlanSnapshot
}

// RenewalCandidate is one member of the current-month renewal cohort.
// ExpiryTimeMs is nil for candidates reconstructed from payment history.
type RenewalCandidate struct {
	AccountID    uuid.UUID
	ExpiryTimeMs *int64
	GroupCode    *string
	DurationDays int32
	PriceMinor   int64
	Synthetic    bool
}

type LastPayment struct {
	AccountID   uuid.UUID
	AmountMinor int64
	PaidAtSec   int64
}

// PlanTerms resolves a price back to cycle terms for the reconstruction
// path.
type PlanTerms struct {
	DurationDays int32
	GroupCode    *string
}

// ForecastRepository is the engine's read-only view of the store. Every
// method either returns complete figures or an error; partial results are
// never surfaced.
type ForecastRepository interface {
	// Cohorts and snapshots
	RenewalHistory(ctx context.Context, now time.Time, monthsBack, graceDays int, pol QueryPolicy) (map[dbm.RenewalBucket]RenewalTally, error)
	ExpiringByPlan(ctx context.Context, start, end time.Time, pol QueryPolicy) (map[string]PlanSnapshot, error)
	BaselineExpiringByPlan(ctx context.Context, start, end time.Time, pol QueryPolicy) (map[string]PlanSnapshot, error)

	// Revenue
	ReceivedRevenue(ctx context.Context, start, end time.Time) (Received, error)
	AccrualRecognized(ctx context.Context, start, now time.Time, pol QueryPolicy) (AccrualResult, error)

	// Retention support
	RenewalCandidates(ctx context.Context, start, end time.Time, pol QueryPolicy) ([]RenewalCandidate, error)
	AccountsWithPaymentIn(ctx context.Context, start, end time.Time) (map[uuid.UUID]struct{}, error)
	LastPaymentsBefore(ctx context.Context, end time.Time) ([]LastPayment, error)
	PlanPriceIndex(ctx context.Context) (map[int64]PlanTerms, error)

	// KPIs
	PaymentStats(ctx context.Context, start, end time.Time) (sumMinor int64, count int64, err error)
	ActiveUserCount(ctx context.Context, start, end time.Time, pol QueryPolicy) (int64, error)
	ActiveBaseMRR(ctx context.Context, now time.Time, pol QueryPolicy) (float64, error)
}

type forecastRepository struct {
	db *gorm.DB
}

func NewForecastRepository(db *gorm.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", utils.ErrStoreUnavailable, op, err)
}

// normalizedDurExpr clamps missing or non-positive plan durations to 30
// days inside SQL, matching db_models.NormalizeDuration.
const normalizedDurExpr = "(CASE WHEN COALESCE(p.duration_days, 0) <= 0 THEN 30 ELSE p.duration_days END)"

// prevExpiryExpr derives the implied previous-cycle expiry in epoch ms.
const prevExpiryExpr = "(k.expiry_time_ms - " + normalizedDurExpr + "::bigint * 86400000)"

func applyPolicy(tx *gorm.DB, pol QueryPolicy) *gorm.DB {
	if pol.SkipFrozen {
		tx = tx.Where("k.is_frozen = FALSE")
	}
	if pol.ExcludeTrials {
		tx = tx.Where("p.group_code IS DISTINCT FROM ?", dbm.GroupCodeTrial).
			Where("COALESCE(p.price_minor, 0) <> 0")
	}
	return tx
}

// ---------- Row helpers ----------

type planRow struct {
	Name         string  `gorm:"column:name"`
	GroupCode    *string `gorm:"column:group_code"`
	DurationDays *int32  `gorm:"column:duration_days"`
	PriceMinor   *int64  `gorm:"column:price_minor"`
	Count        int64   `gorm:"column:count"`
}

func (r planRow) snapshot() PlanSnapshot {
	var price int64
	if r.PriceMinor != nil {
		price = *r.PriceMinor
	}
	var dur int32
	if r.DurationDays != nil {
		dur = *r.DurationDays
	}
	var period *int32
	if dur > 0 {
		m := dbm.PeriodMonths(dur)
		period = &m
	}
	return PlanSnapshot{
		Count:        r.Count,
		PriceMinor:   price,
		PeriodMonths: period,
		GroupCode:    r.GroupCode,
		Bucket:       dbm.BucketForPlan(r.GroupCode, dur),
	}
}

type historyRow struct {
	GroupCode    *string `gorm:"column:group_code"`
	DurationDays *int32  `gorm:"column:duration_days"`
	Cohort       int64   `gorm:"column:cohort"`
	Renewed      int64   `gorm:"column:renewed"`
}

// ---------- Historical renewal cohorts ----------

// RenewalHistory tallies, for each trailing full month, the keys whose
// previous cycle ended in that month and the subset whose actual expiry
// reaches past the month end plus grace. Results are aggregated across
// all trailing months rather than per month: larger cohorts smooth better.
func (r *forecastRepository) RenewalHistory(ctx context.Context, now time.Time, monthsBack, graceDays int, pol QueryPolicy) (map[dbm.RenewalBucket]RenewalTally, error) {
	if monthsBack < 1 {
		monthsBack = 1
	}
	graceMs := int64(graceDays) * dbm.MillisPerDay

	sql := `
WITH months AS (
  SELECT
    (EXTRACT(EPOCH FROM date_trunc('month', ?::timestamptz AT TIME ZONE 'UTC') - (s.i * INTERVAL '1 month')) * 1000)::bigint AS start_ms,
    (EXTRACT(EPOCH FROM date_trunc('month', ?::timestamptz AT TIME ZONE 'UTC') - ((s.i - 1) * INTERVAL '1 month')) * 1000)::bigint AS end_ms
  FROM generate_series(1, ?) AS s(i)
)
SELECT
  p.group_code,
  p.duration_days,
  COUNT(*)::bigint AS cohort,
  COUNT(*) FILTER (WHERE k.expiry_time_ms >= m.end_ms + ?)::bigint AS renewed
FROM keys k
JOIN plans p ON p.id = k.plan_id
JOIN months m
  ON ` + prevExpiryExpr + ` >= m.start_ms
 AND ` + prevExpiryExpr + ` < m.end_ms
WHERE (? = FALSE OR k.is_frozen = FALSE)
  AND (? = FALSE OR (p.group_code IS DISTINCT FROM ? AND COALESCE(p.price_minor, 0) <> 0))
GROUP BY p.group_code, p.duration_days`

	var rows []historyRow
	err := r.db.WithContext(ctx).
		Raw(sql, now, now, monthsBack, graceMs, pol.SkipFrozen, pol.ExcludeTrials, dbm.GroupCodeTrial).
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("renewal history", err)
	}

	totals := map[dbm.RenewalBucket]RenewalTally{
		dbm.BucketMonthly:   {},
		dbm.BucketQuarterly: {},
		dbm.BucketYearly:    {},
		dbm.BucketOther:     {},
	}
	for _, row := range rows {
		var dur int32
		if row.DurationDays != nil {
			dur = *row.DurationDays
		}
		bucket := dbm.BucketForPlan(row.GroupCode, dur)
		t := totals[bucket]
		t.Cohort += row.Cohort
		t.Renewed += row.Renewed
		totals[bucket] = t
	}
	return totals, nil
}

// ---------- Expiring snapshots ----------

func (r *forecastRepository) expiringRows(ctx context.Context, predicate string, startMs, endMs int64, pol QueryPolicy) ([]planRow, error) {
	var rows []planRow
	tx := r.db.WithContext(ctx).
		Table("keys k").
		Select("p.name, p.group_code, p.duration_days, p.price_minor, COUNT(k.account_id) AS count").
		Joins("JOIN plans p ON p.id = k.plan_id").
		Where(predicate+" >= ? AND "+predicate+" < ?", startMs, endMs)
	tx = applyPolicy(tx, pol)
	err := tx.Group("p.name, p.group_code, p.duration_days, p.price_minor").
		Find(&rows).Error
	return rows, err
}

// ExpiringByPlan counts keys whose expiry falls inside [start, end),
// grouped by plan.
func (r *forecastRepository) ExpiringByPlan(ctx context.Context, start, end time.Time, pol QueryPolicy) (map[string]PlanSnapshot, error) {
	rows, err := r.expiringRows(ctx, "k.expiry_time_ms", start.UnixMilli(), end.UnixMilli(), pol)
	if err != nil {
		return nil, storeErr("expiring by plan", err)
	}
	out := make(map[string]PlanSnapshot, len(rows))
	for _, row := range rows {
		out[row.Name] = mergeSnapshot(out[row.Name], row.snapshot())
	}
	return out, nil
}

// BaselineExpiringByPlan reconstructs the month-start billing plan: keys
// expiring this month plus keys whose previous cycle ended this month
// (those have since renewed, so they left the current-expiring set but
// were part of the plan as known at month start).
func (r *forecastRepository) BaselineExpiringByPlan(ctx context.Context, start, end time.Time, pol QueryPolicy) (map[string]PlanSnapshot, error) {
	current, err := r.ExpiringByPlan(ctx, start, end, pol)
	if err != nil {
		return nil, err
	}

	rows, err := r.expiringRows(ctx, prevExpiryExpr, start.UnixMilli(), end.UnixMilli(), pol)
	if err != nil {
		return nil, storeErr("baseline expiring by plan", err)
	}
	prev := make(map[string]PlanSnapshot, len(rows))
	for _, row := range rows {
		prev[row.Name] = mergeSnapshot(prev[row.Name], row.snapshot())
	}

	return MergeExpiringByPlan(current, prev), nil
}

// MergeExpiringByPlan value-merges two expiring snapshots: counts add and
// the price comes from whichever source carries a non-zero one.
func MergeExpiringByPlan(current, prev map[string]PlanSnapshot) map[string]PlanSnapshot {
	merged := make(map[string]PlanSnapshot, len(current)+len(prev))
	for name, snap := range current {
		merged[name] = snap
	}
	for name, snap := range prev {
		if existing, ok := merged[name]; ok {
			merged[name] = mergeSnapshot(existing, snap)
		} else {
			merged[name] = snap
		}
	}
	return merged
}

func mergeSnapshot(into, from PlanSnapshot) PlanSnapshot {
	if into.Count == 0 && into.PriceMinor == 0 && into.GroupCode == nil && into.PeriodMonths == nil && into.Bucket == "" {
		return from
	}
	into.Count += from.Count
	if from.PriceMinor != 0 {
		into.PriceMinor = from.PriceMinor
	}
	if into.GroupCode == nil {
		into.GroupCode = from.GroupCode
	}
	if into.PeriodMonths == nil {
		into.PeriodMonths = from.PeriodMonths
	}
	if into.Bucket == "" {
		into.Bucket = from.Bucket
	}
	return into
}

// ---------- Revenue ----------

func (r *forecastRepository) ReceivedRevenue(ctx context.Context, start, end time.Time) (Received, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Table("payments").
		Select("COALESCE(SUM(amount_minor), 0)").
		Where("status = ?", dbm.PayStatusSuccess).
		Where("created_at >= ? AND created_at < ?", start.Unix(), end.Unix()).
		Scan(&sum).Error
	if err != nil {
		return Received{}, storeErr("received revenue", err)
	}
	paid := float64(sum)
	// Refund accounting lives with the gateway adapters; the ledger only
	// carries settled rows here.
	return Received{Paid: paid, Refunds: 0, Net: paid}, nil
}

// AccrualRecognized sums revenue earned by cycle completion: every key
// whose previous cycle ended inside [start, now) has delivered a full
// cycle this month regardless of whether cash arrived yet.
func (r *forecastRepository) AccrualRecognized(ctx context.Context, start, now time.Time, pol QueryPolicy) (AccrualResult, error) {
	rows, err := r.expiringRows(ctx, prevExpiryExpr, start.UnixMilli(), now.UnixMilli(), pol)
	if err != nil {
		return AccrualResult{}, storeErr("accrual recognized", err)
	}
	res := AccrualResult{ByPlan: make(map[string]PlanSnapshot, len(rows))}
	for _, row := range rows {
		snap := row.snapshot()
		res.ByPlan[row.Name] = mergeSnapshot(res.ByPlan[row.Name], snap)
		res.Total += float64(snap.Count) * float64(snap.PriceMinor)
	}
	return res, nil
}

// ---------- Retention support ----------

type candidateRow struct {
	AccountID    uuid.UUID `gorm:"column:account_id"`
	ExpiryTimeMs int64     `gorm:"column:expiry_time_ms"`
	GroupCode    *string   `gorm:"column:group_code"`
	DurationDays *int32    `gorm:"column:duration_days"`
	PriceMinor   *int64    `gorm:"column:price_minor"`
}

// RenewalCandidates lists keys whose previous cycle ended inside
// [start, end): the accounts whose renewal decision belongs to this month.
func (r *forecastRepository) RenewalCandidates(ctx context.Context, start, end time.Time, pol QueryPolicy) ([]RenewalCandidate, error) {
	var rows []candidateRow
	tx := r.db.WithContext(ctx).
		Table("keys k").
		Select("k.account_id, k.expiry_time_ms, p.group_code, p.duration_days, p.price_minor").
		Joins("JOIN plans p ON p.id = k.plan_id").
		Where(prevExpiryExpr+" >= ? AND "+prevExpiryExpr+" < ?", start.UnixMilli(), end.UnixMilli())
	tx = applyPolicy(tx, pol)
	if err := tx.Find(&rows).Error; err != nil {
		return nil, storeErr("renewal candidates", err)
	}

	out := make([]RenewalCandidate, 0, len(rows))
	for _, row := range rows {
		expiry := row.ExpiryTimeMs
		var dur int32
		if row.DurationDays != nil {
			dur = *row.DurationDays
		}
		var price int64
		if row.PriceMinor != nil {
			price = *row.PriceMinor
		}
		out = append(out, RenewalCandidate{
			AccountID:    row.AccountID,
			ExpiryTimeMs: &expiry,
			GroupCode:    row.GroupCode,
			DurationDays: dur,
			PriceMinor:   price,
		})
	}
	return out, nil
}

func (r *forecastRepository) AccountsWithPaymentIn(ctx context.Context, start, end time.Time) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("payments").
		Distinct("account_id").
		Where("status = ?", dbm.PayStatusSuccess).
		Where("created_at >= ? AND created_at < ?", start.Unix(), end.Unix()).
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, storeErr("accounts with payment", err)
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

type lastPaymentRow struct {
	AccountID   uuid.UUID `gorm:"column:account_id"`
	AmountMinor int64     `gorm:"column:amount_minor"`
	CreatedAt   int64     `gorm:"column:created_at"`
}

// LastPaymentsBefore returns each account's most recent successful payment
// strictly before end. Feeds the fallback reconstruction path for legacy
// history with no linkable key row.
func (r *forecastRepository) LastPaymentsBefore(ctx context.Context, end time.Time) ([]LastPayment, error) {
	var rows []lastPaymentRow
	err := r.db.WithContext(ctx).
		Raw(`
SELECT DISTINCT ON (account_id) account_id, amount_minor, created_at
FROM payments
WHERE status = ? AND created_at < ?
ORDER BY account_id, created_at DESC`, dbm.PayStatusSuccess, end.Unix()).
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("last payments", err)
	}
	out := make([]LastPayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, LastPayment{
			AccountID:   row.AccountID,
			AmountMinor: row.AmountMinor,
			PaidAtSec:   row.CreatedAt,
		})
	}
	return out, nil
}

type planTermsRow struct {
	PriceMinor   *int64  `gorm:"column:price_minor"`
	DurationDays *int32  `gorm:"column:duration_days"`
	GroupCode    *string `gorm:"column:group_code"`
}

// PlanPriceIndex maps each distinct plan price to its cycle terms. The
// oldest plan wins a price collision, matching how legacy payments were
// priced when they were made.
func (r *forecastRepository) PlanPriceIndex(ctx context.Context) (map[int64]PlanTerms, error) {
	var rows []planTermsRow
	err := r.db.WithContext(ctx).
		Table("plans").
		Select("price_minor, duration_days, group_code").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("plan price index", err)
	}
	index := make(map[int64]PlanTerms, len(rows))
	for _, row := range rows {
		var price int64
		if row.PriceMinor != nil {
			price = *row.PriceMinor
		}
		if _, ok := index[price]; ok {
			continue
		}
		var dur int32 = 30
		if row.DurationDays != nil && *row.DurationDays > 0 {
			dur = *row.DurationDays
		}
		index[price] = PlanTerms{DurationDays: dur, GroupCode: row.GroupCode}
	}
	return index, nil
}

// ---------- KPIs ----------

type paymentStatsRow struct {
	Sum   *int64 `gorm:"column:sum"`
	Count int64  `gorm:"column:count"`
}

func (r *forecastRepository) PaymentStats(ctx context.Context, start, end time.Time) (int64, int64, error) {
	var row paymentStatsRow
	err := r.db.WithContext(ctx).
		Table("payments").
		Select(`
			COALESCE(SUM(amount_minor) FILTER (WHERE status = ?), 0) AS sum,
			COUNT(*) FILTER (WHERE status = ?) AS count`,
			dbm.PayStatusSuccess, dbm.PayStatusSuccess).
		Where("created_at >= ? AND created_at < ?", start.Unix(), end.Unix()).
		Scan(&row).Error
	if err != nil {
		return 0, 0, storeErr("payment stats", err)
	}
	var sum int64
	if row.Sum != nil {
		sum = *row.Sum
	}
	return sum, row.Count, nil
}

// ActiveUserCount counts distinct accounts holding a key whose lifetime
// overlaps [start, end).
func (r *forecastRepository) ActiveUserCount(ctx context.Context, start, end time.Time, pol QueryPolicy) (int64, error) {
	var n int64
	tx := r.db.WithContext(ctx).
		Table("keys k").
		Where("k.created_at <= ?", end.Unix()).
		Where("k.expiry_time_ms >= ?", start.UnixMilli())
	if pol.SkipFrozen {
		tx = tx.Where("k.is_frozen = FALSE")
	}
	err := tx.Distinct("k.account_id").Count(&n).Error
	if err != nil {
		return 0, storeErr("active user count", err)
	}
	return n, nil
}

type mrrRow struct {
	PriceMinor   *int64 `gorm:"column:price_minor"`
	DurationDays *int32 `gorm:"column:duration_days"`
	Count        int64  `gorm:"column:count"`
}

// ActiveBaseMRR normalizes every currently non-expired key's plan price to
// a monthly run-rate and sums it.
func (r *forecastRepository) ActiveBaseMRR(ctx context.Context, now time.Time, pol QueryPolicy) (float64, error) {
	var rows []mrrRow
	tx := r.db.WithContext(ctx).
		Table("keys k").
		Select("p.price_minor, p.duration_days, COUNT(k.account_id) AS count").
		Joins("JOIN plans p ON p.id = k.plan_id").
		Where("k.expiry_time_ms > ?", now.UnixMilli())
	tx = applyPolicy(tx, pol)
	err := tx.Group("p.price_minor, p.duration_days").Find(&rows).Error
	if err != nil {
		return 0, storeErr("active base mrr", err)
	}

	var mrr float64
	for _, row := range rows {
		var price int64
		if row.PriceMinor != nil {
			price = *row.PriceMinor
		}
		var dur int32
		if row.DurationDays != nil {
			dur = *row.DurationDays
		}
		mrr += float64(price) / float64(dbm.PeriodMonths(dur)) * float64(row.Count)
	}
	return mrr, nil
}
