package db_models

// RenewalBucket is the canonical renewal-cycle class every cohort is
// grouped by.
type RenewalBucket string

const (
	BucketMonthly   RenewalBucket = "1m"
	BucketQuarterly RenewalBucket = "3m"
	BucketYearly    RenewalBucket = "12m"
	BucketOther     RenewalBucket = "other"
)

// AllBuckets in render order.
var AllBuckets = []RenewalBucket{BucketMonthly, BucketQuarterly, BucketYearly, BucketOther}

// BucketForPlan classifies a plan into its renewal bucket. An explicit
// group code of "1m"/"3m"/"12m" always wins over duration inference.
// Unknown durations fall into "other" rather than erroring; the function
// is pure and total.
func BucketForPlan(groupCode *string, durationDays int32) RenewalBucket {
	if groupCode != nil {
		switch RenewalBucket(*groupCode) {
		case BucketMonthly, BucketQuarterly, BucketYearly:
			return RenewalBucket(*groupCode)
		}
	}
	if durationDays <= 0 {
		return BucketOther
	}
	months := int32(float64(durationDays)/30.0 + 0.5)
	switch {
	case months == 1:
		return BucketMonthly
	case months == 3:
		return BucketQuarterly
	case months >= 10 && months <= 13:
		// inclusive band absorbs leap-month rounding drift
		return BucketYearly
	default:
		return BucketOther
	}
}
