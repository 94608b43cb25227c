package db_models

import (
	"gorm.io/datatypes"
)

// GroupCodeTrial marks plans excluded from revenue cohorts when the
// exclude-trials policy is on (zero-priced plans are excluded alongside).
const GroupCodeTrial = "trial"

type Plan struct {
	BaseModel
	Code         string `gorm:"uniqueIndex"` // e.g., "pro_1m", "pro_12m"
	Name         string
	GroupCode    *string `gorm:"index"` // canonical tag: "trial", "1m", "3m", "12m"
	DurationDays int32   // billing cycle length; <=0 treated as 30 at compute time
	PriceMinor   int64   // 999 = $9.99
	Currency     string  `gorm:"size:3"` // ISO 4217
	IsActive     bool    `gorm:"default:true"`
	// Optional: feature flags, limits, etc.
	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

// NormalizeDuration maps missing or non-positive cycle lengths to a
// one-month default so one malformed plan row cannot sink a whole report.
func NormalizeDuration(days int32) int32 {
	if days <= 0 {
		return 30
	}
	return days
}

// PeriodMonths is the plan cycle expressed in whole months, minimum 1.
// Used to normalize prices to a monthly run-rate.
func PeriodMonths(durationDays int32) int32 {
	months := int32(float64(NormalizeDuration(durationDays))/30.0 + 0.5)
	if months < 1 {
		return 1
	}
	return months
}
