package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Key is one purchased access grant. A frozen key does not consume service
// but still occupies a billing slot, so policy decides whether it joins
// cohorts.
type Key struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`
	PlanID    uuid.UUID `gorm:"index"`

	// Absolute expiry instant, epoch milliseconds. The previous cycle's
	// implied expiry (ExpiryTimeMs - duration) is always derived in queries,
	// never stored.
	ExpiryTimeMs int64 `gorm:"not null;index"`
	IsFrozen     bool  `gorm:"default:false"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Plan Plan `gorm:"foreignKey:PlanID"`
}

const MillisPerDay = int64(86_400_000)

// PrevCycleExpiryMs derives when the key's previous billing cycle ended.
func (k *Key) PrevCycleExpiryMs(durationDays int32) int64 {
	return k.ExpiryTimeMs - int64(NormalizeDuration(durationDays))*MillisPerDay
}
