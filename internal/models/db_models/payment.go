package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PayStatusPending PaymentStatus = "pending"
	PayStatusSuccess PaymentStatus = "success"
	PayStatusFailed  PaymentStatus = "failed"
)

// Payment is one settlement attempt. Only "success" rows count toward
// revenue; CreatedAt (unix seconds, from BaseModel) is the settlement
// instant.
type Payment struct {
	BaseModel
	AccountID   uuid.UUID     `gorm:"index"`
	AmountMinor int64
	Currency    string        `gorm:"size:3"`
	Status      PaymentStatus `gorm:"type:payment_status;index"`

	// Gateway fields recorded by the surrounding system
	Provider      string `gorm:"index"`
	ProviderTxnID string `gorm:"index"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
