package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal tracks a Xendit disbursement. DebitedCents was taken from the ledger
// when the disbursement was accepted and is refunded if it fails.
type Withdrawal struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            int64          `gorm:"not null;index" json:"user_id"`
	ChatID            int64          `gorm:"not null" json:"chat_id"`
	ExternalID        string         `gorm:"size:255;index" json:"external_id"`
	DebitedCents      int64          `gorm:"not null" json:"debited_cents"`
	AmountCents       int64          `gorm:"not null" json:"amount_cents"` // sent to the bank
	FeeCents          int64          `gorm:"not null" json:"fee_cents"`
	BankCode          string         `gorm:"size:32;not null" json:"bank_code"`
	AccountNumber     string         `gorm:"size:64;not null" json:"account_number"`
	AccountHolderName string         `gorm:"size:255;not null" json:"account_holder_name"`
	Status            string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	ProviderRef       string         `gorm:"size:128;uniqueIndex" json:"provider_ref"`
	FailureCode       string         `gorm:"size:64" json:"failure_code"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
