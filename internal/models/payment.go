package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is a top-up intent created with a Xendit invoice. The ledger is only
// credited with NetCents once the invoice callback reports it paid.
type Payment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      int64          `gorm:"not null;index" json:"user_id"`
	ChatID      int64          `gorm:"not null" json:"chat_id"`
	AmountCents int64          `gorm:"not null" json:"amount_cents"` // gross, as invoiced
	FeeCents    int64          `gorm:"not null" json:"fee_cents"`
	NetCents    int64          `gorm:"not null" json:"net_cents"`
	Currency    string         `gorm:"size:3;default:'PHP'" json:"currency"`
	Method      string         `gorm:"size:20;not null" json:"method"` // qrph, payment_link
	Provider    string         `gorm:"size:50;not null" json:"provider"`
	ProviderRef string         `gorm:"size:255;uniqueIndex" json:"provider_ref"`
	ExternalID  string         `gorm:"size:255;index" json:"external_id"`
	Status      string         `gorm:"size:20;not null;index" json:"status"` // PENDING, PAID, EXPIRED
	InvoiceURL  string         `gorm:"type:text" json:"invoice_url"`
	ExpiresAt   *time.Time     `json:"expires_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
