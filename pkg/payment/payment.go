package payment

import (
	"context"
	"fmt"
	"time"
)

type InvoiceRequest struct {
	ExternalID     string
	AmountCents    int64
	Currency       string
	Description    string
	PaymentMethods []string // e.g. ["QRPH"]; empty lets the provider offer everything
}

type Invoice struct {
	ID          string
	ExternalID  string
	Status      string
	AmountCents int64
	InvoiceURL  string
	QRCodeURL   string // only set for QR invoices
	ExpiresAt   time.Time
}

type DisbursementRequest struct {
	ExternalID        string
	AmountCents       int64
	BankCode          string
	AccountNumber     string
	AccountHolderName string
	Description       string
	IdempotencyKey    string
}

type Disbursement struct {
	ID          string
	ExternalID  string
	Status      string
	AmountCents int64
	BankCode    string
}

// Gateway collects payments through invoices and pays out through disbursements.
// A non-nil error is the only failure signal.
type Gateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	CreateDisbursement(ctx context.Context, req DisbursementRequest) (*Disbursement, error)
}

// ProviderError is returned for any non-success HTTP response.
type ProviderError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// InvoiceExternalID derives the invoice external id from the user and whole amount.
func InvoiceExternalID(userID, amount int64) string {
	return fmt.Sprintf("telegram_%d_%d", userID, amount)
}

func DisbursementExternalID(userID, amount int64) string {
	return fmt.Sprintf("withdraw_%d_%d", userID, amount)
}

// DisbursementExternalIDCents is DisbursementExternalID for amounts with centavos,
// e.g. "withdraw_7_25.50". Whole amounts keep the short form.
func DisbursementExternalIDCents(userID, amountCents int64) string {
	if amountCents%100 == 0 {
		return DisbursementExternalID(userID, amountCents/100)
	}
	return fmt.Sprintf("withdraw_%d_%d.%02d", userID, amountCents/100, amountCents%100)
}
