package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StubGateway is a no-op gateway for development without Xendit credentials.
type StubGateway struct {
	BaseURL string
}

func (s *StubGateway) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	ref := "stub_" + uuid.New().String()
	base := s.BaseURL
	if base == "" {
		base = "https://checkout.invalid"
	}
	inv := &Invoice{
		ID:          ref,
		ExternalID:  req.ExternalID,
		Status:      "PENDING",
		AmountCents: req.AmountCents,
		InvoiceURL:  base + "/invoices/" + ref,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	for _, m := range req.PaymentMethods {
		if m == "QRPH" {
			inv.QRCodeURL = base + "/invoices/" + ref + "/qr.png"
		}
	}
	return inv, nil
}

func (s *StubGateway) CreateDisbursement(ctx context.Context, req DisbursementRequest) (*Disbursement, error) {
	return &Disbursement{
		ID:          "stub_" + uuid.New().String(),
		ExternalID:  req.ExternalID,
		Status:      "PENDING",
		AmountCents: req.AmountCents,
		BankCode:    req.BankCode,
	}, nil
}
