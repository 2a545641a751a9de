package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// XenditClient implements Gateway against the Xendit REST API.
type XenditClient struct {
	BaseURL   string
	secretKey string
	client    *http.Client
	log       *logrus.Logger
}

func NewXenditClient(baseURL, secretKey string, timeout time.Duration, log *logrus.Logger) *XenditClient {
	if baseURL == "" {
		baseURL = "https://api.xendit.co"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XenditClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

type xenditInvoiceReq struct {
	ExternalID     string      `json:"external_id"`
	Amount         json.Number `json:"amount"`
	Description    string      `json:"description"`
	Currency       string      `json:"currency,omitempty"`
	PaymentMethods []string    `json:"payment_methods,omitempty"`
}

type xenditInvoiceResp struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id"`
	Status     string      `json:"status"`
	Amount     json.Number `json:"amount"`
	InvoiceURL string      `json:"invoice_url"`
	QRCodeURL  string      `json:"qr_code_url"`
	ExpiryDate string      `json:"expiry_date"`
}

type xenditDisbursementReq struct {
	ExternalID        string      `json:"external_id"`
	Amount            json.Number `json:"amount"`
	BankCode          string      `json:"bank_code"`
	AccountHolderName string      `json:"account_holder_name"`
	AccountNumber     string      `json:"account_number"`
	Description       string      `json:"description"`
}

type xenditDisbursementResp struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id"`
	Amount     json.Number `json:"amount"`
	BankCode   string      `json:"bank_code"`
	Status     string      `json:"status"`
}

func (x *XenditClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	payload := xenditInvoiceReq{
		ExternalID:     req.ExternalID,
		Amount:         centsToNumber(req.AmountCents),
		Description:    req.Description,
		Currency:       req.Currency,
		PaymentMethods: req.PaymentMethods,
	}
	var out xenditInvoiceResp
	if err := x.post(ctx, "create_invoice", "/v2/invoices", payload, nil, &out); err != nil {
		return nil, err
	}
	inv := &Invoice{
		ID:          out.ID,
		ExternalID:  out.ExternalID,
		Status:      out.Status,
		AmountCents: numberToCents(out.Amount),
		InvoiceURL:  out.InvoiceURL,
		QRCodeURL:   out.QRCodeURL,
	}
	if out.ExpiryDate != "" {
		if t, err := time.Parse(time.RFC3339, out.ExpiryDate); err == nil {
			inv.ExpiresAt = t
		}
	}
	return inv, nil
}

func (x *XenditClient) CreateDisbursement(ctx context.Context, req DisbursementRequest) (*Disbursement, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}
	payload := xenditDisbursementReq{
		ExternalID:        req.ExternalID,
		Amount:            centsToNumber(req.AmountCents),
		BankCode:          req.BankCode,
		AccountHolderName: req.AccountHolderName,
		AccountNumber:     req.AccountNumber,
		Description:       req.Description,
	}
	headers := map[string]string{"X-IDEMPOTENCY-KEY": key}
	var out xenditDisbursementResp
	if err := x.post(ctx, "create_disbursement", "/disbursements", payload, headers, &out); err != nil {
		return nil, err
	}
	return &Disbursement{
		ID:          out.ID,
		ExternalID:  out.ExternalID,
		Status:      out.Status,
		AmountCents: numberToCents(out.Amount),
		BankCode:    out.BankCode,
	}, nil
}

func (x *XenditClient) post(ctx context.Context, op, path string, payload any, headers map[string]string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// Xendit expects the secret key as the Basic username with an empty password.
	req.SetBasicAuth(x.secretKey, "")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	entry := x.log.WithFields(logrus.Fields{"operation": op, "path": path})
	entry.Debug("xendit request")
	resp, err := x.client.Do(req)
	if err != nil {
		entry.WithError(err).Error("xendit transport error")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	entry = entry.WithField("status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		entry.WithField("body", string(respBody)).Warn("xendit rejected request")
		return &ProviderError{Operation: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	entry.Info("xendit request succeeded")
	return nil
}

func centsToNumber(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).String())
}

func numberToCents(n json.Number) int64 {
	if n == "" {
		return 0
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0
	}
	return d.Shift(2).IntPart()
}
