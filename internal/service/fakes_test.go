package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"walletbot/config"
	"walletbot/internal/domain"
	"walletbot/internal/models"
	"walletbot/internal/repository"
	"walletbot/internal/session"
	"walletbot/pkg/payment"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type sentMessage struct {
	ChatID   int64
	Text     string
	PhotoURL string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[chatID] {
		return errors.New("chat not found")
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, photoURL, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: caption, PhotoURL: photoURL})
	return nil
}

func (m *fakeMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeGateway struct {
	invoices      []payment.InvoiceRequest
	disbursements []payment.DisbursementRequest
	invoice       *payment.Invoice
	invoiceErr    error
	disbErr       error
}

func (g *fakeGateway) CreateInvoice(_ context.Context, req payment.InvoiceRequest) (*payment.Invoice, error) {
	g.invoices = append(g.invoices, req)
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	if g.invoice != nil {
		inv := *g.invoice
		return &inv, nil
	}
	return &payment.Invoice{
		ID:          "inv_1",
		ExternalID:  req.ExternalID,
		Status:      "PENDING",
		AmountCents: req.AmountCents,
		InvoiceURL:  "https://checkout.example/inv_1",
		QRCodeURL:   "https://checkout.example/inv_1/qr.png",
	}, nil
}

func (g *fakeGateway) CreateDisbursement(_ context.Context, req payment.DisbursementRequest) (*payment.Disbursement, error) {
	g.disbursements = append(g.disbursements, req)
	if g.disbErr != nil {
		return nil, g.disbErr
	}
	return &payment.Disbursement{
		ID:          "disb_1",
		ExternalID:  req.ExternalID,
		Status:      "PENDING",
		AmountCents: req.AmountCents,
		BankCode:    req.BankCode,
	}, nil
}

type memPayments struct {
	mu      sync.Mutex
	records []*models.Payment
	err     error
}

func (s *memPayments) Create(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	p.ID = uint(len(s.records) + 1)
	cp := *p
	s.records = append(s.records, &cp)
	return nil
}

func (s *memPayments) GetByProviderRef(ref string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.ProviderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memPayments) GetPendingByExternalID(externalID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		p := s.records[i]
		if p.ExternalID == externalID && p.Status == "PENDING" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memPayments) Transition(id uint, status string, completedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			if r.Status != domain.PaymentPending {
				return false, nil
			}
			r.Status = status
			r.CompletedAt = completedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *memPayments) Update(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == p.ID {
			cp := *p
			s.records[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memWithdrawals struct {
	mu      sync.Mutex
	records []*models.Withdrawal
}

func (s *memWithdrawals) Create(w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = uint(len(s.records) + 1)
	cp := *w
	s.records = append(s.records, &cp)
	return nil
}

func (s *memWithdrawals) GetByProviderRef(ref string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.records {
		if w.ProviderRef == ref {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memWithdrawals) GetPendingByExternalID(externalID string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		w := s.records[i]
		if w.ExternalID == externalID && w.Status == "PENDING" {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memWithdrawals) Transition(id uint, status, failureCode string, completedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			if r.Status != domain.WithdrawalPending {
				return false, nil
			}
			r.Status = status
			r.FailureCode = failureCode
			r.CompletedAt = completedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *memWithdrawals) Update(w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == w.ID {
			cp := *w
			s.records[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type harness struct {
	ledger      *repository.LedgerRepository
	wallet      *WalletService
	sessions    *session.Store
	gateway     *fakeGateway
	payments    *memPayments
	withdrawals *memWithdrawals
	messenger   *fakeMessenger
	flow        *FlowService
	settlement  *SettlementService
}

var alice = User{ID: 1001, ChatID: 1001, Username: "alice", FirstName: "Alice"}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := quietLogger()
	h := &harness{
		ledger:      repository.NewLedgerRepository(filepath.Join(t.TempDir(), "users.json"), log),
		sessions:    session.NewStore(0),
		gateway:     &fakeGateway{},
		payments:    &memPayments{},
		withdrawals: &memWithdrawals{},
		messenger:   &fakeMessenger{},
	}
	h.wallet = NewWalletService(h.ledger, nil, log)
	cfg := config.FlowConfig{TopUpMinimum: 100, WithdrawMinimum: 1000, FeeBasisPoints: 200}
	h.flow = NewFlowService(cfg, "PHP", h.sessions, h.gateway, h.wallet, h.payments, h.withdrawals, h.messenger, log)
	h.settlement = NewSettlementService(h.wallet, h.payments, h.withdrawals, h.messenger, "PHP", log)
	h.wallet.Touch(alice)
	return h
}

func newEmptyLedger(t *testing.T) *repository.LedgerRepository {
	t.Helper()
	return repository.NewLedgerRepository(filepath.Join(t.TempDir(), "users.json"), quietLogger())
}
