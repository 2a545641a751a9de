package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletbot/internal/domain"
	"walletbot/internal/models"
	"walletbot/internal/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownPayment    = errors.New("unknown payment")
	ErrUnknownWithdrawal = errors.New("unknown withdrawal")
)

// InvoiceCallback is the Xendit invoice webhook body.
type InvoiceCallback struct {
	ID            string          `json:"id"`
	ExternalID    string          `json:"external_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod string          `json:"payment_method"`
}

// DisbursementCallback is the Xendit disbursement webhook body.
type DisbursementCallback struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"external_id"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	FailureCode string          `json:"failure_code"`
}

// SettlementService applies provider confirmations to the ledger.
type SettlementService struct {
	wallet      *WalletService
	payments    PaymentStore
	withdrawals WithdrawalStore
	messenger   Messenger
	currency    string
	log         *logrus.Logger
}

func NewSettlementService(wallet *WalletService, payments PaymentStore, withdrawals WithdrawalStore, messenger Messenger, currency string, log *logrus.Logger) *SettlementService {
	return &SettlementService{
		wallet:      wallet,
		payments:    payments,
		withdrawals: withdrawals,
		messenger:   messenger,
		currency:    currency,
		log:         log,
	}
}

func (s *SettlementService) findPayment(cb InvoiceCallback) (*models.Payment, error) {
	if cb.ID != "" {
		if p, err := s.payments.GetByProviderRef(cb.ID); err == nil {
			return p, nil
		}
	}
	if cb.ExternalID != "" {
		if p, err := s.payments.GetPendingByExternalID(cb.ExternalID); err == nil {
			return p, nil
		}
	}
	return nil, ErrUnknownPayment
}

func (s *SettlementService) HandleInvoiceCallback(ctx context.Context, cb InvoiceCallback) error {
	entry := s.log.WithFields(logrus.Fields{"invoice_id": cb.ID, "external_id": cb.ExternalID, "status": cb.Status})
	p, err := s.findPayment(cb)
	if err != nil {
		entry.Warn("invoice callback for unknown payment")
		return err
	}
	entry = entry.WithField("user_id", p.UserID)
	if p.Status != domain.PaymentPending {
		entry.Info("invoice callback for settled payment ignored")
		return nil
	}

	switch strings.ToUpper(cb.Status) {
	case domain.PaymentPaid, domain.PaymentSettled:
		if !cb.PaidAmount.IsZero() && cb.PaidAmount.LessThan(money.ToDecimal(p.AmountCents)) {
			entry.WithField("paid_amount", cb.PaidAmount.String()).Warn("paid amount below invoiced amount")
		}
		now := time.Now()
		claimed, err := s.payments.Transition(p.ID, domain.PaymentPaid, &now)
		if err != nil {
			return fmt.Errorf("mark payment paid: %w", err)
		}
		if !claimed {
			entry.Info("payment already settled by another callback")
			return nil
		}
		desc := fmt.Sprintf("Top-up via %s (fee %s)", p.Method, money.Format(p.FeeCents))
		bal, err := s.wallet.Deposit(ctx, p.UserID, p.NetCents, desc, p.ProviderRef)
		if err != nil {
			p.Status = domain.PaymentPending
			p.CompletedAt = nil
			if uerr := s.payments.Update(p); uerr != nil {
				entry.WithError(uerr).Error("failed to revert payment status")
			}
			return fmt.Errorf("credit payment: %w", err)
		}
		entry.WithField("net", p.NetCents).Info("top-up credited")
		s.notify(ctx, p.ChatID, fmt.Sprintf("✅ Payment received!\n\nCredited: %s\nFee: %s\nNew balance: %s",
			s.format(p.NetCents), s.format(p.FeeCents), s.format(bal)))
	case domain.PaymentExpired:
		claimed, err := s.payments.Transition(p.ID, domain.PaymentExpired, nil)
		if err != nil {
			return fmt.Errorf("mark payment expired: %w", err)
		}
		if !claimed {
			return nil
		}
		entry.Info("top-up invoice expired")
		s.notify(ctx, p.ChatID, fmt.Sprintf("⌛ Your top-up of %s expired before it was paid. Send /topup to start a new one.", s.format(p.AmountCents)))
	default:
		entry.Debug("invoice callback status ignored")
	}
	return nil
}

func (s *SettlementService) findWithdrawal(cb DisbursementCallback) (*models.Withdrawal, error) {
	if cb.ID != "" {
		if w, err := s.withdrawals.GetByProviderRef(cb.ID); err == nil {
			return w, nil
		}
	}
	if cb.ExternalID != "" {
		if w, err := s.withdrawals.GetPendingByExternalID(cb.ExternalID); err == nil {
			return w, nil
		}
	}
	return nil, ErrUnknownWithdrawal
}

func (s *SettlementService) HandleDisbursementCallback(ctx context.Context, cb DisbursementCallback) error {
	entry := s.log.WithFields(logrus.Fields{"disbursement_id": cb.ID, "external_id": cb.ExternalID, "status": cb.Status})
	w, err := s.findWithdrawal(cb)
	if err != nil {
		entry.Warn("disbursement callback for unknown withdrawal")
		return err
	}
	entry = entry.WithField("user_id", w.UserID)
	if w.Status != domain.WithdrawalPending {
		entry.Info("disbursement callback for finished withdrawal ignored")
		return nil
	}

	switch strings.ToUpper(cb.Status) {
	case domain.WithdrawalCompleted:
		now := time.Now()
		claimed, err := s.withdrawals.Transition(w.ID, domain.WithdrawalCompleted, "", &now)
		if err != nil {
			return fmt.Errorf("mark withdrawal completed: %w", err)
		}
		if !claimed {
			return nil
		}
		entry.Info("withdrawal completed")
		s.notify(ctx, w.ChatID, fmt.Sprintf("✅ Your withdrawal of %s to %s has been completed.",
			s.format(w.AmountCents), w.BankCode+" "+maskAccount(w.AccountNumber)))
	case domain.WithdrawalFailed:
		claimed, err := s.withdrawals.Transition(w.ID, domain.WithdrawalFailed, cb.FailureCode, nil)
		if err != nil {
			return fmt.Errorf("mark withdrawal failed: %w", err)
		}
		if !claimed {
			entry.Info("withdrawal already finished by another callback")
			return nil
		}
		msg := "❌ Your withdrawal failed"
		if cb.FailureCode != "" {
			msg += " (" + cb.FailureCode + ")"
		}
		if w.DebitedCents > 0 {
			bal, err := s.wallet.Refund(ctx, w.UserID, w.DebitedCents, "Refund for failed withdrawal "+w.ExternalID, w.ProviderRef)
			if err != nil {
				entry.WithError(err).Error("failed to refund withdrawal")
				if uerr := s.withdrawals.Update(w); uerr != nil {
					entry.WithError(uerr).Error("failed to revert withdrawal status")
				}
				return fmt.Errorf("refund withdrawal: %w", err)
			}
			msg += fmt.Sprintf(".\n\n%s has been returned to your wallet.\nNew balance: %s", s.format(w.DebitedCents), s.format(bal))
		} else {
			msg += "."
		}
		entry.WithField("failure_code", cb.FailureCode).Warn("withdrawal failed")
		s.notify(ctx, w.ChatID, msg)
	default:
		entry.Debug("disbursement callback status ignored")
	}
	return nil
}

func (s *SettlementService) notify(ctx context.Context, chatID int64, text string) {
	if err := s.messenger.SendText(ctx, chatID, text); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("failed to notify user")
	}
}

func (s *SettlementService) format(cents int64) string {
	return money.Format(cents) + " " + s.currency
}
