package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletbot/internal/domain"
	"walletbot/internal/events"
	"walletbot/internal/metrics"
	"walletbot/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	ErrInvalidPayout = errors.New("bank code, account number and holder name are required")
)

// Ledger is the account store behind the wallet.
type Ledger interface {
	UpsertAccount(userID int64, username, firstName string) *models.Account
	GetAccount(userID int64) (*models.Account, bool)
	Balance(userID int64) int64
	ApplyDelta(userID, amountCents int64, txType, description, reference string) (int64, error)
	Debit(userID, amountCents int64, txType, description, reference string) (int64, error)
	ListTransactions(userID int64, limit int) []models.Transaction
	SetPayoutAccount(userID int64, payout models.PayoutAccount) error
	TotalBalance() int64
	TotalAccounts() int
	Accounts() []models.Account
	UserIDs() []int64
}

// User identifies the sender of an inbound event.
type User struct {
	ID        int64
	ChatID    int64
	Username  string
	FirstName string
}

type WalletStats struct {
	TotalAccounts       int
	TotalBalanceCents   int64
	FundedAccounts      int
	AverageBalanceCents int64
}

// WalletService is the only writer of the ledger. Every mutation is counted and
// published as a ledger event.
type WalletService struct {
	ledger    Ledger
	publisher events.Publisher
	log       *logrus.Logger
}

func NewWalletService(ledger Ledger, publisher events.Publisher, log *logrus.Logger) *WalletService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WalletService{ledger: ledger, publisher: publisher, log: log}
}

// Touch creates or refreshes the sender's account.
func (s *WalletService) Touch(u User) *models.Account {
	return s.ledger.UpsertAccount(u.ID, u.Username, u.FirstName)
}

func (s *WalletService) Account(userID int64) (*models.Account, bool) {
	return s.ledger.GetAccount(userID)
}

func (s *WalletService) Balance(userID int64) int64 {
	return s.ledger.Balance(userID)
}

func (s *WalletService) History(userID int64, limit int) []models.Transaction {
	return s.ledger.ListTransactions(userID, limit)
}

func (s *WalletService) Accounts() []models.Account {
	return s.ledger.Accounts()
}

func (s *WalletService) UserIDs() []int64 {
	return s.ledger.UserIDs()
}

func (s *WalletService) Stats() WalletStats {
	st := WalletStats{
		TotalAccounts:     s.ledger.TotalAccounts(),
		TotalBalanceCents: s.ledger.TotalBalance(),
	}
	for _, a := range s.ledger.Accounts() {
		if a.BalanceCents > 0 {
			st.FundedAccounts++
		}
	}
	if st.TotalAccounts > 0 {
		st.AverageBalanceCents = st.TotalBalanceCents / int64(st.TotalAccounts)
	}
	return st
}

func (s *WalletService) SetPayoutAccount(userID int64, payout models.PayoutAccount) error {
	payout.BankCode = strings.ToUpper(strings.TrimSpace(payout.BankCode))
	payout.AccountNumber = strings.TrimSpace(payout.AccountNumber)
	payout.AccountHolderName = strings.TrimSpace(payout.AccountHolderName)
	if payout.BankCode == "" || payout.AccountNumber == "" || payout.AccountHolderName == "" {
		return ErrInvalidPayout
	}
	return s.ledger.SetPayoutAccount(userID, payout)
}

func (s *WalletService) Deposit(ctx context.Context, userID, amountCents int64, description, reference string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	bal, err := s.ledger.ApplyDelta(userID, amountCents, domain.TxDeposit, description, reference)
	if err != nil {
		return 0, fmt.Errorf("deposit: %w", err)
	}
	s.record(ctx, userID, domain.TxDeposit, amountCents, bal, description, reference)
	return bal, nil
}

// Withdraw debits the wallet and fails with repository.ErrInsufficientBalance
// instead of going negative.
func (s *WalletService) Withdraw(ctx context.Context, userID, amountCents int64, description, reference string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	bal, err := s.ledger.Debit(userID, amountCents, domain.TxWithdrawal, description, reference)
	if err != nil {
		return bal, fmt.Errorf("withdraw: %w", err)
	}
	s.record(ctx, userID, domain.TxWithdrawal, -amountCents, bal, description, reference)
	return bal, nil
}

func (s *WalletService) AdminCredit(ctx context.Context, targetID, amountCents int64, adminName string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	desc := "Admin credit by " + adminName
	bal, err := s.ledger.ApplyDelta(targetID, amountCents, domain.TxAdminCredit, desc, "")
	if err != nil {
		return 0, fmt.Errorf("admin credit: %w", err)
	}
	s.record(ctx, targetID, domain.TxAdminCredit, amountCents, bal, desc, "")
	return bal, nil
}

// Refund returns funds taken for a payout that the provider did not complete.
func (s *WalletService) Refund(ctx context.Context, userID, amountCents int64, description, reference string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	bal, err := s.ledger.ApplyDelta(userID, amountCents, domain.TxManual, description, reference)
	if err != nil {
		return 0, fmt.Errorf("refund: %w", err)
	}
	s.record(ctx, userID, domain.TxManual, amountCents, bal, description, reference)
	return bal, nil
}

func (s *WalletService) record(ctx context.Context, userID int64, txType string, amountCents, balance int64, description, reference string) {
	metrics.LedgerMutations.WithLabelValues(txType).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"type":      txType,
		"amount":    amountCents,
		"balance":   balance,
		"reference": reference,
	}).Info("ledger updated")
	ev := events.TransactionEvent{
		UserID:            userID,
		Type:              txType,
		AmountCents:       amountCents,
		BalanceAfterCents: balance,
		Description:       description,
		Reference:         reference,
		OccurredAt:        time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to publish ledger event")
	}
}
