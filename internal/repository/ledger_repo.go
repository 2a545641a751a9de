package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"walletbot/internal/metrics"
	"walletbot/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// LedgerRepository keeps every account in memory and rewrites the whole snapshot
// file after each mutation. One mutex serialises all readers and writers.
type LedgerRepository struct {
	mu       sync.RWMutex
	path     string
	accounts map[string]*models.Account
	log      *logrus.Logger
	now      func() time.Time
}

// NewLedgerRepository loads the snapshot at path. A missing or malformed file
// yields an empty ledger.
func NewLedgerRepository(path string, log *logrus.Logger) *LedgerRepository {
	r := &LedgerRepository{
		path:     path,
		accounts: make(map[string]*models.Account),
		log:      log,
		now:      time.Now,
	}
	r.load()
	return r
}

func (r *LedgerRepository) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.WithError(err).WithField("path", r.path).Warn("ledger file unreadable, starting empty")
		}
		return
	}
	accounts := make(map[string]*models.Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		r.log.WithError(err).WithField("path", r.path).Warn("ledger file malformed, starting empty")
		return
	}
	for k, a := range accounts {
		if a == nil {
			delete(accounts, k)
		}
	}
	r.accounts = accounts
	r.log.WithFields(logrus.Fields{
		"path":     r.path,
		"accounts": len(accounts),
	}).Info("ledger loaded")
}

// persist must be called with mu held for writing.
func (r *LedgerRepository) persist() {
	if err := r.writeSnapshot(); err != nil {
		metrics.LedgerPersistFailures.Inc()
		r.log.WithError(err).WithField("path", r.path).Error("failed to persist ledger")
	}
}

func (r *LedgerRepository) writeSnapshot() error {
	data, err := json.MarshalIndent(r.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// UpsertAccount creates the account or refreshes its profile fields and activity time.
func (r *LedgerRepository) UpsertAccount(userID int64, username, firstName string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	a, ok := r.accounts[key(userID)]
	if !ok {
		a = &models.Account{
			UserID:       userID,
			Transactions: []models.Transaction{},
			JoinedAt:     now,
		}
		r.accounts[key(userID)] = a
	}
	a.Username = username
	a.FirstName = firstName
	a.LastActiveAt = now
	r.persist()
	return a.Clone()
}

func (r *LedgerRepository) GetAccount(userID int64) (*models.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[key(userID)]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Balance returns 0 for unknown users.
func (r *LedgerRepository) Balance(userID int64) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.accounts[key(userID)]; ok {
		return a.BalanceCents
	}
	return 0
}

// ApplyDelta appends a transaction and moves the balance by amountCents.
func (r *LedgerRepository) ApplyDelta(userID, amountCents int64, txType, description, reference string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[key(userID)]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return r.apply(a, amountCents, txType, description, reference), nil
}

// Debit removes amountCents only if the balance covers it.
func (r *LedgerRepository) Debit(userID, amountCents int64, txType, description, reference string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[key(userID)]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if a.BalanceCents < amountCents {
		return a.BalanceCents, ErrInsufficientBalance
	}
	return r.apply(a, -amountCents, txType, description, reference), nil
}

func (r *LedgerRepository) apply(a *models.Account, amountCents int64, txType, description, reference string) int64 {
	before := a.BalanceCents
	a.BalanceCents += amountCents
	a.Transactions = append(a.Transactions, models.Transaction{
		AmountCents:        amountCents,
		Type:               txType,
		Description:        description,
		Reference:          reference,
		CreatedAt:          r.now(),
		BalanceBeforeCents: before,
		BalanceAfterCents:  a.BalanceCents,
	})
	r.persist()
	return a.BalanceCents
}

// ListTransactions returns at most limit of the newest transactions, oldest first.
func (r *LedgerRepository) ListTransactions(userID int64, limit int) []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[key(userID)]
	if !ok || limit <= 0 {
		return nil
	}
	txs := a.Transactions
	if len(txs) > limit {
		txs = txs[len(txs)-limit:]
	}
	return append([]models.Transaction(nil), txs...)
}

func (r *LedgerRepository) SetPayoutAccount(userID int64, payout models.PayoutAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[key(userID)]
	if !ok {
		return ErrAccountNotFound
	}
	a.Payout = &payout
	r.persist()
	return nil
}

func (r *LedgerRepository) TotalBalance() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, a := range r.accounts {
		total += a.BalanceCents
	}
	return total
}

func (r *LedgerRepository) TotalAccounts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Accounts returns copies of all accounts ordered by join time, then user id.
func (r *LedgerRepository) Accounts() []models.Account {
	r.mu.RLock()
	out := make([]models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (r *LedgerRepository) UserIDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.accounts))
	for _, a := range r.accounts {
		ids = append(ids, a.UserID)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
