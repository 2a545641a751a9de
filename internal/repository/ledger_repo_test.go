package repository

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"walletbot/internal/domain"
	"walletbot/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newLedger(t *testing.T) (*LedgerRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	return NewLedgerRepository(path, quietLogger()), path
}

func TestLedgerDepositThenWithdrawal(t *testing.T) {
	ledger, _ := newLedger(t)
	ledger.UpsertAccount(1, "alice", "Alice")

	bal, err := ledger.ApplyDelta(1, 5000, domain.TxDeposit, "deposit", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bal)
	bal, err = ledger.ApplyDelta(1, -2000, domain.TxWithdrawal, "withdrawal", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), bal)

	txs := ledger.ListTransactions(1, 10)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(0), txs[0].BalanceBeforeCents)
	assert.Equal(t, int64(5000), txs[0].BalanceAfterCents)
	assert.Equal(t, int64(5000), txs[1].BalanceBeforeCents)
	assert.Equal(t, int64(3000), txs[1].BalanceAfterCents)
	assert.Equal(t, int64(3000), ledger.Balance(1))
}

func TestLedgerBalanceEqualsSumOfDeltas(t *testing.T) {
	ledger, _ := newLedger(t)
	ledger.UpsertAccount(7, "", "Bob")

	deltas := []int64{100, -40, 2500, -1, 0, 99999, -50000, 3}
	var sum int64
	for _, d := range deltas {
		sum += d
		_, err := ledger.ApplyDelta(7, d, domain.TxManual, "", "")
		require.NoError(t, err)
		assert.Equal(t, sum, ledger.Balance(7))
	}

	var replay int64
	for _, tx := range ledger.ListTransactions(7, len(deltas)) {
		assert.Equal(t, replay, tx.BalanceBeforeCents)
		replay += tx.AmountCents
		assert.Equal(t, replay, tx.BalanceAfterCents)
	}
	assert.Equal(t, sum, replay)
}

func TestLedgerUnknownAccount(t *testing.T) {
	ledger, _ := newLedger(t)

	assert.Equal(t, int64(0), ledger.Balance(99))
	_, err := ledger.ApplyDelta(99, 100, domain.TxDeposit, "", "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 0, ledger.TotalAccounts())
	_, ok := ledger.GetAccount(99)
	assert.False(t, ok)
	assert.ErrorIs(t, ledger.SetPayoutAccount(99, models.PayoutAccount{}), ErrAccountNotFound)
}

func TestLedgerDebitChecksBalance(t *testing.T) {
	ledger, _ := newLedger(t)
	ledger.UpsertAccount(1, "", "")
	_, err := ledger.ApplyDelta(1, 1000, domain.TxDeposit, "", "")
	require.NoError(t, err)

	bal, err := ledger.Debit(1, 1500, domain.TxWithdrawal, "", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(1000), bal)
	assert.Len(t, ledger.ListTransactions(1, 10), 1)

	bal, err = ledger.Debit(1, 1000, domain.TxWithdrawal, "", "wd-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
	txs := ledger.ListTransactions(1, 10)
	assert.Equal(t, int64(-1000), txs[1].AmountCents)
	assert.Equal(t, "wd-1", txs[1].Reference)
}

func TestLedgerListTransactionsWindow(t *testing.T) {
	ledger, _ := newLedger(t)
	ledger.UpsertAccount(1, "", "")
	for i := int64(1); i <= 15; i++ {
		_, err := ledger.ApplyDelta(1, i, domain.TxDeposit, "", "")
		require.NoError(t, err)
	}

	for _, limit := range []int{0, 1, 5, 15, 40} {
		txs := ledger.ListTransactions(1, limit)
		assert.LessOrEqual(t, len(txs), limit)
		for i := 1; i < len(txs); i++ {
			assert.Less(t, txs[i-1].AmountCents, txs[i].AmountCents)
		}
	}
	last := ledger.ListTransactions(1, 3)
	require.Len(t, last, 3)
	assert.Equal(t, []int64{13, 14, 15}, []int64{last[0].AmountCents, last[1].AmountCents, last[2].AmountCents})
}

func TestLedgerUpsertRefreshesProfile(t *testing.T) {
	ledger, _ := newLedger(t)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ledger.now = func() time.Time { return clock }

	first := ledger.UpsertAccount(1, "old", "Old")
	clock = clock.Add(time.Hour)
	second := ledger.UpsertAccount(1, "new", "New")

	assert.Equal(t, first.JoinedAt, second.JoinedAt)
	assert.Equal(t, clock, second.LastActiveAt)
	assert.Equal(t, "new", second.Username)
	assert.Equal(t, 1, ledger.TotalAccounts())
}

func TestLedgerPersistsAndReloads(t *testing.T) {
	ledger, path := newLedger(t)
	ledger.UpsertAccount(1, "a", "A")
	ledger.UpsertAccount(2, "b", "B")
	_, err := ledger.ApplyDelta(1, 5000, domain.TxDeposit, "", "")
	require.NoError(t, err)
	_, err = ledger.ApplyDelta(2, 250, domain.TxAdminCredit, "", "")
	require.NoError(t, err)
	require.NoError(t, ledger.SetPayoutAccount(2, models.PayoutAccount{BankCode: "BPI", AccountNumber: "123", AccountHolderName: "B"}))

	reloaded := NewLedgerRepository(path, quietLogger())
	assert.Equal(t, int64(5000), reloaded.Balance(1))
	assert.Equal(t, int64(5250), reloaded.TotalBalance())
	assert.Equal(t, []int64{1, 2}, reloaded.UserIDs())
	acc, ok := reloaded.GetAccount(2)
	require.True(t, ok)
	require.NotNil(t, acc.Payout)
	assert.Equal(t, "BPI", acc.Payout.BankCode)
}

func TestLedgerMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	ledger := NewLedgerRepository(path, quietLogger())
	assert.Equal(t, 0, ledger.TotalAccounts())
	ledger.UpsertAccount(1, "", "")
	assert.Equal(t, 1, NewLedgerRepository(path, quietLogger()).TotalAccounts())
}

func TestLedgerGetAccountReturnsCopy(t *testing.T) {
	ledger, _ := newLedger(t)
	ledger.UpsertAccount(1, "", "")
	_, err := ledger.ApplyDelta(1, 10, domain.TxDeposit, "", "")
	require.NoError(t, err)

	acc, _ := ledger.GetAccount(1)
	acc.BalanceCents = 1 << 40
	acc.Transactions[0].AmountCents = 0

	assert.Equal(t, int64(10), ledger.Balance(1))
	assert.Equal(t, int64(10), ledger.ListTransactions(1, 1)[0].AmountCents)
}

func TestLedgerAccountsOrdering(t *testing.T) {
	ledger, _ := newLedger(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return clock }
	ledger.UpsertAccount(30, "", "")
	ledger.UpsertAccount(20, "", "")
	clock = clock.Add(time.Minute)
	ledger.UpsertAccount(10, "", "")

	accs := ledger.Accounts()
	require.Len(t, accs, 3)
	assert.Equal(t, []int64{20, 30, 10}, []int64{accs[0].UserID, accs[1].UserID, accs[2].UserID})
}
