package service

import (
	"context"
	"testing"

	"walletbot/internal/domain"
	"walletbot/internal/events"
	"walletbot/internal/models"
	"walletbot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []events.TransactionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.TransactionEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestWalletDepositAndWithdraw(t *testing.T) {
	h := newHarness(t)
	pub := &recordingPublisher{}
	wallet := NewWalletService(h.ledger, pub, quietLogger())
	ctx := context.Background()

	bal, err := wallet.Deposit(ctx, alice.ID, 5000, "Deposit", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bal)

	bal, err = wallet.Withdraw(ctx, alice.ID, 2000, "Withdraw", "ref")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), bal)

	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.TxDeposit, pub.events[0].Type)
	assert.Equal(t, int64(-2000), pub.events[1].AmountCents)
	assert.Equal(t, int64(3000), pub.events[1].BalanceAfterCents)
}

func TestWalletWithdrawInsufficientLeavesBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.wallet.Deposit(ctx, alice.ID, 1000, "Deposit", "")
	require.NoError(t, err)

	bal, err := h.wallet.Withdraw(ctx, alice.ID, 1001, "Withdraw", "")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, int64(1000), bal)
	assert.Equal(t, int64(1000), h.wallet.Balance(alice.ID))
	assert.Len(t, h.wallet.History(alice.ID, 10), 1)
}

func TestWalletRejectsNonPositiveAmounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, amount := range []int64{0, -100} {
		_, err := h.wallet.Deposit(ctx, alice.ID, amount, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = h.wallet.Withdraw(ctx, alice.ID, amount, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = h.wallet.AdminCredit(ctx, alice.ID, amount, "root")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = h.wallet.Refund(ctx, alice.ID, amount, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Empty(t, h.wallet.History(alice.ID, 10))
}

func TestWalletAdminCreditRequiresAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.wallet.AdminCredit(ctx, 424242, 1000, "root")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	bal, err := h.wallet.AdminCredit(ctx, alice.ID, 1000, "root")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal)
	txs := h.wallet.History(alice.ID, 1)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxAdminCredit, txs[0].Type)
	assert.Equal(t, "Admin credit by root", txs[0].Description)
}

func TestWalletStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.wallet.Touch(User{ID: 2, Username: "bob"})
	h.wallet.Touch(User{ID: 3, Username: "carol"})
	_, err := h.wallet.Deposit(ctx, alice.ID, 3000, "", "")
	require.NoError(t, err)
	_, err = h.wallet.Deposit(ctx, 2, 3000, "", "")
	require.NoError(t, err)

	st := h.wallet.Stats()
	assert.Equal(t, 3, st.TotalAccounts)
	assert.Equal(t, int64(6000), st.TotalBalanceCents)
	assert.Equal(t, 2, st.FundedAccounts)
	assert.Equal(t, int64(2000), st.AverageBalanceCents)
}

func TestWalletSetPayoutAccountValidates(t *testing.T) {
	h := newHarness(t)

	err := h.wallet.SetPayoutAccount(alice.ID, models.PayoutAccount{BankCode: "bdo", AccountNumber: " "})
	assert.ErrorIs(t, err, ErrInvalidPayout)

	err = h.wallet.SetPayoutAccount(alice.ID, models.PayoutAccount{BankCode: " bdo", AccountNumber: "001234567890", AccountHolderName: "Alice Reyes"})
	require.NoError(t, err)
	acc, ok := h.wallet.Account(alice.ID)
	require.True(t, ok)
	require.NotNil(t, acc.Payout)
	assert.Equal(t, "BDO", acc.Payout.BankCode)
}
