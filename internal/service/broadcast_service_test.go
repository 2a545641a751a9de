package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcast(h *harness, admins ...int64) *BroadcastService {
	return NewBroadcastService(h.wallet, NewAdminRegistry(admins), h.messenger, 1000, quietLogger())
}

func TestBroadcastPrepareConfirm(t *testing.T) {
	h := newHarness(t)
	h.wallet.Touch(User{ID: 2})
	h.wallet.Touch(User{ID: 3})
	h.messenger.fail = map[int64]bool{3: true}
	b := newBroadcast(h, 99, 2)
	ctx := context.Background()

	pb, err := b.Prepare(99, "  maintenance tonight ")
	require.NoError(t, err)
	assert.Equal(t, "maintenance tonight", pb.Message)
	assert.Equal(t, []int64{2, 3, alice.ID}, pb.Recipients)

	report, err := b.Confirm(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Sent)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(3), report.Failed[0].UserID)

	var chats []int64
	for _, m := range h.messenger.sent {
		chats = append(chats, m.ChatID)
		assert.Contains(t, m.Text, "📢 Broadcast Message")
		assert.Contains(t, m.Text, "maintenance tonight")
	}
	assert.Equal(t, []int64{2, 99, alice.ID}, chats)

	_, err = b.Confirm(ctx, 99)
	assert.ErrorIs(t, err, ErrNoPendingBroadcast)
}

func TestBroadcastCancel(t *testing.T) {
	h := newHarness(t)
	b := newBroadcast(h, 99)

	assert.False(t, b.Cancel(99))
	_, err := b.Prepare(99, "hello")
	require.NoError(t, err)
	_, ok := b.Pending(99)
	assert.True(t, ok)
	assert.True(t, b.Cancel(99))
	_, err = b.Confirm(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNoPendingBroadcast)
}

func TestBroadcastPrepareErrors(t *testing.T) {
	h := newHarness(t)
	b := newBroadcast(h, 99)
	_, err := b.Prepare(99, "   ")
	assert.ErrorIs(t, err, ErrEmptyBroadcast)

	empty := NewBroadcastService(NewWalletService(newEmptyLedger(t), nil, quietLogger()), NewAdminRegistry(nil), h.messenger, 1000, quietLogger())
	_, err = empty.Prepare(99, "hello")
	assert.ErrorIs(t, err, ErrNoRecipients)
	_, err = empty.Test(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestBroadcastTestGoesToAdminsOnly(t *testing.T) {
	h := newHarness(t)
	b := newBroadcast(h, 99, 98)

	report, err := b.Test(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	for _, m := range h.messenger.sent {
		assert.NotEqual(t, alice.ID, m.ChatID)
		assert.Contains(t, m.Text, "🧪 Test Broadcast")
	}
}

func TestBroadcastStopsOnCancelledContext(t *testing.T) {
	h := newHarness(t)
	b := NewBroadcastService(h.wallet, NewAdminRegistry([]int64{99}), h.messenger, 0.001, quietLogger())
	_, err := b.Prepare(99, "hello")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := b.Confirm(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Len(t, report.Failed, 2)
}
