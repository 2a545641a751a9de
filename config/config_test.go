package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "")
	t.Setenv("XENDIT_SECRET_KEY", "")
	t.Setenv("XENDIT_API_KEY", "legacy-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 300, cfg.Server.RateLimit)
	assert.Equal(t, int64(100), cfg.Flow.TopUpMinimum)
	assert.Equal(t, int64(1000), cfg.Flow.WithdrawMinimum)
	assert.Equal(t, int64(200), cfg.Flow.FeeBasisPoints)
	assert.Equal(t, int64(1000000), cfg.Flow.MaxAmount)
	assert.Equal(t, 15*time.Minute, cfg.Flow.SessionTTL)
	assert.Equal(t, "legacy-key", cfg.Xendit.SecretKey)
	assert.Equal(t, "PHP", cfg.Xendit.Currency)
	assert.Equal(t, "users.json", cfg.Ledger.Path)
	assert.False(t, cfg.Wallet.DemoMode)
	assert.Empty(t, cfg.Admin.UserIDs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("FLOW_TOPUP_MIN", "250")
	t.Setenv("FLOW_SESSION_TTL", "90s")
	t.Setenv("ADMIN_USER_IDS", "42, 7,42")
	t.Setenv("WALLET_DEMO_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(250), cfg.Flow.TopUpMinimum)
	assert.Equal(t, 90*time.Second, cfg.Flow.SessionTTL)
	assert.Equal(t, []int64{7, 42}, cfg.Admin.UserIDs)
	assert.True(t, cfg.Wallet.DemoMode)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"FLOW_TOPUP_MIN":   "ten",
		"FLOW_FEE_BPS":     "20000",
		"FLOW_SESSION_TTL": "soon",
		"ADMIN_USER_IDS":   "1,abc",
		"BROADCAST_RATE":   "-1",
		"FLOW_MAX_AMOUNT":  "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadCapsMaxAmount(t *testing.T) {
	t.Setenv("FLOW_MAX_AMOUNT", "92233720368547759")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FLOW_MAX_AMOUNT", "9223372036854")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(MaxFlowAmount), cfg.Flow.MaxAmount)
}
