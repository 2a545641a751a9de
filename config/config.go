package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Telegram  TelegramConfig
	Xendit    XenditConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Flow      FlowConfig
	RabbitMQ  RabbitMQConfig
	Broadcast BroadcastConfig
	Log       LogConfig
	Admin     AdminConfig
	Wallet    WalletConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is the number of requests allowed per client IP per minute.
	RateLimit int
}

type TelegramConfig struct {
	BotToken string
	// WebhookURL switches inbound updates from long polling to the HTTP webhook.
	WebhookURL    string
	WebhookSecret string
}

type XenditConfig struct {
	BaseURL       string
	SecretKey     string
	CallbackToken string
	Timeout       time.Duration
	Currency      string
}

type DatabaseConfig struct {
	Driver          string // mysql or postgres
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	Path         string
	HistoryLimit int
}

// FlowConfig holds the conversational top-up/withdraw thresholds, in whole currency units.
type FlowConfig struct {
	TopUpMinimum    int64
	WithdrawMinimum int64
	FeeBasisPoints  int64
	// MaxAmount caps a single top-up or withdrawal.
	MaxAmount       int64
	SessionTTL      time.Duration
	SweepInterval   time.Duration
}

type RabbitMQConfig struct {
	URL      string // empty disables ledger event publishing
	Exchange string
}

type BroadcastConfig struct {
	RatePerSecond float64
}

type LogConfig struct {
	Level  string
	Format string
}

type AdminConfig struct {
	UserIDs []int64
}

type WalletConfig struct {
	// DemoMode lets /wallet_deposit credit the ledger without a provider payment.
	DemoMode bool
}

// MaxFlowAmount is the largest whole-unit amount whose cents and fee fit in an int64.
const MaxFlowAmount = math.MaxInt64 / 100 / 10000

func Load() (*Config, error) {
	topUpMin, err := getInt64("FLOW_TOPUP_MIN", 100)
	if err != nil {
		return nil, err
	}
	withdrawMin, err := getInt64("FLOW_WITHDRAW_MIN", 1000)
	if err != nil {
		return nil, err
	}
	feeBps, err := getInt64("FLOW_FEE_BPS", 200)
	if err != nil {
		return nil, err
	}
	if feeBps < 0 || feeBps > 10000 {
		return nil, fmt.Errorf("config: FLOW_FEE_BPS must be between 0 and 10000, got %d", feeBps)
	}
	maxAmount, err := getInt64("FLOW_MAX_AMOUNT", 1000000)
	if err != nil {
		return nil, err
	}
	if maxAmount <= 0 || maxAmount > MaxFlowAmount {
		return nil, fmt.Errorf("config: FLOW_MAX_AMOUNT must be between 1 and %d, got %d", MaxFlowAmount, maxAmount)
	}
	sessionTTL, err := getDuration("FLOW_SESSION_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	xenditTimeout, err := getDuration("XENDIT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getInt64("LEDGER_HISTORY_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt64("RATE_LIMIT_PER_MINUTE", 300)
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(getEnv("BROADCAST_RATE", "10"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("config: invalid BROADCAST_RATE %q", os.Getenv("BROADCAST_RATE"))
	}
	admins, err := ParseAdminIDs(os.Getenv("ADMIN_USER_IDS"))
	if err != nil {
		return nil, err
	}
	demo, err := strconv.ParseBool(getEnv("WALLET_DEMO_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid WALLET_DEMO_MODE: %w", err)
	}

	secret := os.Getenv("XENDIT_SECRET_KEY")
	if secret == "" {
		secret = os.Getenv("XENDIT_API_KEY")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit:    int(rateLimit),
		},
		Telegram: TelegramConfig{
			BotToken:      os.Getenv("BOT_TOKEN"),
			WebhookURL:    os.Getenv("WEBHOOK_URL"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		},
		Xendit: XenditConfig{
			BaseURL:       getEnv("XENDIT_BASE_URL", "https://api.xendit.co"),
			SecretKey:     secret,
			CallbackToken: os.Getenv("XENDIT_CALLBACK_TOKEN"),
			Timeout:       xenditTimeout,
			Currency:      getEnv("CURRENCY", "PHP"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DATABASE_DSN", "root:@tcp(localhost:3306)/walletbot?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
		},
		Ledger: LedgerConfig{
			Path:         getEnv("LEDGER_FILE", "users.json"),
			HistoryLimit: int(historyLimit),
		},
		Flow: FlowConfig{
			TopUpMinimum:    topUpMin,
			WithdrawMinimum: withdrawMin,
			FeeBasisPoints:  feeBps,
			MaxAmount:       maxAmount,
			SessionTTL:      sessionTTL,
			SweepInterval:   time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "wallet.ledger"),
		},
		Broadcast: BroadcastConfig{
			RatePerSecond: rate,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Admin: AdminConfig{
			UserIDs: admins,
		},
		Wallet: WalletConfig{
			DemoMode: demo,
		},
	}, nil
}

// ParseAdminIDs parses a comma-separated list of numeric user ids, dropping duplicates.
func ParseAdminIDs(raw string) ([]int64, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid admin user id %q", part)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q", key, v)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q", key, v)
	}
	return d, nil
}
