package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletbot/config"
	"walletbot/internal/bot"
	"walletbot/internal/database"
	"walletbot/internal/events"
	"walletbot/internal/handler"
	"walletbot/internal/logger"
	"walletbot/internal/metrics"
	"walletbot/internal/middleware"
	"walletbot/internal/repository"
	"walletbot/internal/router"
	"walletbot/internal/service"
	"walletbot/internal/session"
	"walletbot/pkg/payment"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Telegram.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	payments := repository.NewPaymentRepository(db)
	withdrawals := repository.NewWithdrawalRepository(db)
	ledger := repository.NewLedgerRepository(cfg.Ledger.Path, log)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQ, log)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		publisher = amqpPub
	} else {
		log.Info("RABBITMQ_URL not set, ledger events are not published")
	}
	defer publisher.Close()

	var gateway payment.Gateway
	if cfg.Xendit.SecretKey != "" {
		gateway = payment.NewXenditClient(cfg.Xendit.BaseURL, cfg.Xendit.SecretKey, cfg.Xendit.Timeout, log)
	} else {
		log.Warn("XENDIT_SECRET_KEY not set, using stub payment gateway")
		gateway = &payment.StubGateway{}
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	log.WithField("bot", api.Self.UserName).Info("telegram bot authorized")
	sender := bot.NewTelegramSender(api)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	sessions := session.NewStore(cfg.Flow.SessionTTL)
	wallet := service.NewWalletService(ledger, publisher, log)
	admins := service.NewAdminRegistry(cfg.Admin.UserIDs)
	flow := service.NewFlowService(cfg.Flow, cfg.Xendit.Currency, sessions, gateway, wallet, payments, withdrawals, sender, log)
	settlement := service.NewSettlementService(wallet, payments, withdrawals, sender, cfg.Xendit.Currency, log)
	broadcasts := service.NewBroadcastService(wallet, admins, sender, cfg.Broadcast.RatePerSecond, log)
	dispatcher := bot.NewDispatcher(wallet, flow, admins, broadcasts, sender, bot.Options{
		Currency:     cfg.Xendit.Currency,
		HistoryLimit: cfg.Ledger.HistoryLimit,
		DemoMode:     cfg.Wallet.DemoMode,
		Shutdown:     shutdown,
	}, log)
	if len(cfg.Admin.UserIDs) == 0 {
		log.Warn("ADMIN_USER_IDS is empty, admin commands are unavailable")
	}

	g, gctx := errgroup.WithContext(ctx)
	updates := bot.NewAsyncDispatcher(gctx, dispatcher)

	handlers := router.Handlers{Xendit: handler.NewXenditWebhookHandler(settlement, log)}
	webhook := cfg.Telegram.WebhookURL != ""
	if webhook {
		handlers.Telegram = handler.NewTelegramWebhookHandler(updates, log)
		if err := bot.SetWebhook(api, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			log.Fatalf("telegram: %v", err)
		}
		log.WithField("url", cfg.Telegram.WebhookURL).Info("telegram webhook registered")
	}
	limiter := middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, time.Minute)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(cfg, limiter, handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sessions.Run(gctx, cfg.Flow.SweepInterval, func(removed int) {
			if removed > 0 {
				log.WithField("removed", removed).Debug("expired flows swept")
			}
			metrics.PendingFlows.Set(float64(sessions.Len()))
		})
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	if !webhook {
		g.Go(func() error {
			return bot.RunPolling(gctx, api, updates, log)
		})
	}

	err = g.Wait()
	updates.Wait()
	if err != nil {
		log.WithError(err).Error("server stopped with error")
		publisher.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}
