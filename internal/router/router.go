package router

import (
	"walletbot/config"
	"walletbot/internal/handler"
	"walletbot/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Telegram *handler.TelegramWebhookHandler
	Xendit   *handler.XenditWebhookHandler
}

func Setup(cfg *config.Config, limiter *middleware.InMemoryRateLimiter, h Handlers) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())

	// Webhooks are exempt from the per-IP limit; they are gated by shared secret.
	public := r.Group("/", middleware.RateLimit(limiter))
	{
		public.GET("/health", handler.Health)
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if h.Telegram != nil {
		r.POST("/telegram/webhook",
			middleware.SharedSecret("X-Telegram-Bot-Api-Secret-Token", cfg.Telegram.WebhookSecret),
			h.Telegram.Handle)
	}

	xendit := r.Group("/webhooks/xendit", middleware.SharedSecret("x-callback-token", cfg.Xendit.CallbackToken))
	{
		xendit.POST("/invoice", h.Xendit.Invoice)
		xendit.POST("/disbursement", h.Xendit.Disbursement)
	}
	return r
}
