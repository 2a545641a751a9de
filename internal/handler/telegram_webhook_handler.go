package handler

import (
	"net/http"

	"walletbot/internal/bot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Submitter queues one inbound chat update for background handling.
type Submitter interface {
	Submit(upd bot.Update)
}

type TelegramWebhookHandler struct {
	updates Submitter
	log     *logrus.Logger
}

func NewTelegramWebhookHandler(updates Submitter, log *logrus.Logger) *TelegramWebhookHandler {
	return &TelegramWebhookHandler{updates: updates, log: log}
}

// Handle acknowledges the update immediately and dispatches it in the background.
// Telegram retries any update that is not answered with 200.
func (h *TelegramWebhookHandler) Handle(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}
	upd, ok := bot.FromTelegram(u)
	if !ok {
		h.log.WithField("update_id", u.UpdateID).Debug("ignoring unsupported update")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	h.updates.Submit(upd)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
