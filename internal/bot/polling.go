package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// RunPolling long-polls the Bot API and submits each update to the async
// dispatcher until ctx is done. The caller drains in-flight updates with a.Wait.
func RunPolling(ctx context.Context, api *tgbotapi.BotAPI, a *AsyncDispatcher, log *logrus.Logger) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := api.GetUpdatesChan(cfg)
	log.WithField("bot", api.Self.UserName).Info("polling for telegram updates")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			upd, ok := FromTelegram(u)
			if !ok {
				continue
			}
			a.Submit(upd)
		}
	}
}

// SetWebhook registers url with the Bot API. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func SetWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
