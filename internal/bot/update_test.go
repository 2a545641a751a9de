package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message() *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		Date:      1700000000,
		From:      &tgbotapi.User{ID: 42, FirstName: "Ana", UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
	}
}

func TestFromTelegramText(t *testing.T) {
	msg := message()
	msg.Text = "hello"
	upd, ok := FromTelegram(tgbotapi.Update{UpdateID: 7, Message: msg})
	require.True(t, ok)
	assert.Equal(t, int64(42), upd.UserID)
	assert.Equal(t, "hello", upd.Text)
	assert.Empty(t, upd.Command)
	assert.Nil(t, upd.Photo)
	assert.Nil(t, upd.Document)
}

func TestFromTelegramPicksLargestPhoto(t *testing.T) {
	msg := message()
	msg.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, Height: 51},
		{FileID: "medium", Width: 320, Height: 180},
		{FileID: "large", Width: 1280, Height: 720},
	}
	upd, ok := FromTelegram(tgbotapi.Update{Message: msg})
	require.True(t, ok)
	require.NotNil(t, upd.Photo)
	assert.Equal(t, Photo{FileID: "large", Width: 1280, Height: 720}, *upd.Photo)
	assert.Empty(t, upd.Text)
}

func TestFromTelegramDocument(t *testing.T) {
	msg := message()
	msg.Document = &tgbotapi.Document{FileID: "doc", FileName: "receipt.pdf", FileSize: 20480}
	upd, ok := FromTelegram(tgbotapi.Update{Message: msg})
	require.True(t, ok)
	require.NotNil(t, upd.Document)
	assert.Equal(t, Document{FileID: "doc", FileName: "receipt.pdf", FileSize: 20480}, *upd.Document)
}

func TestFromTelegramIgnoresOtherUpdates(t *testing.T) {
	_, ok := FromTelegram(tgbotapi.Update{UpdateID: 1})
	assert.False(t, ok)

	sticker := message()
	_, ok = FromTelegram(tgbotapi.Update{Message: sticker})
	assert.False(t, ok, "message without text or attachment")

	anon := message()
	anon.From = nil
	anon.Text = "hi"
	_, ok = FromTelegram(tgbotapi.Update{Message: anon})
	assert.False(t, ok)
}
