package bot

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is an inbound chat message reduced to what the dispatcher needs.
type Update struct {
	UpdateID  int
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
	Command   string // without the leading slash, empty for free text
	Args      string
	Date      time.Time
	Photo     *Photo
	Document  *Document
}

// Photo is the largest size Telegram offered for an inbound photo.
type Photo struct {
	FileID string
	Width  int
	Height int
}

type Document struct {
	FileID   string
	FileName string
	FileSize int64
}

// FromTelegram converts a Bot API update. Updates without a text, photo or
// document message from a user are reported as not ok.
func FromTelegram(u tgbotapi.Update) (Update, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Update{}, false
	}
	if msg.Text == "" && len(msg.Photo) == 0 && msg.Document == nil {
		return Update{}, false
	}
	upd := Update{
		UpdateID:  u.UpdateID,
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Text:      msg.Text,
		Date:      msg.Time(),
	}
	if n := len(msg.Photo); n > 0 {
		largest := msg.Photo[n-1]
		upd.Photo = &Photo{FileID: largest.FileID, Width: largest.Width, Height: largest.Height}
	}
	if doc := msg.Document; doc != nil {
		upd.Document = &Document{FileID: doc.FileID, FileName: doc.FileName, FileSize: int64(doc.FileSize)}
	}
	if msg.IsCommand() {
		upd.Command = strings.ToLower(msg.Command())
		upd.Args = strings.TrimSpace(msg.CommandArguments())
	}
	return upd, true
}

// ParseCommand splits "/cmd@bot args" into its parts. ok is false for free text.
func ParseCommand(text string) (command, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
