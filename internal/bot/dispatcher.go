package bot

import (
	"context"
	"fmt"
	"strings"

	"walletbot/internal/metrics"
	"walletbot/internal/money"
	"walletbot/internal/service"

	"github.com/sirupsen/logrus"
)

const adminDenied = "❌ Access denied. This command is for administrators only."

type Options struct {
	Currency     string
	HistoryLimit int
	// DemoMode lets /wallet_deposit credit the wallet directly.
	DemoMode bool
	// Shutdown is called by /admin_shutdown after the reply is sent.
	Shutdown func()
}

type handlerFunc func(ctx context.Context, u service.User, upd Update) error

type command struct {
	admin bool
	run   handlerFunc
}

// Dispatcher routes inbound updates to the wallet, flow, admin and broadcast
// services and replies through the Sender.
type Dispatcher struct {
	wallet     *service.WalletService
	flow       *service.FlowService
	admins     *service.AdminRegistry
	broadcasts *service.BroadcastService
	sender     Sender
	opts       Options
	log        *logrus.Logger
	commands   map[string]command
}

func NewDispatcher(
	wallet *service.WalletService,
	flow *service.FlowService,
	admins *service.AdminRegistry,
	broadcasts *service.BroadcastService,
	sender Sender,
	opts Options,
	log *logrus.Logger,
) *Dispatcher {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	d := &Dispatcher{
		wallet:     wallet,
		flow:       flow,
		admins:     admins,
		broadcasts: broadcasts,
		sender:     sender,
		opts:       opts,
		log:        log,
	}
	d.commands = map[string]command{
		"start":           {run: d.start},
		"help":            {run: d.help},
		"info":            {run: d.info},
		"wallet":          {run: d.walletBalance},
		"wallet_history":  {run: d.walletHistory},
		"wallet_deposit":  {run: d.walletDeposit},
		"wallet_withdraw": {run: d.walletWithdraw},
		"payout_account":  {run: d.payoutAccount},
		"topup":           {run: d.topUp},
		"withdraw":        {run: d.withdraw},
		"cancel":          {run: d.cancel},

		"admin_help":        {admin: true, run: d.adminHelp},
		"admin_stats":       {admin: true, run: d.adminStats},
		"admin_list":        {admin: true, run: d.adminList},
		"user_list":         {admin: true, run: d.userList},
		"add_admin":         {admin: true, run: d.addAdmin},
		"remove_admin":      {admin: true, run: d.removeAdmin},
		"admin_add_funds":   {admin: true, run: d.adminAddFunds},
		"wallet_stats":      {admin: true, run: d.walletStats},
		"broadcast":         {admin: true, run: d.broadcast},
		"broadcast_confirm": {admin: true, run: d.broadcastConfirm},
		"broadcast_cancel":  {admin: true, run: d.broadcastCancel},
		"broadcast_test":    {admin: true, run: d.broadcastTest},
		"admin_shutdown":    {admin: true, run: d.adminShutdown},
	}
	return d
}

// Dispatch handles one update. Errors are logged, never returned, so one bad
// update cannot stop the update loop.
func (d *Dispatcher) Dispatch(ctx context.Context, upd Update) {
	if upd.Command == "" && strings.HasPrefix(upd.Text, "/") {
		upd.Command, upd.Args, _ = ParseCommand(upd.Text)
	}
	u := service.User{ID: upd.UserID, ChatID: upd.ChatID, Username: upd.Username, FirstName: upd.FirstName}
	d.wallet.Touch(u)

	label := "text"
	switch {
	case upd.Photo != nil:
		label = "photo"
	case upd.Document != nil:
		label = "document"
	case upd.Command != "":
		label = upd.Command
	}
	entry := d.log.WithFields(logrus.Fields{"user_id": upd.UserID, "chat_id": upd.ChatID, "command": label})
	entry.Info("inbound message")

	var err error
	if upd.Photo != nil || upd.Document != nil {
		metrics.InboundUpdates.WithLabelValues(label).Inc()
		err = d.attachment(ctx, u, upd)
	} else if upd.Command == "" {
		metrics.InboundUpdates.WithLabelValues("text").Inc()
		err = d.text(ctx, u, upd)
	} else if cmd, ok := d.commands[upd.Command]; !ok {
		metrics.InboundUpdates.WithLabelValues("unknown").Inc()
		err = d.reply(ctx, u, "Unknown command. Send /help to see what I can do.")
	} else {
		metrics.InboundUpdates.WithLabelValues(upd.Command).Inc()
		if cmd.admin && !d.admins.IsAdmin(u.ID) {
			entry.Warn("unauthorized admin command")
			err = d.reply(ctx, u, adminDenied)
		} else {
			err = cmd.run(ctx, u, upd)
		}
	}
	if err != nil {
		entry.WithError(err).Error("failed to handle message")
	}
}

func (d *Dispatcher) text(ctx context.Context, u service.User, upd Update) error {
	handled, err := d.flow.HandleText(ctx, u, upd.Text)
	if handled || err != nil {
		return err
	}
	name := upd.FirstName
	if upd.LastName != "" {
		name += " " + upd.LastName
	}
	username := "none"
	if upd.Username != "" {
		username = "@" + upd.Username
	}
	return d.reply(ctx, u, fmt.Sprintf("You said: %s\n\nName: %s\nUsername: %s\nUser ID: %d\nBalance: %s",
		upd.Text, name, username, u.ID, d.format(d.wallet.Balance(u.ID))))
}

func (d *Dispatcher) attachment(ctx context.Context, u service.User, upd Update) error {
	if p := upd.Photo; p != nil {
		return d.reply(ctx, u, fmt.Sprintf("📸 Photo received from %s!\n🆔 File ID: %s\n📏 Size: %dx%d",
			upd.FirstName, p.FileID, p.Width, p.Height))
	}
	doc := upd.Document
	return d.reply(ctx, u, fmt.Sprintf("📄 Document received from %s!\n📝 Filename: %s\n📊 Size: %d bytes\n🆔 File ID: %s",
		upd.FirstName, doc.FileName, doc.FileSize, doc.FileID))
}

func (d *Dispatcher) reply(ctx context.Context, u service.User, text string) error {
	return d.sender.SendText(ctx, u.ChatID, text)
}

func (d *Dispatcher) format(cents int64) string {
	return money.Format(cents) + " " + d.opts.Currency
}
