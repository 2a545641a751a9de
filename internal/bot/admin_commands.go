package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"walletbot/internal/repository"
	"walletbot/internal/service"
)

const adminHelpText = `🛡 Admin commands

/admin_stats - Bot statistics
/admin_list - List administrators
/user_list - First 20 users
/add_admin <user_id> - Grant admin
/remove_admin <user_id> - Revoke admin
/admin_add_funds <user_id> <amount> - Credit a user's wallet
/wallet_stats - Wallet totals
/broadcast <message> - Prepare a broadcast to all users
/broadcast_confirm - Send the prepared broadcast
/broadcast_cancel - Drop the prepared broadcast
/broadcast_test <message> - Send to admins only
/admin_shutdown - Stop the bot`

const userListLimit = 20

func (d *Dispatcher) adminHelp(ctx context.Context, u service.User, _ Update) error {
	return d.reply(ctx, u, adminHelpText)
}

func (d *Dispatcher) adminStats(ctx context.Context, u service.User, _ Update) error {
	st := d.wallet.Stats()
	return d.reply(ctx, u, fmt.Sprintf("📊 Bot statistics\n\nUsers: %d\nAdministrators: %d\nTotal balance: %s",
		st.TotalAccounts, d.admins.Count(), d.format(st.TotalBalanceCents)))
}

func (d *Dispatcher) adminList(ctx context.Context, u service.User, _ Update) error {
	var b strings.Builder
	b.WriteString("🛡 Administrators\n")
	for _, id := range d.admins.List() {
		line := strconv.FormatInt(id, 10)
		if acc, ok := d.wallet.Account(id); ok && acc.Username != "" {
			line += " (@" + acc.Username + ")"
		}
		if id == u.ID {
			line += " - you"
		}
		b.WriteString("\n" + line)
	}
	return d.reply(ctx, u, b.String())
}

func (d *Dispatcher) userList(ctx context.Context, u service.User, _ Update) error {
	accounts := d.wallet.Accounts()
	if len(accounts) == 0 {
		return d.reply(ctx, u, "No users yet.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Users (%d total)\n", len(accounts))
	for i, a := range accounts {
		if i == userListLimit {
			fmt.Fprintf(&b, "\n... and %d more", len(accounts)-userListLimit)
			break
		}
		name := a.FirstName
		if a.Username != "" {
			name += " @" + a.Username
		}
		fmt.Fprintf(&b, "\n%d. %d %s (%s)", i+1, a.UserID, strings.TrimSpace(name), d.format(a.BalanceCents))
	}
	return d.reply(ctx, u, b.String())
}

func (d *Dispatcher) addAdmin(ctx context.Context, u service.User, upd Update) error {
	id, err := strconv.ParseInt(strings.TrimSpace(upd.Args), 10, 64)
	if err != nil {
		return d.reply(ctx, u, "Usage: /add_admin <user_id>")
	}
	if !d.admins.Add(id) {
		return d.reply(ctx, u, fmt.Sprintf("User %d is already an administrator.", id))
	}
	d.log.WithField("admin_id", u.ID).WithField("target_id", id).Info("admin added")
	return d.reply(ctx, u, fmt.Sprintf("✅ User %d is now an administrator.", id))
}

func (d *Dispatcher) removeAdmin(ctx context.Context, u service.User, upd Update) error {
	id, err := strconv.ParseInt(strings.TrimSpace(upd.Args), 10, 64)
	if err != nil {
		return d.reply(ctx, u, "Usage: /remove_admin <user_id>")
	}
	if id == u.ID {
		return d.reply(ctx, u, "❌ You cannot remove yourself as administrator.")
	}
	if !d.admins.Remove(id) {
		return d.reply(ctx, u, fmt.Sprintf("User %d is not an administrator.", id))
	}
	d.log.WithField("admin_id", u.ID).WithField("target_id", id).Info("admin removed")
	return d.reply(ctx, u, fmt.Sprintf("✅ User %d is no longer an administrator.", id))
}

func (d *Dispatcher) adminAddFunds(ctx context.Context, u service.User, upd Update) error {
	fields := strings.Fields(upd.Args)
	if len(fields) != 2 {
		return d.reply(ctx, u, "Usage: /admin_add_funds <user_id> <amount>")
	}
	target, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return d.reply(ctx, u, "❌ Invalid user id.")
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return d.reply(ctx, u, "❌ Invalid amount. Use a positive number with up to two decimals.")
	}
	adminName := u.Username
	if adminName == "" {
		adminName = strconv.FormatInt(u.ID, 10)
	}
	bal, err := d.wallet.AdminCredit(ctx, target, amount, adminName)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return d.reply(ctx, u, fmt.Sprintf("❌ User %d has no wallet yet.", target))
	}
	if err != nil {
		return err
	}
	if err := d.sender.SendText(ctx, target, fmt.Sprintf("💰 An administrator added %s to your wallet.\nNew balance: %s", d.format(amount), d.format(bal))); err != nil {
		d.log.WithError(err).WithField("user_id", target).Warn("failed to notify credited user")
	}
	return d.reply(ctx, u, fmt.Sprintf("✅ Added %s to user %d. New balance: %s", d.format(amount), target, d.format(bal)))
}

func (d *Dispatcher) walletStats(ctx context.Context, u service.User, _ Update) error {
	st := d.wallet.Stats()
	return d.reply(ctx, u, fmt.Sprintf("💼 Wallet statistics\n\nAccounts: %d\nFunded accounts: %d\nTotal balance: %s\nAverage balance: %s",
		st.TotalAccounts, st.FundedAccounts, d.format(st.TotalBalanceCents), d.format(st.AverageBalanceCents)))
}

func (d *Dispatcher) broadcast(ctx context.Context, u service.User, upd Update) error {
	pb, err := d.broadcasts.Prepare(u.ID, upd.Args)
	switch {
	case errors.Is(err, service.ErrEmptyBroadcast):
		return d.reply(ctx, u, "Usage: /broadcast <message>")
	case errors.Is(err, service.ErrNoRecipients):
		return d.reply(ctx, u, "❌ There are no users to broadcast to.")
	case err != nil:
		return err
	}
	return d.reply(ctx, u, fmt.Sprintf("📢 Broadcast preview\n\n%s\n\nRecipients: %d users (plus administrators)\n\nSend /broadcast_confirm to send or /broadcast_cancel to drop it.",
		pb.Message, len(pb.Recipients)))
}

func (d *Dispatcher) broadcastConfirm(ctx context.Context, u service.User, _ Update) error {
	if _, ok := d.broadcasts.Pending(u.ID); !ok {
		return d.reply(ctx, u, "❌ No pending broadcast. Use /broadcast <message> first.")
	}
	statusID, err := d.sender.SendStatus(ctx, u.ChatID, "📤 Sending broadcast...")
	if err != nil {
		return err
	}
	report, err := d.broadcasts.Confirm(ctx, u.ID)
	if errors.Is(err, service.ErrNoPendingBroadcast) {
		return d.sender.EditText(ctx, u.ChatID, statusID, "❌ No pending broadcast.")
	}
	if err != nil {
		return err
	}
	return d.sender.EditText(ctx, u.ChatID, statusID, fmt.Sprintf("✅ Broadcast finished\n\nSent: %d\nFailed: %d\nTotal: %d",
		report.Sent, len(report.Failed), report.Total))
}

func (d *Dispatcher) broadcastCancel(ctx context.Context, u service.User, _ Update) error {
	if !d.broadcasts.Cancel(u.ID) {
		return d.reply(ctx, u, "No pending broadcast.")
	}
	return d.reply(ctx, u, "❎ Broadcast cancelled.")
}

func (d *Dispatcher) broadcastTest(ctx context.Context, u service.User, upd Update) error {
	report, err := d.broadcasts.Test(ctx, upd.Args)
	switch {
	case errors.Is(err, service.ErrEmptyBroadcast):
		return d.reply(ctx, u, "Usage: /broadcast_test <message>")
	case err != nil:
		return err
	}
	return d.reply(ctx, u, fmt.Sprintf("🧪 Test broadcast sent to %d of %d administrators.", report.Sent, report.Total))
}

func (d *Dispatcher) adminShutdown(ctx context.Context, u service.User, _ Update) error {
	d.log.WithField("admin_id", u.ID).Warn("shutdown requested")
	err := d.reply(ctx, u, "🛑 Shutting down.")
	if d.opts.Shutdown != nil {
		d.opts.Shutdown()
	}
	return err
}
