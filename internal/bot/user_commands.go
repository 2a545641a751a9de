package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walletbot/internal/models"
	"walletbot/internal/money"
	"walletbot/internal/service"
)

const helpText = `🤖 Available commands

/start - Welcome message
/help - This help
/info - Your account details

💰 Wallet
/wallet - Show your balance
/wallet_history - Recent transactions
/topup - Add funds via QRPh or payment link
/withdraw - Withdraw to your payout account
/payout_account <bank_code> <account_number> <holder name> - Set where withdrawals go
/wallet_withdraw <amount> <bank_code> <account_number> <holder name> - Withdraw to any account
/cancel - Cancel a top-up or withdrawal in progress

Anything else you send is echoed back.`

func (d *Dispatcher) start(ctx context.Context, u service.User, upd Update) error {
	name := upd.FirstName
	if name == "" {
		name = "there"
	}
	msg := fmt.Sprintf("👋 Hello %s!\n\nWelcome to the wallet bot. Your wallet is ready with a balance of %s.\n\n"+
		"Use /topup to add funds, /wallet to check your balance and /help for everything else.",
		name, d.format(d.wallet.Balance(u.ID)))
	if d.admins.IsAdmin(u.ID) {
		msg += "\n\n🛡 You are an administrator. See /admin_help."
	}
	return d.reply(ctx, u, msg)
}

func (d *Dispatcher) help(ctx context.Context, u service.User, _ Update) error {
	return d.reply(ctx, u, helpText)
}

func (d *Dispatcher) info(ctx context.Context, u service.User, upd Update) error {
	acc, ok := d.wallet.Account(u.ID)
	if !ok {
		return d.reply(ctx, u, "No account found. Send /start first.")
	}
	username := "none"
	if acc.Username != "" {
		username = "@" + acc.Username
	}
	role := "user"
	if d.admins.IsAdmin(u.ID) {
		role = "administrator"
	}
	return d.reply(ctx, u, fmt.Sprintf("ℹ️ Your information\n\nUser ID: %d\nChat ID: %d\nUsername: %s\nFirst name: %s\nRole: %s\nBalance: %s\nTransactions: %d\nJoined: %s",
		acc.UserID, upd.ChatID, username, acc.FirstName, role, d.format(acc.BalanceCents),
		len(acc.Transactions), acc.JoinedAt.Format("2006-01-02 15:04")))
}

func (d *Dispatcher) walletBalance(ctx context.Context, u service.User, _ Update) error {
	return d.reply(ctx, u, fmt.Sprintf("💰 Your wallet\n\nBalance: %s\n\n/topup to add funds, /withdraw to cash out, /wallet_history for recent activity.",
		d.format(d.wallet.Balance(u.ID))))
}

func (d *Dispatcher) walletHistory(ctx context.Context, u service.User, _ Update) error {
	txs := d.wallet.History(u.ID, d.opts.HistoryLimit)
	if len(txs) == 0 {
		return d.reply(ctx, u, "📜 No transactions yet.")
	}
	var b strings.Builder
	b.WriteString("📜 Recent transactions\n")
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		fmt.Fprintf(&b, "\n%s %s (%s)\n%s\nBalance after: %s\n",
			money.FormatSigned(tx.AmountCents), d.opts.Currency, tx.Type,
			tx.CreatedAt.Format("2006-01-02 15:04"), d.format(tx.BalanceAfterCents))
		if tx.Description != "" {
			fmt.Fprintf(&b, "%s\n", tx.Description)
		}
	}
	return d.reply(ctx, u, strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) walletDeposit(ctx context.Context, u service.User, upd Update) error {
	if !d.opts.DemoMode {
		return d.reply(ctx, u, "Deposits are made with a real payment. Send /topup to pay via QRPh or payment link.")
	}
	amount, err := parseAmount(upd.Args)
	if err != nil {
		return d.reply(ctx, u, "Usage: /wallet_deposit <amount>\nExample: /wallet_deposit 50.00")
	}
	bal, err := d.wallet.Deposit(ctx, u.ID, amount, "Demo deposit", "")
	if err != nil {
		return d.reply(ctx, u, "❌ Deposit failed: "+err.Error())
	}
	return d.reply(ctx, u, fmt.Sprintf("✅ Deposited %s\nNew balance: %s", d.format(amount), d.format(bal)))
}

func (d *Dispatcher) walletWithdraw(ctx context.Context, u service.User, upd Update) error {
	fields := strings.Fields(upd.Args)
	if len(fields) < 4 {
		return d.reply(ctx, u, "Usage: /wallet_withdraw <amount> <bank_code> <account_number> <holder name>\nExample: /wallet_withdraw 250.00 BDO 001234567890 Juan Dela Cruz")
	}
	amount, err := parseAmount(fields[0])
	if err != nil {
		return d.reply(ctx, u, "❌ Invalid amount. Use a positive number with up to two decimals.")
	}
	payout := models.PayoutAccount{
		BankCode:          strings.ToUpper(fields[1]),
		AccountNumber:     fields[2],
		AccountHolderName: strings.Join(fields[3:], " "),
	}
	return d.flow.DirectWithdraw(ctx, u, amount, payout)
}

func (d *Dispatcher) payoutAccount(ctx context.Context, u service.User, upd Update) error {
	fields := strings.Fields(upd.Args)
	if len(fields) == 0 {
		acc, ok := d.wallet.Account(u.ID)
		if ok && acc.Payout != nil {
			return d.reply(ctx, u, fmt.Sprintf("🏦 Payout account\n\nBank: %s\nAccount: %s\nHolder: %s\n\nSend /payout_account <bank_code> <account_number> <holder name> to change it.",
				acc.Payout.BankCode, acc.Payout.AccountNumber, acc.Payout.AccountHolderName))
		}
	}
	if len(fields) < 3 {
		return d.reply(ctx, u, "Usage: /payout_account <bank_code> <account_number> <holder name>\nExample: /payout_account BDO 001234567890 Juan Dela Cruz")
	}
	payout := models.PayoutAccount{
		BankCode:          fields[0],
		AccountNumber:     fields[1],
		AccountHolderName: strings.Join(fields[2:], " "),
	}
	if err := d.wallet.SetPayoutAccount(u.ID, payout); err != nil {
		if errors.Is(err, service.ErrInvalidPayout) {
			return d.reply(ctx, u, "❌ "+err.Error())
		}
		return err
	}
	return d.reply(ctx, u, fmt.Sprintf("✅ Payout account saved: %s %s (%s). Use /withdraw to cash out.",
		strings.ToUpper(payout.BankCode), payout.AccountNumber, payout.AccountHolderName))
}

func (d *Dispatcher) topUp(ctx context.Context, u service.User, upd Update) error {
	return d.flow.StartTopUp(ctx, u, upd.Args)
}

func (d *Dispatcher) withdraw(ctx context.Context, u service.User, _ Update) error {
	return d.flow.StartWithdraw(ctx, u)
}

func (d *Dispatcher) cancel(ctx context.Context, u service.User, _ Update) error {
	_, err := d.flow.Cancel(ctx, u)
	return err
}

// parseAmount parses a positive decimal amount into cents.
func parseAmount(s string) (int64, error) {
	cents, err := money.ParseCents(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, service.ErrInvalidAmount
	}
	return cents, nil
}
