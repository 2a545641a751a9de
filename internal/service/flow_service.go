package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"walletbot/config"
	"walletbot/internal/domain"
	"walletbot/internal/metrics"
	"walletbot/internal/models"
	"walletbot/internal/money"
	"walletbot/internal/session"
	"walletbot/pkg/payment"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Messenger delivers outbound chat messages.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

type PaymentStore interface {
	Create(p *models.Payment) error
	GetByProviderRef(ref string) (*models.Payment, error)
	GetPendingByExternalID(externalID string) (*models.Payment, error)
	Update(p *models.Payment) error
	// Transition moves a pending row to status and reports whether this call did it.
	Transition(id uint, status string, completedAt *time.Time) (bool, error)
}

type WithdrawalStore interface {
	Create(w *models.Withdrawal) error
	GetByProviderRef(ref string) (*models.Withdrawal, error)
	GetPendingByExternalID(externalID string) (*models.Withdrawal, error)
	Update(w *models.Withdrawal) error
	Transition(id uint, status, failureCode string, completedAt *time.Time) (bool, error)
}

// CalculateFee splits a non-negative whole-unit amount into fee and net. The fee
// is floored. basisPoints must be within 0..10000.
func CalculateFee(amount, basisPoints int64) (fee, net int64) {
	// amount*bps would overflow for large amounts; split amount by 10000 first.
	fee = amount/10000*basisPoints + amount%10000*basisPoints/10000
	return fee, amount - fee
}

// ParseMethod maps user input to a top-up method, or "" when it is not one.
func ParseMethod(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "qrph":
		return domain.MethodQRPH
	case "payment link", "payment_link", "link":
		return domain.MethodPaymentLink
	}
	return ""
}

// FlowService runs the conversational top-up and withdraw flows. Every entry point
// holds the user's session lock until its replies are sent.
type FlowService struct {
	cfg         config.FlowConfig
	currency    string
	sessions    *session.Store
	gateway     payment.Gateway
	wallet      *WalletService
	payments    PaymentStore
	withdrawals WithdrawalStore
	messenger   Messenger
	log         *logrus.Logger
}

func NewFlowService(
	cfg config.FlowConfig,
	currency string,
	sessions *session.Store,
	gateway payment.Gateway,
	wallet *WalletService,
	payments PaymentStore,
	withdrawals WithdrawalStore,
	messenger Messenger,
	log *logrus.Logger,
) *FlowService {
	if cfg.MaxAmount <= 0 || cfg.MaxAmount > config.MaxFlowAmount {
		cfg.MaxAmount = config.MaxFlowAmount
	}
	return &FlowService{
		cfg:         cfg,
		currency:    currency,
		sessions:    sessions,
		gateway:     gateway,
		wallet:      wallet,
		payments:    payments,
		withdrawals: withdrawals,
		messenger:   messenger,
		log:         log,
	}
}

func (s *FlowService) StartTopUp(ctx context.Context, u User, methodArg string) error {
	unlock := s.sessions.Lock(u.ID)
	defer unlock()
	defer s.syncGauge()

	metrics.FlowOutcomes.WithLabelValues("topup", "started").Inc()
	if method := ParseMethod(methodArg); method != "" {
		s.sessions.Set(u.ID, session.State{Kind: session.KindAwaitingTopUpAmount, Method: method})
		return s.messenger.SendText(ctx, u.ChatID, s.amountPrompt(method))
	}
	s.sessions.Set(u.ID, session.State{Kind: session.KindAwaitingTopUpMethod})
	return s.messenger.SendText(ctx, u.ChatID, "💳 Top up your wallet\n\n"+
		"How would you like to pay? Reply with one of:\n"+
		"• qrph\n"+
		"• payment link\n\n"+
		"Send /cancel to stop.")
}

func (s *FlowService) StartWithdraw(ctx context.Context, u User) error {
	unlock := s.sessions.Lock(u.ID)
	defer unlock()
	defer s.syncGauge()

	acc, ok := s.wallet.Account(u.ID)
	if !ok || acc.Payout == nil {
		metrics.FlowOutcomes.WithLabelValues("withdraw", "no_payout_account").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "🏦 No payout account on file.\n\n"+
			"Set one first with:\n/payout_account <bank_code> <account_number> <account holder name>")
	}
	metrics.FlowOutcomes.WithLabelValues("withdraw", "started").Inc()
	s.sessions.Set(u.ID, session.State{Kind: session.KindAwaitingWithdrawAmount})
	_, netExample := CalculateFee(s.cfg.WithdrawMinimum, s.cfg.FeeBasisPoints)
	return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("🏧 Withdraw to %s\n\n"+
		"Balance: %s\n"+
		"How much would you like to withdraw? Minimum is %s.\n"+
		"A %s fee applies, e.g. withdrawing %s pays out %s.\n\n"+
		"Send /cancel to stop.",
		describePayout(*acc.Payout),
		s.cents(acc.BalanceCents),
		s.whole(s.cfg.WithdrawMinimum),
		feePercent(s.cfg.FeeBasisPoints),
		s.whole(s.cfg.WithdrawMinimum),
		s.whole(netExample)))
}

// Cancel clears any pending flow and reports whether there was one.
func (s *FlowService) Cancel(ctx context.Context, u User) (bool, error) {
	unlock := s.sessions.Lock(u.ID)
	defer unlock()
	defer s.syncGauge()

	pending := s.sessions.Get(u.ID).Pending()
	s.sessions.Clear(u.ID)
	if !pending {
		return false, s.messenger.SendText(ctx, u.ChatID, "Nothing to cancel.")
	}
	metrics.FlowOutcomes.WithLabelValues("any", "cancelled").Inc()
	return true, s.messenger.SendText(ctx, u.ChatID, "❎ Cancelled.")
}

// Pending reports the user's current flow state.
func (s *FlowService) Pending(userID int64) session.State {
	return s.sessions.Get(userID)
}

// HandleText continues a pending flow. It returns false when the user has none,
// leaving the text to the caller.
func (s *FlowService) HandleText(ctx context.Context, u User, text string) (bool, error) {
	unlock := s.sessions.Lock(u.ID)
	defer unlock()
	defer s.syncGauge()

	st := s.sessions.Get(u.ID)
	switch st.Kind {
	case session.KindAwaitingTopUpMethod:
		return true, s.handleMethod(ctx, u, text)
	case session.KindAwaitingTopUpAmount:
		return true, s.handleTopUpAmount(ctx, u, st.Method, text)
	case session.KindAwaitingWithdrawAmount:
		return true, s.handleWithdrawAmount(ctx, u, text)
	}
	return false, nil
}

func (s *FlowService) handleMethod(ctx context.Context, u User, text string) error {
	method := ParseMethod(text)
	if method == "" {
		metrics.FlowOutcomes.WithLabelValues("topup", "invalid_method").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "Please reply with \"qrph\" or \"payment link\", or /cancel.")
	}
	s.sessions.Set(u.ID, session.State{Kind: session.KindAwaitingTopUpAmount, Method: method})
	return s.messenger.SendText(ctx, u.ChatID, s.amountPrompt(method))
}

func (s *FlowService) handleTopUpAmount(ctx context.Context, u User, method, text string) error {
	s.sessions.Clear(u.ID)
	entry := s.log.WithFields(logrus.Fields{"user_id": u.ID, "flow": "topup", "method": method})

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		metrics.FlowOutcomes.WithLabelValues("topup", "invalid_amount").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "❌ Invalid amount, expected a whole number like 150. Top-up cancelled, send /topup to try again.")
	}
	if amount < s.cfg.TopUpMinimum {
		metrics.FlowOutcomes.WithLabelValues("topup", "below_minimum").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Minimum top-up is %s. Top-up cancelled, send /topup to try again.", s.whole(s.cfg.TopUpMinimum)))
	}
	if amount > s.cfg.MaxAmount {
		metrics.FlowOutcomes.WithLabelValues("topup", "above_maximum").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Maximum top-up is %s. Top-up cancelled, send /topup to try again.", s.whole(s.cfg.MaxAmount)))
	}

	fee, net := CalculateFee(amount, s.cfg.FeeBasisPoints)
	req := payment.InvoiceRequest{
		ExternalID:  payment.InvoiceExternalID(u.ID, amount),
		AmountCents: money.FromWhole(amount),
		Currency:    s.currency,
		Description: fmt.Sprintf("Wallet top-up for Telegram user %d", u.ID),
	}
	if method == domain.MethodQRPH {
		req.PaymentMethods = []string{domain.XenditMethodQRPH}
	}
	entry = entry.WithFields(logrus.Fields{"external_id": req.ExternalID, "amount": amount})

	start := time.Now()
	inv, err := s.gateway.CreateInvoice(ctx, req)
	observeProvider("create_invoice", start, err)
	if err != nil {
		entry.WithError(err).Error("invoice creation failed")
		metrics.FlowOutcomes.WithLabelValues("topup", "provider_error").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "⚠️ Could not create your payment right now. Please try again later.")
	}

	link := inv.InvoiceURL
	if method == domain.MethodQRPH {
		link = inv.QRCodeURL
	}
	if link == "" {
		entry.WithField("invoice_id", inv.ID).Error("invoice has no usable url for method")
		metrics.FlowOutcomes.WithLabelValues("topup", "missing_url").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "⚠️ The payment provider did not return a usable payment link. Please try again later.")
	}

	intent := &models.Payment{
		UserID:      u.ID,
		ChatID:      u.ChatID,
		AmountCents: money.FromWhole(amount),
		FeeCents:    money.FromWhole(fee),
		NetCents:    money.FromWhole(net),
		Currency:    s.currency,
		Method:      method,
		Provider:    domain.ProviderXendit,
		ProviderRef: inv.ID,
		ExternalID:  req.ExternalID,
		Status:      domain.PaymentPending,
		InvoiceURL:  inv.InvoiceURL,
	}
	if !inv.ExpiresAt.IsZero() {
		exp := inv.ExpiresAt
		intent.ExpiresAt = &exp
	}
	if err := s.payments.Create(intent); err != nil {
		entry.WithError(err).Error("failed to record payment intent")
		metrics.FlowOutcomes.WithLabelValues("topup", "record_error").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "⚠️ Could not create your payment right now. Please try again later.")
	}

	summary := fmt.Sprintf("Amount: %s\nFee: %s\nYou will receive: %s", s.whole(amount), s.whole(fee), s.whole(net))
	metrics.FlowOutcomes.WithLabelValues("topup", "invoice_sent").Inc()
	entry.WithField("invoice_id", inv.ID).Info("top-up invoice created")
	if method == domain.MethodQRPH {
		return s.messenger.SendPhoto(ctx, u.ChatID, link, "📷 Scan to pay with QRPh\n\n"+summary+"\n\nYour wallet is credited once the payment is confirmed.")
	}
	return s.messenger.SendText(ctx, u.ChatID, "🔗 Pay here: "+link+"\n\n"+summary+"\n\nYour wallet is credited once the payment is confirmed.")
}

func (s *FlowService) handleWithdrawAmount(ctx context.Context, u User, text string) error {
	s.sessions.Clear(u.ID)

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		metrics.FlowOutcomes.WithLabelValues("withdraw", "invalid_amount").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "❌ Invalid amount, expected a whole number like 1500. Withdrawal cancelled, send /withdraw to try again.")
	}
	if amount < s.cfg.WithdrawMinimum {
		metrics.FlowOutcomes.WithLabelValues("withdraw", "below_minimum").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Minimum withdrawal is %s. Withdrawal cancelled, send /withdraw to try again.", s.whole(s.cfg.WithdrawMinimum)))
	}
	if amount > s.cfg.MaxAmount {
		metrics.FlowOutcomes.WithLabelValues("withdraw", "above_maximum").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Maximum withdrawal is %s. Withdrawal cancelled, send /withdraw to try again.", s.whole(s.cfg.MaxAmount)))
	}
	acc, ok := s.wallet.Account(u.ID)
	if !ok || acc.Payout == nil {
		metrics.FlowOutcomes.WithLabelValues("withdraw", "no_payout_account").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "🏦 No payout account on file. Set one with /payout_account first.")
	}

	fee, net := CalculateFee(amount, s.cfg.FeeBasisPoints)
	return s.submitWithdrawal(ctx, u, withdrawalRequest{
		flow:       "withdraw",
		externalID: payment.DisbursementExternalID(u.ID, amount),
		grossCents: money.FromWhole(amount),
		feeCents:   money.FromWhole(fee),
		netCents:   money.FromWhole(net),
		payout:     *acc.Payout,
	})
}

// DirectWithdraw pays out the full amount to the given account without a fee.
func (s *FlowService) DirectWithdraw(ctx context.Context, u User, amountCents int64, payout models.PayoutAccount) error {
	unlock := s.sessions.Lock(u.ID)
	defer unlock()
	defer s.syncGauge()

	if amountCents <= 0 {
		return s.messenger.SendText(ctx, u.ChatID, "❌ Amount must be greater than 0.")
	}
	if amountCents > money.FromWhole(s.cfg.MaxAmount) {
		metrics.FlowOutcomes.WithLabelValues("wallet_withdraw", "above_maximum").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Maximum withdrawal is %s.", s.whole(s.cfg.MaxAmount)))
	}
	return s.submitWithdrawal(ctx, u, withdrawalRequest{
		flow:       "wallet_withdraw",
		externalID: payment.DisbursementExternalIDCents(u.ID, amountCents),
		grossCents: amountCents,
		netCents:   amountCents,
		payout:     payout,
	})
}

type withdrawalRequest struct {
	flow       string
	externalID string
	grossCents int64
	feeCents   int64
	netCents   int64
	payout     models.PayoutAccount
}

func (s *FlowService) submitWithdrawal(ctx context.Context, u User, wr withdrawalRequest) error {
	entry := s.log.WithFields(logrus.Fields{"user_id": u.ID, "flow": wr.flow, "external_id": wr.externalID})

	if bal := s.wallet.Balance(u.ID); bal < wr.grossCents {
		metrics.FlowOutcomes.WithLabelValues(wr.flow, "insufficient_funds").Inc()
		return s.messenger.SendText(ctx, u.ChatID, fmt.Sprintf("❌ Insufficient funds. Your balance is %s.", s.cents(bal)))
	}

	start := time.Now()
	disb, err := s.gateway.CreateDisbursement(ctx, payment.DisbursementRequest{
		ExternalID:        wr.externalID,
		AmountCents:       wr.netCents,
		BankCode:          wr.payout.BankCode,
		AccountNumber:     wr.payout.AccountNumber,
		AccountHolderName: wr.payout.AccountHolderName,
		Description:       fmt.Sprintf("Wallet withdrawal for Telegram user %d", u.ID),
		IdempotencyKey:    uuid.New().String(),
	})
	observeProvider("create_disbursement", start, err)
	if err != nil {
		entry.WithError(err).Error("disbursement failed")
		metrics.FlowOutcomes.WithLabelValues(wr.flow, "provider_error").Inc()
		return s.messenger.SendText(ctx, u.ChatID, "❌ Withdrawal failed: the payout provider rejected the request. Your balance was not changed.")
	}
	entry = entry.WithFields(logrus.Fields{"disbursement_id": disb.ID, "status": disb.Status})

	desc := fmt.Sprintf("Withdrawal to %s", describePayout(wr.payout))
	if wr.feeCents > 0 {
		desc += fmt.Sprintf(" (fee %s)", money.Format(wr.feeCents))
	}
	debited := wr.grossCents
	balance, err := s.wallet.Withdraw(ctx, u.ID, wr.grossCents, desc, disb.ID)
	if err != nil {
		// The provider already accepted the payout; the record keeps it traceable.
		entry.WithError(err).Error("ledger debit failed after disbursement was accepted")
		debited = 0
		balance = s.wallet.Balance(u.ID)
	}

	rec := &models.Withdrawal{
		UserID:            u.ID,
		ChatID:            u.ChatID,
		ExternalID:        wr.externalID,
		DebitedCents:      debited,
		AmountCents:       wr.netCents,
		FeeCents:          wr.feeCents,
		BankCode:          wr.payout.BankCode,
		AccountNumber:     wr.payout.AccountNumber,
		AccountHolderName: wr.payout.AccountHolderName,
		Status:            domain.WithdrawalPending,
		ProviderRef:       disb.ID,
	}
	if err := s.withdrawals.Create(rec); err != nil {
		entry.WithError(err).Error("failed to record withdrawal")
	}

	metrics.FlowOutcomes.WithLabelValues(wr.flow, "submitted").Inc()
	entry.Info("withdrawal submitted")
	msg := fmt.Sprintf("✅ Withdrawal submitted to %s\n\nAmount: %s\n", describePayout(wr.payout), s.cents(wr.grossCents))
	if wr.feeCents > 0 {
		msg += fmt.Sprintf("Fee: %s\nYou will receive: %s\n", s.cents(wr.feeCents), s.cents(wr.netCents))
	}
	msg += fmt.Sprintf("Status: %s\nNew balance: %s", disb.Status, s.cents(balance))
	return s.messenger.SendText(ctx, u.ChatID, msg)
}

func (s *FlowService) amountPrompt(method string) string {
	label := "payment link"
	if method == domain.MethodQRPH {
		label = "QRPh"
	}
	_, net := CalculateFee(s.cfg.TopUpMinimum, s.cfg.FeeBasisPoints)
	return fmt.Sprintf("You chose %s.\n\nHow much would you like to top up? Minimum is %s.\n"+
		"A %s fee applies, e.g. topping up %s credits %s.",
		label, s.whole(s.cfg.TopUpMinimum), feePercent(s.cfg.FeeBasisPoints), s.whole(s.cfg.TopUpMinimum), s.whole(net))
}

func (s *FlowService) whole(amount int64) string {
	return fmt.Sprintf("%d %s", amount, s.currency)
}

func (s *FlowService) cents(amountCents int64) string {
	return money.Format(amountCents) + " " + s.currency
}

func (s *FlowService) syncGauge() {
	metrics.PendingFlows.Set(float64(s.sessions.Len()))
}

func observeProvider(op string, start time.Time, err error) {
	metrics.ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ProviderRequests.WithLabelValues(op, result).Inc()
}

func feePercent(bps int64) string {
	return strconv.FormatFloat(float64(bps)/100, 'f', -1, 64) + "%"
}

func describePayout(p models.PayoutAccount) string {
	return p.BankCode + " " + maskAccount(p.AccountNumber)
}

func maskAccount(n string) string {
	if len(n) <= 4 {
		return n
	}
	return "****" + n[len(n)-4:]
}
