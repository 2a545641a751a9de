package models

import "time"

// Account is one user's ledger record, keyed by Telegram user id in the ledger file.
type Account struct {
	UserID       int64          `json:"user_id"`
	Username     string         `json:"username"`
	FirstName    string         `json:"first_name"`
	BalanceCents int64          `json:"balance_cents"`
	Transactions []Transaction  `json:"transactions"`
	Payout       *PayoutAccount `json:"payout,omitempty"`
	JoinedAt     time.Time      `json:"joined_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

// Transaction is an append-only ledger entry. AmountCents is signed: positive = credit.
type Transaction struct {
	AmountCents        int64     `json:"amount_cents"`
	Type               string    `json:"type"` // deposit, withdrawal, admin_credit, manual
	Description        string    `json:"description"`
	Reference          string    `json:"reference,omitempty"` // provider id when the entry settles a payment
	CreatedAt          time.Time `json:"created_at"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
}

// PayoutAccount is the bank destination used by the conversational withdrawal.
type PayoutAccount struct {
	BankCode          string `json:"bank_code"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

// Clone returns a deep copy so callers cannot mutate ledger state.
func (a *Account) Clone() *Account {
	c := *a
	c.Transactions = append([]Transaction(nil), a.Transactions...)
	if a.Payout != nil {
		p := *a.Payout
		c.Payout = &p
	}
	return &c
}
