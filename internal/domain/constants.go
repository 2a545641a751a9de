package domain

// Ledger transaction types.
const (
	TxDeposit     = "deposit"
	TxWithdrawal  = "withdrawal"
	TxAdminCredit = "admin_credit"
	TxManual      = "manual"
)

// Payment intent statuses, mirrored from Xendit invoice statuses.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentSettled = "SETTLED"
	PaymentExpired = "EXPIRED"
	PaymentFailed  = "FAILED"
)

// Withdrawal statuses, mirrored from Xendit disbursement statuses.
const (
	WithdrawalPending   = "PENDING"
	WithdrawalCompleted = "COMPLETED"
	WithdrawalFailed    = "FAILED"
)

const (
	MethodQRPH        = "qrph"
	MethodPaymentLink = "payment_link"
)

const ProviderXendit = "xendit"

// Xendit payment method code for QR Ph invoices.
const XenditMethodQRPH = "QRPH"
