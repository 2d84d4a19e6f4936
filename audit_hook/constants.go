package audithook

// Action constants for audit events.
const (
	// Market actions
	ActionMarketPurchaseStarted   = "market.purchase.started"
	ActionMarketPurchase          = "market.purchase.applied"
	ActionMarketPurchaseCancelled = "market.purchase.cancelled"
	ActionMarketRefund            = "market.refund"

	// Goods actions
	ActionGoodsPurchased  = "goods.purchased"
	ActionGoodEquipped    = "goods.equipped"
	ActionGoodUnequipped  = "goods.unequipped"
	ActionBalanceChanged  = "balance.changed"
	ActionInsufficientPay = "purchase.insufficient_funds"

	// Billing actions
	ActionBillingSupported    = "billing.supported"
	ActionBillingNotSupported = "billing.not_supported"

	// Restore actions
	ActionRestoreStarted   = "restore.started"
	ActionRestoreCompleted = "restore.completed"
	ActionRestoreFailed    = "restore.failed"

	// Error actions
	ActionUnexpectedError = "error.unexpected"
)

// Resource constants for audit events.
const (
	ResourceMarketItem = "market_item"
	ResourceGood       = "good"
	ResourceCurrency   = "currency"
	ResourceBilling    = "billing"
	ResourceRestore    = "restore"
	ResourceEngine     = "engine"
)

// Category constants for audit events.
const (
	CategoryMarket  = "market"
	CategoryLedger  = "ledger"
	CategoryBilling = "billing"
	CategorySystem  = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
