// Package billing defines the market billing transport contract. The economy
// engine talks to the market (purchase requests, restore requests) through a
// Service and receives asynchronous results through an Observer. Transports
// own explicit connection state and expose idempotent Start/Stop.
package billing

import (
	"context"
	"time"
)

// PurchaseState describes the terminal state of a market purchase as reported
// by the transport.
type PurchaseState int

const (
	// StatePurchased means the market confirmed the purchase.
	StatePurchased PurchaseState = iota
	// StateCanceled means the user abandoned the purchase flow.
	StateCanceled
	// StateRefunded means a previously confirmed purchase was refunded.
	StateRefunded
)

// String returns the state name for logging.
func (s PurchaseState) String() string {
	switch s {
	case StatePurchased:
		return "purchased"
	case StateCanceled:
		return "canceled"
	case StateRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// ResponseCode is the transport-level outcome of a request.
type ResponseCode int

const (
	// ResponseOK means the request completed successfully.
	ResponseOK ResponseCode = iota
	// ResponseUserCanceled means the user backed out of the request.
	ResponseUserCanceled
	// ResponseError means the transport failed the request.
	ResponseError
)

// String returns the code name for logging.
func (c ResponseCode) String() string {
	switch c {
	case ResponseOK:
		return "ok"
	case ResponseUserCanceled:
		return "user_canceled"
	case ResponseError:
		return "error"
	default:
		return "unknown"
	}
}

// ConnectionState is the lifecycle state of a transport.
type ConnectionState int

const (
	// Disconnected means the transport is not running.
	Disconnected ConnectionState = iota
	// Connecting means Start was called and the transport is coming up.
	Connecting
	// Connected means the transport is usable.
	Connected
)

// String returns the connection state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Notification is an asynchronous purchase or refund report delivered by the
// transport. OrderID is the market's unique order identifier; reconciliation
// uses it for exactly-once application.
type Notification struct {
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id"`
	Time      time.Time `json:"time"`
}

// Observer receives asynchronous results from a Service. The economy engine
// implements this interface.
type Observer interface {
	// BillingSupported reports whether the market supports in-app billing.
	BillingSupported(ctx context.Context, supported bool)

	// PurchaseStateChanged reports a purchase reaching a terminal state.
	PurchaseStateChanged(ctx context.Context, state PurchaseState, n Notification)

	// PurchaseResponse reports the transport-level outcome of a purchase
	// request.
	PurchaseResponse(ctx context.Context, productID string, code ResponseCode)

	// RestoreResponse reports the outcome of a restore-transactions request.
	RestoreResponse(ctx context.Context, code ResponseCode)
}

// Service is a market billing transport. Implementations deliver results to
// the Observer passed at Start; delivery happens outside any engine lock.
type Service interface {
	// Start brings the transport up and registers the observer. Calling
	// Start on a running transport is a no-op.
	Start(ctx context.Context, obs Observer) error

	// Stop tears the transport down. Calling Stop on a stopped transport is
	// a no-op.
	Stop(ctx context.Context) error

	// State returns the current connection state.
	State() ConnectionState

	// CheckSupported asks the market whether billing is available and
	// reports the answer through Observer.BillingSupported.
	CheckSupported(ctx context.Context) error

	// RequestPurchase starts a market purchase flow for the product. The
	// result arrives through the Observer.
	RequestPurchase(ctx context.Context, productID string) error

	// RestoreTransactions asks the market to redeliver past purchases. Each
	// redelivered purchase arrives as a PurchaseStateChanged notification,
	// followed by a RestoreResponse.
	RestoreTransactions(ctx context.Context) error
}
