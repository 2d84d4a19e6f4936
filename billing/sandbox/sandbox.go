// Package sandbox provides an in-process billing.Service for tests and local
// development. Purchases resolve immediately and synchronously; there is no
// network and no real market behind it.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/economy/billing"
	"github.com/xraph/economy/id"
)

// nowFn is swapped in tests.
var nowFn = time.Now

// Service is an in-process billing transport. Every requested purchase
// succeeds unless the product was primed with Cancel or Fail. Completed
// purchases are remembered and redelivered by RestoreTransactions.
type Service struct {
	mu        sync.Mutex
	state     billing.ConnectionState
	obs       billing.Observer
	supported bool

	canceled  map[string]bool
	failing   map[string]bool
	completed []billing.Notification
}

var _ billing.Service = (*Service)(nil)

// Option configures the sandbox service.
type Option func(*Service)

// WithSupported sets whether the sandbox reports billing support. Defaults
// to true.
func WithSupported(supported bool) Option {
	return func(s *Service) { s.supported = supported }
}

// New creates a sandbox billing service.
func New(opts ...Option) *Service {
	s := &Service{
		state:     billing.Disconnected,
		supported: true,
		canceled:  make(map[string]bool),
		failing:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cancel primes the next purchase of productID to end as user-canceled.
func (s *Service) Cancel(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled[productID] = true
}

// Fail primes the next purchase of productID to fail at the transport level.
func (s *Service) Fail(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[productID] = true
}

// Refund delivers a refund notification for a previously completed purchase.
// It returns false when no completed purchase matches productID.
func (s *Service) Refund(ctx context.Context, productID string) bool {
	s.mu.Lock()
	var found *billing.Notification
	for i := range s.completed {
		if s.completed[i].ProductID == productID {
			found = &s.completed[i]
			break
		}
	}
	obs := s.obs
	s.mu.Unlock()

	if found == nil || obs == nil {
		return false
	}
	obs.PurchaseStateChanged(ctx, billing.StateRefunded, *found)
	return true
}

// Start registers the observer and marks the service connected. Idempotent.
func (s *Service) Start(ctx context.Context, obs billing.Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == billing.Connected {
		return nil
	}
	s.state = billing.Connecting
	s.obs = obs
	s.state = billing.Connected
	return nil
}

// Stop marks the service disconnected. Idempotent.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == billing.Disconnected {
		return nil
	}
	s.state = billing.Disconnected
	s.obs = nil
	return nil
}

// State returns the current connection state.
func (s *Service) State() billing.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CheckSupported reports the configured support flag to the observer.
func (s *Service) CheckSupported(ctx context.Context) error {
	s.mu.Lock()
	obs, supported := s.obs, s.supported
	s.mu.Unlock()

	if obs == nil {
		return fmt.Errorf("sandbox: not started")
	}
	obs.BillingSupported(ctx, supported)
	return nil
}

// RequestPurchase resolves the purchase synchronously. Success delivers a
// purchased notification with a fresh order id, then an OK response.
func (s *Service) RequestPurchase(ctx context.Context, productID string) error {
	s.mu.Lock()
	if s.state != billing.Connected || s.obs == nil {
		s.mu.Unlock()
		return fmt.Errorf("sandbox: not started")
	}
	obs := s.obs

	if s.failing[productID] {
		delete(s.failing, productID)
		s.mu.Unlock()
		obs.PurchaseResponse(ctx, productID, billing.ResponseError)
		return nil
	}
	if s.canceled[productID] {
		delete(s.canceled, productID)
		s.mu.Unlock()
		obs.PurchaseResponse(ctx, productID, billing.ResponseUserCanceled)
		return nil
	}

	n := billing.Notification{
		ProductID: productID,
		OrderID:   id.NewOrderID().String(),
		Time:      nowFn(),
	}
	s.completed = append(s.completed, n)
	s.mu.Unlock()

	obs.PurchaseStateChanged(ctx, billing.StatePurchased, n)
	obs.PurchaseResponse(ctx, productID, billing.ResponseOK)
	return nil
}

// RestoreTransactions redelivers every completed purchase, then reports OK.
func (s *Service) RestoreTransactions(ctx context.Context) error {
	s.mu.Lock()
	if s.state != billing.Connected || s.obs == nil {
		s.mu.Unlock()
		return fmt.Errorf("sandbox: not started")
	}
	obs := s.obs
	completed := make([]billing.Notification, len(s.completed))
	copy(completed, s.completed)
	s.mu.Unlock()

	for _, n := range completed {
		obs.PurchaseStateChanged(ctx, billing.StatePurchased, n)
	}
	obs.RestoreResponse(ctx, billing.ResponseOK)
	return nil
}
