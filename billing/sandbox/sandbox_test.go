package sandbox_test

import (
	"context"
	"sync"
	"testing"

	"github.com/xraph/economy/billing"
	"github.com/xraph/economy/billing/sandbox"
)

// observer collects everything the transport delivers.
type observer struct {
	mu        sync.Mutex
	supported []bool
	states    []billing.PurchaseState
	notifs    []billing.Notification
	responses []billing.ResponseCode
	restores  []billing.ResponseCode
}

func (o *observer) BillingSupported(ctx context.Context, supported bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.supported = append(o.supported, supported)
}

func (o *observer) PurchaseStateChanged(ctx context.Context, state billing.PurchaseState, n billing.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
	o.notifs = append(o.notifs, n)
}

func (o *observer) PurchaseResponse(ctx context.Context, productID string, code billing.ResponseCode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses = append(o.responses, code)
}

func (o *observer) RestoreResponse(ctx context.Context, code billing.ResponseCode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restores = append(o.restores, code)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("start and stop are idempotent", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}

		if svc.State() != billing.Disconnected {
			t.Fatalf("initial state = %v", svc.State())
		}

		for i := 0; i < 2; i++ {
			if err := svc.Start(ctx, obs); err != nil {
				t.Fatalf("Start #%d: %v", i, err)
			}
		}
		if svc.State() != billing.Connected {
			t.Fatalf("state after start = %v", svc.State())
		}

		for i := 0; i < 2; i++ {
			if err := svc.Stop(ctx); err != nil {
				t.Fatalf("Stop #%d: %v", i, err)
			}
		}
		if svc.State() != billing.Disconnected {
			t.Fatalf("state after stop = %v", svc.State())
		}
	})

	t.Run("requests fail when not started", func(t *testing.T) {
		svc := sandbox.New()

		if err := svc.RequestPurchase(ctx, "p"); err == nil {
			t.Error("RequestPurchase succeeded while disconnected")
		}
		if err := svc.RestoreTransactions(ctx); err == nil {
			t.Error("RestoreTransactions succeeded while disconnected")
		}
		if err := svc.CheckSupported(ctx); err == nil {
			t.Error("CheckSupported succeeded while disconnected")
		}
	})
}

func TestPurchases(t *testing.T) {
	ctx := context.Background()

	t.Run("success delivers notification then ok", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		if err := svc.RequestPurchase(ctx, "com.example.coins1000"); err != nil {
			t.Fatal(err)
		}

		if len(obs.states) != 1 || obs.states[0] != billing.StatePurchased {
			t.Fatalf("states = %v", obs.states)
		}
		n := obs.notifs[0]
		if n.ProductID != "com.example.coins1000" {
			t.Errorf("product = %q", n.ProductID)
		}
		if n.OrderID == "" {
			t.Error("order id not assigned")
		}
		if len(obs.responses) != 1 || obs.responses[0] != billing.ResponseOK {
			t.Errorf("responses = %v", obs.responses)
		}
	})

	t.Run("distinct orders per purchase", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 2; i++ {
			if err := svc.RequestPurchase(ctx, "p"); err != nil {
				t.Fatal(err)
			}
		}
		if obs.notifs[0].OrderID == obs.notifs[1].OrderID {
			t.Error("order ids collide")
		}
	})

	t.Run("primed cancel delivers user-canceled once", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		svc.Cancel("p")
		if err := svc.RequestPurchase(ctx, "p"); err != nil {
			t.Fatal(err)
		}
		if len(obs.responses) != 1 || obs.responses[0] != billing.ResponseUserCanceled {
			t.Fatalf("responses = %v", obs.responses)
		}
		if len(obs.states) != 0 {
			t.Errorf("states = %v, canceled purchase must not report a purchase", obs.states)
		}

		// The priming is consumed; the next purchase succeeds.
		if err := svc.RequestPurchase(ctx, "p"); err != nil {
			t.Fatal(err)
		}
		if len(obs.states) != 1 || obs.states[0] != billing.StatePurchased {
			t.Fatalf("states after retry = %v", obs.states)
		}
	})

	t.Run("primed failure delivers error response", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		svc.Fail("p")
		if err := svc.RequestPurchase(ctx, "p"); err != nil {
			t.Fatal(err)
		}
		if len(obs.responses) != 1 || obs.responses[0] != billing.ResponseError {
			t.Fatalf("responses = %v", obs.responses)
		}
	})
}

func TestRestoreAndRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("restore redelivers completed purchases", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		if err := svc.RequestPurchase(ctx, "a"); err != nil {
			t.Fatal(err)
		}
		if err := svc.RequestPurchase(ctx, "b"); err != nil {
			t.Fatal(err)
		}

		before := len(obs.notifs)
		if err := svc.RestoreTransactions(ctx); err != nil {
			t.Fatal(err)
		}

		if got := len(obs.notifs) - before; got != 2 {
			t.Errorf("redelivered = %d, want 2", got)
		}
		if len(obs.restores) != 1 || obs.restores[0] != billing.ResponseOK {
			t.Errorf("restores = %v", obs.restores)
		}
	})

	t.Run("refund reuses the original order", func(t *testing.T) {
		svc := sandbox.New()
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		if err := svc.RequestPurchase(ctx, "a"); err != nil {
			t.Fatal(err)
		}
		order := obs.notifs[0].OrderID

		if !svc.Refund(ctx, "a") {
			t.Fatal("refund not delivered")
		}
		last := obs.notifs[len(obs.notifs)-1]
		if obs.states[len(obs.states)-1] != billing.StateRefunded {
			t.Errorf("last state = %v", obs.states[len(obs.states)-1])
		}
		if last.OrderID != order {
			t.Errorf("refund order = %q, want %q", last.OrderID, order)
		}

		if svc.Refund(ctx, "ghost") {
			t.Error("refund for unknown product delivered")
		}
	})

	t.Run("configured support flag is reported", func(t *testing.T) {
		svc := sandbox.New(sandbox.WithSupported(false))
		obs := &observer{}
		if err := svc.Start(ctx, obs); err != nil {
			t.Fatal(err)
		}

		if err := svc.CheckSupported(ctx); err != nil {
			t.Fatal(err)
		}
		if len(obs.supported) != 1 || obs.supported[0] {
			t.Errorf("supported = %v, want [false]", obs.supported)
		}
	})
}
