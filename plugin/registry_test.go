package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/economy/plugin"
)

type basePlugin struct {
	name string
}

func (p *basePlugin) Name() string { return p.name }

type purchasePlugin struct {
	basePlugin
	mu        sync.Mutex
	purchases []string
	equips    []string
}

func (p *purchasePlugin) OnMarketPurchase(ctx context.Context, productID, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purchases = append(p.purchases, productID)
	return nil
}

func (p *purchasePlugin) OnGoodEquipped(ctx context.Context, goodID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.equips = append(p.equips, goodID)
	return nil
}

type failingPlugin struct {
	basePlugin
}

func (p *failingPlugin) OnMarketPurchase(ctx context.Context, productID, orderID string) error {
	return errors.New("boom")
}

type slowPlugin struct {
	basePlugin
	block chan struct{}
}

func (p *slowPlugin) OnMarketPurchase(ctx context.Context, productID, orderID string) error {
	<-p.block
	return nil
}

func TestRegister(t *testing.T) {
	t.Run("registers and lists", func(t *testing.T) {
		r := plugin.NewRegistry()

		if err := r.Register(&purchasePlugin{basePlugin: basePlugin{name: "p1"}}); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(&basePlugin{name: "p2"}); err != nil {
			t.Fatal(err)
		}

		if r.Count() != 2 {
			t.Errorf("count = %d, want 2", r.Count())
		}
		if r.Get("p1") == nil || r.Get("p2") == nil {
			t.Error("registered plugin not found")
		}
		if r.Get("ghost") != nil {
			t.Error("unknown plugin found")
		}
		if len(r.List()) != 2 {
			t.Errorf("list = %d, want 2", len(r.List()))
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		r := plugin.NewRegistry()

		if err := r.Register(&basePlugin{name: "dup"}); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(&basePlugin{name: "dup"}); err == nil {
			t.Fatal("expected duplicate registration error")
		}
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("only implementing plugins receive events", func(t *testing.T) {
		r := plugin.NewRegistry()
		p := &purchasePlugin{basePlugin: basePlugin{name: "p1"}}

		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(&basePlugin{name: "bare"}); err != nil {
			t.Fatal(err)
		}

		r.EmitMarketPurchase(ctx, "com.example.coins1000", "order-1")
		r.EmitGoodEquipped(ctx, "sword")
		r.EmitGoodUnequipped(ctx, "sword") // nobody implements this

		p.mu.Lock()
		defer p.mu.Unlock()
		if len(p.purchases) != 1 || p.purchases[0] != "com.example.coins1000" {
			t.Errorf("purchases = %v", p.purchases)
		}
		if len(p.equips) != 1 || p.equips[0] != "sword" {
			t.Errorf("equips = %v", p.equips)
		}
	})

	t.Run("hook failure does not stop other plugins", func(t *testing.T) {
		r := plugin.NewRegistry()
		p := &purchasePlugin{basePlugin: basePlugin{name: "ok"}}

		if err := r.Register(&failingPlugin{basePlugin{name: "bad"}}); err != nil {
			t.Fatal(err)
		}
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}

		r.EmitMarketPurchase(ctx, "com.example.coins1000", "order-1")

		p.mu.Lock()
		defer p.mu.Unlock()
		if len(p.purchases) != 1 {
			t.Errorf("purchases = %v, healthy plugin starved by failing one", p.purchases)
		}
	})

	t.Run("context cancellation bounds a blocked hook", func(t *testing.T) {
		r := plugin.NewRegistry()
		slow := &slowPlugin{basePlugin: basePlugin{name: "slow"}, block: make(chan struct{})}
		defer close(slow.block)

		if err := r.Register(slow); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		r.EmitMarketPurchase(ctx, "com.example.coins1000", "order-1")
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("emit blocked for %v", elapsed)
		}
	})
}
