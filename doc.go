// Package economy provides a virtual-economy ledger and purchase
// reconciliation engine for Go applications.
//
// Economy is designed as a library, not a service. Import it directly into
// your application. It provides:
//
//   - A read-only item catalog of currencies, goods, currency packs, and
//     managed market items
//   - A durable ledger of balances, good ownership, and equip state with
//     memory, SQLite, PostgreSQL, and MongoDB drivers
//   - Atomic multi-currency purchases: every debit and the good credit
//     succeed together or nothing is written
//   - Exactly-once reconciliation of market purchase and refund
//     notifications via an applied-order journal
//   - A one-shot restore flag that suppresses duplicate restore requests
//   - A typed plugin hook system for purchase and lifecycle events
//
// # Quick Start
//
// Create an engine over a catalog and your preferred ledger store:
//
//	import (
//	    economy "github.com/xraph/economy"
//	    "github.com/xraph/economy/catalog"
//	    "github.com/xraph/economy/store/memory"
//	)
//
//	cat, err := catalog.LoadJSON(assetsJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := economy.New(cat, memory.New())
//	if err := s.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close(ctx)
//
// Spend currency on a good:
//
//	if err := s.BuyGood(ctx, "sword"); err != nil {
//	    var short *economy.InsufficientFundsError
//	    if errors.As(err, &short) {
//	        // short.CurrencyID names the first short currency in the
//	        // good's declared price order
//	    }
//	}
//
// # Reconciliation
//
// Market notifications funnel through the engine, which is the single writer
// of ledger state. Each order is applied at most once regardless of how many
// times the market redelivers it:
//
//	s.ApplyPurchase(ctx, billing.Notification{
//	    ProductID: "coins_1000",
//	    OrderID:   order,
//	})
//
// Refunds emit events but never claw balances back.
//
// # Concurrency
//
// Application-initiated calls and billing-transport callbacks race on shared
// ledger state. One mutex inside the engine serializes every
// read-then-write operation; catalog reads and transport calls stay outside
// the critical section.
//
// # TypeID
//
// Journal entries use TypeID for globally unique, type-safe identifiers:
//
//	rcpt_01h2xcejqtf2nbrexx3vqjhp41  // Receipt ID
//	order_01h455vb4pex5vsknk084sn02q // Sandbox order ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entries.
package economy
