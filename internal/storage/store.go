// Package storage persists application state as whole JSON documents under
// fixed keys, the way the browser original kept them in localStorage. Reads
// and writes replace entire documents; two writers on the same key are not
// coordinated (last write wins).
package storage

import (
	"context"
	"time"

	"pizzeria-system/internal/domain"
)

// Fixed document keys. Carts and sequences add a suffix.
const (
	KeyCheckoutHistory = "order_history"
	KeyTableHistory    = "table_order_history"
	KeyKitchenQueue    = "kitchen_queue"
	KeyAcceptedOrders  = "accepted_orders"
)

func CartKey(c domain.Context) string { return "cart_" + string(c) }

func SequenceKey(day time.Time) string { return "order_seq_" + day.Format("20060102") }

type Store interface {
	// Get unmarshals the document at key into the given value.
	// Returns domain.ErrNotFound when no document exists.
	Get(ctx context.Context, key string, into any) error
	// Put replaces the document at key.
	Put(ctx context.Context, key string, doc any) error
	Delete(ctx context.Context, key string) error
}
