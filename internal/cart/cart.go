// Package cart holds the per-context shopping cart. Items are identified by
// (product id, category); each mutation is persisted as a whole document so
// a reload sees the latest cart for its context.
package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/pricing"
	"pizzeria-system/internal/storage"
)

type Service struct {
	store storage.Store
	log   *slog.Logger
}

func NewService(store storage.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Load reads the cart for one context. A missing document or a persistence
// failure yields an empty cart; the flow degrades instead of crashing.
func (s *Service) Load(ctx context.Context, c domain.Context) []domain.CartItem {
	var items []domain.CartItem
	err := s.store.Get(ctx, storage.CartKey(c), &items)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		s.log.Error("cart_load_failed", "context", string(c), "error", err.Error())
		return nil
	}
	return items
}

func (s *Service) save(ctx context.Context, c domain.Context, items []domain.CartItem) error {
	if err := s.store.Put(ctx, storage.CartKey(c), items); err != nil {
		s.log.Error("cart_save_failed", "context", string(c), "error", err.Error())
		return err
	}
	return nil
}

// Add appends a line or bumps the quantity of an existing (id, category)
// line. Quantity must be at least 1.
func (s *Service) Add(ctx context.Context, c domain.Context, item domain.CartItem) ([]domain.CartItem, error) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.Category == "" {
		item.Category = domain.DefaultCategory
	}
	items := s.Load(ctx, c)
	found := false
	for i := range items {
		if items[i].ID == item.ID && items[i].Category == item.Category {
			items[i].Quantity += item.Quantity
			if item.Note != "" {
				items[i].Note = item.Note
			}
			found = true
			break
		}
	}
	if !found {
		items = append(items, item)
	}
	return items, s.save(ctx, c, items)
}

// UpdateQuantity sets the quantity of a line. Zero or below removes it:
// the cart never holds a zero-quantity entry.
func (s *Service) UpdateQuantity(ctx context.Context, c domain.Context, id, category string, quantity int) ([]domain.CartItem, error) {
	if category == "" {
		category = domain.DefaultCategory
	}
	if quantity <= 0 {
		return s.Remove(ctx, c, id, category)
	}
	items := s.Load(ctx, c)
	for i := range items {
		if items[i].ID == id && items[i].Category == category {
			items[i].Quantity = quantity
			break
		}
	}
	return items, s.save(ctx, c, items)
}

func (s *Service) Remove(ctx context.Context, c domain.Context, id, category string) ([]domain.CartItem, error) {
	if category == "" {
		category = domain.DefaultCategory
	}
	items := s.Load(ctx, c)
	kept := items[:0]
	for _, it := range items {
		if !(it.ID == id && it.Category == category) {
			kept = append(kept, it)
		}
	}
	return kept, s.save(ctx, c, kept)
}

// Clear drops the cart document for the context.
func (s *Service) Clear(ctx context.Context, c domain.Context) error {
	if err := s.store.Delete(ctx, storage.CartKey(c)); err != nil {
		s.log.Error("cart_clear_failed", "context", string(c), "error", err.Error())
		return err
	}
	return nil
}

// Snapshot returns a copy of the cart safe to hand to checkout; later cart
// mutations do not leak into an assembled order.
func (s *Service) Snapshot(ctx context.Context, c domain.Context) []domain.CartItem {
	items := s.Load(ctx, c)
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}

func ItemCount(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func Subtotal(items []domain.CartItem) decimal.Decimal {
	return pricing.Subtotal(items)
}
