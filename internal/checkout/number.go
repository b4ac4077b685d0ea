package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/storage"
)

// StoreNumbers allocates ORD_YYYYMMDD_NNN numbers from a per-day counter
// document. The counter is read-modify-written as a whole document, like
// everything else in the store.
type StoreNumbers struct {
	store storage.Store
}

func NewStoreNumbers(store storage.Store) *StoreNumbers {
	return &StoreNumbers{store: store}
}

type counterDoc struct {
	Counter int `json:"counter"`
}

func (n *StoreNumbers) Next(ctx context.Context, day time.Time) (string, error) {
	key := storage.SequenceKey(day)
	var doc counterDoc
	if err := n.store.Get(ctx, key, &doc); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	doc.Counter++
	if err := n.store.Put(ctx, key, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD_%s_%03d", day.Format("20060102"), doc.Counter), nil
}
