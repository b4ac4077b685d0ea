// Package history keeps bounded, newest-first order histories: one for the
// checkout flow and one for table (QR) orders. Entries beyond the cap are
// evicted oldest-first.
package history

import (
	"context"
	"errors"
	"log/slog"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/storage"
)

type Service struct {
	store       storage.Store
	log         *slog.Logger
	checkoutCap int
	tableCap    int
}

func NewService(store storage.Store, log *slog.Logger, checkoutCap, tableCap int) *Service {
	if checkoutCap <= 0 {
		checkoutCap = 10
	}
	if tableCap <= 0 {
		tableCap = 50
	}
	return &Service{store: store, log: log, checkoutCap: checkoutCap, tableCap: tableCap}
}

// Append prepends the record to the history matching its context and trims
// to the cap. Persistence failures are logged and returned; the caller
// treats them as non-fatal.
func (s *Service) Append(ctx context.Context, record domain.OrderRecord) error {
	key, limit := s.bucket(record.Context)

	var records []domain.OrderRecord
	if err := s.store.Get(ctx, key, &records); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Error("history_load_failed", "key", key, "error", err.Error())
	}

	// de-duplicate by order id: a retried submission must not produce a
	// second history entry
	for _, r := range records {
		if r.ID == record.ID {
			return nil
		}
	}

	records = append([]domain.OrderRecord{record}, records...)
	if len(records) > limit {
		records = records[:limit]
	}
	if err := s.store.Put(ctx, key, records); err != nil {
		s.log.Error("history_save_failed", "key", key, "error", err.Error())
		return err
	}
	return nil
}

// Recent returns the stored history for a context's bucket, newest first.
func (s *Service) Recent(ctx context.Context, c domain.Context) []domain.OrderRecord {
	key, _ := s.bucket(c)
	var records []domain.OrderRecord
	if err := s.store.Get(ctx, key, &records); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("history_load_failed", "key", key, "error", err.Error())
		}
		return nil
	}
	return records
}

func (s *Service) bucket(c domain.Context) (string, int) {
	if c == domain.TakeawayContext {
		return storage.KeyCheckoutHistory, s.checkoutCap
	}
	return storage.KeyTableHistory, s.tableCap
}
