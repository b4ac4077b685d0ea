// Package outbox is the durable retry queue for order submissions: the
// intent is persisted to disk before the hand-off is attempted and removed
// only after confirmed success, so a crash or an unreachable kitchen never
// loses an order. Replay preserves the original submission order.
package outbox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/beeker1121/goque"

	"pizzeria-system/internal/domain"
)

type Outbox struct {
	mu sync.Mutex
	q  *goque.Queue
}

// Open creates or reopens the disk-backed queue under dir.
func Open(dir string) (*Outbox, error) {
	q, err := goque.OpenQueue(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open outbox: %v", domain.ErrPersistence, err)
	}
	return &Outbox{q: q}, nil
}

func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.q.Close()
}

// Enqueue appends an order record to the tail.
func (o *Outbox) Enqueue(rec domain.OrderRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.q.EnqueueObjectAsJSON(rec); err != nil {
		return fmt.Errorf("%w: enqueue %s: %v", domain.ErrPersistence, rec.Number, err)
	}
	return nil
}

// Head returns the oldest pending record without removing it. The second
// return is false when the queue is empty.
func (o *Outbox) Head() (domain.OrderRecord, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, err := o.q.Peek()
	if errors.Is(err, goque.ErrEmpty) {
		return domain.OrderRecord{}, false, nil
	}
	if err != nil {
		return domain.OrderRecord{}, false, fmt.Errorf("%w: peek outbox: %v", domain.ErrPersistence, err)
	}
	var rec domain.OrderRecord
	if err := item.ToObjectFromJSON(&rec); err != nil {
		return domain.OrderRecord{}, false, fmt.Errorf("%w: decode outbox head: %v", domain.ErrPersistence, err)
	}
	return rec, true, nil
}

// RemoveHead drops the oldest entry. Called after the hand-off succeeded or
// the entry exhausted its attempts.
func (o *Outbox) RemoveHead() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.q.Dequeue(); err != nil && !errors.Is(err, goque.ErrEmpty) {
		return fmt.Errorf("%w: dequeue outbox: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (o *Outbox) Len() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.q.Length()
}

// Cancel removes every pending entry for one ordering context, e.g. when the
// customer clears the cart before a retry went through. Entries for other
// contexts keep their relative order.
func (o *Outbox) Cancel(c domain.Context) (removed int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.q.Length()
	for i := uint64(0); i < n; i++ {
		item, err := o.q.Dequeue()
		if errors.Is(err, goque.ErrEmpty) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("%w: rotate outbox: %v", domain.ErrPersistence, err)
		}
		var rec domain.OrderRecord
		if derr := item.ToObjectFromJSON(&rec); derr != nil || rec.Context == c {
			removed++
			continue
		}
		if _, err := o.q.EnqueueObjectAsJSON(rec); err != nil {
			return removed, fmt.Errorf("%w: rotate outbox: %v", domain.ErrPersistence, err)
		}
	}
	return removed, nil
}
