// Package kitchen maintains the kitchen order queue. Every order advances
// through pending → preparing → ready → completed; each transition is an
// atomic read-modify-write against the persisted queue document and is
// rejected with ErrInvalidTransition when the precondition state no longer
// matches.
package kitchen

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/metrics"
	"pizzeria-system/internal/storage"
)

type queueDoc struct {
	Pending   []domain.KitchenOrder `json:"pending"`
	Preparing []domain.KitchenOrder `json:"preparing"`
	Ready     []domain.KitchenOrder `json:"ready"`
	Completed []domain.KitchenOrder `json:"completed"`
}

// Stats are recomputed on demand from the retained completed orders rather
// than maintained incrementally, so a missed update can never make them
// drift.
type Stats struct {
	Pending        int             `json:"pending"`
	Preparing      int             `json:"preparing"`
	Ready          int             `json:"ready"`
	CompletedToday int             `json:"completed_today"`
	Revenue        decimal.Decimal `json:"revenue"`
	AvgPrepMinutes int             `json:"avg_prep_minutes"`
}

type Queue struct {
	store     storage.Store
	log       *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu sync.Mutex // serializes transitions; same-order transitions never interleave
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func NewQueue(store storage.Store, log *slog.Logger, retention time.Duration, opts ...Option) *Queue {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	q := &Queue{store: store, log: log, retention: retention, now: time.Now}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Accept adds a submitted order to the pending list. Redelivered messages
// for an order already in the queue are ignored.
func (q *Queue) Accept(ctx context.Context, msg domain.OrderMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := q.load(ctx)
	if _, _, found := locate(&doc, msg.OrderID); found {
		q.log.Debug("kitchen_duplicate_ignored", "order", msg.OrderNumber)
		return nil
	}
	items := make([]domain.CartItem, len(msg.Items))
	for i, it := range msg.Items {
		items[i] = domain.CartItem{Name: it.Name, UnitPrice: it.Price, Quantity: it.Quantity, Note: it.Note}
	}
	doc.Pending = append(doc.Pending, domain.KitchenOrder{
		OrderID:    msg.OrderID,
		Number:     msg.OrderNumber,
		Context:    msg.Context,
		Type:       msg.OrderType,
		Items:      items,
		Total:      msg.TotalAmount,
		Priority:   msg.Priority,
		Status:     domain.KitchenPending,
		ReceivedAt: q.now().UTC(),
	})
	if err := q.save(ctx, doc); err != nil {
		return err
	}
	q.log.Info("kitchen_order_received", "order", msg.OrderNumber, "priority", msg.Priority)
	return nil
}

// Start moves a pending order to preparing and stamps startedAt.
func (q *Queue) Start(ctx context.Context, orderID uuid.UUID) (domain.KitchenOrder, error) {
	return q.transition(ctx, orderID, domain.KitchenPending, func(o *domain.KitchenOrder) {
		now := q.now().UTC()
		o.Status = domain.KitchenPreparing
		o.StartedAt = &now
	})
}

// MarkReady moves a preparing order to ready, stamps readyAt and derives the
// preparation time in whole minutes.
func (q *Queue) MarkReady(ctx context.Context, orderID uuid.UUID) (domain.KitchenOrder, error) {
	return q.transition(ctx, orderID, domain.KitchenPreparing, func(o *domain.KitchenOrder) {
		now := q.now().UTC()
		o.Status = domain.KitchenReady
		o.ReadyAt = &now
		if o.StartedAt != nil {
			mins := now.Sub(*o.StartedAt).Minutes()
			o.PreparationMinutes = int(mins + 0.5)
			metrics.PreparationMinutes.Observe(now.Sub(*o.StartedAt).Minutes())
		}
	})
}

// Complete moves a ready order to completed and stamps completedAt.
func (q *Queue) Complete(ctx context.Context, orderID uuid.UUID) (domain.KitchenOrder, error) {
	return q.transition(ctx, orderID, domain.KitchenReady, func(o *domain.KitchenOrder) {
		now := q.now().UTC()
		o.Status = domain.KitchenCompleted
		o.CompletedAt = &now
	})
}

func (q *Queue) transition(ctx context.Context, orderID uuid.UUID, from domain.KitchenStatus, apply func(*domain.KitchenOrder)) (domain.KitchenOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := q.load(ctx)

	order, current, found := locate(&doc, orderID)
	if !found {
		return domain.KitchenOrder{}, domain.ErrNotFound
	}
	if current != from {
		return domain.KitchenOrder{}, domain.ErrInvalidTransition
	}

	remove(&doc, current, orderID)
	apply(&order)
	appendTo(&doc, order)

	if err := q.save(ctx, doc); err != nil {
		return domain.KitchenOrder{}, err
	}
	metrics.KitchenTransitions.WithLabelValues(string(order.Status)).Inc()
	q.log.Info("kitchen_transition", "order", order.Number,
		"from", string(from), "to", string(order.Status))
	return order, nil
}

// Snapshot returns the current lists, pending sorted by priority then age.
func (q *Queue) Snapshot(ctx context.Context) (pending, preparing, ready, completed []domain.KitchenOrder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := q.load(ctx)
	sortPending(doc.Pending)
	return doc.Pending, doc.Preparing, doc.Ready, doc.Completed
}

// Stats derives today's aggregates by filtering retained completed orders
// whose completedAt falls on the current calendar day. "Today" is the
// clock's local day, so the counters roll over at the restaurant's
// midnight even though timestamps are stored in UTC.
func (q *Queue) Stats(ctx context.Context) Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := q.load(ctx)

	st := Stats{
		Pending:   len(doc.Pending),
		Preparing: len(doc.Preparing),
		Ready:     len(doc.Ready),
		Revenue:   decimal.Zero,
	}
	now := q.now()
	ty, tm, td := now.Date()
	prepTotal := 0
	for _, o := range doc.Completed {
		if o.CompletedAt == nil {
			continue
		}
		cy, cm, cd := o.CompletedAt.In(now.Location()).Date()
		if cy != ty || cm != tm || cd != td {
			continue
		}
		st.CompletedToday++
		st.Revenue = st.Revenue.Add(o.Total)
		prepTotal += o.PreparationMinutes
	}
	if st.CompletedToday > 0 {
		st.AvgPrepMinutes = (prepTotal + st.CompletedToday/2) / st.CompletedToday
	}
	st.Revenue = st.Revenue.Round(2)
	return st
}

// Purge drops completed orders older than the retention window. Same-day
// orders are always retained, so statistics computed before a purge still
// hold afterwards.
func (q *Queue) Purge(ctx context.Context) (removed int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	doc := q.load(ctx)
	cutoff := q.now().UTC().Add(-q.retention)

	kept := doc.Completed[:0]
	for _, o := range doc.Completed {
		if o.CompletedAt != nil && o.CompletedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	if removed == 0 {
		return 0, nil
	}
	doc.Completed = kept
	if err := q.save(ctx, doc); err != nil {
		return 0, err
	}
	q.log.Info("kitchen_purged", "removed", removed)
	return removed, nil
}

// load falls back to an empty queue on persistence failure; the dashboard
// degrades instead of crashing.
func (q *Queue) load(ctx context.Context) queueDoc {
	var doc queueDoc
	if err := q.store.Get(ctx, storage.KeyKitchenQueue, &doc); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			q.log.Error("kitchen_load_failed", "error", err.Error())
		}
		return queueDoc{}
	}
	return doc
}

func (q *Queue) save(ctx context.Context, doc queueDoc) error {
	if err := q.store.Put(ctx, storage.KeyKitchenQueue, doc); err != nil {
		q.log.Error("kitchen_save_failed", "error", err.Error())
		return err
	}
	return nil
}

func locate(doc *queueDoc, id uuid.UUID) (domain.KitchenOrder, domain.KitchenStatus, bool) {
	lists := map[domain.KitchenStatus][]domain.KitchenOrder{
		domain.KitchenPending:   doc.Pending,
		domain.KitchenPreparing: doc.Preparing,
		domain.KitchenReady:     doc.Ready,
		domain.KitchenCompleted: doc.Completed,
	}
	for status, list := range lists {
		for _, o := range list {
			if o.OrderID == id {
				return o, status, true
			}
		}
	}
	return domain.KitchenOrder{}, "", false
}

func remove(doc *queueDoc, status domain.KitchenStatus, id uuid.UUID) {
	filter := func(list []domain.KitchenOrder) []domain.KitchenOrder {
		kept := list[:0]
		for _, o := range list {
			if o.OrderID != id {
				kept = append(kept, o)
			}
		}
		return kept
	}
	switch status {
	case domain.KitchenPending:
		doc.Pending = filter(doc.Pending)
	case domain.KitchenPreparing:
		doc.Preparing = filter(doc.Preparing)
	case domain.KitchenReady:
		doc.Ready = filter(doc.Ready)
	case domain.KitchenCompleted:
		doc.Completed = filter(doc.Completed)
	}
}

func appendTo(doc *queueDoc, o domain.KitchenOrder) {
	switch o.Status {
	case domain.KitchenPending:
		doc.Pending = append(doc.Pending, o)
	case domain.KitchenPreparing:
		doc.Preparing = append(doc.Preparing, o)
	case domain.KitchenReady:
		doc.Ready = append(doc.Ready, o)
	case domain.KitchenCompleted:
		doc.Completed = append(doc.Completed, o)
	}
}

// sortPending orders by priority descending, then oldest first.
func sortPending(list []domain.KitchenOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].ReceivedAt.Before(list[j].ReceivedAt)
	})
}
