// Package submit hands finalized orders to the kitchen sink with at-most-once
// semantics. Every submission goes through the durable outbox: the intent is
// enqueued first, attempted with a bounded timeout, and removed only on
// confirmed success. Failed attempts are replayed FIFO by the relay loop.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pizzeria-system/internal/cart"
	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/history"
	"pizzeria-system/internal/metrics"
	"pizzeria-system/internal/outbox"
	"pizzeria-system/internal/storage"
)

// Sink is the external hand-off boundary: one delivery attempt, no retries
// of its own. The production sink publishes to RabbitMQ; tests script it.
type Sink interface {
	Attempt(ctx context.Context, rec domain.OrderRecord) error
}

type Config struct {
	AttemptTimeout time.Duration
	MaxRetries     int
	RetryInterval  time.Duration
}

type Service struct {
	sink  Sink
	box   *outbox.Outbox
	carts *cart.Service
	hist  *history.Service
	store storage.Store
	log   *slog.Logger
	cfg   Config
	now   func() time.Time

	mu       sync.Mutex // serializes drains so the queue head is handled once
	attempts map[uuid.UUID]int
}

func NewService(sink Sink, box *outbox.Outbox, carts *cart.Service, hist *history.Service, store storage.Store, log *slog.Logger, cfg Config) *Service {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	return &Service{
		sink:     sink,
		box:      box,
		carts:    carts,
		hist:     hist,
		store:    store,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		attempts: make(map[uuid.UUID]int),
	}
}

// Submit delivers one finalized order. A record already accepted is not
// resubmitted; the stored outcome is returned unchanged. On a failed attempt
// the order stays queued and ErrSubmissionFailed is returned; the relay loop
// takes over from there.
func (s *Service) Submit(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error) {
	if s.isAccepted(ctx, rec.ID) {
		return rec.WithStatus(domain.OrderAccepted), nil
	}
	if err := s.box.Enqueue(rec); err != nil {
		return rec, err
	}
	s.drain(ctx)
	if s.isAccepted(ctx, rec.ID) {
		return rec.WithStatus(domain.OrderAccepted), nil
	}
	return rec, fmt.Errorf("%w: queued for retry", domain.ErrSubmissionFailed)
}

// Run replays the outbox until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

// Cancel discards queued submissions for a context, e.g. when the customer
// clears the cart before a retry went through. No partial side effects: a
// cancelled entry never touched cart, history or the accepted set.
func (s *Service) Cancel(ctx context.Context, c domain.Context) error {
	removed, err := s.box.Cancel(c)
	if removed > 0 {
		s.log.Info("submission_cancelled", "context", string(c), "removed", removed)
	}
	return err
}

func (s *Service) Pending() uint64 { return s.box.Len() }

// drain works the queue head-first, stopping at the first entry that fails
// and still has attempts left. That keeps replay strictly FIFO.
func (s *Service) drain(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		rec, ok, err := s.box.Head()
		if err != nil {
			s.log.Error("outbox_read_failed", "error", err.Error())
			return
		}
		if !ok {
			return
		}
		// stale entry for an already-accepted order: skip, do not resubmit
		if s.isAccepted(ctx, rec.ID) {
			_ = s.box.RemoveHead()
			delete(s.attempts, rec.ID)
			continue
		}

		metrics.OrdersSubmitted.Inc()
		actx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		err = s.sink.Attempt(actx, rec)
		cancel()

		if err == nil {
			s.finalize(ctx, rec)
			_ = s.box.RemoveHead()
			delete(s.attempts, rec.ID)
			continue
		}

		s.attempts[rec.ID]++
		metrics.SubmissionRetries.Inc()
		s.log.Error("submission_attempt_failed",
			"order", rec.Number, "attempt", s.attempts[rec.ID], "error", err.Error())

		if s.attempts[rec.ID] >= s.cfg.MaxRetries {
			_ = s.box.RemoveHead()
			delete(s.attempts, rec.ID)
			s.markFailed(ctx, rec)
			continue
		}
		return
	}
}

// finalize runs the success side effects exactly once per order: mark the id
// accepted, append to history, clear the originating cart. The accepted mark
// goes first so a crash mid-finalize cannot cause a duplicate submission.
func (s *Service) finalize(ctx context.Context, rec domain.OrderRecord) {
	s.markAccepted(ctx, rec.ID)
	accepted := rec.WithStatus(domain.OrderAccepted)
	if err := s.hist.Append(ctx, accepted); err != nil {
		s.log.Error("history_append_failed", "order", rec.Number, "error", err.Error())
	}
	if err := s.carts.Clear(ctx, rec.Context); err != nil {
		s.log.Error("cart_clear_failed", "order", rec.Number, "error", err.Error())
	}
	metrics.OrdersAccepted.Inc()
	s.log.Info("order_accepted", "order", rec.Number, "context", string(rec.Context))
}

func (s *Service) markFailed(ctx context.Context, rec domain.OrderRecord) {
	failed := rec.WithStatus(domain.OrderFailed)
	if err := s.hist.Append(ctx, failed); err != nil {
		s.log.Error("history_append_failed", "order", rec.Number, "error", err.Error())
	}
	metrics.OrdersFailed.Inc()
	s.log.Error("order_submission_exhausted", "order", rec.Number,
		"attempts", s.cfg.MaxRetries, "error", "giving up")
}

type acceptedDoc map[string]time.Time

func (s *Service) isAccepted(ctx context.Context, id uuid.UUID) bool {
	var doc acceptedDoc
	if err := s.store.Get(ctx, storage.KeyAcceptedOrders, &doc); err != nil {
		return false
	}
	_, ok := doc[id.String()]
	return ok
}

func (s *Service) markAccepted(ctx context.Context, id uuid.UUID) {
	var doc acceptedDoc
	if err := s.store.Get(ctx, storage.KeyAcceptedOrders, &doc); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("accepted_set_load_failed", "error", err.Error())
		}
		doc = acceptedDoc{}
	}
	doc[id.String()] = s.now().UTC()
	if err := s.store.Put(ctx, storage.KeyAcceptedOrders, doc); err != nil {
		s.log.Error("accepted_set_save_failed", "error", err.Error())
	}
}
