package kitchen

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pizzeria-system/internal/app/api"
	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/kitchen"
)

// Dashboard is the HTTP surface the kitchen display drives: current lists,
// lifecycle transitions and the daily stats.
type Dashboard struct {
	queue *kitchen.Queue
	log   *slog.Logger
}

func NewDashboard(queue *kitchen.Queue, log *slog.Logger) *Dashboard {
	return &Dashboard{queue: queue, log: log}
}

func (d *Dashboard) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", d.handleOrders)
	r.Get("/stats", d.handleStats)
	r.Post("/orders/{orderID}/start", d.transition(d.queue.Start))
	r.Post("/orders/{orderID}/ready", d.transition(d.queue.MarkReady))
	r.Post("/orders/{orderID}/complete", d.transition(d.queue.Complete))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (d *Dashboard) handleOrders(w http.ResponseWriter, r *http.Request) {
	pending, preparing, ready, completed := d.queue.Snapshot(r.Context())
	api.WriteJSON(w, http.StatusOK, map[string][]domain.KitchenOrder{
		"pending":   pending,
		"preparing": preparing,
		"ready":     ready,
		"completed": completed,
	})
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, d.queue.Stats(r.Context()))
}

func (d *Dashboard) transition(fn func(context.Context, uuid.UUID) (domain.KitchenOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "invalid order id"})
			return
		}
		order, err := fn(r.Context(), id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, order)
	}
}
