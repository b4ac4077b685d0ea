// Package order is the customer-facing service: menu browsing, the cart per
// ordering context, promotion application, the checkout steps and order
// submission.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pizzeria-system/internal/app/api"
	"pizzeria-system/internal/cart"
	"pizzeria-system/internal/checkout"
	"pizzeria-system/internal/common/httpx"
	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/history"
	"pizzeria-system/internal/menu"
	"pizzeria-system/internal/pricing"
	"pizzeria-system/internal/submit"
)

type Deps struct {
	Log       *slog.Logger
	Carts     *cart.Service
	Menu      *menu.Menu
	Engine    *pricing.Engine
	Numbers   checkout.NumberSource
	Submitter *submit.Service
	History   *history.Service
}

type Server struct {
	Deps

	mu       sync.Mutex
	sessions map[domain.Context]*checkout.Session
}

func NewServer(d Deps) *Server {
	return &Server{Deps: d, sessions: make(map[domain.Context]*checkout.Session)}
}

// Run serves the order API and the submission relay until ctx is cancelled.
func Run(ctx context.Context, addr string, d Deps) error {
	s := NewServer(d)
	go d.Submitter.Run(ctx)
	srv := httpx.New(addr, s.Routes())
	d.Log.Info("service_started", "action", "listen", "addr", addr)
	return srv.Run(ctx)
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/menu", s.handleMenu)
	r.Get("/menu/offers", s.handleOffers)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handleGetCart)
		r.Post("/items", s.handleAddItem)
		r.Put("/items", s.handleUpdateQuantity)
		r.Delete("/items/{productID}", s.handleRemoveItem)
		r.Delete("/", s.handleClearCart)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/customer", s.handleCustomer)
		r.Post("/payment", s.handlePayment)
		r.Post("/promo", s.handlePromo)
		r.Get("/totals", s.handleTotals)
		r.Post("/confirm", s.handleConfirm)
		r.Post("/cancel", s.handleCancel)
	})

	r.Get("/orders/history", s.handleHistory)
	return r
}

// orderContext resolves the ordering context: ?table=N for QR table
// sessions, takeaway otherwise.
func orderContext(r *http.Request) domain.Context {
	if t := r.URL.Query().Get("table"); t != "" {
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			return domain.TableContext(n)
		}
	}
	return domain.TakeawayContext
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.Menu)
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	var resp domain.OffersResponse
	if p, price, ok := s.Engine.TodaysOffer(); ok {
		resp.DailyOffer = &domain.DailyOfferView{
			ProductID:  p.ID,
			Name:       p.Name,
			FullPrice:  p.Price,
			OfferPrice: price,
		}
	}
	for _, c := range s.Engine.Combos() {
		price, savings := s.Engine.ComboPrice(c.ID)
		resp.Combos = append(resp.Combos, domain.ComboView{
			ID:      c.ID,
			Name:    c.Name,
			Price:   price,
			Savings: savings,
		})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	items := s.Carts.Load(r.Context(), c)
	s.writeCart(w, c, items)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	c := orderContext(r)
	prod, ok := s.Menu.Product(req.Category, req.ProductID)
	if !ok {
		api.WriteError(w, domain.ErrNotFound)
		return
	}
	item := domain.CartItem{
		ID:        prod.ID,
		Category:  req.Category,
		Name:      prod.Name,
		UnitPrice: prod.Price,
		Quantity:  req.Quantity,
		Note:      req.Note,
	}
	items, err := s.Carts.Add(r.Context(), c, item)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	s.syncSession(c, items)
	s.writeCart(w, c, items)
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	c := orderContext(r)
	items, err := s.Carts.UpdateQuantity(r.Context(), c, req.ProductID, req.Category, req.Quantity)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	s.syncSession(c, items)
	s.writeCart(w, c, items)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	id := chi.URLParam(r, "productID")
	category := r.URL.Query().Get("category")
	items, err := s.Carts.Remove(r.Context(), c, id, category)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	s.syncSession(c, items)
	s.writeCart(w, c, items)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	// clearing the cart also cancels any pending submission retry for this
	// context, so no half-finished order lingers in the outbox
	if err := s.Submitter.Cancel(r.Context(), c); err != nil {
		s.Log.Error("cancel_failed", "context", string(c), "error", err.Error())
	}
	if err := s.Carts.Clear(r.Context(), c); err != nil {
		api.WriteError(w, err)
		return
	}
	s.dropSession(c)
	s.writeCart(w, c, nil)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	items := s.Carts.Snapshot(r.Context(), c)
	if len(items) == 0 {
		api.WriteError(w, domain.ErrEmptyCart)
		return
	}
	sess := checkout.NewSession(c, items, s.Engine)
	s.mu.Lock()
	s.sessions[c] = sess
	s.mu.Unlock()
	api.WriteJSON(w, http.StatusOK, map[string]string{"step": sess.Step().String()})
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	sess, ok := s.session(orderContext(r))
	if !ok {
		api.WriteError(w, domain.ErrInvalidStep)
		return
	}
	if err := sess.SubmitCustomerInfo(req.Customer, req.Delivery); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"step": sess.Step().String()})
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	sess, ok := s.session(orderContext(r))
	if !ok {
		api.WriteError(w, domain.ErrInvalidStep)
		return
	}
	if err := sess.SubmitPayment(req.Payment); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"step": sess.Step().String()})
}

func (s *Server) handlePromo(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	sess, ok := s.session(orderContext(r))
	if !ok {
		api.WriteError(w, domain.ErrInvalidStep)
		return
	}
	discount, err := sess.ApplyPromo(req.Code)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.TotalsResponse{
		Totals:    sess.Totals(),
		PromoCode: sess.PromoCode(),
	})
	s.Log.Info("promo_applied", "context", string(sess.Context()),
		"code", req.Code, "discount", discount.StringFixed(2))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(orderContext(r))
	if !ok {
		api.WriteError(w, domain.ErrInvalidStep)
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.TotalsResponse{
		Totals:    sess.Totals(),
		PromoCode: sess.PromoCode(),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, domain.ErrorResponse{Error: "bad json"})
		return
	}
	c := orderContext(r)
	sess, ok := s.session(c)
	if !ok {
		api.WriteError(w, domain.ErrInvalidStep)
		return
	}
	record, err := sess.Confirm(r.Context(), req.TermsAccepted, s.Numbers)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	s.dropSession(c)

	submitted, err := s.Submitter.Submit(r.Context(), record)
	if err != nil {
		// the order is safe in the outbox; tell the customer it is queued
		if errors.Is(err, domain.ErrSubmissionFailed) {
			api.WriteJSON(w, http.StatusAccepted, domain.SubmitResponse{
				OrderNumber:      record.Number,
				Status:           domain.OrderCreated,
				EstimatedMinutes: record.EstimatedMinutes,
			})
			return
		}
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.SubmitResponse{
		OrderNumber:      submitted.Number,
		Status:           submitted.Status,
		EstimatedMinutes: submitted.EstimatedMinutes,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	if err := s.Submitter.Cancel(r.Context(), c); err != nil {
		api.WriteError(w, err)
		return
	}
	s.dropSession(c)
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c := orderContext(r)
	api.WriteJSON(w, http.StatusOK, s.History.Recent(r.Context(), c))
}

func (s *Server) writeCart(w http.ResponseWriter, c domain.Context, items []domain.CartItem) {
	api.WriteJSON(w, http.StatusOK, domain.CartResponse{
		Context:   c,
		Items:     items,
		ItemCount: cart.ItemCount(items),
		Subtotal:  cart.Subtotal(items).Round(2),
	})
}

func (s *Server) session(c domain.Context) (*checkout.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[c]
	return sess, ok
}

func (s *Server) dropSession(c domain.Context) {
	s.mu.Lock()
	delete(s.sessions, c)
	s.mu.Unlock()
}

// syncSession pushes a cart change into an open checkout session. A revoked
// promotion is logged; the customer sees it on the next totals fetch.
func (s *Server) syncSession(c domain.Context, items []domain.CartItem) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.SyncCart(items); err != nil {
		s.Log.Info("promo_revoked", "context", string(c), "error", err.Error())
	}
}
