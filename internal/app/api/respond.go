// Package api holds the JSON response helpers shared by the order and
// kitchen HTTP surfaces, including the mapping from the domain error
// taxonomy to status codes and reason strings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pizzeria-system/internal/domain"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP shape. Validation errors carry
// the offending field list; everything else gets a stable reason string.
func WriteError(w http.ResponseWriter, err error) {
	if ve, ok := domain.AsValidation(err); ok {
		WriteJSON(w, http.StatusUnprocessableEntity, domain.ErrorResponse{
			Error:  err.Error(),
			Reason: "VALIDATION_FAILED",
			Fields: ve.Fields,
		})
		return
	}
	status, reason := classify(err)
	WriteJSON(w, status, domain.ErrorResponse{Error: err.Error(), Reason: reason})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidPromotion):
		return http.StatusBadRequest, "INVALID_PROMOTION"
	case errors.Is(err, domain.ErrPromotionExpired):
		return http.StatusBadRequest, "PROMOTION_EXPIRED"
	case errors.Is(err, domain.ErrMinimumOrderNotMet):
		return http.StatusBadRequest, "MINIMUM_ORDER_NOT_MET"
	case errors.Is(err, domain.ErrPromotionNotEligible):
		return http.StatusBadRequest, "PROMOTION_NOT_ELIGIBLE"
	case errors.Is(err, domain.ErrPromotionAlreadyApplied):
		return http.StatusConflict, "PROMOTION_ALREADY_APPLIED"
	case errors.Is(err, domain.ErrPromotionNoLongerValid):
		return http.StatusConflict, "PROMOTION_NO_LONGER_VALID"
	case errors.Is(err, domain.ErrInvalidStep):
		return http.StatusConflict, "INVALID_STEP"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "EMPTY_CART"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway, "SUBMISSION_FAILED"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "PERSISTENCE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
