package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"betmarkets/internal/engine"
	"betmarkets/internal/escrow"
)

// API bundles the dependencies the HTTP handlers need
type API struct {
	Engine         *engine.Engine
	Ledger         *escrow.Ledger
	OpeningBalance int64
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Message string `json:"message"`
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Message: message})
}

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// statusForError maps engine errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrMarketNotFound),
		errors.Is(err, engine.ErrWagerNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrInsufficientOutcomes),
		errors.Is(err, engine.ErrTooManyOutcomes),
		errors.Is(err, engine.ErrInvalidResolutionTime),
		errors.Is(err, engine.ErrBetTooSmall),
		errors.Is(err, engine.ErrInvalidOutcome):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrMarketResolved),
		errors.Is(err, engine.ErrBettingClosed),
		errors.Is(err, engine.ErrMarketAlreadyResolved),
		errors.Is(err, engine.ErrTooEarlyToResolve),
		errors.Is(err, engine.ErrMarketNotResolved),
		errors.Is(err, engine.ErrAlreadyClaimed),
		errors.Is(err, engine.ErrLosingBet),
		errors.Is(err, engine.ErrNoPayoutAvailable):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// respondEngineError maps an engine failure to an HTTP error response
func respondEngineError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, "Internal error", status)
		return
	}
	respondWithError(w, err.Error(), status)
}
