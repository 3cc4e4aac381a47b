package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"betmarkets/internal/auth"
	"betmarkets/internal/logger"
)

// PlaceBetRequest is the request body for placing a bet
type PlaceBetRequest struct {
	MarketID     int64 `json:"market_id"`
	OutcomeIndex int   `json:"outcome_index"`
	Amount       int64 `json:"amount"`
}

// PlaceBetResponse is the response after placing a bet
type PlaceBetResponse struct {
	Ticket       string  `json:"ticket"`
	MarketID     int64   `json:"market_id"`
	OutcomeIndex int     `json:"outcome_index"`
	Amount       int64   `json:"amount"`
	PlacedAt     string  `json:"placed_at"`
	OutcomePools []int64 `json:"outcome_pools"`
	TotalPool    int64   `json:"total_pool"`
	NewBalance   int64   `json:"new_balance"`
}

// HandlePlaceBet handles POST /api/bets
func (a *API) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.GetAccountIDFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: account not in context", http.StatusUnauthorized)
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wager, err := a.Engine.PlaceBet(r.Context(), accountID, req.MarketID, req.OutcomeIndex, req.Amount)
	if err != nil {
		logger.Debug(accountID, "bet_failed", "error="+err.Error())
		respondEngineError(w, err)
		return
	}

	m, err := a.Engine.GetMarket(r.Context(), req.MarketID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	acct, err := a.Ledger.GetAccount(r.Context(), accountID)
	if err != nil || acct == nil {
		respondWithError(w, "Failed to get account balance", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, PlaceBetResponse{
		Ticket:       wager.Ticket,
		MarketID:     wager.MarketID,
		OutcomeIndex: wager.OutcomeIndex,
		Amount:       wager.Amount,
		PlacedAt:     wager.CreatedAt.Format(time.RFC3339),
		OutcomePools: m.OutcomePools,
		TotalPool:    m.TotalPool,
		NewBalance:   acct.Balance,
	})
}
