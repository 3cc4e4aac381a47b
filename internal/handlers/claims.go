package handlers

import (
	"encoding/json"
	"net/http"

	"betmarkets/internal/auth"
	"betmarkets/internal/logger"
)

// ClaimRequest is the request body for claiming a payout
type ClaimRequest struct {
	Ticket string `json:"ticket"`
}

// ClaimResponse is the response after a successful claim
type ClaimResponse struct {
	Ticket     string `json:"ticket"`
	Payout     int64  `json:"payout"`
	NewBalance int64  `json:"new_balance"`
}

// HandleClaim handles POST /api/claims
func (a *API) HandleClaim(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.GetAccountIDFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: account not in context", http.StatusUnauthorized)
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ticket == "" {
		respondWithError(w, "Ticket must not be empty", http.StatusBadRequest)
		return
	}

	payout, err := a.Engine.ClaimPayout(r.Context(), accountID, req.Ticket)
	if err != nil {
		logger.Debug(accountID, "claim_failed", "ticket="+req.Ticket+" error="+err.Error())
		respondEngineError(w, err)
		return
	}

	acct, err := a.Ledger.GetAccount(r.Context(), accountID)
	if err != nil || acct == nil {
		respondWithError(w, "Failed to get account balance", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, ClaimResponse{
		Ticket:     req.Ticket,
		Payout:     payout,
		NewBalance: acct.Balance,
	})
}
