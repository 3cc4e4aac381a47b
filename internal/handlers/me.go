package handlers

import (
	"net/http"
	"time"

	"betmarkets/internal/auth"
)

// MeResponse describes the caller's ledger account
type MeResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// HandleMe handles GET /api/me. The account is created with the opening
// credit on first sight, so a fresh token holder can start wagering
// right away.
func (a *API) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.GetAccountIDFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: account not in context", http.StatusUnauthorized)
		return
	}

	acct, err := a.Ledger.EnsureAccount(r.Context(), accountID, a.OpeningBalance)
	if err != nil {
		respondWithError(w, "Failed to load account", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, MeResponse{
		AccountID: acct.ID,
		Balance:   acct.Balance,
		CreatedAt: acct.CreatedAt.Format(time.RFC3339),
	})
}
