package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"betmarkets/internal/auth"
	"betmarkets/internal/logger"
	"betmarkets/internal/storage"
)

// CreateMarketRequest is the request body for creating a market
type CreateMarketRequest struct {
	Question           string   `json:"question"`
	Outcomes           []string `json:"outcomes"`
	ResolutionDeadline string   `json:"resolution_deadline"` // RFC3339
	MinWager           int64    `json:"min_wager"`
}

// MarketResponse is the API representation of a market
type MarketResponse struct {
	ID                 int64    `json:"id"`
	Creator            int64    `json:"creator"`
	Question           string   `json:"question"`
	Outcomes           []string `json:"outcomes"`
	OutcomePools       []int64  `json:"outcome_pools"`
	ResolutionDeadline string   `json:"resolution_deadline"`
	MinWager           int64    `json:"min_wager"`
	Resolved           bool     `json:"resolved"`
	WinningOutcome     *int     `json:"winning_outcome,omitempty"`
	TotalPool          int64    `json:"total_pool"`
}

func marketResponse(m *storage.Market) MarketResponse {
	resp := MarketResponse{
		ID:                 m.ID,
		Creator:            m.Creator,
		Question:           m.Question,
		Outcomes:           m.Outcomes,
		OutcomePools:       m.OutcomePools,
		ResolutionDeadline: m.ResolutionDeadline.Format(time.RFC3339),
		MinWager:           m.MinWager,
		Resolved:           m.Resolved,
		TotalPool:          m.TotalPool,
	}
	if m.Resolved {
		winning := m.WinningOutcome
		resp.WinningOutcome = &winning
	}
	return resp
}

// HandleCreateMarket handles POST /api/markets
func (a *API) HandleCreateMarket(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.GetAccountIDFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: account not in context", http.StatusUnauthorized)
		return
	}

	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Question == "" {
		respondWithError(w, "Question must not be empty", http.StatusBadRequest)
		return
	}

	deadline, err := time.Parse(time.RFC3339, req.ResolutionDeadline)
	if err != nil {
		respondWithError(w, "Invalid resolution_deadline: expected RFC3339 timestamp", http.StatusBadRequest)
		return
	}

	m, err := a.Engine.CreateMarket(r.Context(), accountID, req.Question, req.Outcomes, deadline, req.MinWager)
	if err != nil {
		logger.Debug(accountID, "market_create_failed", "error="+err.Error())
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, marketResponse(m))
}

// HandleListMarkets handles GET /api/markets
func (a *API) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := a.Engine.ListOpenMarkets(r.Context())
	if err != nil {
		respondWithError(w, "Failed to list markets", http.StatusInternalServerError)
		return
	}

	resp := make([]MarketResponse, 0, len(markets))
	for _, m := range markets {
		resp = append(resp, marketResponse(m))
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleGetMarket handles GET /api/markets/{id}
func (a *API) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, "Invalid market id", http.StatusBadRequest)
		return
	}

	m, err := a.Engine.GetMarket(r.Context(), marketID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, marketResponse(m))
}

// ResolveMarketRequest is the request body for resolving a market
type ResolveMarketRequest struct {
	WinningOutcome int `json:"winning_outcome"`
}

// HandleResolveMarket handles POST /api/markets/{id}/resolve
func (a *API) HandleResolveMarket(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.GetAccountIDFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: account not in context", http.StatusUnauthorized)
		return
	}

	marketID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, "Invalid market id", http.StatusBadRequest)
		return
	}

	var req ResolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Engine.ResolveMarket(r.Context(), accountID, marketID, req.WinningOutcome); err != nil {
		logger.Debug(accountID, "market_resolve_failed", "error="+err.Error())
		respondEngineError(w, err)
		return
	}

	m, err := a.Engine.GetMarket(r.Context(), marketID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, marketResponse(m))
}
