package handlers

import (
	"net/http"
)

// HandlePing responds to liveness checks
func (a *API) HandlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
