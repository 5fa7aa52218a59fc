package ledger

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SelectionResolver names the profile whose history is served.
type SelectionResolver interface {
	ResolveSelectedName(ctx context.Context) (string, error)
}

type HTTPHandler struct {
	selection SelectionResolver
	ledger    Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(selection SelectionResolver, ledgerService Service) *HTTPHandler {
	return &HTTPHandler{
		selection: selection,
		ledger:    ledgerService,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.handleHistory)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	name := strings.TrimSpace(r.URL.Query().Get("profile"))
	if name == "" {
		selected, err := h.selection.ResolveSelectedName(ctx)
		if err != nil {
			log.Printf("[Ledger] resolve selected profile failed: %v", err)
			writeError(w, http.StatusInternalServerError, "resolve profile failed")
			return
		}
		name = selected
	}

	items, err := h.ledger.ListRecent(ctx, name, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		log.Printf("[Ledger] list recent failed: profile=%s err=%v", name, err)
		writeError(w, http.StatusInternalServerError, "query history failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": name,
		"items":   items,
	})
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
