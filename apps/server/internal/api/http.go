package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"idle-lite/apps/server/internal/game"
	"idle-lite/catalog"
	"idle-lite/profile"
)

const (
	maxBodyBytes   = 64 << 10
	requestTimeout = 10 * time.Second
)

type HTTPHandler struct {
	game       *game.Service
	catalog    *catalog.Catalog
	staticDir  string
	legacyPath string
}

// Options configures the optional file-backed routes. An empty StaticDir
// disables asset serving; an empty LegacyPath disables migration.
type Options struct {
	StaticDir  string
	LegacyPath string
}

type nameRequest struct {
	Name string `json:"name"`
}

type indexRequest struct {
	Index *int `json:"index"`
}

type actionRequest struct {
	ActionID string `json:"action_id"`
}

type migrateResponse struct {
	*game.GameState
	Migration game.MigrationReport `json:"migration"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPHandler serves the game API. A nil catalog serves empty lists.
func NewHTTPHandler(svc *game.Service, cat *catalog.Catalog, opts Options) *HTTPHandler {
	if cat == nil {
		cat = catalog.Empty()
	}
	return &HTTPHandler{
		game:       svc,
		catalog:    cat,
		staticDir:  strings.TrimSpace(opts.StaticDir),
		legacyPath: strings.TrimSpace(opts.LegacyPath),
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/game-state", h.handleGameState)
	mux.HandleFunc("/api/action", h.handleAction)
	mux.HandleFunc("/api/actions", h.handleActions)
	mux.HandleFunc("/api/profile/new", h.handleCreate)
	mux.HandleFunc("/api/profile/select", h.handleSelect)
	mux.HandleFunc("/api/profile/rename", h.handleRename)
	mux.HandleFunc("/api/profile/delete", h.handleDelete)
	mux.HandleFunc("/api/profile/reset", h.handleReset)
	mux.HandleFunc("/api/profile/fix", h.handleFix)
	mux.HandleFunc("/api/profile/migrate", h.handleMigrate)
	mux.HandleFunc("/api/hard-reset", h.handleHardReset)
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/content/items", h.handleItems)
	mux.HandleFunc("/api/content/recipes", h.handleRecipes)
	mux.HandleFunc("/api/content/mobs", h.handleMobs)
	mux.Handle("/", h.staticHandler())
}

func (h *HTTPHandler) handleGameState(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	state, err := h.game.GetState(ctx)
	if err != nil {
		writeServiceError(w, "game state", err)
		return
	}
	body, err := json.Marshal(state)
	if err != nil {
		writeServiceError(w, "encode game state", err)
		return
	}
	sum := blake2b.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (h *HTTPHandler) handleAction(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req actionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondState(w, r, "apply action", func(ctx context.Context) (*game.GameState, error) {
		return h.game.ApplyAction(ctx, req.ActionID)
	})
}

func (h *HTTPHandler) handleActions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": h.game.ActionIDs()})
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondState(w, r, "create profile", func(ctx context.Context) (*game.GameState, error) {
		return h.game.CreateProfile(ctx, req.Name)
	})
}

func (h *HTTPHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req indexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondState(w, r, "select profile", func(ctx context.Context) (*game.GameState, error) {
		return h.game.SelectProfile(ctx, req.Index)
	})
}

func (h *HTTPHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondState(w, r, "rename profile", func(ctx context.Context) (*game.GameState, error) {
		return h.game.RenameProfile(ctx, req.Name)
	})
}

func (h *HTTPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	h.respondState(w, r, "delete profile", h.game.DeleteProfile)
}

func (h *HTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.respondState(w, r, "reset profile", h.game.ResetProfile)
}

func (h *HTTPHandler) handleFix(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req indexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondState(w, r, "fix profile", func(ctx context.Context) (*game.GameState, error) {
		return h.game.FixProfile(ctx, req.Index)
	})
}

func (h *HTTPHandler) handleHardReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.respondState(w, r, "hard reset", h.game.HardReset)
}

// handleMigrate imports the legacy single-file database found at legacyPath.
func (h *HTTPHandler) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if h.legacyPath == "" {
		writeError(w, http.StatusNotFound, "legacy migration is not configured")
		return
	}
	raw, err := os.ReadFile(h.legacyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no legacy database found")
			return
		}
		writeServiceError(w, "read legacy database", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	state, report, err := h.game.MigrateLegacy(ctx, raw)
	if err != nil {
		writeServiceError(w, "migrate profiles", err)
		return
	}
	writeJSON(w, http.StatusOK, migrateResponse{GameState: state, Migration: report})
}

func (h *HTTPHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		settings, err := h.game.GetSettings(ctx)
		if err != nil {
			writeServiceError(w, "get settings", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPost:
		var partial map[string]any
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
			writeError(w, http.StatusBadRequest, "settings must be a non-empty object")
			return
		}
		settings, err := h.game.SetSettings(ctx, partial)
		if err != nil {
			writeServiceError(w, "save settings", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "settings": settings})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPHandler) handleItems(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": h.catalog.ItemList()})
}

func (h *HTTPHandler) handleRecipes(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": h.catalog.RecipeList()})
}

func (h *HTTPHandler) handleMobs(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mobs": h.catalog.MobList()})
}

func (h *HTTPHandler) staticHandler() http.Handler {
	if h.staticDir != "" {
		if info, err := os.Stat(h.staticDir); err == nil && info.IsDir() {
			return http.FileServer(http.Dir(h.staticDir))
		}
		log.Printf("[Server] Static dir %q not found, UI disabled", h.staticDir)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (h *HTTPHandler) respondState(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) (*game.GameState, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	state, err := fn(ctx)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody reads a JSON object body; an empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	if profile.IsClientError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("[Server] %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
