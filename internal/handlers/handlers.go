// Package handlers exposes the JSON API: login, accounts, statement
// upload, review, and commit.
package handlers

import (
	"encoding/json"
	"net/http"

	"personalfinance/internal/auth"
	"personalfinance/internal/config"
	"personalfinance/internal/database"
	"personalfinance/internal/filestore"
	"personalfinance/internal/importer"
	"personalfinance/internal/logger"
	"personalfinance/internal/staging"
	"personalfinance/internal/version"
)

type Handler struct {
	db      *database.DB
	auth    *auth.Auth
	files   *filestore.Store
	batches *staging.Store
	imports *importer.Service
	cfg     *config.Config
}

func New(db *database.DB, a *auth.Auth, files *filestore.Store, batches *staging.Store, imports *importer.Service, cfg *config.Config) *Handler {
	return &Handler{
		db:      db,
		auth:    a,
		files:   files,
		batches: batches,
		imports: imports,
		cfg:     cfg,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("json_encode_error", "error", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, map[string]string{"error": msg})
}

// Login authenticates and sets the session cookie
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.db.GetUserByName(req.Username)
	if err != nil || user == nil || !h.auth.CheckPassword(ctx, user, req.Password) {
		h.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.auth.CreateSession(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.auth.SetSessionCookie(w, token)
	h.writeJSON(w, r, http.StatusOK, map[string]any{"username": user.Username})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := h.auth.GetSessionFromRequest(r); token != "" {
		h.auth.DeleteSession(ctx, token)
	}
	h.auth.ClearSessionCookie(w)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

// APIVersion returns build information
func (h *Handler) APIVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"version":    version.Version,
		"build_time": version.BuildTime,
		"git_commit": version.GitCommit,
	})
}
