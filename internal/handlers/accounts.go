package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"personalfinance/internal/auth"
	"personalfinance/internal/logger"
	"personalfinance/internal/models"
)

type accountResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	AccountType string `json:"account_type"`
	Active      bool   `json:"active"`
}

func (h *Handler) AccountsList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	accounts, err := h.db.ListAccounts(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("account_list_error", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountResponse{
			ID:          a.ID,
			Name:        a.Name,
			Institution: a.Institution,
			AccountType: a.AccountType,
			Active:      a.Active,
		})
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"accounts": resp})
}

func (h *Handler) AccountsCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Name        string `json:"name"`
		Institution string `json:"institution"`
		AccountType string `json:"account_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.writeError(w, r, http.StatusBadRequest, "account name is required")
		return
	}
	req.AccountType = strings.ToUpper(strings.TrimSpace(req.AccountType))
	if req.AccountType == "" {
		req.AccountType = "CHECKING"
	}
	if !slices.Contains(models.AccountTypes, req.AccountType) {
		h.writeError(w, r, http.StatusBadRequest, "unknown account type")
		return
	}

	existing, err := h.db.GetAccountByName(userID, req.Name)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "failed to check account")
		return
	}
	if existing != nil {
		h.writeError(w, r, http.StatusConflict, "account already exists")
		return
	}

	id, err := h.db.CreateAccount(models.Account{
		UserID:      userID,
		Name:        req.Name,
		Institution: strings.TrimSpace(req.Institution),
		AccountType: req.AccountType,
		Active:      true,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("account_create_error", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.writeJSON(w, r, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}
