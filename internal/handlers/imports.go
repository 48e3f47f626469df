package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"personalfinance/internal/auth"
	"personalfinance/internal/importer"
	"personalfinance/internal/logger"
	"personalfinance/internal/models"
	"personalfinance/internal/staging"
)

const maxUploadBytes = 32 << 20 // 32 MB

// candidateResponse is the review-screen view of one staged candidate.
type candidateResponse struct {
	Position         int    `json:"position"`
	Date             string `json:"date,omitempty"`
	YearInferred     bool   `json:"year_inferred,omitempty"`
	Description      string `json:"description"`
	Amount           string `json:"amount"`
	Category         string `json:"category,omitempty"`
	TransactionType  string `json:"transaction_type"`
	Page             int    `json:"page"`
	Line             int    `json:"line"`
	DuplicateOf      *int64 `json:"duplicate_of,omitempty"`
	DuplicateInBatch bool   `json:"duplicate_in_batch,omitempty"`
	ReviewState      string `json:"review_state"`
	Diagnostic       string `json:"diagnostic,omitempty"`
}

func candidateView(c models.Candidate, position int) candidateResponse {
	resp := candidateResponse{
		Position:         position,
		YearInferred:     c.YearInferred,
		Description:      c.Description,
		Amount:           c.Amount.StringFixed(2),
		Category:         c.Category,
		TransactionType:  c.Type.String(),
		Page:             c.Page,
		Line:             c.LineIndex,
		DuplicateOf:      c.DuplicateOf,
		DuplicateInBatch: c.DuplicateInBatch,
		ReviewState:      c.ReviewState.String(),
		Diagnostic:       c.Diagnostic,
	}
	if c.HasDate {
		resp.Date = c.Date.Format("2006-01-02")
	}
	return resp
}

func (h *Handler) batchPageResponse(batch *models.ImportBatch, page int) map[string]any {
	p := staging.PageOf(batch, page, h.cfg.Import.PageSize)
	rows := make([]candidateResponse, 0, len(p.Candidates))
	for i, c := range p.Candidates {
		rows = append(rows, candidateView(c, p.Positions[i]))
	}
	return map[string]any{
		"batch_id":    batch.ID.String(),
		"account_id":  batch.AccountID,
		"filename":    batch.Filename,
		"source_type": batch.SourceType,
		"status":      batch.Status.String(),
		"warnings":    batch.Warnings,
		"duplicates":  batch.DuplicateCount(),
		"rows":        rows,
		"page":        p.Page,
		"total_pages": p.TotalPages,
		"total_rows":  p.TotalRows,
	}
}

// ImportUpload accepts a statement file and stages it for review.
func (h *Handler) ImportUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	l := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid upload")
		return
	}

	accountID, err := strconv.ParseInt(r.FormValue("account_id"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "account_id is required")
		return
	}
	account, err := h.db.GetAccount(userID, accountID)
	if err != nil || account == nil {
		h.writeError(w, r, http.StatusNotFound, "account not found")
		return
	}

	var hint *time.Time
	if v := r.FormValue("statement_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "statement_date must be YYYY-MM-DD")
			return
		}
		hint = &d
	}
	override := r.FormValue("override_duplicate") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	stored, err := h.files.Save(header.Filename, bytes.NewReader(data))
	if err != nil {
		l.Error("statement_store_error", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, "failed to store upload")
		return
	}

	batch, err := h.imports.Process(importer.Upload{
		UserID:            userID,
		Account:           account,
		Filename:          header.Filename,
		Data:              data,
		StoredPath:        h.files.FullPath(stored),
		StoredFile:        stored,
		Hint:              hint,
		OverrideDuplicate: override,
	})
	if err != nil {
		h.files.Delete(stored)
		switch {
		case errors.Is(err, importer.ErrDuplicateStatement):
			h.writeJSON(w, r, http.StatusConflict, map[string]any{
				"error":              err.Error(),
				"override_available": true,
			})
		case errors.Is(err, importer.ErrUnsupportedFile):
			h.writeError(w, r, http.StatusUnsupportedMediaType, err.Error())
		default:
			l.Error("statement_parse_error", "filename", header.Filename, "error", err.Error())
			h.writeError(w, r, http.StatusUnprocessableEntity, "could not read statement: "+err.Error())
		}
		return
	}

	h.batches.Put(batch)
	h.writeJSON(w, r, http.StatusCreated, h.batchPageResponse(batch, 1))
}

// getBatch resolves the {id} path value to the caller's staged batch.
func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) *models.ImportBatch {
	userID := auth.UserID(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid batch id")
		return nil
	}
	batch, err := h.batches.Get(userID, id)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "batch not found or expired")
		return nil
	}
	return batch
}

// ImportReview returns one page of staged candidates.
func (h *Handler) ImportReview(w http.ResponseWriter, r *http.Request) {
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	h.writeJSON(w, r, http.StatusOK, h.batchPageResponse(batch, page))
}

// ImportEditRow updates one candidate in place.
func (h *Handler) ImportEditRow(w http.ResponseWriter, r *http.Request) {
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	position, err := strconv.Atoi(r.PathValue("pos"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid row position")
		return
	}

	var req struct {
		Date            *string `json:"date"`
		Description     *string `json:"description"`
		Amount          *string `json:"amount"`
		Category        *string `json:"category"`
		TransactionType *string `json:"transaction_type"`
		ReviewState     *string `json:"review_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var edit staging.Edit
	if req.Date != nil {
		d, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		edit.Date = &d
	}
	edit.Description = req.Description
	edit.Category = req.Category
	if req.Amount != nil {
		a, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "amount is not a number")
			return
		}
		edit.Amount = &a
	}
	if req.TransactionType != nil {
		t := models.ParseTransactionType(*req.TransactionType)
		if t == models.TypeUnknown {
			h.writeError(w, r, http.StatusBadRequest, "unknown transaction type")
			return
		}
		edit.Type = &t
	}
	if req.ReviewState != nil {
		s, ok := parseReviewState(*req.ReviewState)
		if !ok {
			h.writeError(w, r, http.StatusBadRequest, "unknown review state")
			return
		}
		edit.ReviewState = &s
	}

	if err := staging.ApplyEdit(batch, position, edit); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, r, http.StatusOK, candidateView(batch.Candidates[position], position))
}

// ImportSetDuplicates bulk-toggles the review state of every
// duplicate-marked candidate.
func (h *Handler) ImportSetDuplicates(w http.ResponseWriter, r *http.Request) {
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	state, ok := parseReviewState(req.State)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "unknown review state")
		return
	}

	changed := staging.SetDuplicateStates(batch, state)
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"changed":    changed,
		"duplicates": batch.DuplicateCount(),
	})
}

// ImportCommit persists the reviewed batch atomically.
func (h *Handler) ImportCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	var req struct {
		AcceptedPositions []int `json:"accepted_positions"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.imports.Commit(batch, req.AcceptedPositions)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrCommitFailed):
			// Batch stays staged; the client can resubmit.
			h.writeError(w, r, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, importer.ErrBatchNotPending):
			h.writeError(w, r, http.StatusConflict, err.Error())
		default:
			h.writeError(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.batches.Remove(auth.UserID(ctx), batch.ID)
	h.writeJSON(w, r, http.StatusOK, result)
}

// ImportDiscard drops a staged batch without touching storage.
func (h *Handler) ImportDiscard(w http.ResponseWriter, r *http.Request) {
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	batch.Status = models.BatchDiscarded
	h.batches.Remove(auth.UserID(r.Context()), batch.ID)
	h.files.Delete(batch.StoredFile)

	logger.FromContext(r.Context()).Info("import_discarded", "batch_id", batch.ID.String())
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "discarded"})
}

// ImportDownload streams back the original uploaded file of a staged
// batch.
func (h *Handler) ImportDownload(w http.ResponseWriter, r *http.Request) {
	batch := h.getBatch(w, r)
	if batch == nil {
		return
	}

	f, err := h.files.Get(batch.StoredFile)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "stored file not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+batch.Filename+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, f)
}

// ImportsHistory lists the account's audit log of imports, newest
// first.
func (h *Handler) ImportsHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := h.cfg.Import.PageSize
	imports, total, err := h.db.ListImports(userID, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.FromContext(r.Context()).Error("import_history_error", "error", err.Error())
		h.writeError(w, r, http.StatusInternalServerError, "failed to list imports")
		return
	}

	type entry struct {
		ID               int64  `json:"id"`
		AccountID        int64  `json:"account_id"`
		SourceType       string `json:"source_type"`
		Status           string `json:"status"`
		Filename         string `json:"filename"`
		StatementDate    string `json:"statement_date,omitempty"`
		RowsDetected     int    `json:"rows_detected"`
		RowsImported     int    `json:"rows_imported"`
		SkippedDuplicate int    `json:"rows_skipped_duplicate"`
		RowsRejected     int    `json:"rows_rejected"`
		CreatedAt        string `json:"created_at"`
	}
	rows := make([]entry, 0, len(imports))
	for _, imp := range imports {
		e := entry{
			ID:               imp.ID,
			AccountID:        imp.AccountID,
			SourceType:       string(imp.SourceType),
			Status:           imp.Status,
			Filename:         imp.Filename,
			RowsDetected:     imp.RowsDetected,
			RowsImported:     imp.RowsImported,
			SkippedDuplicate: imp.RowsSkippedDuplicate,
			RowsRejected:     imp.RowsRejected,
			CreatedAt:        imp.CreatedAt.Format(time.RFC3339),
		}
		if imp.StatementDate != nil {
			e.StatementDate = imp.StatementDate.Format("2006-01-02")
		}
		rows = append(rows, e)
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"imports": rows,
		"page":    page,
		"total":   total,
	})
}

func parseReviewState(s string) (models.ReviewState, bool) {
	switch s {
	case "pending":
		return models.ReviewPending, true
	case "edited":
		return models.ReviewEdited, true
	case "accepted":
		return models.ReviewAccepted, true
	case "rejected":
		return models.ReviewRejected, true
	}
	return 0, false
}
