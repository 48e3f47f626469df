package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personalfinance/internal/auth"
	"personalfinance/internal/config"
	"personalfinance/internal/database"
	"personalfinance/internal/filestore"
	"personalfinance/internal/importer"
	"personalfinance/internal/models"
	"personalfinance/internal/staging"
)

const testCSV = "date,title,amount,category,transaction_type,account\n" +
	"2024-03-01,Coffee Shop,-4.50,Dining,,Checking\n" +
	"2024-03-01,Coffee Shop,-4.50,Dining,,Checking\n" +
	"2024-03-02,Paycheck,2500.00,,INCOME,Checking\n"

type testEnv struct {
	server    *httptest.Server
	client    *http.Client
	accountID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init())

	userID, err := db.CreateUser("alice", auth.HashPassword("password123"))
	require.NoError(t, err)
	accountID, err := db.CreateAccount(accountFixture(userID))
	require.NoError(t, err)

	files, err := filestore.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	cfg := config.Default()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := auth.New(db.DB)
	batches := staging.NewStore(time.Hour)
	imports := importer.New(db, cfg.Import.DedupWindowDays, cfg.Import.FutureFraction, log)
	h := New(db, a, files, batches, imports, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/imports", h.ImportUpload)
	mux.HandleFunc("GET /api/imports/history", h.ImportsHistory)
	mux.HandleFunc("GET /api/imports/{id}", h.ImportReview)
	mux.HandleFunc("POST /api/imports/{id}/rows/{pos}", h.ImportEditRow)
	mux.HandleFunc("POST /api/imports/{id}/duplicates", h.ImportSetDuplicates)
	mux.HandleFunc("POST /api/imports/{id}/commit", h.ImportCommit)
	mux.HandleFunc("POST /api/imports/{id}/discard", h.ImportDiscard)

	server := httptest.NewServer(a.Middleware(mux))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:    server,
		client:    &http.Client{Jar: jar},
		accountID: accountID,
	}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+"/api/login", "application/json",
		strings.NewReader(`{"username":"alice","password":"password123"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) upload(t *testing.T, filename, content string, override bool) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("account_id", strconv.FormatInt(e.accountID, 10)))
	if override {
		require.NoError(t, mw.WriteField("override_duplicate", "true"))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.server.URL+"/api/imports", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (e *testEnv) postJSON(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func accountFixture(userID int64) models.Account {
	return models.Account{
		UserID:      userID,
		Name:        "Checking",
		AccountType: "CHECKING",
		Active:      true,
	}
}

func TestRequiresAuthentication(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.server.URL + "/api/imports/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadReviewCommitFlow(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	resp, body := e.upload(t, "march.csv", testCSV, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	batchID := body["batch_id"].(string)
	rows := body["rows"].([]any)
	require.Len(t, rows, 3)

	// The repeated coffee row is marked a duplicate and excluded.
	second := rows[1].(map[string]any)
	assert.Equal(t, true, second["duplicate_in_batch"])
	assert.Equal(t, "rejected", second["review_state"])

	// Edit the income row's category before committing.
	resp, edited := e.postJSON(t, "/api/imports/"+batchID+"/rows/2", `{"category":"Salary"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Salary", edited["category"])
	assert.Equal(t, "edited", edited["review_state"])

	resp, result := e.postJSON(t, "/api/imports/"+batchID+"/commit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), result["committed"])
	assert.Equal(t, float64(1), result["skipped_duplicate"])

	// The batch is gone after commit.
	getResp, err := e.client.Get(e.server.URL + "/api/imports/" + batchID)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)

	// History records the commit.
	histResp, err := e.client.Get(e.server.URL + "/api/imports/history")
	require.NoError(t, err)
	defer histResp.Body.Close()
	var hist map[string]any
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&hist))
	assert.Equal(t, float64(1), hist["total"])
}

func TestDuplicateStatementBlockedThenOverridden(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	resp, body := e.upload(t, "march.csv", testCSV, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	batchID := body["batch_id"].(string)

	resp, _ = e.postJSON(t, "/api/imports/"+batchID+"/commit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Same bytes again: blocked.
	resp, body = e.upload(t, "march_again.csv", testCSV, false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, true, body["override_available"])

	// Explicit override proceeds.
	resp, _ = e.upload(t, "march_again.csv", testCSV, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDiscardLeavesNoTrace(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	resp, body := e.upload(t, "march.csv", testCSV, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	batchID := body["batch_id"].(string)

	resp, _ = e.postJSON(t, "/api/imports/"+batchID+"/discard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Nothing was committed, so a fresh upload of the same bytes is not
	// a duplicate.
	resp, _ = e.upload(t, "march.csv", testCSV, false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
