package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"personalfinance/internal/auth"
	"personalfinance/internal/config"
	"personalfinance/internal/database"
	"personalfinance/internal/filestore"
	"personalfinance/internal/handlers"
	"personalfinance/internal/importer"
	"personalfinance/internal/logger"
	"personalfinance/internal/staging"
	"personalfinance/internal/version"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("personalfinance %s (built %s, commit %s)\n",
			version.Version, version.BuildTime, version.GitCommit)
		os.Exit(0)
	}

	// Initialize logger first
	logger.Init()
	log := logger.Default()

	cfg, err := config.Load(os.Getenv("PF_CONFIG"))
	if err != nil {
		log.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}

	// Open database
	db, err := database.Open(cfg.Server.DBPath)
	if err != nil {
		log.Error("database_open_failed", "path", cfg.Server.DBPath, "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	// Initialize schema
	if err := db.Init(); err != nil {
		log.Error("database_init_failed", "error", err.Error())
		os.Exit(1)
	}

	// Initialize auth
	a := auth.New(db.DB)

	// Clean expired sessions on startup
	a.CleanExpiredSessions()

	// Initialize filestore (in data/uploads directory alongside database)
	uploadsPath := filepath.Join(filepath.Dir(cfg.Server.DBPath), "uploads")
	files, err := filestore.New(uploadsPath)
	if err != nil {
		log.Error("filestore_init_failed", "path", uploadsPath, "error", err.Error())
		os.Exit(1)
	}

	// Staged batches and the import pipeline
	batches := staging.NewStore(time.Duration(cfg.Import.BatchTTLMinutes) * time.Minute)
	imports := importer.New(db, cfg.Import.DedupWindowDays, cfg.Import.FutureFraction, log)

	// Initialize handlers
	h := handlers.New(db, a, files, batches, imports, cfg)

	// Setup routes
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)

	// Accounts
	mux.HandleFunc("GET /api/accounts", h.AccountsList)
	mux.HandleFunc("POST /api/accounts", h.AccountsCreate)

	// Statement imports
	mux.HandleFunc("POST /api/imports", h.ImportUpload)
	mux.HandleFunc("GET /api/imports/history", h.ImportsHistory)
	mux.HandleFunc("GET /api/imports/{id}", h.ImportReview)
	mux.HandleFunc("GET /api/imports/{id}/file", h.ImportDownload)
	mux.HandleFunc("POST /api/imports/{id}/rows/{pos}", h.ImportEditRow)
	mux.HandleFunc("POST /api/imports/{id}/duplicates", h.ImportSetDuplicates)
	mux.HandleFunc("POST /api/imports/{id}/commit", h.ImportCommit)
	mux.HandleFunc("POST /api/imports/{id}/discard", h.ImportDiscard)

	// Version API
	mux.HandleFunc("GET /api/version", h.APIVersion)

	// Wrap with middleware: logging -> auth -> mux
	handler := logger.HTTPMiddleware(a.Middleware(mux))

	log.Info("server_starting", "port", cfg.Server.Port, "address", "http://localhost:"+cfg.Server.Port, "version", version.Version)
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		log.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}
