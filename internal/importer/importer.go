// Package importer orchestrates the statement import pipeline: hash
// and duplicate-check the upload, extract text, parse candidates, mark
// duplicates, and later commit the reviewed batch atomically.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"personalfinance/internal/dedup"
	"personalfinance/internal/extractor"
	"personalfinance/internal/models"
	"personalfinance/internal/parser"
)

var (
	// ErrDuplicateStatement means a committed import with the same file
	// hash already exists for the account. Resubmitting with the
	// override flag proceeds anyway.
	ErrDuplicateStatement = errors.New("statement already imported for this account")

	// ErrCommitFailed wraps storage failures during commit. The batch
	// is preserved and the commit can be retried.
	ErrCommitFailed = errors.New("commit failed, batch preserved for retry")

	ErrUnsupportedFile = errors.New("unsupported file type, expected PDF or CSV")
	ErrBatchNotPending = errors.New("batch is not pending")
)

// Storage is what the import pipeline needs from the database.
type Storage interface {
	FindCommittedImport(accountID int64, fileHash string) (*models.StatementImport, error)
	FindTransactionsNearDate(accountID int64, date time.Time, windowDays int) ([]models.Transaction, error)
	CreateStatementImport(imp *models.StatementImport) (int64, error)
	CommitImport(transactions []models.Transaction, imp *models.StatementImport) error
}

// Service runs uploads and commits.
type Service struct {
	storage Storage
	parser  *parser.Parser
	dedup   *dedup.Engine
	log     *slog.Logger
}

// New wires a Service. windowDays bounds row-level duplicate lookups;
// futureFraction tunes the batch year-correction pass.
func New(storage Storage, windowDays int, futureFraction float64, log *slog.Logger) *Service {
	return &Service{
		storage: storage,
		parser:  parser.New(futureFraction),
		dedup:   dedup.NewEngine(storage, windowDays),
		log:     log,
	}
}

// Upload is one statement upload request. Data carries the raw bytes;
// StoredPath is where the filestore saved them (PDF extraction reads
// from disk).
type Upload struct {
	UserID            int64
	Account           *models.Account
	Filename          string
	Data              []byte
	StoredPath        string
	StoredFile        string
	Hint              *time.Time
	OverrideDuplicate bool
}

// Process runs the upload through hash, extract, parse, and duplicate
// marking, returning a Pending batch ready for review. A re-upload of
// an already committed statement returns ErrDuplicateStatement after
// writing a blocked-duplicate audit row, unless the override flag is
// set.
func (s *Service) Process(up Upload) (*models.ImportBatch, error) {
	source, err := detectSource(up.Filename, up.Data)
	if err != nil {
		return nil, err
	}

	fileHash := dedup.FileHash(up.Data)

	if !up.OverrideDuplicate {
		prior, err := s.storage.FindCommittedImport(up.Account.ID, fileHash)
		if err != nil {
			return nil, fmt.Errorf("check prior imports: %w", err)
		}
		if prior != nil {
			s.recordBlocked(up, source, fileHash, prior)
			return nil, fmt.Errorf("%w (first imported %s)", ErrDuplicateStatement,
				prior.CreatedAt.Format("2006-01-02"))
		}
	}

	hint := up.Hint
	if hint == nil {
		hint = statementDateFromFilename(up.Filename)
	}

	doc, err := s.extract(source, up)
	if err != nil {
		return nil, err
	}

	result := s.parser.Parse(doc, parser.Options{
		Hint:        hint,
		AccountName: up.Account.Name,
	})

	batch := &models.ImportBatch{
		ID:                uuid.New(),
		UserID:            up.UserID,
		AccountID:         up.Account.ID,
		SourceType:        source,
		Filename:          up.Filename,
		StoredFile:        up.StoredFile,
		FileHash:          fileHash,
		UploadedAt:        time.Now(),
		StatementHint:     hint,
		OverrideDuplicate: up.OverrideDuplicate,
		Candidates:        result.Candidates,
		Warnings:          append(doc.Warnings, result.Diagnostics...),
		Status:            models.BatchPending,
	}

	if err := s.dedup.Mark(up.Account.ID, batch.Candidates); err != nil {
		return nil, err
	}

	s.log.Info("statement_parsed",
		"account_id", up.Account.ID,
		"source", string(source),
		"candidates", len(batch.Candidates),
		"duplicates", batch.DuplicateCount(),
		"warnings", len(batch.Warnings))

	return batch, nil
}

func (s *Service) extract(source models.SourceType, up Upload) (*extractor.Document, error) {
	switch source {
	case models.SourceCSV:
		doc, err := extractor.ExtractCSV(up.Data)
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		return doc, nil
	case models.SourcePDF:
		doc, err := extractor.ExtractPDF(up.StoredPath)
		if err != nil {
			return nil, fmt.Errorf("read PDF: %w", err)
		}
		return doc, nil
	default:
		return nil, ErrUnsupportedFile
	}
}

// recordBlocked writes the audit row for a rejected duplicate upload.
// Failure to write it is logged but does not mask the rejection.
func (s *Service) recordBlocked(up Upload, source models.SourceType, fileHash string, prior *models.StatementImport) {
	_, err := s.storage.CreateStatementImport(&models.StatementImport{
		UserID:     up.UserID,
		AccountID:  up.Account.ID,
		SourceType: source,
		Status:     models.ImportStatusBlockedDuplicate,
		Filename:   up.Filename,
		FileHash:   fileHash,
		Notes:      fmt.Sprintf("matches import #%d", prior.ID),
	})
	if err != nil {
		s.log.Error("record_blocked_duplicate_failed", "error", err)
	}
}

// Commit persists the reviewed batch. acceptedPositions, when non-nil,
// overrides the per-candidate review states: listed positions are
// accepted, everything else rejected. With a nil list the current
// states decide (Pending and Edited count as included, so an untouched
// non-duplicate row imports by default).
//
// The write is all-or-nothing. On storage failure the batch stays
// Pending and the error wraps ErrCommitFailed.
func (s *Service) Commit(batch *models.ImportBatch, acceptedPositions []int) (*models.CommitResult, error) {
	if batch.Status != models.BatchPending {
		return nil, ErrBatchNotPending
	}

	if acceptedPositions != nil {
		accepted := make(map[int]bool, len(acceptedPositions))
		for _, p := range acceptedPositions {
			if p < 0 || p >= len(batch.Candidates) {
				return nil, fmt.Errorf("position %d out of range", p)
			}
			accepted[p] = true
		}
		for i := range batch.Candidates {
			if accepted[i] {
				batch.Candidates[i].ReviewState = models.ReviewAccepted
			} else {
				batch.Candidates[i].ReviewState = models.ReviewRejected
			}
		}
	}

	var (
		txns   []models.Transaction
		result models.CommitResult
	)
	for i := range batch.Candidates {
		c := &batch.Candidates[i]
		if c.ReviewState == models.ReviewRejected {
			if c.IsDuplicate() {
				result.SkippedDuplicate++
			} else {
				result.Rejected++
			}
			continue
		}
		if !c.HasDate {
			result.Rejected++
			continue
		}

		t := c.Type
		if t == models.TypeUnknown {
			t = models.TypeFromAmount(c.Amount)
		}
		txns = append(txns, models.Transaction{
			UserID:      batch.UserID,
			AccountID:   batch.AccountID,
			Date:        c.Date,
			Description: strings.TrimSpace(c.Description),
			Amount:      c.Amount.Abs(),
			Category:    c.Category,
			Type:        t,
		})
	}
	result.Committed = len(txns)

	imp := &models.StatementImport{
		UserID:               batch.UserID,
		AccountID:            batch.AccountID,
		SourceType:           batch.SourceType,
		Status:               models.ImportStatusImported,
		Filename:             batch.Filename,
		FileHash:             batch.FileHash,
		StatementDate:        batch.StatementHint,
		RowsDetected:         len(batch.Candidates),
		RowsImported:         result.Committed,
		RowsSkippedDuplicate: result.SkippedDuplicate,
		RowsRejected:         result.Rejected,
	}

	if err := s.storage.CommitImport(txns, imp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	batch.Status = models.BatchCommitted
	s.log.Info("import_committed",
		"account_id", batch.AccountID,
		"committed", result.Committed,
		"skipped_duplicate", result.SkippedDuplicate,
		"rejected", result.Rejected)

	return &result, nil
}

// filenameDatePattern finds an eight-digit YYYYMMDD run in an uploaded
// filename, e.g. statement_20240131.pdf.
var filenameDatePattern = regexp.MustCompile(`(\d{8})`)

func statementDateFromFilename(name string) *time.Time {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for _, m := range filenameDatePattern.FindAllString(base, -1) {
		d, err := time.Parse("20060102", m)
		if err != nil {
			continue
		}
		if d.Year() < 1990 || d.Year() > time.Now().Year()+1 {
			continue
		}
		return &d
	}
	return nil
}

func detectSource(filename string, data []byte) (models.SourceType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.SourcePDF, nil
	case ".csv":
		return models.SourceCSV, nil
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return models.SourcePDF, nil
	}
	if bytes.Contains(bytes.SplitN(data, []byte("\n"), 2)[0], []byte(",")) {
		return models.SourceCSV, nil
	}
	return "", ErrUnsupportedFile
}
