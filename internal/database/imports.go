package database

import (
	"database/sql"
	"fmt"
	"time"

	"personalfinance/internal/models"
)

// FindCommittedImport returns the most recent IMPORTED audit row for the
// (account, file hash) pair, or nil if the statement has never been
// committed. This backs the statement-level duplicate check.
func (db *DB) FindCommittedImport(accountID int64, fileHash string) (*models.StatementImport, error) {
	row := db.QueryRow(`
		SELECT id, user_id, account_id, source_type, status, filename, file_hash,
			   statement_date, rows_detected, rows_imported, rows_skipped_duplicate,
			   rows_rejected, notes, created_at
		FROM statement_imports
		WHERE account_id = ? AND file_hash = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID, fileHash, models.ImportStatusImported)

	imp, err := scanImport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query committed import: %w", err)
	}
	return imp, nil
}

// CreateStatementImport inserts an audit row outside of any commit, used
// for BLOCKED_DUPLICATE entries.
func (db *DB) CreateStatementImport(imp *models.StatementImport) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO statement_imports (
			user_id, account_id, source_type, status, filename, file_hash,
			statement_date, rows_detected, rows_imported, rows_skipped_duplicate,
			rows_rejected, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, imp.UserID, imp.AccountID, string(imp.SourceType), imp.Status, imp.Filename,
		imp.FileHash, statementDateArg(imp.StatementDate), imp.RowsDetected,
		imp.RowsImported, imp.RowsSkippedDuplicate, imp.RowsRejected, imp.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert statement import: %w", err)
	}
	return result.LastInsertId()
}

// CommitImport writes all accepted transactions and exactly one audit entry
// in a single database transaction. On any failure nothing is persisted.
func (db *DB) CommitImport(transactions []models.Transaction, imp *models.StatementImport) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	for _, t := range transactions {
		_, err := tx.Exec(`
			INSERT INTO transactions (user_id, account_id, date, description, amount, category, transaction_type)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.UserID, t.AccountID, t.Date.Format(dateLayout), t.Description,
			t.Amount.StringFixed(2), t.Category, t.Type.String())
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO statement_imports (
			user_id, account_id, source_type, status, filename, file_hash,
			statement_date, rows_detected, rows_imported, rows_skipped_duplicate,
			rows_rejected, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, imp.UserID, imp.AccountID, string(imp.SourceType), imp.Status, imp.Filename,
		imp.FileHash, statementDateArg(imp.StatementDate), imp.RowsDetected,
		imp.RowsImported, imp.RowsSkippedDuplicate, imp.RowsRejected, imp.Notes)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// ListImports returns a page of the user's audit entries, newest first,
// along with the total count.
func (db *DB) ListImports(userID int64, limit, offset int) ([]models.StatementImport, int, error) {
	var total int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM statement_imports WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count imports: %w", err)
	}

	rows, err := db.Query(`
		SELECT id, user_id, account_id, source_type, status, filename, file_hash,
			   statement_date, rows_detected, rows_imported, rows_skipped_duplicate,
			   rows_rejected, notes, created_at
		FROM statement_imports
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var imports []models.StatementImport
	for rows.Next() {
		imp, err := scanImport(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		imports = append(imports, *imp)
	}
	return imports, total, rows.Err()
}

func scanImport(scan func(dest ...any) error) (*models.StatementImport, error) {
	var imp models.StatementImport
	var sourceType string
	var stmtDate sql.NullString
	err := scan(&imp.ID, &imp.UserID, &imp.AccountID, &sourceType, &imp.Status,
		&imp.Filename, &imp.FileHash, &stmtDate, &imp.RowsDetected,
		&imp.RowsImported, &imp.RowsSkippedDuplicate, &imp.RowsRejected,
		&imp.Notes, &imp.CreatedAt)
	if err != nil {
		return nil, err
	}
	imp.SourceType = models.SourceType(sourceType)
	if stmtDate.Valid && stmtDate.String != "" {
		d, err := time.Parse(dateLayout, stmtDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse statement date: %w", err)
		}
		imp.StatementDate = &d
	}
	return &imp, nil
}

func statementDateArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(dateLayout)
}
