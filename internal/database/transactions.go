package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"personalfinance/internal/models"
)

const dateLayout = "2006-01-02"

func scanTransaction(scan func(dest ...any) error) (models.Transaction, error) {
	var t models.Transaction
	var date, amount, txnType string
	if err := scan(&t.ID, &t.UserID, &t.AccountID, &date, &t.Description,
		&amount, &t.Category, &txnType, &t.CreatedAt); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	t.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return t, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("parse transaction amount: %w", err)
	}
	t.Type = models.ParseTransactionType(txnType)
	return t, nil
}

// FindTransactionsNearDate returns the account's transactions dated within
// windowDays of date, ordered by date then id. This is the row-level dedup
// lookup: the window bounds both comparison cost and date-inference drift.
func (db *DB) FindTransactionsNearDate(accountID int64, date time.Time, windowDays int) ([]models.Transaction, error) {
	lo := date.AddDate(0, 0, -windowDays).Format(dateLayout)
	hi := date.AddDate(0, 0, windowDays).Format(dateLayout)

	rows, err := db.Query(`
		SELECT id, user_id, account_id, date, description, amount, category, transaction_type, created_at
		FROM transactions
		WHERE account_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id
	`, accountID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query transactions near date: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// ListFutureTransactions returns a user's transactions dated after the
// threshold, optionally limited to one account, ordered by date then id.
func (db *DB) ListFutureTransactions(userID, accountID int64, threshold time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, account_id, date, description, amount, category, transaction_type, created_at
		FROM transactions
		WHERE user_id = ? AND date > ?
	`
	args := []any{userID, threshold.Format(dateLayout)}
	if accountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date, id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query future transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// UpdateTransactionDate rewrites a single transaction's date
func (db *DB) UpdateTransactionDate(id int64, date time.Time) error {
	_, err := db.Exec(`
		UPDATE transactions SET date = ? WHERE id = ?
	`, date.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("update transaction date: %w", err)
	}
	return nil
}
