package database

import (
	"database/sql"
	"fmt"

	"personalfinance/internal/models"
)

// ListAccounts returns all accounts for a user ordered by name
func (db *DB) ListAccounts(userID int64) ([]models.Account, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, institution, account_type, active, created_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Institution,
			&a.AccountType, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount returns an account by ID, scoped to the owning user
func (db *DB) GetAccount(userID, id int64) (*models.Account, error) {
	var a models.Account
	err := db.QueryRow(`
		SELECT id, user_id, name, institution, account_type, active, created_at
		FROM accounts
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&a.ID, &a.UserID, &a.Name, &a.Institution,
		&a.AccountType, &a.Active, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &a, nil
}

// GetAccountByName returns an account by case-insensitive name match
func (db *DB) GetAccountByName(userID int64, name string) (*models.Account, error) {
	var a models.Account
	err := db.QueryRow(`
		SELECT id, user_id, name, institution, account_type, active, created_at
		FROM accounts
		WHERE user_id = ? AND name = ? COLLATE NOCASE
	`, userID, name).Scan(&a.ID, &a.UserID, &a.Name, &a.Institution,
		&a.AccountType, &a.Active, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query account by name: %w", err)
	}
	return &a, nil
}

// CreateAccount inserts a new account
func (db *DB) CreateAccount(a models.Account) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO accounts (user_id, name, institution, account_type, active)
		VALUES (?, ?, ?, ?, ?)
	`, a.UserID, a.Name, a.Institution, a.AccountType, a.Active)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	return result.LastInsertId()
}
