package database

import (
	"database/sql"
	"fmt"

	"personalfinance/internal/models"
)

// CreateUser inserts a new user with a pre-hashed password
func (db *DB) CreateUser(username, passwordHash string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO users (username, password_hash) VALUES (?, ?)
	`, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return result.LastInsertId()
}

// GetUserByName returns a user by username, or nil if no such user
func (db *DB) GetUserByName(username string) (*models.User, error) {
	var u models.User
	err := db.QueryRow(`
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
