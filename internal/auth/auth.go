package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"personalfinance/internal/logger"
	"personalfinance/internal/models"
)

const (
	SessionCookieName = "pf_session"
	SessionDuration   = 30 * 24 * time.Hour // 30 days
)

type userIDKey struct{}

// UserID returns the authenticated user's id from the request context,
// set by Middleware.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}

type Auth struct {
	db *sql.DB
}

func New(db *sql.DB) *Auth {
	return &Auth{db: db}
}

// HashPassword returns the stored form of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CheckPassword verifies a login attempt against a stored user.
func (a *Auth) CheckPassword(ctx context.Context, user *models.User, password string) bool {
	l := logger.FromContext(ctx)

	hash := HashPassword(password)
	success := subtle.ConstantTimeCompare([]byte(hash), []byte(user.PasswordHash)) == 1
	if success {
		l.Info("auth_login_success", "user", user.Username)
	} else {
		l.Warn("auth_login_failed", "user", user.Username, "reason", "invalid_password")
	}
	return success
}

// CreateSession creates a session for the user and returns the token
func (a *Auth) CreateSession(ctx context.Context, userID int64) (string, error) {
	l := logger.FromContext(ctx)

	token, err := generateToken()
	if err != nil {
		l.Error("auth_session_create_error", "error", err.Error())
		return "", err
	}

	expiresAt := time.Now().Add(SessionDuration)
	_, err = a.db.Exec(`
		INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
	`, token, userID, expiresAt)
	if err != nil {
		l.Error("auth_session_create_error", "error", err.Error())
		return "", fmt.Errorf("create session: %w", err)
	}

	l.Info("auth_session_created", "user_id", userID, "expires_at", expiresAt.Format(time.RFC3339))
	return token, nil
}

// ValidateSession returns the owning user's id for a valid token, or 0.
func (a *Auth) ValidateSession(ctx context.Context, token string) int64 {
	l := logger.FromContext(ctx)

	var (
		userID    int64
		expiresAt time.Time
	)
	err := a.db.QueryRow(`
		SELECT user_id, expires_at FROM sessions WHERE token = ?
	`, token).Scan(&userID, &expiresAt)
	if err != nil {
		l.Debug("auth_session_invalid", "reason", "not_found")
		return 0
	}

	if time.Now().After(expiresAt) {
		l.Debug("auth_session_invalid", "reason", "expired")
		return 0
	}
	return userID
}

// DeleteSession removes a session
func (a *Auth) DeleteSession(ctx context.Context, token string) error {
	l := logger.FromContext(ctx)

	_, err := a.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		l.Error("auth_session_delete_error", "error", err.Error())
		return err
	}
	l.Info("auth_logout")
	return nil
}

// CleanExpiredSessions removes expired sessions
func (a *Auth) CleanExpiredSessions() error {
	_, err := a.db.Exec(`DELETE FROM sessions WHERE expires_at < datetime('now')`)
	return err
}

// SetSessionCookie sets the session cookie on the response
func (a *Auth) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie
func (a *Auth) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// GetSessionFromRequest retrieves the session token from the request cookie
func (a *Auth) GetSessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Middleware requires a valid session and stores the user's id in the
// request context. Login itself is exempt.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := logger.FromContext(ctx)

		if r.URL.Path == "/api/login" {
			next.ServeHTTP(w, r)
			return
		}

		token := a.GetSessionFromRequest(r)
		if token == "" {
			l.Debug("auth_no_session", "path", r.URL.Path)
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		userID := a.ValidateSession(ctx, token)
		if userID == 0 {
			l.Debug("auth_session_rejected", "path", r.URL.Path)
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userIDKey{}, userID)))
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
