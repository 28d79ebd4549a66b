package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"arthings/internal/apperr"
	"arthings/internal/logger"
	"arthings/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, password_hash, name, phone, city, is_admin, is_verified, last_seen, created_at, updated_at`

// ConsentInput is a legal document acceptance submitted with registration.
type ConsentInput struct {
	DocumentType    string `json:"documentType"`
	DocumentVersion string `json:"documentVersion"`
}

// NewUser holds validated registration data.
type NewUser struct {
	Email     string
	Password  string
	Name      string
	Phone     string
	City      string
	Consents  []ConsentInput
	IPAddress string
	UserAgent string
}

func GetUserByID(db *sqlx.DB, userID int) (*models.User, error) {
	user := &models.User{}
	err := db.Get(user, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("User")
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// CreateUser inserts the user and any submitted consents in one transaction.
func CreateUser(db *sqlx.DB, nu NewUser) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(nu.Email))
	name := strings.TrimSpace(nu.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO users (email, password_hash, name, phone, city) VALUES (?, ?, ?, ?, ?)`,
		email, string(hashedPassword), name, strings.TrimSpace(nu.Phone), strings.TrimSpace(nu.City))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	for _, c := range nu.Consents {
		if c.DocumentType == "" || c.DocumentVersion == "" {
			continue
		}
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO legal_consents (user_id, document_type, document_version, ip_address, user_agent)
			VALUES (?, ?, ?, ?, ?)
		`, id, c.DocumentType, c.DocumentVersion, nu.IPAddress, nu.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("failed to record consent: %w", err)
		}
	}

	user := &models.User{}
	if err := tx.Get(user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to load created user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	return user, nil
}

func AuthenticateUser(db *sqlx.DB, email, password string) (*models.User, error) {
	user := &models.User{}
	err := db.Get(user, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return user, nil
}

// ProfileUpdate carries optional profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	Name  *string
	Phone *string
	City  *string
}

func UpdateProfile(db *sqlx.DB, userID int, upd ProfileUpdate) (*models.User, error) {
	_, err := db.Exec(`
		UPDATE users
		SET name = COALESCE(?, name), phone = COALESCE(?, phone), city = COALESCE(?, city), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, upd.Name, upd.Phone, upd.City, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return GetUserByID(db, userID)
}

// DeleteUser removes the user and, through cascades, everything they own.
// It returns the image paths of the deleted listings so the caller can
// remove the files.
func DeleteUser(db *sqlx.DB, userID int) ([]string, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var images []string
	err = tx.Select(&images, `
		SELECT ii.image_path FROM item_images ii
		JOIN items i ON i.id = ii.item_id
		WHERE i.user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user images: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("User")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user deletion: %w", err)
	}

	return images, nil
}

// PromoteAdmin grants the admin flag to the user with the given email.
// It reports whether such a user exists.
func PromoteAdmin(db *sqlx.DB, email string) (bool, error) {
	result, err := db.Exec(`UPDATE users SET is_admin = TRUE, updated_at = CURRENT_TIMESTAMP WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, fmt.Errorf("failed to promote admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

func CreateSession(db *sqlx.DB, userID int, sessionDuration time.Duration) (*models.Session, error) {
	sessionID, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(sessionDuration),
		CreatedAt: now,
	}

	_, err = db.Exec(`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		session.ID, session.UserID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession resolves a live session to its user and slides the expiry.
func ValidateSession(db *sqlx.DB, sessionID string, sessionDuration time.Duration) (*models.User, error) {
	user := &models.User{}
	err := db.Get(user, `
		SELECT u.id, u.email, u.password_hash, u.name, u.phone, u.city, u.is_admin, u.is_verified,
		       u.last_seen, u.created_at, u.updated_at
		FROM users u
		INNER JOIN sessions s ON u.id = s.user_id
		WHERE s.id = ? AND s.expires_at > ?
	`, sessionID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Unauthorized("Session not found or expired")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	now := time.Now().UTC()
	if !user.LastSeen.Valid || now.Sub(user.LastSeen.Time) > 5*time.Minute {
		if _, err := db.Exec(`UPDATE users SET last_seen = ? WHERE id = ?`, now, user.ID); err != nil {
			logger.Warn("Failed to update last_seen", "user_id", user.ID, "error", err)
		}
	}

	if err := RenewSession(db, sessionID, sessionDuration); err != nil {
		logger.Warn("Failed to renew session", "session_id", sessionID, "error", err)
	}

	return user, nil
}

func RenewSession(db *sqlx.DB, sessionID string, sessionDuration time.Duration) error {
	_, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(sessionDuration), sessionID)
	if err != nil {
		return fmt.Errorf("failed to renew session: %w", err)
	}
	return nil
}

func DeleteSession(db *sqlx.DB, sessionID string) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions drops expired sessions, CSRF and verification tokens.
func CleanupExpiredSessions(db *sqlx.DB) (int64, error) {
	now := time.Now().UTC()
	var total int64
	for _, table := range []string{"sessions", "csrf_tokens", "verification_tokens"} {
		result, err := db.Exec(`DELETE FROM `+table+` WHERE expires_at < ?`, now)
		if err != nil {
			return total, fmt.Errorf("failed to cleanup expired %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}
	return total, nil
}

func CreateCSRFToken(db *sqlx.DB, userID int) (*models.CSRFToken, error) {
	token, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	now := time.Now().UTC()
	csrfToken := &models.CSRFToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}

	_, err = db.Exec(`INSERT INTO csrf_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		csrfToken.Token, csrfToken.UserID, csrfToken.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSRF token: %w", err)
	}

	return csrfToken, nil
}

// ValidateCSRFToken consumes a token; each token is valid for one request.
func ValidateCSRFToken(db *sqlx.DB, token string, userID int) error {
	result, err := db.Exec(`DELETE FROM csrf_tokens WHERE token = ? AND user_id = ? AND expires_at > ?`,
		token, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to validate CSRF token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.Forbidden("Invalid CSRF token")
	}
	return nil
}

func generateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func CreateVerificationToken(db *sqlx.DB, userID int) (*models.VerificationToken, error) {
	now := time.Now().UTC()
	token := &models.VerificationToken{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}

	_, err := db.Exec(`INSERT INTO verification_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token.Token, token.UserID, token.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	return token, nil
}

// VerifyUser marks the token's user as verified and consumes the token.
func VerifyUser(db *sqlx.DB, token string) (*models.User, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int
	err = tx.Get(&userID, `SELECT user_id FROM verification_tokens WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Verification token")
		}
		return nil, fmt.Errorf("failed to query verification token: %w", err)
	}

	if _, err := tx.Exec(`UPDATE users SET is_verified = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM verification_tokens WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to delete verification tokens: %w", err)
	}

	user := &models.User{}
	if err := tx.Get(user, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to load verified user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit verification: %w", err)
	}

	return user, nil
}
