package database

import (
	"database/sql"
	"errors"
	"fmt"

	"arthings/internal/models"

	"github.com/jmoiron/sqlx"
)

func ListLegalDocuments(db *sqlx.DB) ([]models.LegalDocument, error) {
	docs := []models.LegalDocument{}
	if err := db.Select(&docs, `SELECT type, version, file, updated_at FROM legal_documents ORDER BY type`); err != nil {
		return nil, fmt.Errorf("failed to query legal documents: %w", err)
	}
	return docs, nil
}

func GetLegalDocument(db *sqlx.DB, docType string) (*models.LegalDocument, error) {
	doc := &models.LegalDocument{}
	if err := db.Get(doc, `SELECT type, version, file, updated_at FROM legal_documents WHERE type = ?`, docType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Document")
		}
		return nil, fmt.Errorf("failed to query legal document: %w", err)
	}
	return doc, nil
}

const consentColumns = `id, user_id, document_type, document_version, ip_address, user_agent, accepted_at`

// RecordConsent stores a consent for (user, type, version). When one is
// already on file, that record is returned and created is false.
func RecordConsent(db *sqlx.DB, c models.LegalConsent) (consent *models.LegalConsent, created bool, err error) {
	existing, err := findConsent(db, c.UserID, c.DocumentType, c.DocumentVersion)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	result, err := db.Exec(`
		INSERT INTO legal_consents (user_id, document_type, document_version, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?)
	`, c.UserID, c.DocumentType, c.DocumentVersion, c.IPAddress, c.UserAgent)
	if err != nil {
		if isUniqueViolation(err) {
			// lost a race with an identical request
			existing, ferr := findConsent(db, c.UserID, c.DocumentType, c.DocumentVersion)
			if ferr != nil {
				return nil, false, ferr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to record consent: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get consent ID: %w", err)
	}

	consent = &models.LegalConsent{}
	if err := db.Get(consent, `SELECT `+consentColumns+` FROM legal_consents WHERE id = ?`, id); err != nil {
		return nil, false, fmt.Errorf("failed to load consent: %w", err)
	}
	return consent, true, nil
}

func findConsent(db *sqlx.DB, userID int, docType, version string) (*models.LegalConsent, error) {
	consent := &models.LegalConsent{}
	err := db.Get(consent, `
		SELECT `+consentColumns+` FROM legal_consents
		WHERE user_id = ? AND document_type = ? AND document_version = ?
	`, userID, docType, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query consent: %w", err)
	}
	return consent, nil
}

// ConsentStatuses reports, for every legal document, whether the user
// accepted its current version.
func ConsentStatuses(db *sqlx.DB, userID int) ([]models.ConsentStatus, error) {
	statuses := []models.ConsentStatus{}
	err := db.Select(&statuses, `
		SELECT d.type, d.version,
		       EXISTS (
		           SELECT 1 FROM legal_consents c
		           WHERE c.user_id = ? AND c.document_type = d.type AND c.document_version = d.version
		       ) AS has_consent
		FROM legal_documents d
		ORDER BY d.type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query consent status: %w", err)
	}
	return statuses, nil
}
