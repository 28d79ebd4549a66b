package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"arthings/internal/config"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type consentRequest struct {
	DocumentType    string `json:"documentType" binding:"required,max=50"`
	DocumentVersion string `json:"documentVersion" binding:"required,max=20"`
}

func handleLegalDocuments(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	docs, err := database.ListLegalDocuments(db)
	if err != nil {
		respondError(c, err, "Failed to list legal documents")
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// handleLegalDocument serves the stored file of a document from the legal
// documents directory.
func handleLegalDocument(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	cfg := c.MustGet("config").(*config.Config)

	doc, err := database.GetLegalDocument(db, c.Param("type"))
	if err != nil {
		respondError(c, err, "Failed to get legal document", "type", c.Param("type"))
		return
	}

	path := filepath.Join(cfg.LegalDocsDir, filepath.Base(doc.File))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		logger.Warn("Legal document file missing", "type", doc.Type, "path", path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Document file missing"})
		return
	}

	c.File(path)
}

func handleRecordConsent(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, nil, "Missing document info")
		return
	}

	docType := strings.TrimSpace(req.DocumentType)
	docVersion := strings.TrimSpace(req.DocumentVersion)
	if docType == "" || docVersion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing document info"})
		return
	}

	consent, created, err := database.RecordConsent(db, models.LegalConsent{
		UserID:          user.ID,
		DocumentType:    docType,
		DocumentVersion: docVersion,
		IPAddress:       c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err, "Failed to record consent", "user_id", user.ID, "type", docType)
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Consent already recorded", "consent": presentConsent(consent)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Consent recorded", "consent": presentConsent(consent)})
}

func handleConsentCheck(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	statuses, err := database.ConsentStatuses(db, user.ID)
	if err != nil {
		respondError(c, err, "Failed to check consent", "user_id", user.ID)
		return
	}

	docType := c.Query("type")
	if docType == "" {
		c.JSON(http.StatusOK, gin.H{"status": statuses})
		return
	}

	for _, st := range statuses {
		if st.Type == docType {
			c.JSON(http.StatusOK, gin.H{"status": st})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Document type not found"})
}
