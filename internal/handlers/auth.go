package handlers

import (
	"net/http"

	"arthings/internal/config"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/middleware"
	"arthings/internal/models"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type consentEntry struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

type registerRequest struct {
	Email    string         `json:"email" binding:"required,email,max=255"`
	Password string         `json:"password" binding:"required,min=6,max=128"`
	Name     string         `json:"name" binding:"max=100"`
	Phone    string         `json:"phone" binding:"max=30"`
	City     string         `json:"city" binding:"max=100"`
	Consents []consentEntry `json:"consents"`
}

var registerMessages = map[string]string{
	"Email.required":    "Email and password are required",
	"Password.required": "Email and password are required",
	"Email.email":       "Invalid email format",
	"Password.min":      "Password must be at least 6 characters",
	"Password.max":      "Password is too long",
	"Name":              "Name is too long",
	"Phone":             "Phone is too long",
	"City":              "City is too long",
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone *string `json:"phone" binding:"omitempty,max=30"`
	City  *string `json:"city" binding:"omitempty,max=100"`
}

func setSessionCookie(c *gin.Context, cfg *config.Config, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, sessionID, int(cfg.SessionDuration.Seconds()), "/", "", !cfg.IsDevelopment(), true)
}

func clearSessionCookie(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", !cfg.IsDevelopment(), true)
}

func startSession(c *gin.Context, db *sqlx.DB, cfg *config.Config, user *models.User) error {
	session, err := database.CreateSession(db, user.ID, cfg.SessionDuration)
	if err != nil {
		return err
	}
	setSessionCookie(c, cfg, session.ID)
	return nil
}

func handleRegister(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	cfg := c.MustGet("config").(*config.Config)

	registrationEnabled, err := database.IsRegistrationEnabled(db)
	if err != nil {
		respondError(c, err, "Failed to check registration status")
		return
	}
	if !registrationEnabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Registration has been disabled by an administrator"})
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, registerMessages, "Email and password are required")
		return
	}

	consents := make([]database.ConsentInput, 0, len(req.Consents))
	for _, ce := range req.Consents {
		consents = append(consents, database.ConsentInput{DocumentType: ce.Type, DocumentVersion: ce.Version})
	}

	user, err := database.CreateUser(db, database.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Phone:     req.Phone,
		City:      req.City,
		Consents:  consents,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err, "Failed to create user", "email", req.Email)
		return
	}

	if service := emailServiceFrom(c); service != nil {
		token, err := database.CreateVerificationToken(db, user.ID)
		if err != nil {
			logger.Error("Failed to create verification token", "user_id", user.ID, "error", err)
		} else {
			go func() {
				if err := service.SendVerificationEmail(user, token.Token); err != nil {
					logger.Warn("Failed to send verification email", "email", user.Email, "user_id", user.ID, "error", err)
				}
			}()
		}
	}

	if err := startSession(c, db, cfg, user); err != nil {
		respondError(c, err, "Failed to create session", "user_id", user.ID)
		return
	}

	logger.Info("User registered", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": presentUser(user)})
}

func handleLogin(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	cfg := c.MustGet("config").(*config.Config)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, nil, "Email and password are required")
		return
	}

	user, err := database.AuthenticateUser(db, req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Failed to authenticate user", "email", req.Email)
		return
	}

	if err := startSession(c, db, cfg, user); err != nil {
		respondError(c, err, "Failed to create session", "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": presentUser(user)})
}

func handleLogout(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	cfg := c.MustGet("config").(*config.Config)

	if sessionID, err := c.Cookie(middleware.SessionCookie); err == nil && sessionID != "" {
		if err := database.DeleteSession(db, sessionID); err != nil {
			logger.Warn("Failed to delete session", "session_id", sessionID, "error", err)
		}
	}

	clearSessionCookie(c, cfg)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": presentUser(currentUser(c))})
}

func handleCSRFToken(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	token, err := database.CreateCSRFToken(db, user.ID)
	if err != nil {
		respondError(c, err, "Failed to create CSRF token", "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"csrfToken": token.Token})
}

func handleUpdateProfile(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, map[string]string{
			"Name.min": "Name cannot be empty",
			"Name":     "Name is too long",
			"Phone":    "Phone is too long",
			"City":     "City is too long",
		}, "Invalid profile data")
		return
	}

	updated, err := database.UpdateProfile(db, user.ID, database.ProfileUpdate{
		Name:  trimmedPtr(req.Name),
		Phone: trimmedPtr(req.Phone),
		City:  trimmedPtr(req.City),
	})
	if err != nil {
		respondError(c, err, "Failed to update profile", "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": presentUser(updated)})
}

func handleDeleteAccount(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	cfg := c.MustGet("config").(*config.Config)
	store := c.MustGet("uploads").(*uploads.Store)
	user := currentUser(c)

	images, err := database.DeleteUser(db, user.ID)
	if err != nil {
		respondError(c, err, "Failed to delete account", "user_id", user.ID)
		return
	}
	store.Remove(images)

	logger.Info("User deleted own account", "user_id", user.ID)
	clearSessionCookie(c, cfg)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func handleVerifyEmail(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	user, err := database.VerifyUser(db, c.Param("token"))
	if err != nil {
		respondError(c, err, "Failed to verify email")
		return
	}

	logger.Info("User verified email", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully", "user": presentUser(user)})
}
