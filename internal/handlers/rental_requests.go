package handlers

import (
	"net/http"
	"strings"

	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type createRentalRequestBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category"`
	City        string `json:"city"`
}

func handleListRentalRequests(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	filter := database.RentalRequestFilter{
		Category: c.Query("category"),
		City:     strings.TrimSpace(c.Query("city")),
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := models.ParseID(raw, models.UserPrefix)
		if err != nil {
			respondError(c, err, "Invalid user ID")
			return
		}
		filter.UserID = id
	}

	list, err := database.ListRentalRequests(db, filter)
	if err != nil {
		respondError(c, err, "Failed to list rental requests")
		return
	}

	out := make([]rentalRequestResponse, 0, len(list))
	for i := range list {
		out = append(out, presentRentalRequest(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func handleGetRentalRequest(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	id, err := models.ParseID(c.Param("id"), "")
	if err != nil {
		respondError(c, err, "Invalid request ID")
		return
	}

	rr, err := database.GetRentalRequest(db, id)
	if err != nil {
		respondError(c, err, "Failed to get rental request", "request_id", id)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": presentRentalRequest(rr)})
}

func handleCreateRentalRequest(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	var body createRentalRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindingError(c, err, nil, "Title and description are required")
		return
	}

	title := truncate(strings.TrimSpace(body.Title), 255)
	description := truncate(strings.TrimSpace(body.Description), 5000)
	if title == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and description are required"})
		return
	}

	city := truncate(strings.TrimSpace(body.City), 100)
	if city == "" {
		city = user.City
	}

	rr, err := database.CreateRentalRequest(db, models.RentalRequest{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		Category:    truncate(strings.TrimSpace(body.Category), 50),
		City:        city,
	})
	if err != nil {
		respondError(c, err, "Failed to create rental request", "user_id", user.ID)
		return
	}

	logger.Info("Rental request created", "request_id", rr.ID, "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Rental request created", "request": presentRentalRequest(rr)})
}

func handleDeleteRentalRequest(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	id, err := models.ParseID(c.Param("id"), "")
	if err != nil {
		respondError(c, err, "Invalid request ID")
		return
	}

	if err := database.DeleteRentalRequest(db, user, id); err != nil {
		respondError(c, err, "Failed to delete rental request", "request_id", id, "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request deleted"})
}
