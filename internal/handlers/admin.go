package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/metrics"
	"arthings/internal/models"
	"arthings/internal/rentals"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type adminRentalResponse struct {
	ID          string    `json:"id"`
	ItemTitle   string    `json:"itemTitle"`
	OwnerName   string    `json:"ownerName"`
	RenterName  string    `json:"renterName"`
	RenterEmail string    `json:"renterEmail"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	Days        int       `json:"days"`
	TotalPrice  float64   `json:"totalPrice"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func presentAdminRentals(list []models.Rental) []adminRentalResponse {
	out := make([]adminRentalResponse, 0, len(list))
	for _, r := range list {
		out = append(out, adminRentalResponse{
			ID:          models.FormatID(models.RentalPrefix, r.ID),
			ItemTitle:   r.ItemTitle,
			OwnerName:   r.OwnerName,
			RenterName:  r.RenterName,
			RenterEmail: r.RenterEmail,
			StartDate:   rentals.FormatDate(r.StartDate),
			EndDate:     rentals.FormatDate(r.EndDate),
			Days:        r.Days,
			TotalPrice:  r.TotalPrice,
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

type adminListingResponse struct {
	database.ListingWithStats
	Image *string `json:"image"`
}

type adminStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// pageFromQuery reads page and limit, clamping both to sane bounds.
func pageFromQuery(c *gin.Context) database.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return database.Page{Number: page, Size: limit}
}

func totalPages(total, size int) int {
	return (total + size - 1) / size
}

func handleAdminCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin": true})
}

func handleAdminStats(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	stats, recent, err := database.GetAdminStats(db)
	if err != nil {
		respondError(c, err, "Failed to get admin stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats, "recentRentals": presentAdminRentals(recent)})
}

func handleAdminUsers(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	page := pageFromQuery(c)

	users, total, err := database.ListUsersWithStats(db, strings.TrimSpace(c.Query("search")), page)
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"total":      total,
		"page":       page.Number,
		"totalPages": totalPages(total, page.Size),
	})
}

func handleAdminDeleteUser(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	store := c.MustGet("uploads").(*uploads.Store)
	admin := currentUser(c)

	userID, err := models.ParseID(c.Param("id"), models.UserPrefix)
	if err != nil {
		respondError(c, err, "Invalid user ID")
		return
	}

	if userID == admin.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account from the admin panel"})
		return
	}

	images, err := database.DeleteUser(db, userID)
	if err != nil {
		respondError(c, err, "Failed to delete user", "target_user", userID)
		return
	}
	store.Remove(images)

	logger.Info("Admin deleted user", "user_id", admin.ID, "target_user", userID)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func handleToggleUserAdmin(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	admin := currentUser(c)

	userID, err := models.ParseID(c.Param("id"), models.UserPrefix)
	if err != nil {
		respondError(c, err, "Invalid user ID")
		return
	}

	// Prevent admin from removing their own admin status
	if userID == admin.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot modify your own admin status"})
		return
	}

	isAdmin, err := database.ToggleUserAdmin(db, userID)
	if err != nil {
		respondError(c, err, "Failed to toggle admin status", "target_user", userID)
		return
	}

	logger.Info("Admin toggled admin status", "user_id", admin.ID, "target_user", userID, "is_admin", isAdmin)
	c.JSON(http.StatusOK, gin.H{"message": "User admin status updated", "isAdmin": isAdmin})
}

func handleAdminListings(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	page := pageFromQuery(c)

	listings, total, err := database.ListListingsWithStats(db, strings.TrimSpace(c.Query("search")), page)
	if err != nil {
		respondError(c, err, "Failed to list listings")
		return
	}

	out := make([]adminListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, adminListingResponse{
			ListingWithStats: l,
			Image:            nullableString(l.Image.Valid, l.Image.String),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"listings":   out,
		"total":      total,
		"page":       page.Number,
		"totalPages": totalPages(total, page.Size),
	})
}

func handleAdminDeleteListing(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	store := c.MustGet("uploads").(*uploads.Store)
	admin := currentUser(c)

	itemID, err := models.ParseID(c.Param("id"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	images, err := database.DeleteItem(db, admin, itemID)
	if err != nil {
		respondError(c, err, "Failed to delete listing", "item_id", itemID)
		return
	}
	store.Remove(images)

	logger.Info("Admin deleted listing", "user_id", admin.ID, "item_id", itemID)
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func handleAdminRentals(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	page := pageFromQuery(c)

	status := c.Query("status")
	if status != "" {
		st, err := rentals.ParseStatus(status)
		if err != nil {
			respondError(c, err, "Invalid status filter")
			return
		}
		status = string(st)
	}

	list, total, err := database.ListAllRentals(db, status, page)
	if err != nil {
		respondError(c, err, "Failed to list rentals")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rentals":    presentAdminRentals(list),
		"total":      total,
		"page":       page.Number,
		"totalPages": totalPages(total, page.Size),
	})
}

// handleAdminRentalStatus forces any lifecycle status, bypassing the party rules.
func handleAdminRentalStatus(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	admin := currentUser(c)

	rentalID, err := models.ParseID(c.Param("id"), models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}

	const invalidStatus = "Invalid status. Must be one of: pending, approved, declined, completed, cancelled"

	var req adminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidStatus})
		return
	}
	status, err := rentals.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidStatus})
		return
	}

	rental, err := database.ForceRentalStatus(db, rentalID, status)
	if err != nil {
		respondError(c, err, "Failed to force rental status", "rental_id", rentalID)
		return
	}

	metrics.RecordRentalTransition(string(status), "admin")
	logger.Info("Admin changed rental status", "user_id", admin.ID, "rental_id", rentalID, "status", status)
	c.JSON(http.StatusOK, gin.H{"message": "Rental status updated", "status": rental.Status})
}

func handleAdminSettings(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	enabled, err := database.IsRegistrationEnabled(db)
	if err != nil {
		respondError(c, err, "Failed to get registration status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrationEnabled": enabled})
}

func handleToggleRegistration(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	admin := currentUser(c)

	enabled, err := database.ToggleRegistration(db)
	if err != nil {
		respondError(c, err, "Failed to toggle registration")
		return
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	logger.Info("Admin toggled registration", "user_id", admin.ID, "enabled", enabled)
	c.JSON(http.StatusOK, gin.H{"message": "Registration " + state, "registrationEnabled": enabled})
}
