package handlers

import (
	"net/http"
	"strings"

	"arthings/internal/apperr"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/metrics"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type createRentalRequest struct {
	ProductID models.RawID `json:"productId"`
	ItemID    models.RawID `json:"itemId"`
	StartDate string       `json:"startDate" binding:"required"`
	EndDate   string       `json:"endDate" binding:"required"`
	Message   string       `json:"message" binding:"max=1000"`
}

type rentalStatusRequest struct {
	Status string `json:"status" binding:"required,rentalstatus"`
}

func handleListRentals(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	role := database.RoleRenter
	if c.Query("role") == database.RoleOwner {
		role = database.RoleOwner
	}

	list, err := database.ListRentals(db, user.ID, role)
	if err != nil {
		respondError(c, err, "Failed to list rentals", "user_id", user.ID, "role", role)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rentals": presentRentals(list)})
}

func handleGetRental(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	id, err := models.ParseID(c.Param("id"), models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}

	rental, err := database.GetRental(db, id)
	if err != nil {
		respondError(c, err, "Failed to get rental", "rental_id", id)
		return
	}

	if rental.RenterID != user.ID && !user.CanManage(rental.OwnerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rental": presentRental(rental)})
}

func handleCreateRental(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, map[string]string{"Message": "Message is too long"},
			"Product ID, start date, and end date are required")
		return
	}

	rawID := req.ProductID
	if rawID == "" {
		rawID = req.ItemID
	}
	if rawID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID, start date, and end date are required"})
		return
	}

	itemID, err := rawID.Parse(models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}
	start, err := rentals.ParseDate(req.StartDate)
	if err != nil {
		respondError(c, err, "Invalid start date")
		return
	}
	end, err := rentals.ParseDate(req.EndDate)
	if err != nil {
		respondError(c, err, "Invalid end date")
		return
	}

	rental, err := database.CreateRental(db, database.NewRental{
		ItemID:    itemID,
		RenterID:  user.ID,
		StartDate: start,
		EndDate:   end,
		Message:   strings.TrimSpace(req.Message),
	})
	if err != nil {
		respondError(c, err, "Failed to create rental", "item_id", itemID, "user_id", user.ID)
		return
	}

	metrics.RecordRentalCreated()
	logger.Info("Rental created", "rental_id", rental.ID, "item_id", itemID, "user_id", user.ID, "days", rental.Days)

	if service := emailServiceFrom(c); service != nil {
		go notify(service.SendRentalRequestEmail, rental)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Rental request sent", "rental": presentRental(rental)})
}

func handleUpdateRentalStatus(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	id, err := models.ParseID(c.Param("id"), models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}

	var req rentalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, nil, "Invalid status")
		return
	}
	status := rentals.Status(req.Status)

	rental, err := database.UpdateRentalStatus(db, user, id, status)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) {
			logger.Warn("Rejected rental status change", "rental_id", id, "user_id", user.ID, "status", req.Status)
		}
		respondError(c, err, "Failed to update rental status", "rental_id", id, "user_id", user.ID)
		return
	}

	party := rentals.Participants{OwnerID: rental.OwnerID, RenterID: rental.RenterID}.PartyOf(user.ID)
	metrics.RecordRentalTransition(req.Status, party.String())

	if service := emailServiceFrom(c); service != nil && party == rentals.PartyOwner {
		go notify(service.SendRentalStatusEmail, rental)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rental status updated", "rental": presentRental(rental)})
}

// notify runs a best-effort email send outside the request.
func notify(send func(*models.Rental) error, rental *models.Rental) {
	if err := send(rental); err != nil {
		logger.Warn("Failed to send rental notification", "rental_id", rental.ID, "error", err)
	}
}
