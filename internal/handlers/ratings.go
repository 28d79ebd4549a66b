package handlers

import (
	"net/http"

	"arthings/internal/apperr"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/metrics"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type createRatingRequest struct {
	RentalID models.RawID `json:"rentalId" binding:"required"`
	ToUserID models.RawID `json:"toUserId" binding:"required"`
	Score    *int         `json:"score" binding:"required"`
	Comment  string       `json:"comment"`
}

type canRateResponse struct {
	rentals.Eligibility
	OwnerID    string `json:"ownerId,omitempty"`
	RenterID   string `json:"renterId,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`
	RenterName string `json:"renterName,omitempty"`
}

func callerID(c *gin.Context) int {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return 0
}

func handleCreateRating(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	var req createRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err, nil, "rentalId, toUserId, and score are required")
		return
	}

	rentalID, err := req.RentalID.Parse(models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}
	toUserID, err := req.ToUserID.Parse(models.UserPrefix)
	if err != nil {
		respondError(c, err, "Invalid user ID")
		return
	}

	rating, err := database.CreateRating(db, database.NewRating{
		RentalID:   rentalID,
		FromUserID: user.ID,
		ToUserID:   toUserID,
		Score:      *req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		respondError(c, err, "Failed to create rating", "rental_id", rentalID, "user_id", user.ID)
		return
	}

	metrics.RecordRating(rating.Score)
	logger.Info("Rating submitted", "rating_id", rating.ID, "rental_id", rentalID, "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Rating submitted", "rating": presentRating(rating)})
}

func handleUserRatings(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	userID, err := models.ParseID(c.Param("userId"), models.UserPrefix)
	if err != nil {
		respondError(c, err, "Invalid user ID")
		return
	}

	summary, err := database.ListUserRatings(db, userID)
	if err != nil {
		respondError(c, err, "Failed to list user ratings", "target_user", userID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings":      presentRatings(summary.Ratings),
		"averageScore": summary.AverageScore,
		"totalCount":   summary.TotalCount,
	})
}

// handleRentalRatings lists a rental's ratings together with what the caller
// may still rate on it.
func handleRentalRatings(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	rentalID, err := models.ParseID(c.Param("rentalId"), models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}

	elig, err := database.GetRatingEligibility(db, rentalID, callerID(c))
	if err != nil {
		respondError(c, err, "Failed to get rating eligibility", "rental_id", rentalID)
		return
	}

	list, err := database.ListRentalRatings(db, rentalID)
	if err != nil {
		respondError(c, err, "Failed to list rental ratings", "rental_id", rentalID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings":            presentRatings(list),
		"canRateOwner":       elig.Eligibility.CanRateOwner,
		"canRateRenter":      elig.Eligibility.CanRateRenter,
		"alreadyRatedOwner":  elig.Eligibility.AlreadyRatedOwner,
		"alreadyRatedRenter": elig.Eligibility.AlreadyRatedRenter,
	})
}

func handleCanRate(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	rentalID, err := models.ParseID(c.Param("rentalId"), models.RentalPrefix)
	if err != nil {
		respondError(c, err, "Invalid rental ID")
		return
	}

	caller := callerID(c)
	elig, err := database.GetRatingEligibility(db, rentalID, caller)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusOK, canRateResponse{})
			return
		}
		respondError(c, err, "Failed to get rating eligibility", "rental_id", rentalID)
		return
	}

	// Party details only go to the parties themselves, once the rental is completed.
	p := elig.Parties
	if caller == 0 || p.Status != rentals.StatusCompleted || p.Participants.PartyOf(caller) == rentals.PartyNone {
		c.JSON(http.StatusOK, canRateResponse{Eligibility: elig.Eligibility})
		return
	}

	c.JSON(http.StatusOK, canRateResponse{
		Eligibility: elig.Eligibility,
		OwnerID:     models.FormatID(models.UserPrefix, p.Participants.OwnerID),
		RenterID:    models.FormatID(models.UserPrefix, p.Participants.RenterID),
		OwnerName:   p.OwnerName,
		RenterName:  p.RenterName,
	})
}
