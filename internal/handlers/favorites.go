package handlers

import (
	"net/http"

	"arthings/internal/database"
	"arthings/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func handleListFavorites(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	favs, err := database.ListFavorites(db, user.ID)
	if err != nil {
		respondError(c, err, "Failed to list favorites", "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": presentFavorites(favs)})
}

func handleAddFavorite(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	itemID, err := models.ParseID(c.Param("productId"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	fav, err := database.AddFavorite(db, user.ID, itemID)
	if err != nil {
		respondError(c, err, "Failed to add favorite", "user_id", user.ID, "item_id", itemID)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Added to favorites",
		"favorite": gin.H{
			"id":        models.FormatID(models.FavoritePrefix, fav.ID),
			"productId": models.FormatID(models.ProductPrefix, fav.ItemID),
			"createdAt": fav.CreatedAt,
		},
	})
}

func handleRemoveFavorite(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	user := currentUser(c)

	itemID, err := models.ParseID(c.Param("productId"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	if err := database.RemoveFavorite(db, user.ID, itemID); err != nil {
		respondError(c, err, "Failed to remove favorite", "user_id", user.ID, "item_id", itemID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from favorites"})
}

// handleCheckFavorite answers false for anonymous callers.
func handleCheckFavorite(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	itemID, err := models.ParseID(c.Param("productId"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"isFavorite": false})
		return
	}

	isFavorite, err := database.IsFavorite(db, user.ID, itemID)
	if err != nil {
		respondError(c, err, "Failed to check favorite", "user_id", user.ID, "item_id", itemID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isFavorite": isFavorite})
}
