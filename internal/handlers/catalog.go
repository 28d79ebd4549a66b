package handlers

import (
	"context"
	"net/http"
	"time"

	"arthings/internal/database"
	"arthings/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// handleConfig returns the reference data the client needs to render forms.
func handleConfig(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	categories, err := database.ListCategories(db)
	if err != nil {
		respondError(c, err, "Failed to list categories")
		return
	}
	cities, err := database.ListCities(db)
	if err != nil {
		respondError(c, err, "Failed to list cities")
		return
	}

	names := make([]string, 0, len(cities))
	for _, city := range cities {
		names = append(names, city.Name)
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories, "cities": names})
}

func handleHealth(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := database.Ping(ctx, db); err != nil {
		logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": now,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": now,
	})
}
