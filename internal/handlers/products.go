package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"arthings/internal/apperr"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/models"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type createProductRequest struct {
	Title       string  `form:"title" json:"title" binding:"required,max=255"`
	Description string  `form:"description" json:"description" binding:"required,max=5000"`
	Category    string  `form:"category" json:"category" binding:"required,max=50"`
	Price       float64 `form:"price" json:"price" binding:"required,gt=0"`
	PriceUnit   string  `form:"priceUnit" json:"priceUnit" binding:"omitempty,priceunit"`
	City        string  `form:"city" json:"city" binding:"max=100"`
}

type updateProductRequest struct {
	Title       *string  `form:"title" json:"title" binding:"omitempty,min=1,max=255"`
	Description *string  `form:"description" json:"description" binding:"omitempty,min=1,max=5000"`
	Category    *string  `form:"category" json:"category" binding:"omitempty,min=1,max=50"`
	Price       *float64 `form:"price" json:"price" binding:"omitempty,gt=0"`
	PriceUnit   *string  `form:"priceUnit" json:"priceUnit" binding:"omitempty,priceunit"`
	City        *string  `form:"city" json:"city" binding:"omitempty,max=100"`
	Available   *bool    `form:"available" json:"available"`
}

var productMessages = map[string]string{
	"Price.gt":        "Price must be greater than 0",
	"PriceUnit":       "Price unit must be day or week",
	"Title.max":       "Title is too long",
	"Description.max": "Description is too long",
	"Category.max":    "Category is too long",
	"City":            "City is too long",
}

func imageFiles(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["images"]
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func parseFilter(c *gin.Context) (database.ItemFilter, error) {
	f := database.ItemFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: c.Query("category"),
		City:     strings.TrimSpace(c.Query("city")),
		Sort:     c.Query("sort"),
	}

	for param, dst := range map[string]**float64{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, apperr.Validation("Invalid %s", param)
		}
		*dst = &v
	}

	switch c.Query("available") {
	case "true":
		available := true
		f.Available = &available
	case "false":
		available := false
		f.Available = &available
	}

	if raw := c.Query("userId"); raw != "" {
		id, err := models.ParseID(raw, models.UserPrefix)
		if err != nil {
			return f, err
		}
		f.UserID = id
	}

	return f, nil
}

func handleListProducts(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, err, "Invalid product filter")
		return
	}

	items, err := database.ListItems(db, filter)
	if err != nil {
		respondError(c, err, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": presentProducts(items), "total": len(items)})
}

func handleGetProduct(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)

	id, err := models.ParseID(c.Param("id"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	if err := database.IncrementItemViews(db, id); err != nil {
		logger.Warn("Failed to increment product views", "item_id", id, "error", err)
	}

	item, err := database.GetItem(db, id)
	if err != nil {
		respondError(c, err, "Failed to get product", "item_id", id)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": presentProductDetail(item)})
}

func handleCreateProduct(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	store := c.MustGet("uploads").(*uploads.Store)
	user := currentUser(c)

	var req createProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err, productMessages, "Title, description, category, and price are required")
		return
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)
	if title == "" || description == "" || category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title, description, category, and price are required"})
		return
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		city = user.City
	}

	paths, err := store.Save(imageFiles(c))
	if err != nil {
		respondError(c, err, "Failed to save product images", "user_id", user.ID)
		return
	}

	item, err := database.CreateItem(db, database.NewItem{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		Category:    category,
		PricePerDay: req.Price,
		PriceUnit:   req.PriceUnit,
		City:        city,
	}, paths)
	if err != nil {
		store.Remove(paths)
		respondError(c, err, "Failed to create product", "user_id", user.ID)
		return
	}

	logger.Info("Product created", "item_id", item.ID, "user_id", user.ID, "images", len(paths))
	c.JSON(http.StatusCreated, gin.H{"message": "Product created successfully", "product": presentProductDetail(item)})
}

func handleUpdateProduct(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	store := c.MustGet("uploads").(*uploads.Store)
	user := currentUser(c)

	id, err := models.ParseID(c.Param("id"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	var req updateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err, productMessages, "Invalid product data")
		return
	}

	paths, err := store.Save(imageFiles(c))
	if err != nil {
		respondError(c, err, "Failed to save product images", "item_id", id)
		return
	}

	item, err := database.UpdateItem(db, user, id, database.ItemUpdate{
		Title:       trimmedPtr(req.Title),
		Description: trimmedPtr(req.Description),
		Category:    trimmedPtr(req.Category),
		PricePerDay: req.Price,
		PriceUnit:   req.PriceUnit,
		City:        trimmedPtr(req.City),
		IsAvailable: req.Available,
	}, paths)
	if err != nil {
		store.Remove(paths)
		respondError(c, err, "Failed to update product", "item_id", id, "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": presentProductDetail(item)})
}

func handleDeleteProduct(c *gin.Context) {
	db := c.MustGet("db").(*sqlx.DB)
	store := c.MustGet("uploads").(*uploads.Store)
	user := currentUser(c)

	id, err := models.ParseID(c.Param("id"), models.ProductPrefix)
	if err != nil {
		respondError(c, err, "Invalid product ID")
		return
	}

	images, err := database.DeleteItem(db, user, id)
	if err != nil {
		respondError(c, err, "Failed to delete product", "item_id", id, "user_id", user.ID)
		return
	}
	store.Remove(images)

	logger.Info("Product deleted", "item_id", id, "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
