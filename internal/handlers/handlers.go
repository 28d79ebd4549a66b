package handlers

import (
	"net/http"
	"sync"

	"arthings/internal/config"
	"arthings/internal/email"
	"arthings/internal/metrics"
	"arthings/internal/middleware"
	"arthings/internal/models"
	"arthings/internal/rentals"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
)

func SetupRoutes(r *gin.Engine, db *sqlx.DB, cfg *config.Config, emailService *email.Service, store *uploads.Store) {
	registerValidators()

	r.Use(addContext(db, cfg, emailService, store))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.Static(store.URLPrefix(), store.Dir())
	r.NoRoute(handleNotFound)

	auth := middleware.AuthRequired(db, cfg)
	optional := middleware.AuthOptional(db, cfg)
	csrf := middleware.CSRF(db, cfg)
	authLimit := middleware.AuthRateLimit(cfg)

	api := r.Group("/api")
	api.GET("/config", handleConfig)
	api.GET("/health", handleHealth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authLimit, handleRegister)
		authGroup.POST("/login", authLimit, handleLogin)
		authGroup.POST("/logout", auth, handleLogout)
		authGroup.GET("/me", auth, handleMe)
		authGroup.GET("/csrf-token", auth, handleCSRFToken)
		authGroup.PUT("/profile", auth, csrf, handleUpdateProfile)
		authGroup.DELETE("/account", auth, csrf, handleDeleteAccount)
		authGroup.GET("/verify/:token", handleVerifyEmail)
	}

	products := api.Group("/products")
	{
		products.GET("", handleListProducts)
		products.GET("/:id", handleGetProduct)
		products.POST("", auth, csrf, handleCreateProduct)
		products.PUT("/:id", auth, csrf, handleUpdateProduct)
		products.DELETE("/:id", auth, csrf, handleDeleteProduct)
	}

	favorites := api.Group("/favorites")
	{
		favorites.GET("", auth, handleListFavorites)
		favorites.GET("/check/:productId", optional, handleCheckFavorite)
		favorites.POST("/:productId", auth, csrf, handleAddFavorite)
		favorites.DELETE("/:productId", auth, csrf, handleRemoveFavorite)
	}

	rentalRoutes := api.Group("/rentals")
	rentalRoutes.Use(auth, csrf)
	{
		rentalRoutes.GET("", handleListRentals)
		rentalRoutes.GET("/:id", handleGetRental)
		rentalRoutes.POST("", handleCreateRental)
		rentalRoutes.PUT("/:id/status", handleUpdateRentalStatus)
	}

	ratings := api.Group("/ratings")
	{
		ratings.POST("", auth, csrf, handleCreateRating)
		ratings.GET("/user/:userId", handleUserRatings)
		ratings.GET("/rental/:rentalId", optional, handleRentalRatings)
		ratings.GET("/rental/:rentalId/can-rate", optional, handleCanRate)
	}

	requests := api.Group("/rental-requests")
	{
		requests.GET("", handleListRentalRequests)
		requests.GET("/:id", handleGetRentalRequest)
		requests.POST("", auth, csrf, handleCreateRentalRequest)
		requests.DELETE("/:id", auth, csrf, handleDeleteRentalRequest)
	}

	legal := api.Group("/legal")
	{
		legal.GET("/documents", handleLegalDocuments)
		legal.GET("/document/:type", handleLegalDocument)
		legal.POST("/consent", auth, csrf, handleRecordConsent)
		legal.GET("/consent/check", auth, handleConsentCheck)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(auth, middleware.AdminRequired(), csrf)
	{
		admin.GET("/check", handleAdminCheck)
		admin.GET("/stats", handleAdminStats)
		admin.GET("/users", handleAdminUsers)
		admin.DELETE("/users/:id", handleAdminDeleteUser)
		admin.PUT("/users/:id/toggle-admin", handleToggleUserAdmin)
		admin.GET("/listings", handleAdminListings)
		admin.DELETE("/listings/:id", handleAdminDeleteListing)
		admin.GET("/rentals", handleAdminRentals)
		admin.PUT("/rentals/:id/status", handleAdminRentalStatus)
		admin.GET("/settings", handleAdminSettings)
		admin.POST("/toggle-registration", handleToggleRegistration)
	}
}

func addContext(db *sqlx.DB, cfg *config.Config, emailService *email.Service, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Set("config", cfg)
		c.Set("email_service", emailService)
		c.Set("uploads", store)
		c.Next()
	}
}

var registerOnce sync.Once

// registerValidators adds the custom binding tags used by request structs.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("rentalstatus", func(fl validator.FieldLevel) bool {
			switch rentals.Status(fl.Field().String()) {
			case rentals.StatusApproved, rentals.StatusDeclined, rentals.StatusCompleted, rentals.StatusCancelled:
				return true
			}
			return false
		})
		_ = v.RegisterValidation("priceunit", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.PriceUnitDay, models.PriceUnitWeek:
				return true
			}
			return false
		})
	})
}

func handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

func currentUser(c *gin.Context) *models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

func emailServiceFrom(c *gin.Context) *email.Service {
	svc, _ := c.Get("email_service")
	service, ok := svc.(*email.Service)
	if !ok || service == nil || !service.IsEnabled() {
		return nil
	}
	return service
}
