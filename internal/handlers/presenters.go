package handlers

import (
	"time"

	"arthings/internal/database"
	"arthings/internal/models"
	"arthings/internal/rentals"
)

type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	City       string    `json:"city"`
	IsAdmin    bool      `json:"isAdmin"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func presentUser(u *models.User) userResponse {
	return userResponse{
		ID:         models.FormatID(models.UserPrefix, u.ID),
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		City:       u.City,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

type productResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	PriceUnit   string    `json:"priceUnit"`
	City        string    `json:"city"`
	Available   bool      `json:"available"`
	Images      []string  `json:"images"`
	Views       int       `json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerName   string    `json:"ownerName"`
	OwnerCity   string    `json:"ownerCity"`
	OwnerPhone  string    `json:"ownerPhone,omitempty"`
}

func presentProduct(item *models.Item) productResponse {
	images := make([]string, 0, len(item.Images))
	for _, img := range item.Images {
		images = append(images, img.ImagePath)
	}
	return productResponse{
		ID:          models.FormatID(models.ProductPrefix, item.ID),
		UserID:      models.FormatID(models.UserPrefix, item.UserID),
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.PricePerDay,
		PriceUnit:   item.PriceUnit,
		City:        item.City,
		Available:   item.IsAvailable,
		Images:      images,
		Views:       item.Views,
		CreatedAt:   item.CreatedAt,
		OwnerName:   item.OwnerName,
		OwnerCity:   item.OwnerCity,
	}
}

// presentProductDetail adds the owner's contact phone, shown only on the detail view.
func presentProductDetail(item *models.Item) productResponse {
	p := presentProduct(item)
	p.OwnerPhone = item.OwnerPhone
	return p
}

func presentProducts(items []models.Item) []productResponse {
	out := make([]productResponse, 0, len(items))
	for i := range items {
		out = append(out, presentProduct(&items[i]))
	}
	return out
}

type favoriteResponse struct {
	productResponse
	FavoriteID string `json:"favoriteId"`
}

func presentFavorites(favs []database.FavoriteItem) []favoriteResponse {
	out := make([]favoriteResponse, 0, len(favs))
	for i := range favs {
		out = append(out, favoriteResponse{
			productResponse: presentProduct(&favs[i].Item),
			FavoriteID:      models.FormatID(models.FavoritePrefix, favs[i].FavoriteID),
		})
	}
	return out
}

type rentalProduct struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Image     *string `json:"image"`
	Price     float64 `json:"price"`
	PriceUnit string  `json:"priceUnit"`
}

type rentalResponse struct {
	ID          string        `json:"id"`
	ProductID   string        `json:"productId"`
	RenterID    string        `json:"renterId"`
	OwnerID     string        `json:"ownerId"`
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Days        int           `json:"days"`
	PricePerDay float64       `json:"pricePerDay"`
	TotalPrice  float64       `json:"totalPrice"`
	Message     string        `json:"message"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	Product     rentalProduct `json:"product"`
	RenterName  string        `json:"renterName"`
	RenterEmail string        `json:"renterEmail"`
	RenterPhone string        `json:"renterPhone"`
	OwnerName   string        `json:"ownerName"`
	OwnerPhone  string        `json:"ownerPhone"`
}

func nullableString(valid bool, s string) *string {
	if !valid {
		return nil
	}
	return &s
}

func presentRental(r *models.Rental) rentalResponse {
	return rentalResponse{
		ID:          models.FormatID(models.RentalPrefix, r.ID),
		ProductID:   models.FormatID(models.ProductPrefix, r.ItemID),
		RenterID:    models.FormatID(models.UserPrefix, r.RenterID),
		OwnerID:     models.FormatID(models.UserPrefix, r.OwnerID),
		StartDate:   rentals.FormatDate(r.StartDate),
		EndDate:     rentals.FormatDate(r.EndDate),
		Days:        r.Days,
		PricePerDay: r.PricePerDay,
		TotalPrice:  r.TotalPrice,
		Message:     r.Message,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		Product: rentalProduct{
			ID:        models.FormatID(models.ProductPrefix, r.ItemID),
			Title:     r.ItemTitle,
			Image:     nullableString(r.ItemImage.Valid, r.ItemImage.String),
			Price:     r.ItemPrice,
			PriceUnit: r.ItemPriceUnit,
		},
		RenterName:  r.RenterName,
		RenterEmail: r.RenterEmail,
		RenterPhone: r.RenterPhone,
		OwnerName:   r.OwnerName,
		OwnerPhone:  r.OwnerPhone,
	}
}

func presentRentals(list []models.Rental) []rentalResponse {
	out := make([]rentalResponse, 0, len(list))
	for i := range list {
		out = append(out, presentRental(&list[i]))
	}
	return out
}

type ratingResponse struct {
	ID           int       `json:"id"`
	RentalID     string    `json:"rentalId"`
	FromUserID   string    `json:"fromUserId"`
	FromUserName string    `json:"fromUserName"`
	ToUserID     string    `json:"toUserId"`
	ToUserName   string    `json:"toUserName"`
	Score        int       `json:"score"`
	Comment      string    `json:"comment"`
	ItemTitle    string    `json:"itemTitle,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func presentRating(r *models.Rating) ratingResponse {
	return ratingResponse{
		ID:           r.ID,
		RentalID:     models.FormatID(models.RentalPrefix, r.RentalID),
		FromUserID:   models.FormatID(models.UserPrefix, r.FromUserID),
		FromUserName: r.FromUserName,
		ToUserID:     models.FormatID(models.UserPrefix, r.ToUserID),
		ToUserName:   r.ToUserName,
		Score:        r.Score,
		Comment:      r.Comment,
		ItemTitle:    r.ItemTitle,
		CreatedAt:    r.CreatedAt,
	}
}

func presentRatings(list []models.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(list))
	for i := range list {
		out = append(out, presentRating(&list[i]))
	}
	return out
}

type rentalRequestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rentalRequestResponse struct {
	ID          int               `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	City        string            `json:"city"`
	CreatedAt   time.Time         `json:"createdAt"`
	User        rentalRequestUser `json:"user"`
}

func presentRentalRequest(rr *models.RentalRequest) rentalRequestResponse {
	return rentalRequestResponse{
		ID:          rr.ID,
		Title:       rr.Title,
		Description: rr.Description,
		Category:    rr.Category,
		City:        rr.City,
		CreatedAt:   rr.CreatedAt,
		User: rentalRequestUser{
			ID:   models.FormatID(models.UserPrefix, rr.UserID),
			Name: rr.UserName,
		},
	}
}

type consentResponse struct {
	ID              int       `json:"id"`
	UserID          string    `json:"userId"`
	DocumentType    string    `json:"documentType"`
	DocumentVersion string    `json:"documentVersion"`
	AcceptedAt      time.Time `json:"acceptedAt"`
}

func presentConsent(c *models.LegalConsent) consentResponse {
	return consentResponse{
		ID:              c.ID,
		UserID:          models.FormatID(models.UserPrefix, c.UserID),
		DocumentType:    c.DocumentType,
		DocumentVersion: c.DocumentVersion,
		AcceptedAt:      c.AcceptedAt,
	}
}
