package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int          `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	PasswordHash string       `json:"-" db:"password_hash"`
	Name         string       `json:"name" db:"name"`
	Phone        string       `json:"phone" db:"phone"`
	City         string       `json:"city" db:"city"`
	IsAdmin      bool         `json:"isAdmin" db:"is_admin"`
	IsVerified   bool         `json:"isVerified" db:"is_verified"`
	LastSeen     sql.NullTime `json:"-" db:"last_seen"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// CanManage is the single ownership predicate: the resource owner or any admin.
func (u *User) CanManage(ownerID int) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || u.ID == ownerID
}

const (
	PriceUnitDay  = "day"
	PriceUnitWeek = "week"
)

type Item struct {
	ID          int         `db:"id"`
	UserID      int         `db:"user_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Category    string      `db:"category"`
	PricePerDay float64     `db:"price_per_day"`
	PriceUnit   string      `db:"price_unit"`
	City        string      `db:"city"`
	IsAvailable bool        `db:"is_available"`
	Views       int         `db:"views"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	OwnerName   string      `db:"owner_name"`
	OwnerCity   string      `db:"owner_city"`
	OwnerPhone  string      `db:"owner_phone"`
	Images      []ItemImage `db:"-"`
}

type ItemImage struct {
	ID        int    `db:"id"`
	ItemID    int    `db:"item_id"`
	ImagePath string `db:"image_path"`
	SortOrder int    `db:"sort_order"`
}

// Rental is a rental row together with the item and party details every
// rental view needs.
type Rental struct {
	ID          int       `db:"id"`
	ItemID      int       `db:"item_id"`
	RenterID    int       `db:"renter_id"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	Days        int       `db:"days"`
	PricePerDay float64   `db:"price_per_day"`
	TotalPrice  float64   `db:"total_price"`
	Message     string    `db:"message"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	ItemTitle     string         `db:"item_title"`
	ItemPrice     float64        `db:"item_price"`
	ItemPriceUnit string         `db:"item_price_unit"`
	ItemImage     sql.NullString `db:"item_image"`
	OwnerID       int            `db:"owner_id"`
	OwnerName     string         `db:"owner_name"`
	OwnerPhone    string         `db:"owner_phone"`
	OwnerEmail    string         `db:"owner_email"`
	RenterName    string         `db:"renter_name"`
	RenterEmail   string         `db:"renter_email"`
	RenterPhone   string         `db:"renter_phone"`
}

type Rating struct {
	ID           int       `db:"id"`
	RentalID     int       `db:"rental_id"`
	FromUserID   int       `db:"from_user_id"`
	ToUserID     int       `db:"to_user_id"`
	Score        int       `db:"score"`
	Comment      string    `db:"comment"`
	CreatedAt    time.Time `db:"created_at"`
	FromUserName string    `db:"from_user_name"`
	ToUserName   string    `db:"to_user_name"`
	ItemTitle    string    `db:"item_title"`
}

type Favorite struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	ItemID    int       `db:"item_id"`
	CreatedAt time.Time `db:"created_at"`
}

type RentalRequest struct {
	ID          int       `db:"id"`
	UserID      int       `db:"user_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	City        string    `db:"city"`
	CreatedAt   time.Time `db:"created_at"`
	UserName    string    `db:"user_name"`
}

type LegalDocument struct {
	Type      string    `json:"type" db:"type"`
	Version   string    `json:"version" db:"version"`
	File      string    `json:"file" db:"file"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LegalConsent struct {
	ID              int       `db:"id"`
	UserID          int       `db:"user_id"`
	DocumentType    string    `db:"document_type"`
	DocumentVersion string    `db:"document_version"`
	IPAddress       string    `db:"ip_address"`
	UserAgent       string    `db:"user_agent"`
	AcceptedAt      time.Time `db:"accepted_at"`
}

// ConsentStatus reports whether a user accepted the current version of a document.
type ConsentStatus struct {
	Type       string `json:"type" db:"type"`
	Version    string `json:"version" db:"version"`
	HasConsent bool   `json:"hasConsent" db:"has_consent"`
}

type Category struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	NameUk string `json:"nameUk" db:"name_uk"`
	Icon   string `json:"icon" db:"icon"`
}

type City struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CSRFToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    int       `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type VerificationToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    int       `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
