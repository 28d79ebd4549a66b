package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/jmoiron/sqlx"
)

type AdminStats struct {
	TotalUsers    int     `json:"totalUsers" db:"total_users"`
	TotalListings int     `json:"totalListings" db:"total_listings"`
	TotalRentals  int     `json:"totalRentals" db:"total_rentals"`
	ActiveRentals int     `json:"activeRentals" db:"active_rentals"`
	TotalRevenue  float64 `json:"totalRevenue" db:"total_revenue"`
}

const recentRentalsLimit = 10

func GetAdminStats(db *sqlx.DB) (*AdminStats, []models.Rental, error) {
	stats := &AdminStats{}
	err := db.Get(stats, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM items) AS total_listings,
			(SELECT COUNT(*) FROM rentals) AS total_rentals,
			(SELECT COUNT(*) FROM rentals WHERE status = ?) AS active_rentals,
			(SELECT COALESCE(SUM(total_price), 0) FROM rentals) AS total_revenue
	`, string(rentals.StatusApproved))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get admin stats: %w", err)
	}

	recent := []models.Rental{}
	if err := db.Select(&recent, rentalSelect+" ORDER BY r.created_at DESC, r.id DESC LIMIT ?", recentRentalsLimit); err != nil {
		return nil, nil, fmt.Errorf("failed to get recent rentals: %w", err)
	}

	return stats, recent, nil
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

type UserWithStats struct {
	ID            int       `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	Phone         string    `json:"phone" db:"phone"`
	City          string    `json:"city" db:"city"`
	IsVerified    bool      `json:"isVerified" db:"is_verified"`
	IsAdmin       bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	ListingsCount int       `json:"listingsCount" db:"listings_count"`
	RentalsCount  int       `json:"rentalsCount" db:"rentals_count"`
}

func ListUsersWithStats(db *sqlx.DB, search string, page Page) ([]UserWithStats, int, error) {
	where, args := "", []interface{}{}
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = ` WHERE (u.name LIKE ? ESCAPE '\' OR u.email LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM users u`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := []UserWithStats{}
	err := db.Select(&users, `
		SELECT u.id, u.email, u.name, u.phone, u.city, u.is_verified, u.is_admin, u.created_at,
		       (SELECT COUNT(*) FROM items i WHERE i.user_id = u.id) AS listings_count,
		       (SELECT COUNT(*) FROM rentals r WHERE r.renter_id = u.id) AS rentals_count
		FROM users u`+where+`
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT ? OFFSET ?
	`, append(args, page.Size, page.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users with stats: %w", err)
	}

	return users, total, nil
}

// ToggleUserAdmin flips the admin flag and returns the new value.
func ToggleUserAdmin(db *sqlx.DB, userID int) (bool, error) {
	result, err := db.Exec(`UPDATE users SET is_admin = NOT is_admin, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle admin status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return false, notFound("User")
	}

	var isAdmin bool
	if err := db.Get(&isAdmin, `SELECT is_admin FROM users WHERE id = ?`, userID); err != nil {
		return false, fmt.Errorf("failed to read admin status: %w", err)
	}
	return isAdmin, nil
}

type ListingWithStats struct {
	ID             int            `json:"id" db:"id"`
	Title          string         `json:"title" db:"title"`
	Category       string         `json:"category" db:"category"`
	Price          float64        `json:"price" db:"price_per_day"`
	PriceUnit      string         `json:"priceUnit" db:"price_unit"`
	City           string         `json:"city" db:"city"`
	IsAvailable    bool           `json:"isAvailable" db:"is_available"`
	Views          int            `json:"views" db:"views"`
	Image          sql.NullString `json:"-" db:"image"`
	OwnerName      string         `json:"ownerName" db:"owner_name"`
	OwnerEmail     string         `json:"ownerEmail" db:"owner_email"`
	RentalsCount   int            `json:"rentalsCount" db:"rentals_count"`
	FavoritesCount int            `json:"favoritesCount" db:"favorites_count"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
}

func ListListingsWithStats(db *sqlx.DB, search string, page Page) ([]ListingWithStats, int, error) {
	where, args := "", []interface{}{}
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = ` WHERE (i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM items i`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	listings := []ListingWithStats{}
	err := db.Select(&listings, `
		SELECT i.id, i.title, i.category, i.price_per_day, i.price_unit, i.city, i.is_available, i.views, i.created_at,
		       (SELECT ii.image_path FROM item_images ii WHERE ii.item_id = i.id ORDER BY ii.sort_order, ii.id LIMIT 1) AS image,
		       u.name AS owner_name, u.email AS owner_email,
		       (SELECT COUNT(*) FROM rentals r WHERE r.item_id = i.id) AS rentals_count,
		       (SELECT COUNT(*) FROM favorites f WHERE f.item_id = i.id) AS favorites_count
		FROM items i
		JOIN users u ON u.id = i.user_id`+where+`
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT ? OFFSET ?
	`, append(args, page.Size, page.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings with stats: %w", err)
	}

	return listings, total, nil
}

func ListAllRentals(db *sqlx.DB, status string, page Page) ([]models.Rental, int, error) {
	where, args := "", []interface{}{}
	if status != "" {
		where = " WHERE r.status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.Get(&total, `SELECT COUNT(*) FROM rentals r`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count rentals: %w", err)
	}

	list := []models.Rental{}
	err := db.Select(&list, rentalSelect+where+" ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?",
		append(args, page.Size, page.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query rentals: %w", err)
	}

	return list, total, nil
}

func IsRegistrationEnabled(db *sqlx.DB) (bool, error) {
	var value string
	err := db.Get(&value, `SELECT value FROM system_settings WHERE key = 'registration_enabled'`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("failed to query registration setting: %w", err)
	}
	return value == "true", nil
}

// ToggleRegistration flips the registration setting and returns the new value.
func ToggleRegistration(db *sqlx.DB) (bool, error) {
	_, err := db.Exec(`
		INSERT INTO system_settings (key, value) VALUES ('registration_enabled', 'false')
		ON CONFLICT(key) DO UPDATE SET
			value = CASE WHEN value = 'true' THEN 'false' ELSE 'true' END,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return false, fmt.Errorf("failed to toggle registration setting: %w", err)
	}
	return IsRegistrationEnabled(db)
}
