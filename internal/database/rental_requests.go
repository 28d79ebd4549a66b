package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"arthings/internal/apperr"
	"arthings/internal/models"

	"github.com/jmoiron/sqlx"
)

const rentalRequestSelect = `
	SELECT rr.id, rr.user_id, rr.title, rr.description, rr.category, rr.city, rr.created_at, u.name AS user_name
	FROM rental_requests rr
	JOIN users u ON u.id = rr.user_id
`

const rentalRequestsLimit = 100

type RentalRequestFilter struct {
	Category string
	City     string
	UserID   int
}

func ListRentalRequests(db *sqlx.DB, f RentalRequestFilter) ([]models.RentalRequest, error) {
	var conds []string
	var args []interface{}
	if f.Category != "" {
		conds = append(conds, "rr.category = ?")
		args = append(args, f.Category)
	}
	if f.City != "" {
		conds = append(conds, "unicode_lower(rr.city) = unicode_lower(?)")
		args = append(args, f.City)
	}
	if f.UserID > 0 {
		conds = append(conds, "rr.user_id = ?")
		args = append(args, f.UserID)
	}

	query := rentalRequestSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rr.created_at DESC, rr.id DESC LIMIT ?"
	args = append(args, rentalRequestsLimit)

	list := []models.RentalRequest{}
	if err := db.Select(&list, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query rental requests: %w", err)
	}
	return list, nil
}

func GetRentalRequest(db *sqlx.DB, id int) (*models.RentalRequest, error) {
	rr := &models.RentalRequest{}
	if err := db.Get(rr, rentalRequestSelect+" WHERE rr.id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Rental request")
		}
		return nil, fmt.Errorf("failed to query rental request: %w", err)
	}
	return rr, nil
}

func CreateRentalRequest(db *sqlx.DB, rr models.RentalRequest) (*models.RentalRequest, error) {
	result, err := db.Exec(`
		INSERT INTO rental_requests (user_id, title, description, category, city)
		VALUES (?, ?, ?, ?, ?)
	`, rr.UserID, rr.Title, rr.Description, rr.Category, rr.City)
	if err != nil {
		return nil, fmt.Errorf("failed to create rental request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rental request ID: %w", err)
	}
	return GetRentalRequest(db, int(id))
}

// DeleteRentalRequest removes a request on behalf of its author or an admin.
func DeleteRentalRequest(db *sqlx.DB, actor *models.User, id int) error {
	var ownerID int
	if err := db.Get(&ownerID, `SELECT user_id FROM rental_requests WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Rental request")
		}
		return fmt.Errorf("failed to query rental request: %w", err)
	}
	if !actor.CanManage(ownerID) {
		return apperr.Forbidden("You can only delete your own requests")
	}

	if _, err := db.Exec(`DELETE FROM rental_requests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rental request: %w", err)
	}
	return nil
}
