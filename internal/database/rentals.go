package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arthings/internal/apperr"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/jmoiron/sqlx"
)

const rentalSelect = `
	SELECT r.id, r.item_id, r.renter_id, r.start_date, r.end_date, r.days, r.price_per_day, r.total_price,
	       r.message, r.status, r.created_at, r.updated_at,
	       i.title AS item_title, i.price_per_day AS item_price, i.price_unit AS item_price_unit,
	       (SELECT ii.image_path FROM item_images ii WHERE ii.item_id = i.id ORDER BY ii.sort_order, ii.id LIMIT 1) AS item_image,
	       i.user_id AS owner_id, o.name AS owner_name, o.phone AS owner_phone, o.email AS owner_email,
	       rn.name AS renter_name, rn.email AS renter_email, rn.phone AS renter_phone
	FROM rentals r
	JOIN items i ON i.id = r.item_id
	JOIN users o ON o.id = i.user_id
	JOIN users rn ON rn.id = r.renter_id
`

const (
	RoleRenter = "renter"
	RoleOwner  = "owner"
)

// ListRentals returns the user's rentals as renter, or, for RoleOwner, the
// rentals of the items they own. Newest first.
func ListRentals(db *sqlx.DB, userID int, role string) ([]models.Rental, error) {
	where := " WHERE r.renter_id = ?"
	if role == RoleOwner {
		where = " WHERE i.user_id = ?"
	}

	list := []models.Rental{}
	if err := db.Select(&list, rentalSelect+where+" ORDER BY r.created_at DESC, r.id DESC", userID); err != nil {
		return nil, fmt.Errorf("failed to query rentals: %w", err)
	}
	return list, nil
}

func GetRental(db *sqlx.DB, rentalID int) (*models.Rental, error) {
	return getRental(db, rentalID)
}

func getRental(q sqlx.Queryer, rentalID int) (*models.Rental, error) {
	r := &models.Rental{}
	if err := sqlx.Get(q, r, rentalSelect+" WHERE r.id = ?", rentalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Rental")
		}
		return nil, fmt.Errorf("failed to query rental: %w", err)
	}
	return r, nil
}

type NewRental struct {
	ItemID    int
	RenterID  int
	StartDate time.Time
	EndDate   time.Time
	Message   string
}

// CreateRental checks the item and the date range, snapshots the item's
// current price and inserts a pending rental, all in one transaction.
func CreateRental(db *sqlx.DB, nr NewRental) (*models.Rental, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var item struct {
		OwnerID     int     `db:"user_id"`
		PricePerDay float64 `db:"price_per_day"`
		IsAvailable bool    `db:"is_available"`
	}
	err = tx.Get(&item, `SELECT user_id, price_per_day, is_available FROM items WHERE id = ?`, nr.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Product")
		}
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	if item.OwnerID == nr.RenterID {
		return nil, apperr.Conflict("You cannot rent your own product")
	}
	if !item.IsAvailable {
		return nil, apperr.Validation("Product is not available")
	}

	terms, err := rentals.ComputeTerms(nr.StartDate, nr.EndDate, item.PricePerDay)
	if err != nil {
		return nil, err
	}

	result, err := tx.Exec(`
		INSERT INTO rentals (item_id, renter_id, start_date, end_date, days, price_per_day, total_price, message, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nr.ItemID, nr.RenterID, nr.StartDate.UTC(), nr.EndDate.UTC(), terms.Days, terms.PricePerDay, terms.TotalPrice,
		nr.Message, string(rentals.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to create rental: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rental ID: %w", err)
	}

	rental, err := getRental(tx, int(id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rental: %w", err)
	}

	return rental, nil
}

// UpdateRentalStatus applies a party-initiated transition. The update is
// conditional on the status read inside the transaction, so a concurrent
// change surfaces as a conflict instead of being overwritten.
func UpdateRentalStatus(db *sqlx.DB, actor *models.User, rentalID int, to rentals.Status) (*models.Rental, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cur struct {
		Status   string `db:"status"`
		OwnerID  int    `db:"owner_id"`
		RenterID int    `db:"renter_id"`
	}
	err = tx.Get(&cur, `
		SELECT r.status, i.user_id AS owner_id, r.renter_id
		FROM rentals r JOIN items i ON i.id = r.item_id
		WHERE r.id = ?
	`, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Rental")
		}
		return nil, fmt.Errorf("failed to query rental: %w", err)
	}

	parties := rentals.Participants{OwnerID: cur.OwnerID, RenterID: cur.RenterID}
	from := rentals.Status(cur.Status)
	if err := rentals.CheckTransition(parties.PartyOf(actor.ID), from, to); err != nil {
		return nil, err
	}

	if err := setRentalStatus(tx, rentalID, from, to); err != nil {
		return nil, err
	}

	rental, err := getRental(tx, rentalID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rental status: %w", err)
	}

	return rental, nil
}

// ForceRentalStatus sets any status without the party transition rules.
// Admin only.
func ForceRentalStatus(db *sqlx.DB, rentalID int, to rentals.Status) (*models.Rental, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var from string
	if err := tx.Get(&from, `SELECT status FROM rentals WHERE id = ?`, rentalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Rental")
		}
		return nil, fmt.Errorf("failed to query rental: %w", err)
	}

	if err := setRentalStatus(tx, rentalID, rentals.Status(from), to); err != nil {
		return nil, err
	}

	rental, err := getRental(tx, rentalID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rental status: %w", err)
	}

	return rental, nil
}

func setRentalStatus(tx *sqlx.Tx, rentalID int, from, to rentals.Status) error {
	result, err := tx.Exec(`UPDATE rentals SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		string(to), rentalID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update rental status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return apperr.Conflict("Rental status was changed by another request")
	}
	return nil
}
