package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"arthings/internal/apperr"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/jmoiron/sqlx"
)

const ratingSelect = `
	SELECT rt.id, rt.rental_id, rt.from_user_id, rt.to_user_id, rt.score, rt.comment, rt.created_at,
	       fu.name AS from_user_name, tu.name AS to_user_name, COALESCE(i.title, '') AS item_title
	FROM ratings rt
	JOIN users fu ON fu.id = rt.from_user_id
	JOIN users tu ON tu.id = rt.to_user_id
	LEFT JOIN rentals r ON r.id = rt.rental_id
	LEFT JOIN items i ON i.id = r.item_id
`

// RentalParties is the subset of a rental the rating rules need.
type RentalParties struct {
	Participants rentals.Participants
	Status       rentals.Status
	OwnerName    string
	RenterName   string
}

func getRentalParties(q sqlx.Queryer, rentalID int) (*RentalParties, error) {
	var row struct {
		Status     string `db:"status"`
		OwnerID    int    `db:"owner_id"`
		RenterID   int    `db:"renter_id"`
		OwnerName  string `db:"owner_name"`
		RenterName string `db:"renter_name"`
	}
	err := sqlx.Get(q, &row, `
		SELECT r.status, i.user_id AS owner_id, r.renter_id, o.name AS owner_name, rn.name AS renter_name
		FROM rentals r
		JOIN items i ON i.id = r.item_id
		JOIN users o ON o.id = i.user_id
		JOIN users rn ON rn.id = r.renter_id
		WHERE r.id = ?
	`, rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Rental")
		}
		return nil, fmt.Errorf("failed to query rental: %w", err)
	}
	return &RentalParties{
		Participants: rentals.Participants{OwnerID: row.OwnerID, RenterID: row.RenterID},
		Status:       rentals.Status(row.Status),
		OwnerName:    row.OwnerName,
		RenterName:   row.RenterName,
	}, nil
}

type NewRating struct {
	RentalID   int
	FromUserID int
	ToUserID   int
	Score      int
	Comment    string
}

// CreateRating records one party's rating of the other after a completed
// rental. The (rental, from, to) unique constraint rejects duplicates.
func CreateRating(db *sqlx.DB, nr NewRating) (*models.Rating, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	parties, err := getRentalParties(tx, nr.RentalID)
	if err != nil {
		return nil, err
	}
	if err := rentals.CheckRating(parties.Participants, parties.Status, nr.FromUserID, nr.ToUserID); err != nil {
		return nil, err
	}
	if err := rentals.ValidateScore(nr.Score); err != nil {
		return nil, err
	}
	nr.Comment = rentals.NormalizeComment(nr.Comment)

	result, err := tx.Exec(`
		INSERT INTO ratings (rental_id, from_user_id, to_user_id, score, comment)
		VALUES (?, ?, ?, ?, ?)
	`, nr.RentalID, nr.FromUserID, nr.ToUserID, nr.Score, nr.Comment)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("You have already rated this user for this rental")
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rating ID: %w", err)
	}

	rating := &models.Rating{}
	if err := tx.Get(rating, ratingSelect+" WHERE rt.id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rating: %w", err)
	}

	return rating, nil
}

// UserRatings summarizes the ratings a user has received.
type UserRatings struct {
	Ratings      []models.Rating
	AverageScore *float64
	TotalCount   int
}

const userRatingsLimit = 50

func ListUserRatings(db *sqlx.DB, userID int) (*UserRatings, error) {
	out := &UserRatings{Ratings: []models.Rating{}}

	err := db.Select(&out.Ratings, ratingSelect+" WHERE rt.to_user_id = ? ORDER BY rt.created_at DESC, rt.id DESC LIMIT ?",
		userID, userRatingsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ratings: %w", err)
	}

	var agg struct {
		Avg   sql.NullFloat64 `db:"avg_score"`
		Count int             `db:"total"`
	}
	if err := db.Get(&agg, `SELECT AVG(score) AS avg_score, COUNT(*) AS total FROM ratings WHERE to_user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to aggregate user ratings: %w", err)
	}

	out.TotalCount = agg.Count
	if agg.Avg.Valid {
		avg := math.Round(agg.Avg.Float64*10) / 10
		out.AverageScore = &avg
	}
	return out, nil
}

func ListRentalRatings(db *sqlx.DB, rentalID int) ([]models.Rating, error) {
	list := []models.Rating{}
	if err := db.Select(&list, ratingSelect+" WHERE rt.rental_id = ? ORDER BY rt.created_at, rt.id", rentalID); err != nil {
		return nil, fmt.Errorf("failed to query rental ratings: %w", err)
	}
	return list, nil
}

// RatingEligibility is the can-rate view of a rental for one caller.
type RatingEligibility struct {
	Parties     *RentalParties
	Eligibility rentals.Eligibility
}

// GetRatingEligibility derives what the caller may still rate on the rental
// from the ratings they already gave. callerID 0 means anonymous.
func GetRatingEligibility(db *sqlx.DB, rentalID, callerID int) (*RatingEligibility, error) {
	parties, err := getRentalParties(db, rentalID)
	if err != nil {
		return nil, err
	}

	var rated []int
	if callerID > 0 {
		if err := db.Select(&rated, `SELECT to_user_id FROM ratings WHERE rental_id = ? AND from_user_id = ?`, rentalID, callerID); err != nil {
			return nil, fmt.Errorf("failed to query given ratings: %w", err)
		}
	}

	return &RatingEligibility{
		Parties:     parties,
		Eligibility: rentals.EvaluateEligibility(parties.Participants, parties.Status, callerID, rated),
	}, nil
}
