package database

import (
	"database/sql"
	"errors"
	"fmt"

	"arthings/internal/apperr"
	"arthings/internal/models"

	"github.com/jmoiron/sqlx"
)

// FavoriteItem is a favorited listing together with the time it was saved.
type FavoriteItem struct {
	FavoriteID int
	Item       models.Item
}

// ListFavorites returns the user's favorited listings, most recently saved first.
func ListFavorites(db *sqlx.DB, userID int) ([]FavoriteItem, error) {
	var rows []struct {
		FavoriteID int `db:"favorite_id"`
		models.Item
	}
	err := db.Select(&rows, `
		SELECT f.id AS favorite_id, i.id, i.user_id, i.title, i.description, i.category, i.price_per_day,
		       i.price_unit, i.city, i.is_available, i.views, i.created_at, i.updated_at,
		       u.name AS owner_name, u.city AS owner_city, u.phone AS owner_phone
		FROM favorites f
		JOIN items i ON i.id = f.item_id
		JOIN users u ON u.id = i.user_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}

	items := make([]models.Item, len(rows))
	for i := range rows {
		items[i] = rows[i].Item
	}
	if err := attachImages(db, items); err != nil {
		return nil, err
	}

	favorites := make([]FavoriteItem, len(rows))
	for i := range rows {
		favorites[i] = FavoriteItem{FavoriteID: rows[i].FavoriteID, Item: items[i]}
	}
	return favorites, nil
}

// AddFavorite saves an item for the user. A second add of the same item is
// a conflict; the unique (user, item) constraint decides.
func AddFavorite(db *sqlx.DB, userID, itemID int) (*models.Favorite, error) {
	var exists int
	if err := db.Get(&exists, `SELECT 1 FROM items WHERE id = ?`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Product")
		}
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	result, err := db.Exec(`INSERT INTO favorites (user_id, item_id) VALUES (?, ?)`, userID, itemID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("Already in favorites")
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite ID: %w", err)
	}

	fav := &models.Favorite{}
	if err := db.Get(fav, `SELECT id, user_id, item_id, created_at FROM favorites WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to load favorite: %w", err)
	}
	return fav, nil
}

func RemoveFavorite(db *sqlx.DB, userID, itemID int) error {
	result, err := db.Exec(`DELETE FROM favorites WHERE user_id = ? AND item_id = ?`, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return notFound("Favorite")
	}
	return nil
}

func IsFavorite(db *sqlx.DB, userID, itemID int) (bool, error) {
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM favorites WHERE user_id = ? AND item_id = ?`, userID, itemID); err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}
