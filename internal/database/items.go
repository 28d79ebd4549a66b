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

const itemSelect = `
	SELECT i.id, i.user_id, i.title, i.description, i.category, i.price_per_day, i.price_unit, i.city,
	       i.is_available, i.views, i.created_at, i.updated_at,
	       u.name AS owner_name, u.city AS owner_city, u.phone AS owner_phone
	FROM items i
	JOIN users u ON u.id = i.user_id
`

// ItemFilter narrows the listing directory. Zero values mean "no filter".
type ItemFilter struct {
	Search    string
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	Available *bool
	City      string
	UserID    int
	Sort      string
}

var itemSorts = map[string]string{
	"newest":     "i.created_at DESC, i.id DESC",
	"price-asc":  "i.price_per_day ASC, i.id DESC",
	"price-desc": "i.price_per_day DESC, i.id DESC",
	"popular":    "i.views DESC, i.id DESC",
}

func ListItems(db *sqlx.DB, f ItemFilter) ([]models.Item, error) {
	var conds []string
	var args []interface{}

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conds = append(conds, `(i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Category != "" {
		conds = append(conds, "i.category = ?")
		args = append(args, f.Category)
	}
	if f.MinPrice != nil {
		conds = append(conds, "i.price_per_day >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "i.price_per_day <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Available != nil {
		conds = append(conds, "i.is_available = ?")
		args = append(args, *f.Available)
	}
	if f.City != "" {
		conds = append(conds, "unicode_lower(i.city) = unicode_lower(?)")
		args = append(args, f.City)
	}
	if f.UserID > 0 {
		conds = append(conds, "i.user_id = ?")
		args = append(args, f.UserID)
	}

	query := itemSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	orderBy, ok := itemSorts[f.Sort]
	if !ok {
		orderBy = itemSorts["newest"]
	}
	query += " ORDER BY " + orderBy

	var items []models.Item
	if err := db.Select(&items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	if err := attachImages(db, items); err != nil {
		return nil, err
	}

	return items, nil
}

func attachImages(db sqlx.Queryer, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int, len(items))
	byID := make(map[int]*models.Item, len(items))
	for i := range items {
		ids[i] = items[i].ID
		byID[items[i].ID] = &items[i]
		items[i].Images = []models.ItemImage{}
	}

	query, args, err := sqlx.In(`
		SELECT id, item_id, image_path, sort_order
		FROM item_images
		WHERE item_id IN (?)
		ORDER BY item_id, sort_order, id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to build image query: %w", err)
	}

	var images []models.ItemImage
	if err := sqlx.Select(db, &images, sqlx.Rebind(sqlx.QUESTION, query), args...); err != nil {
		return fmt.Errorf("failed to query item images: %w", err)
	}

	for _, img := range images {
		if item, ok := byID[img.ItemID]; ok {
			item.Images = append(item.Images, img)
		}
	}
	return nil
}

func GetItem(db *sqlx.DB, itemID int) (*models.Item, error) {
	return getItem(db, itemID)
}

func getItem(q sqlx.Queryer, itemID int) (*models.Item, error) {
	item := models.Item{}
	if err := sqlx.Get(q, &item, itemSelect+" WHERE i.id = ?", itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("Product")
		}
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	items := []models.Item{item}
	if err := attachImages(q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// IncrementItemViews bumps the view counter. Concurrent reads may race;
// the counter is informational only.
func IncrementItemViews(db *sqlx.DB, itemID int) error {
	if _, err := db.Exec(`UPDATE items SET views = views + 1 WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

type NewItem struct {
	UserID      int
	Title       string
	Description string
	Category    string
	PricePerDay float64
	PriceUnit   string
	City        string
}

// CreateItem inserts the listing and its image rows atomically.
func CreateItem(db *sqlx.DB, ni NewItem, imagePaths []string) (*models.Item, error) {
	if ni.PriceUnit == "" {
		ni.PriceUnit = models.PriceUnitDay
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO items (user_id, title, description, category, price_per_day, price_unit, city)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ni.UserID, ni.Title, ni.Description, ni.Category, ni.PricePerDay, ni.PriceUnit, ni.City)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get item ID: %w", err)
	}

	if err := insertImages(tx, int(id), imagePaths, 0); err != nil {
		return nil, err
	}

	item, err := getItem(tx, int(id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item: %w", err)
	}

	return item, nil
}

func insertImages(tx *sqlx.Tx, itemID int, paths []string, firstOrder int) error {
	for i, p := range paths {
		_, err := tx.Exec(`INSERT INTO item_images (item_id, image_path, sort_order) VALUES (?, ?, ?)`,
			itemID, p, firstOrder+i)
		if err != nil {
			return fmt.Errorf("failed to create item image: %w", err)
		}
	}
	return nil
}

// ItemUpdate carries optional listing fields; nil leaves a field unchanged.
type ItemUpdate struct {
	Title       *string
	Description *string
	Category    *string
	PricePerDay *float64
	PriceUnit   *string
	City        *string
	IsAvailable *bool
}

// UpdateItem applies a partial update by the owner or an admin and appends
// new images after the existing ones.
func UpdateItem(db *sqlx.DB, actor *models.User, itemID int, upd ItemUpdate, newImages []string) (*models.Item, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkItemAccess(tx, actor, itemID, "You can only edit your own products"); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE items SET
			title = COALESCE(?, title),
			description = COALESCE(?, description),
			category = COALESCE(?, category),
			price_per_day = COALESCE(?, price_per_day),
			price_unit = COALESCE(?, price_unit),
			city = COALESCE(?, city),
			is_available = COALESCE(?, is_available),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, upd.Title, upd.Description, upd.Category, upd.PricePerDay, upd.PriceUnit, upd.City, upd.IsAvailable, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if len(newImages) > 0 {
		var next int
		if err := tx.Get(&next, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM item_images WHERE item_id = ?`, itemID); err != nil {
			return nil, fmt.Errorf("failed to query image order: %w", err)
		}
		if err := insertImages(tx, itemID, newImages, next); err != nil {
			return nil, err
		}
	}

	item, err := getItem(tx, itemID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item update: %w", err)
	}

	return item, nil
}

// DeleteItem removes a listing on behalf of its owner or an admin and returns
// the image paths that belonged to it.
func DeleteItem(db *sqlx.DB, actor *models.User, itemID int) ([]string, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkItemAccess(tx, actor, itemID, "You can only delete your own products"); err != nil {
		return nil, err
	}

	var images []string
	if err := tx.Select(&images, `SELECT image_path FROM item_images WHERE item_id = ? ORDER BY sort_order`, itemID); err != nil {
		return nil, fmt.Errorf("failed to query item images: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, itemID); err != nil {
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item deletion: %w", err)
	}

	return images, nil
}

func checkItemAccess(tx *sqlx.Tx, actor *models.User, itemID int, denied string) error {
	var ownerID int
	if err := tx.Get(&ownerID, `SELECT user_id FROM items WHERE id = ?`, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Product")
		}
		return fmt.Errorf("failed to query item owner: %w", err)
	}
	if !actor.CanManage(ownerID) {
		return apperr.Forbidden("%s", denied)
	}
	return nil
}
