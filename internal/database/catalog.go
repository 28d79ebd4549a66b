package database

import (
	"context"
	"fmt"

	"arthings/internal/models"

	"github.com/jmoiron/sqlx"
)

func ListCategories(db *sqlx.DB) ([]models.Category, error) {
	categories := []models.Category{}
	if err := db.Select(&categories, `SELECT id, name, name_uk, icon FROM categories ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return categories, nil
}

func ListCities(db *sqlx.DB) ([]models.City, error) {
	cities := []models.City{}
	if err := db.Select(&cities, `SELECT id, name FROM cities ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	return cities, nil
}

// Ping checks that the database answers a trivial query.
func Ping(ctx context.Context, db *sqlx.DB) error {
	var one int
	if err := db.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
