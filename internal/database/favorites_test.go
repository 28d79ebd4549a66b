package database

import (
	"testing"

	"arthings/internal/apperr"
	"arthings/internal/models"
)

func TestFavoritesLifecycle(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	user := createTestUser(t, db, "user@example.com")
	item := createTestItem(t, db, owner.ID, "Paddle board", 120, "/uploads/board.jpg")

	if _, err := AddFavorite(db, user.ID, item.ID); err != nil {
		t.Fatal("Failed to add favorite:", err)
	}
	if _, err := AddFavorite(db, user.ID, item.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Expected conflict on duplicate favorite, got %v", err)
	}
	if _, err := AddFavorite(db, user.ID, 9999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not found for missing item, got %v", err)
	}

	favorites, err := ListFavorites(db, user.ID)
	if err != nil {
		t.Fatal("Failed to list favorites:", err)
	}
	if len(favorites) != 1 || favorites[0].Item.ID != item.ID || len(favorites[0].Item.Images) != 1 {
		t.Errorf("Unexpected favorites: %+v", favorites)
	}

	is, err := IsFavorite(db, user.ID, item.ID)
	if err != nil || !is {
		t.Errorf("Expected item to be a favorite, got %v, %v", is, err)
	}

	if err := RemoveFavorite(db, user.ID, item.ID); err != nil {
		t.Fatal("Failed to remove favorite:", err)
	}
	if err := RemoveFavorite(db, user.ID, item.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not found removing absent favorite, got %v", err)
	}

	if _, err := AddFavorite(db, user.ID, item.ID); err != nil {
		t.Errorf("Re-adding after removal should succeed, got %v", err)
	}
}

func TestConsentIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "consent@example.com")

	in := models.LegalConsent{UserID: user.ID, DocumentType: "privacy-policy", DocumentVersion: "1.0", IPAddress: "127.0.0.1"}

	first, created, err := RecordConsent(db, in)
	if err != nil || !created {
		t.Fatalf("Expected consent to be created, got %v, %v", created, err)
	}

	second, created, err := RecordConsent(db, in)
	if err != nil {
		t.Fatal("Failed to record consent twice:", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("Expected the existing consent back, got created=%v id=%d", created, second.ID)
	}

	in.DocumentVersion = "2.0"
	if _, created, err := RecordConsent(db, in); err != nil || !created {
		t.Errorf("A new version should be a new consent, got %v, %v", created, err)
	}
}

func TestLegalDocumentLookup(t *testing.T) {
	db := setupTestDB(t)

	doc, err := GetLegalDocument(db, "public-offer")
	if err != nil {
		t.Fatal("Failed to get legal document:", err)
	}
	if doc.Version != "1.0" || doc.File == "" {
		t.Errorf("Unexpected document: %+v", doc)
	}

	if _, err := GetLegalDocument(db, "cookie-policy"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not found for unknown document, got %v", err)
	}
}

func TestRentalRequests(t *testing.T) {
	db := setupTestDB(t)
	author := createTestUser(t, db, "author@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")

	rr, err := CreateRentalRequest(db, models.RentalRequest{UserID: author.ID, Title: "Need a drill",
		Description: "For one weekend", Category: "tools", City: "Odesa"})
	if err != nil {
		t.Fatal("Failed to create rental request:", err)
	}
	if rr.UserName != "author" {
		t.Errorf("Expected author name, got %s", rr.UserName)
	}

	list, err := ListRentalRequests(db, RentalRequestFilter{City: "odesa"})
	if err != nil {
		t.Fatal("Failed to list rental requests:", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 request, got %d", len(list))
	}

	if err := DeleteRentalRequest(db, stranger, rr.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Expected forbidden for stranger, got %v", err)
	}
	if err := DeleteRentalRequest(db, author, rr.ID); err != nil {
		t.Fatal("Author failed to delete request:", err)
	}
	if _, err := GetRentalRequest(db, rr.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected request to be gone, got %v", err)
	}
}
