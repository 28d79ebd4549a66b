package database

import (
	"testing"
	"time"

	"arthings/internal/apperr"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/jmoiron/sqlx"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := rentals.ParseDate(s)
	if err != nil {
		t.Fatal("Failed to parse date:", err)
	}
	return d
}

func countRentals(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM rentals`); err != nil {
		t.Fatal("Failed to count rentals:", err)
	}
	return n
}

func TestCreateRentalSnapshotsPrice(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Tent", 100)

	rental, err := CreateRental(db, NewRental{
		ItemID:    item.ID,
		RenterID:  renter.ID,
		StartDate: date(t, "2025-01-01"),
		EndDate:   date(t, "2025-01-03"),
		Message:   "Weekend trip",
	})
	if err != nil {
		t.Fatal("Failed to create rental:", err)
	}

	if rental.Days != 3 || rental.TotalPrice != 300 || rental.PricePerDay != 100 {
		t.Errorf("Unexpected terms: days=%d price=%v total=%v", rental.Days, rental.PricePerDay, rental.TotalPrice)
	}
	if rental.Status != string(rentals.StatusPending) {
		t.Errorf("Expected pending status, got %s", rental.Status)
	}
	if rentals.FormatDate(rental.StartDate) != "2025-01-01" || rentals.FormatDate(rental.EndDate) != "2025-01-03" {
		t.Errorf("Unexpected dates: %v - %v", rental.StartDate, rental.EndDate)
	}
	if rental.OwnerID != owner.ID || rental.RenterName != "renter" {
		t.Errorf("Unexpected joined parties: %+v", rental)
	}

	price := 250.0
	if _, err := UpdateItem(db, owner, item.ID, ItemUpdate{PricePerDay: &price}, nil); err != nil {
		t.Fatal("Failed to change item price:", err)
	}

	reloaded, err := GetRental(db, rental.ID)
	if err != nil {
		t.Fatal("Failed to reload rental:", err)
	}
	if reloaded.PricePerDay != 100 || reloaded.TotalPrice != 300 {
		t.Errorf("Price snapshot changed: price=%v total=%v", reloaded.PricePerDay, reloaded.TotalPrice)
	}
	if reloaded.ItemPrice != 250 {
		t.Errorf("Expected current item price 250, got %v", reloaded.ItemPrice)
	}
}

func TestCreateRentalPreconditions(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Bike", 50)
	hidden := createTestItem(t, db, owner.ID, "Hidden bike", 50)

	off := false
	if _, err := UpdateItem(db, owner, hidden.ID, ItemUpdate{IsAvailable: &off}, nil); err != nil {
		t.Fatal("Failed to hide item:", err)
	}

	start, end := date(t, "2025-02-01"), date(t, "2025-02-02")
	tests := []struct {
		name string
		nr   NewRental
		kind apperr.Kind
	}{
		{"own item", NewRental{ItemID: item.ID, RenterID: owner.ID, StartDate: start, EndDate: end}, apperr.KindConflict},
		{"missing item", NewRental{ItemID: 9999, RenterID: renter.ID, StartDate: start, EndDate: end}, apperr.KindNotFound},
		{"unavailable", NewRental{ItemID: hidden.ID, RenterID: renter.ID, StartDate: start, EndDate: end}, apperr.KindValidation},
		{"reversed dates", NewRental{ItemID: item.ID, RenterID: renter.ID, StartDate: end, EndDate: start.AddDate(0, 0, -1)}, apperr.KindValidation},
	}

	for _, tt := range tests {
		_, err := CreateRental(db, tt.nr)
		if !apperr.Is(err, tt.kind) {
			t.Errorf("%s: expected %s error, got %v", tt.name, tt.kind, err)
		}
	}

	if n := countRentals(t, db); n != 0 {
		t.Errorf("Expected zero rentals written, got %d", n)
	}
}

func TestRentalStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	outsider := createTestUser(t, db, "outsider@example.com")
	item := createTestItem(t, db, owner.ID, "Camera", 400)

	rental, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
		StartDate: date(t, "2025-03-01"), EndDate: date(t, "2025-03-01")})
	if err != nil {
		t.Fatal("Failed to create rental:", err)
	}
	if rental.Days != 1 || rental.TotalPrice != 400 {
		t.Errorf("Expected single-day rental, got days=%d total=%v", rental.Days, rental.TotalPrice)
	}

	if _, err := UpdateRentalStatus(db, renter, rental.ID, rentals.StatusApproved); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Renter must not approve, got %v", err)
	}
	if _, err := UpdateRentalStatus(db, outsider, rental.ID, rentals.StatusCancelled); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Outsider must not cancel, got %v", err)
	}
	if _, err := UpdateRentalStatus(db, owner, rental.ID, rentals.StatusCompleted); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Owner must not complete a pending rental, got %v", err)
	}

	updated, err := UpdateRentalStatus(db, owner, rental.ID, rentals.StatusApproved)
	if err != nil {
		t.Fatal("Owner failed to approve:", err)
	}
	if updated.Status != string(rentals.StatusApproved) {
		t.Errorf("Expected approved, got %s", updated.Status)
	}

	updated, err = UpdateRentalStatus(db, owner, rental.ID, rentals.StatusCompleted)
	if err != nil {
		t.Fatal("Owner failed to complete:", err)
	}
	if updated.Status != string(rentals.StatusCompleted) {
		t.Errorf("Expected completed, got %s", updated.Status)
	}

	if _, err := UpdateRentalStatus(db, renter, rental.ID, rentals.StatusCancelled); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Completed rental must not be cancelled, got %v", err)
	}

	forced, err := ForceRentalStatus(db, rental.ID, rentals.StatusPending)
	if err != nil {
		t.Fatal("Admin failed to force status:", err)
	}
	if forced.Status != string(rentals.StatusPending) {
		t.Errorf("Expected forced pending, got %s", forced.Status)
	}
}

func TestListRentalsByRole(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Speaker", 70, "/uploads/s.jpg")

	for i := 0; i < 2; i++ {
		if _, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
			StartDate: date(t, "2025-04-01"), EndDate: date(t, "2025-04-02")}); err != nil {
			t.Fatal("Failed to create rental:", err)
		}
	}

	asRenter, err := ListRentals(db, renter.ID, RoleRenter)
	if err != nil {
		t.Fatal("Failed to list renter rentals:", err)
	}
	asOwner, err := ListRentals(db, owner.ID, RoleOwner)
	if err != nil {
		t.Fatal("Failed to list owner rentals:", err)
	}
	ownerAsRenter, err := ListRentals(db, owner.ID, RoleRenter)
	if err != nil {
		t.Fatal("Failed to list owner's own rentals:", err)
	}

	if len(asRenter) != 2 || len(asOwner) != 2 || len(ownerAsRenter) != 0 {
		t.Errorf("Unexpected counts: renter=%d owner=%d ownerAsRenter=%d", len(asRenter), len(asOwner), len(ownerAsRenter))
	}
	if asRenter[0].ID < asRenter[1].ID {
		t.Error("Expected newest rental first")
	}
	if !asOwner[0].ItemImage.Valid || asOwner[0].ItemImage.String != "/uploads/s.jpg" {
		t.Errorf("Expected first item image, got %+v", asOwner[0].ItemImage)
	}
}

func TestAdminCanReadButNotTransition(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Grill", 60)
	admin := &models.User{ID: 9999, IsAdmin: true}

	rental, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
		StartDate: date(t, "2025-05-01"), EndDate: date(t, "2025-05-02")})
	if err != nil {
		t.Fatal("Failed to create rental:", err)
	}

	if !admin.CanManage(rental.OwnerID) {
		t.Error("Admin should pass the ownership predicate")
	}
	if _, err := UpdateRentalStatus(db, admin, rental.ID, rentals.StatusApproved); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Party transitions are not an admin path, got %v", err)
	}
}
