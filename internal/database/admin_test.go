package database

import (
	"fmt"
	"testing"

	"arthings/internal/apperr"
	"arthings/internal/rentals"
)

func TestAdminStats(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Canoe", 100)

	approved, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
		StartDate: date(t, "2025-01-01"), EndDate: date(t, "2025-01-03")})
	if err != nil {
		t.Fatal("Failed to create rental:", err)
	}
	if _, err := UpdateRentalStatus(db, owner, approved.ID, rentals.StatusApproved); err != nil {
		t.Fatal("Failed to approve rental:", err)
	}
	if _, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
		StartDate: date(t, "2025-02-01"), EndDate: date(t, "2025-02-01")}); err != nil {
		t.Fatal("Failed to create rental:", err)
	}

	stats, recent, err := GetAdminStats(db)
	if err != nil {
		t.Fatal("Failed to get admin stats:", err)
	}
	if stats.TotalUsers != 2 || stats.TotalListings != 1 || stats.TotalRentals != 2 || stats.ActiveRentals != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalRevenue != 400 {
		t.Errorf("Expected revenue 400, got %v", stats.TotalRevenue)
	}
	if len(recent) != 2 || recent[0].ID == approved.ID {
		t.Errorf("Expected newest rental first, got %d rentals", len(recent))
	}
}

func TestListUsersWithStatsPaging(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < 5; i++ {
		createTestUser(t, db, fmt.Sprintf("user%d@example.com", i))
	}
	createTestUser(t, db, "someone@other.org")

	users, total, err := ListUsersWithStats(db, "", Page{Number: 2, Size: 4})
	if err != nil {
		t.Fatal("Failed to list users:", err)
	}
	if total != 6 || len(users) != 2 {
		t.Errorf("Expected page 2 with 2 of 6 users, got %d of %d", len(users), total)
	}

	users, total, err = ListUsersWithStats(db, "other.org", Page{Number: 1, Size: 20})
	if err != nil {
		t.Fatal("Failed to search users:", err)
	}
	if total != 1 || users[0].Email != "someone@other.org" {
		t.Errorf("Unexpected search result: %d %+v", total, users)
	}
}

func TestToggleUserAdminAndDelete(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "user@example.com")
	createTestItem(t, db, user.ID, "Saw", 30, "/uploads/saw.jpg")

	isAdmin, err := ToggleUserAdmin(db, user.ID)
	if err != nil || !isAdmin {
		t.Fatalf("Expected admin after toggle, got %v, %v", isAdmin, err)
	}
	isAdmin, err = ToggleUserAdmin(db, user.ID)
	if err != nil || isAdmin {
		t.Fatalf("Expected non-admin after second toggle, got %v, %v", isAdmin, err)
	}
	if _, err := ToggleUserAdmin(db, 9999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}

	images, err := DeleteUser(db, user.ID)
	if err != nil {
		t.Fatal("Failed to delete user:", err)
	}
	if len(images) != 1 || images[0] != "/uploads/saw.jpg" {
		t.Errorf("Unexpected image paths: %v", images)
	}

	var items int
	if err := db.Get(&items, `SELECT COUNT(*) FROM items`); err != nil {
		t.Fatal("Failed to count items:", err)
	}
	if items != 0 {
		t.Errorf("Expected listings to cascade, got %d", items)
	}
}

func TestListingsAndRentalsPaging(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	renter := createTestUser(t, db, "renter@example.com")
	item := createTestItem(t, db, owner.ID, "Snowboard", 90, "/uploads/sb.jpg")
	createTestItem(t, db, owner.ID, "Skis", 110)

	listings, total, err := ListListingsWithStats(db, "snow", Page{Number: 1, Size: 20})
	if err != nil {
		t.Fatal("Failed to list listings:", err)
	}
	if total != 1 || listings[0].ID != item.ID || listings[0].Image.String != "/uploads/sb.jpg" {
		t.Errorf("Unexpected listings: %d %+v", total, listings)
	}

	r, err := CreateRental(db, NewRental{ItemID: item.ID, RenterID: renter.ID,
		StartDate: date(t, "2025-01-10"), EndDate: date(t, "2025-01-12")})
	if err != nil {
		t.Fatal("Failed to create rental:", err)
	}
	if _, err := UpdateRentalStatus(db, renter, r.ID, rentals.StatusCancelled); err != nil {
		t.Fatal("Failed to cancel rental:", err)
	}

	list, total, err := ListAllRentals(db, "cancelled", Page{Number: 1, Size: 20})
	if err != nil {
		t.Fatal("Failed to list rentals:", err)
	}
	if total != 1 || list[0].ID != r.ID {
		t.Errorf("Unexpected rentals: %d %+v", total, list)
	}

	_, total, err = ListAllRentals(db, "pending", Page{Number: 1, Size: 20})
	if err != nil {
		t.Fatal("Failed to list rentals:", err)
	}
	if total != 0 {
		t.Errorf("Expected no pending rentals, got %d", total)
	}
}

func TestToggleRegistration(t *testing.T) {
	db := setupTestDB(t)

	enabled, err := IsRegistrationEnabled(db)
	if err != nil || !enabled {
		t.Fatalf("Expected registration enabled by default, got %v, %v", enabled, err)
	}

	enabled, err = ToggleRegistration(db)
	if err != nil || enabled {
		t.Fatalf("Expected registration disabled, got %v, %v", enabled, err)
	}

	enabled, err = ToggleRegistration(db)
	if err != nil || !enabled {
		t.Fatalf("Expected registration enabled again, got %v, %v", enabled, err)
	}
}
