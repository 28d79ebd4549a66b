package rentals

import (
	"strings"
	"testing"
	"time"

	"arthings/internal/apperr"
)

func TestTransitionMatrix(t *testing.T) {
	permitted := map[transition]bool{
		{PartyRenter, StatusPending, StatusCancelled}:  true,
		{PartyRenter, StatusApproved, StatusCancelled}: true,
		{PartyOwner, StatusPending, StatusApproved}:    true,
		{PartyOwner, StatusPending, StatusDeclined}:    true,
		{PartyOwner, StatusApproved, StatusCompleted}:  true,
	}
	targets := []Status{StatusApproved, StatusDeclined, StatusCompleted, StatusCancelled}

	for _, actor := range []Party{PartyNone, PartyOwner, PartyRenter} {
		for _, from := range allStatuses {
			for _, to := range targets {
				err := CheckTransition(actor, from, to)
				if permitted[transition{actor, from, to}] {
					if err != nil {
						t.Errorf("%s: %s -> %s should be allowed, got %v", actor, from, to, err)
					}
					continue
				}
				if !apperr.Is(err, apperr.KindForbidden) {
					t.Errorf("%s: %s -> %s should be forbidden, got %v", actor, from, to, err)
				}
			}
		}
	}
}

func TestTransitionToPendingIsInvalid(t *testing.T) {
	err := CheckTransition(PartyOwner, StatusApproved, StatusPending)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Approved ")
	if err != nil || s != StatusApproved {
		t.Errorf("Expected approved, got %q (%v)", s, err)
	}
	if _, err := ParseStatus("archived"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestComputeTermsExample(t *testing.T) {
	start, _ := ParseDate("2025-01-01")
	end, _ := ParseDate("2025-01-03")

	terms, err := ComputeTerms(start, end, 100)
	if err != nil {
		t.Fatal("Failed to compute terms:", err)
	}
	if terms.Days != 3 {
		t.Errorf("Expected 3 days, got %d", terms.Days)
	}
	if terms.TotalPrice != 300 {
		t.Errorf("Expected total 300, got %v", terms.TotalPrice)
	}
	if terms.PricePerDay != 100 {
		t.Errorf("Expected snapshot price 100, got %v", terms.PricePerDay)
	}
}

func TestComputeTermsInclusiveCount(t *testing.T) {
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for n := 0; n < 40; n++ {
		terms, err := ComputeTerms(base, base.AddDate(0, 0, n), 12.5)
		if err != nil {
			t.Fatalf("span %d: unexpected error %v", n, err)
		}
		if terms.Days != n+1 {
			t.Errorf("span %d: expected %d days, got %d", n, n+1, terms.Days)
		}
		if terms.TotalPrice != 12.5*float64(n+1) {
			t.Errorf("span %d: expected total %v, got %v", n, 12.5*float64(n+1), terms.TotalPrice)
		}
	}
}

func TestComputeTermsRejectsReversedRange(t *testing.T) {
	start, _ := ParseDate("2025-01-03")
	end, _ := ParseDate("2025-01-01")

	_, err := ComputeTerms(start, end, 100)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	// end less than a day before start
	start, _ = ParseDate("2025-01-03T00:00:00Z")
	end, _ = ParseDate("2025-01-02T12:00:00Z")
	if _, err := ComputeTerms(start, end, 100); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Expected validation error for end 12h before start, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01T15:04:05+02:00")
	if err != nil {
		t.Fatal("Failed to parse RFC 3339 date:", err)
	}
	if FormatDate(d) != "2025-06-01" {
		t.Errorf("Expected 2025-06-01, got %s", FormatDate(d))
	}

	_, err = ParseDate("01/06/2025")
	if err == nil || !strings.Contains(err.Error(), "Invalid date") {
		t.Errorf("Expected invalid date error, got %v", err)
	}
}
