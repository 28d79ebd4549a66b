// Package rentals holds the rental lifecycle rules: the status transition
// matrix, price snapshot terms and rating eligibility. Nothing here touches
// storage; the database layer calls into it inside its transactions.
package rentals

import (
	"math"
	"strings"
	"time"

	"arthings/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{StatusPending, StatusApproved, StatusDeclined, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus accepts any of the five lifecycle states.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.Validation("Invalid status")
	}
	return s, nil
}

// Party is the role a user plays in a particular rental.
type Party int

const (
	PartyNone Party = iota
	PartyOwner
	PartyRenter
)

func (p Party) String() string {
	switch p {
	case PartyOwner:
		return "owner"
	case PartyRenter:
		return "renter"
	default:
		return "none"
	}
}

// Participants identifies both sides of a rental.
type Participants struct {
	OwnerID  int
	RenterID int
}

func (p Participants) PartyOf(userID int) Party {
	switch userID {
	case p.OwnerID:
		return PartyOwner
	case p.RenterID:
		return PartyRenter
	default:
		return PartyNone
	}
}

// Counterparty returns the other side's user id.
func (p Participants) Counterparty(party Party) int {
	switch party {
	case PartyOwner:
		return p.RenterID
	case PartyRenter:
		return p.OwnerID
	default:
		return 0
	}
}

type transition struct {
	actor Party
	from  Status
	to    Status
}

var allowed = map[transition]bool{
	{PartyRenter, StatusPending, StatusCancelled}:  true,
	{PartyRenter, StatusApproved, StatusCancelled}: true,
	{PartyOwner, StatusPending, StatusApproved}:    true,
	{PartyOwner, StatusPending, StatusDeclined}:    true,
	{PartyOwner, StatusApproved, StatusCompleted}:  true,
}

// CheckTransition validates a status change requested by one of the parties.
// A target outside {approved, declined, completed, cancelled} is a
// validation error; every other rejected combination is a permission error.
func CheckTransition(actor Party, from, to Status) error {
	switch to {
	case StatusApproved, StatusDeclined, StatusCompleted, StatusCancelled:
	default:
		return apperr.Validation("Invalid status")
	}

	if actor == PartyNone {
		return apperr.Forbidden("Only the rental parties can change its status")
	}
	if to == StatusCancelled && actor != PartyRenter {
		return apperr.Forbidden("Only the renter can cancel a rental")
	}
	if to != StatusCancelled && actor != PartyOwner {
		return apperr.Forbidden("Only the owner can set status to %s", to)
	}
	if !allowed[transition{actor, from, to}] {
		return apperr.Forbidden("Cannot change status from %s to %s", from, to)
	}
	return nil
}

const dateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validation("Invalid date format")
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Terms is the price snapshot recorded on a rental at creation.
type Terms struct {
	Days        int
	PricePerDay float64
	TotalPrice  float64
}

// ComputeTerms counts days inclusively: ceil((end-start)/24h) + 1.
func ComputeTerms(start, end time.Time, pricePerDay float64) (Terms, error) {
	if end.Before(start) {
		return Terms{}, apperr.Validation("Invalid date range")
	}
	days := int(math.Ceil(end.Sub(start).Hours()/24)) + 1
	return Terms{
		Days:        days,
		PricePerDay: pricePerDay,
		TotalPrice:  pricePerDay * float64(days),
	}, nil
}
