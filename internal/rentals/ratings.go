package rentals

import (
	"strings"
	"unicode/utf8"

	"arthings/internal/apperr"
)

const MaxCommentLength = 1000

func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return apperr.Validation("Score must be between 1 and 5")
	}
	return nil
}

// NormalizeComment trims the comment and cuts it to MaxCommentLength characters.
func NormalizeComment(comment string) string {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) <= MaxCommentLength {
		return comment
	}
	runes := []rune(comment)
	return string(runes[:MaxCommentLength])
}

// CheckRating validates who may rate whom for a rental in the given status.
// Existence of the rental is checked by the caller.
func CheckRating(p Participants, status Status, fromUserID, toUserID int) error {
	if status != StatusCompleted {
		return apperr.Validation("You can only rate after the rental is completed")
	}
	party := p.PartyOf(fromUserID)
	if party == PartyNone {
		return apperr.Forbidden("You are not part of this rental")
	}
	if toUserID == fromUserID || toUserID != p.Counterparty(party) {
		return apperr.Validation("You can only rate the other party of this rental")
	}
	return nil
}

// Eligibility describes which ratings the caller can still leave on a rental.
type Eligibility struct {
	CanRateOwner       bool `json:"canRateOwner"`
	CanRateRenter      bool `json:"canRateRenter"`
	AlreadyRatedOwner  bool `json:"alreadyRatedOwner"`
	AlreadyRatedRenter bool `json:"alreadyRatedRenter"`
}

// EvaluateEligibility derives eligibility from the target ids of ratings the
// caller already gave on this rental. No rental, no caller, or a rental that
// is not completed yields the zero value.
func EvaluateEligibility(p Participants, status Status, callerID int, ratedByCaller []int) Eligibility {
	var e Eligibility
	if callerID == 0 || status != StatusCompleted {
		return e
	}

	switch p.PartyOf(callerID) {
	case PartyRenter:
		e.AlreadyRatedOwner = containsID(ratedByCaller, p.OwnerID)
		e.CanRateOwner = !e.AlreadyRatedOwner
	case PartyOwner:
		e.AlreadyRatedRenter = containsID(ratedByCaller, p.RenterID)
		e.CanRateRenter = !e.AlreadyRatedRenter
	}
	return e
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
