package email

import (
	"testing"
	"time"

	"arthings/internal/config"
	"arthings/internal/models"

	"github.com/stretchr/testify/assert"
)

func testRental() *models.Rental {
	return &models.Rental{
		ItemTitle:   "Tent <4 person>",
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		Days:        3,
		TotalPrice:  300,
		Status:      "approved",
		Message:     "Is it waterproof?",
		OwnerName:   "Olena",
		OwnerEmail:  "olena@example.com",
		RenterName:  "Taras",
		RenterEmail: "taras@example.com",
	}
}

func TestServiceDisabledWithoutMailgunConfig(t *testing.T) {
	s := NewService(&config.Config{MailgunDomain: "mg.example.com"})

	assert.False(t, s.IsEnabled())
	assert.Error(t, s.SendRentalStatusEmail(testRental()))
	assert.Error(t, s.SendVerificationEmail(&models.User{Email: "a@example.com"}, "token"))
}

func TestServiceEnabledWithMailgunConfig(t *testing.T) {
	s := NewService(&config.Config{MailgunDomain: "mg.example.com", MailgunAPIKey: "key-123"})
	assert.True(t, s.IsEnabled())
}

func TestRentalRequestTemplates(t *testing.T) {
	r := testRental()

	body := rentalRequestHTML(r, "https://arthings.example")
	assert.Contains(t, body, "Tent &lt;4 person&gt;")
	assert.NotContains(t, body, "<4 person>")
	assert.Contains(t, body, "2025-01-01 &ndash; 2025-01-03 (3 days)")
	assert.Contains(t, body, "Is it waterproof?")
	assert.Contains(t, body, "https://arthings.example/profile/rentals")

	text := rentalRequestText(r, "https://arthings.example")
	assert.Contains(t, text, "Hello Olena")
	assert.Contains(t, text, "Total: 300.00 UAH")
}

func TestRentalStatusTemplates(t *testing.T) {
	r := testRental()

	assert.Contains(t, rentalStatusText(r, ""), "the owner approved your rental")

	r.Status = "completed"
	assert.Contains(t, rentalStatusHTML(r, ""), "You can now rate each other")
}

func TestVerificationTemplates(t *testing.T) {
	user := &models.User{Name: "Taras", Email: "taras@example.com"}

	assert.Contains(t, verificationText(user, "https://arthings.example/api/auth/verify/abc"),
		"https://arthings.example/api/auth/verify/abc")
	assert.Contains(t, verificationHTML(user, "https://x/verify?a=1&b=2"), "a=1&amp;b=2")
}
