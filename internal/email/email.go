package email

import (
	"context"
	"fmt"
	"time"

	"arthings/internal/config"
	"arthings/internal/logger"
	"arthings/internal/models"
	"arthings/internal/rentals"

	"github.com/mailgun/mailgun-go/v5"
)

type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	baseURL     string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
		if cfg.MailgunAPIBase != "" {
			if err := client.SetAPIBase(cfg.MailgunAPIBase); err != nil {
				logger.Warn("Ignoring invalid MAILGUN_API_BASE", "api_base", cfg.MailgunAPIBase, "error", err)
			}
		}
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		baseURL:     cfg.BaseURL,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

func (s *Service) send(to, subject, textBody, htmlBody string) error {
	if !s.enabled {
		return fmt.Errorf("email service is not configured")
	}

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		textBody,
		to,
	)
	message.SetHTML(htmlBody)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}

	logger.Info("Email sent", "email", to, "subject", subject, "message_id", resp.ID)
	return nil
}

// SendVerificationEmail mails the account verification link.
func (s *Service) SendVerificationEmail(user *models.User, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify/%s", s.baseURL, token)
	return s.send(user.Email, "Confirm your Arthings account",
		verificationText(user, link), verificationHTML(user, link))
}

// SendRentalRequestEmail tells the owner that someone wants to rent their item.
func (s *Service) SendRentalRequestEmail(r *models.Rental) error {
	subject := fmt.Sprintf("New rental request for %s", r.ItemTitle)
	return s.send(r.OwnerEmail, subject, rentalRequestText(r, s.baseURL), rentalRequestHTML(r, s.baseURL))
}

// SendRentalStatusEmail tells the renter that the owner changed the rental status.
func (s *Service) SendRentalStatusEmail(r *models.Rental) error {
	subject := fmt.Sprintf("Your rental of %s was %s", r.ItemTitle, rentals.Status(r.Status))
	return s.send(r.RenterEmail, subject, rentalStatusText(r, s.baseURL), rentalStatusHTML(r, s.baseURL))
}
