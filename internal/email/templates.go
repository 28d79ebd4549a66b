package email

import (
	"fmt"
	"html"

	"arthings/internal/models"
	"arthings/internal/rentals"
)

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f6f7fb;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .logo {
            font-size: 28px;
            font-weight: bold;
            color: #4f46e5;
            text-align: center;
            margin-bottom: 20px;
        }
        .details {
            background-color: #f6f7fb;
            padding: 16px 20px;
            border-radius: 8px;
            margin: 20px 0;
        }
        .cta-button {
            display: inline-block;
            background-color: #4f46e5;
            color: white;
            padding: 12px 24px;
            text-decoration: none;
            border-radius: 6px;
            font-weight: 500;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e9ecef;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">Arthings</div>
        %s
        <div class="footer">
            <p>The Arthings Team</p>
        </div>
    </div>
</body>
</html>`

func page(title, body string) string {
	return fmt.Sprintf(layoutHTML, html.EscapeString(title), body)
}

func rentalDetailsHTML(r *models.Rental) string {
	return fmt.Sprintf(`<div class="details">
            <p><strong>%s</strong></p>
            <p>%s &ndash; %s (%d days)</p>
            <p>Total: %.2f UAH</p>
        </div>`,
		html.EscapeString(r.ItemTitle),
		rentals.FormatDate(r.StartDate), rentals.FormatDate(r.EndDate), r.Days, r.TotalPrice)
}

func rentalDetailsText(r *models.Rental) string {
	return fmt.Sprintf("%s\n%s - %s (%d days)\nTotal: %.2f UAH",
		r.ItemTitle, rentals.FormatDate(r.StartDate), rentals.FormatDate(r.EndDate), r.Days, r.TotalPrice)
}

func verificationHTML(user *models.User, link string) string {
	return page("Confirm your Arthings account", fmt.Sprintf(`
        <p>Hello %s,</p>
        <p>Thanks for joining Arthings. Please confirm your email address to finish setting up your account:</p>
        <p style="text-align: center; margin: 30px 0;">
            <a href="%s" class="cta-button">Confirm email</a>
        </p>
        <p style="font-size: 14px; color: #6c757d;">This link expires in 24 hours.</p>`,
		html.EscapeString(user.Name), html.EscapeString(link)))
}

func verificationText(user *models.User, link string) string {
	return fmt.Sprintf(`Hello %s,

Thanks for joining Arthings. Please confirm your email address to finish setting up your account:
%s

This link expires in 24 hours.

The Arthings Team`, user.Name, link)
}

func rentalRequestHTML(r *models.Rental, baseURL string) string {
	message := ""
	if r.Message != "" {
		message = fmt.Sprintf(`<p>Message from %s:</p><blockquote>%s</blockquote>`,
			html.EscapeString(r.RenterName), html.EscapeString(r.Message))
	}
	return page("New rental request", fmt.Sprintf(`
        <p>Hello %s,</p>
        <p>%s would like to rent your item.</p>
        %s
        %s
        <p style="text-align: center; margin: 30px 0;">
            <a href="%s/profile/rentals" class="cta-button">Review request</a>
        </p>`,
		html.EscapeString(r.OwnerName), html.EscapeString(r.RenterName),
		rentalDetailsHTML(r), message, html.EscapeString(baseURL)))
}

func rentalRequestText(r *models.Rental, baseURL string) string {
	text := fmt.Sprintf("Hello %s,\n\n%s would like to rent your item.\n\n%s\n",
		r.OwnerName, r.RenterName, rentalDetailsText(r))
	if r.Message != "" {
		text += fmt.Sprintf("\nMessage from %s:\n%s\n", r.RenterName, r.Message)
	}
	return text + fmt.Sprintf("\nReview the request: %s/profile/rentals\n\nThe Arthings Team", baseURL)
}

func statusSentence(status rentals.Status) string {
	switch status {
	case rentals.StatusApproved:
		return "Good news: the owner approved your rental."
	case rentals.StatusDeclined:
		return "Unfortunately the owner declined your rental."
	case rentals.StatusCompleted:
		return "The owner marked your rental as completed. You can now rate each other."
	case rentals.StatusCancelled:
		return "Your rental was cancelled."
	default:
		return fmt.Sprintf("Your rental is now %s.", status)
	}
}

func rentalStatusHTML(r *models.Rental, baseURL string) string {
	return page("Rental status update", fmt.Sprintf(`
        <p>Hello %s,</p>
        <p>%s</p>
        %s
        <p style="text-align: center; margin: 30px 0;">
            <a href="%s/profile/rentals" class="cta-button">View rental</a>
        </p>`,
		html.EscapeString(r.RenterName), statusSentence(rentals.Status(r.Status)),
		rentalDetailsHTML(r), html.EscapeString(baseURL)))
}

func rentalStatusText(r *models.Rental, baseURL string) string {
	return fmt.Sprintf("Hello %s,\n\n%s\n\n%s\n\nView rental: %s/profile/rentals\n\nThe Arthings Team",
		r.RenterName, statusSentence(rentals.Status(r.Status)), rentalDetailsText(r), baseURL)
}
