package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const purchaseSubject = "Your Photos are Ready! 📸"

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridEmail sends the purchase email through SendGrid.
type SendGridEmail struct {
	client   mailClient
	from     string
	fromName string
}

func NewSendGridEmail(apiKey, from, fromName string) *SendGridEmail {
	return &SendGridEmail{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}
}

func (s *SendGridEmail) SendPurchaseEmail(ctx context.Context, n Notice) error {
	if n.Email == "" {
		return fmt.Errorf("recipient address is empty")
	}

	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		purchaseSubject,
		mail.NewEmail(n.CustomerName, n.Email),
		purchaseText(n),
		purchaseHTML(n),
	)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

func purchaseText(n Notice) string {
	return fmt.Sprintf("Order complete.\n\nDownload your photos: %s\n\nThe link works until %s.\n",
		n.DownloadURL, n.ExpiresAt.Format("January 2, 2006"))
}

func purchaseHTML(n Notice) string {
	return fmt.Sprintf(`<h1>Order Complete</h1><p>Download here: <a href="%s">View Photos</a></p><p>Available until %s.</p>`,
		html.EscapeString(n.DownloadURL), n.ExpiresAt.Format("January 2, 2006"))
}
