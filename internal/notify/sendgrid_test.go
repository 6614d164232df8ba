package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailClient struct {
	sent *mail.SGMailV3
	resp *rest.Response
	err  error
}

func (s *stubMailClient) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	s.sent = m
	return s.resp, s.err
}

func TestSendPurchaseEmail(t *testing.T) {
	client := &stubMailClient{resp: &rest.Response{StatusCode: 202}}
	sender := &SendGridEmail{client: client, from: "noreply@playaphotos.com", fromName: "Playa Photos"}

	err := sender.SendPurchaseEmail(context.Background(), Notice{
		Email:       "buyer@example.com",
		DownloadURL: "https://shop.example/download/p1",
		ExpiresAt:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NotNil(t, client.sent)
	assert.Equal(t, "noreply@playaphotos.com", client.sent.From.Address)
	assert.Equal(t, purchaseSubject, client.sent.Subject)
	require.Len(t, client.sent.Personalizations, 1)
	assert.Equal(t, "buyer@example.com", client.sent.Personalizations[0].To[0].Address)

	var htmlBody string
	for _, c := range client.sent.Content {
		if c.Type == "text/html" {
			htmlBody = c.Value
		}
	}
	assert.True(t, strings.Contains(htmlBody, `href="https://shop.example/download/p1"`))
	assert.Contains(t, htmlBody, "May 1, 2026")
}

func TestSendPurchaseEmailErrors(t *testing.T) {
	n := Notice{Email: "buyer@example.com"}

	rejected := &SendGridEmail{client: &stubMailClient{resp: &rest.Response{StatusCode: 401, Body: "bad key"}}}
	assert.Error(t, rejected.SendPurchaseEmail(context.Background(), n))

	failed := &SendGridEmail{client: &stubMailClient{err: errors.New("dial")}}
	assert.Error(t, failed.SendPurchaseEmail(context.Background(), n))

	assert.Error(t, rejected.SendPurchaseEmail(context.Background(), Notice{}))
}
