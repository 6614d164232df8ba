package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"playa-storefront/internal/metrics"
)

// EventPurchaseSuccess is the event name agencies key their CRM automations on.
const EventPurchaseSuccess = "purchase_success"

type webhookPayload struct {
	Event        string `json:"event"`
	ContactEmail string `json:"contact_email"`
	ContactName  string `json:"contact_name"`
	DownloadURL  string `json:"download_url"`
	ExpiryDate   string `json:"expiry_date"`
}

type WebhookConfig struct {
	Timeout          time.Duration
	MaxRetries       uint64
	RetryInterval    time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPWebhook posts purchase events to agency URLs. Each URL gets its own
// circuit breaker so one dead endpoint does not slow the others.
type HTTPWebhook struct {
	client *http.Client
	cfg    WebhookConfig
	logger zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewHTTPWebhook(client *http.Client, cfg WebhookConfig, logger zerolog.Logger) *HTTPWebhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPWebhook{
		client:   client,
		cfg:      cfg,
		logger:   logger.With().Str("component", "agency-webhook").Logger(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (w *HTTPWebhook) SendPurchaseWebhook(ctx context.Context, n Notice) error {
	body, err := json.Marshal(webhookPayload{
		Event:        EventPurchaseSuccess,
		ContactEmail: n.Email,
		ContactName:  n.CustomerName,
		DownloadURL:  n.DownloadURL,
		ExpiryDate:   n.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	_, err = w.breaker(n.WebhookURL).Execute(func() (struct{}, error) {
		eb := backoff.NewExponentialBackOff()
		if w.cfg.RetryInterval > 0 {
			eb.InitialInterval = w.cfg.RetryInterval
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(eb, w.cfg.MaxRetries), ctx)
		return struct{}{}, backoff.Retry(func() error { return w.post(ctx, n.WebhookURL, body) }, policy)
	})
	return err
}

func (w *HTTPWebhook) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("webhook rejected with %d", resp.StatusCode))
	}
	return nil
}

func (w *HTTPWebhook) breaker(url string) *gobreaker.CircuitBreaker[struct{}] {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cb, ok := w.breakers[url]; ok {
		return cb
	}
	threshold := w.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "agency-webhook:" + url,
		MaxRequests: 1,
		Timeout:     w.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues("agency-webhook").Set(float64(to))
		},
	})
	w.breakers[url] = cb
	return cb
}
