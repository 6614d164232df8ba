package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"playa-storefront/internal/metrics"
)

// ErrQueueFull is returned by Notify when the backlog is at capacity.
var ErrQueueFull = errors.New("notification queue full")

const drainTimeout = 5 * time.Second

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// SendTimeout bounds a single notice across all channels.
	SendTimeout time.Duration
}

// Dispatcher queues notices and delivers them from a fixed set of workers. It
// implements suture.Service.
type Dispatcher struct {
	cfg     DispatcherConfig
	queue   chan Notice
	email   EmailSender
	webhook WebhookSender
	logger  zerolog.Logger
}

// NewDispatcher builds a Dispatcher. A nil sender disables that channel.
func NewDispatcher(cfg DispatcherConfig, email EmailSender, webhook WebhookSender, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		queue:   make(chan Notice, cfg.QueueSize),
		email:   email,
		webhook: webhook,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(_ context.Context, n Notice) error {
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Serve runs the workers until ctx is cancelled, then delivers whatever is still
// queued within a short grace period.
func (d *Dispatcher) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case n := <-d.queue:
					d.Deliver(ctx, n)
				}
			}
		}()
	}
	wg.Wait()

	d.drain()
	return ctx.Err()
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case n := <-d.queue:
			d.Deliver(ctx, n)
		default:
			return
		}
	}
}

// Deliver sends n on every configured channel. Channel failures are logged and
// counted; one failing channel does not stop the other.
func (d *Dispatcher) Deliver(ctx context.Context, n Notice) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	log := d.logger.With().Str("purchase_id", n.PurchaseID).Logger()

	if d.email != nil && n.Email != "" {
		err := d.email.SendPurchaseEmail(ctx, n)
		metrics.RecordNotification("email", err)
		if err != nil {
			log.Warn().Err(err).Msg("purchase email failed")
		} else {
			log.Info().Msg("purchase email sent")
		}
	}

	if d.webhook != nil && n.WebhookURL != "" {
		err := d.webhook.SendPurchaseWebhook(ctx, n)
		metrics.RecordNotification("webhook", err)
		if err != nil {
			log.Warn().Err(err).Str("agency_id", n.AgencyID).Msg("agency webhook failed")
		} else {
			log.Info().Str("agency_id", n.AgencyID).Msg("agency webhook delivered")
		}
	}
}

func (d *Dispatcher) String() string { return "notify-dispatcher" }
