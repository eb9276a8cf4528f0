package capture

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often a pending submission is re-checked.
const DefaultPollInterval = 5 * time.Second

// StatusFunc fetches the caller's current verification record.
type StatusFunc func(ctx context.Context) (*Record, error)

// Poller fetches the verification status at a fixed interval and reports each
// successful read. Transient fetch errors are logged and skipped so a flaky
// network does not kill the loop.
type Poller struct {
	fetch    StatusFunc
	interval time.Duration
	onUpdate func(*Record)
	logger   *slog.Logger
}

func NewPoller(fetch StatusFunc, interval time.Duration, onUpdate func(*Record), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{fetch: fetch, interval: interval, onUpdate: onUpdate, logger: logger}
}

// Run polls until ctx is cancelled, fetching once immediately and then on
// every tick. It returns the context error on shutdown.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	rec, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("status poll failed", "error", err)
		}
		return
	}
	p.onUpdate(rec)
}
