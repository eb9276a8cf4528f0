package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher buffers audit events and hands them to a background worker.
// Emitting never blocks the calling operation: when the buffer is full the
// event is dropped with a warning rather than stalling a user-facing request.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher builds a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Emit enqueues an event, stamping the timestamp if unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Worker drains the publisher's inbox into one or more sinks. A sink failure
// is logged and the event is still offered to the remaining sinks; audit
// best-effort delivery must never fail the originating operation.
type Worker struct {
	inbox  <-chan Event
	sinks  []Store
	logger *slog.Logger
}

// NewWorker wires the publisher's channel to the given sinks.
func NewWorker(p *Publisher, logger *slog.Logger, sinks ...Store) *Worker {
	return &Worker{inbox: p.inbox, sinks: sinks, logger: logger}
}

// Run consumes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil {
					w.logger.ErrorContext(ctx, "audit sink append failed",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
