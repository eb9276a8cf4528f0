package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	results []func() (*Record, error)
}

func (f *countingFetcher) fetch(context.Context) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollerReportsEachRead(t *testing.T) {
	fetcher := &countingFetcher{results: []func() (*Record, error){
		func() (*Record, error) { return &Record{Status: "pending"}, nil },
	}}

	updates := make(chan *Record, 16)
	poller := NewPoller(fetcher.fetch, 5*time.Millisecond, func(rec *Record) {
		updates <- rec
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case rec := <-updates:
			assert.Equal(t, "pending", rec.Status)
		case <-time.After(time.Second):
			t.Fatal("poller stopped reporting")
		}
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestPollerSkipsTransientErrors(t *testing.T) {
	fetcher := &countingFetcher{results: []func() (*Record, error){
		func() (*Record, error) { return nil, errors.New("connection refused") },
		func() (*Record, error) { return nil, errors.New("connection refused") },
		func() (*Record, error) { return &Record{Status: "approved"}, nil },
	}}

	updates := make(chan *Record, 16)
	poller := NewPoller(fetcher.fetch, 5*time.Millisecond, func(rec *Record) {
		updates <- rec
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = poller.Run(ctx) }()

	select {
	case rec := <-updates:
		assert.Equal(t, "approved", rec.Status, "errors before the first good read are skipped")
	case <-time.After(time.Second):
		t.Fatal("poller never recovered from transient errors")
	}
}

func TestPollerDefaultsInterval(t *testing.T) {
	poller := NewPoller(func(context.Context) (*Record, error) {
		return &Record{Status: "pending"}, nil
	}, 0, func(*Record) {}, nil)

	assert.Equal(t, DefaultPollInterval, poller.interval)
}

func TestPollerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := NewPoller(func(context.Context) (*Record, error) {
		return &Record{Status: "pending"}, nil
	}, time.Millisecond, func(*Record) {}, discardLogger())

	err := poller.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
