package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/researchgraph/core"
)

// DefaultPollInterval is how often a loop asks its source for new items.
const DefaultPollInterval = 5 * time.Minute

// Source is a discovery feed of analyzed items. Implementations wrap the
// external crawlers (arXiv listings, GitHub search) plus whatever analysis
// pipeline fills in summaries and scores; the loop only cares about
// receiving finished items.
type Source interface {
	// Name identifies the feed in logs and status reports.
	Name() string

	// Next returns the next batch of analyzed items. An empty batch means
	// nothing new this poll. Errors are logged and retried on the next tick.
	Next(ctx context.Context) ([]*core.CatalogItem, error)
}

// Status is a point-in-time view of a loop's progress.
type Status struct {
	Source    string
	Running   bool
	LastPoll  time.Time
	Ingested  uint64
	Failed    uint64
	LastError string
}

// Loop drives one discovery feed through the gateway. Paper and
// repository loops run independently against the same gateway; the store
// revision counter keeps their writes ordered.
type Loop struct {
	gateway  *Gateway
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status Status
}

// LoopOption configures a Loop.
type LoopOption func(*Loop) error

// WithPollInterval sets how often the loop polls its source.
func WithPollInterval(d time.Duration) LoopOption {
	return func(l *Loop) error {
		if d > 0 {
			l.interval = d
		}
		return nil
	}
}

// WithLoopLogger sets a custom logger.
// Default is slog.Default().
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger.With("component", "ingest-loop", "source", l.source.Name())
		return nil
	}
}

// NewLoop creates a loop over a discovery source.
func NewLoop(gateway *Gateway, source Source, opts ...LoopOption) (*Loop, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}

	l := &Loop{
		gateway:  gateway,
		source:   source,
		interval: DefaultPollInterval,
		logger:   slog.Default().With("component", "ingest-loop", "source", source.Name()),
		status:   Status{Source: source.Name()},
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Start begins polling in a background goroutine. The loop polls once
// immediately, then on every interval tick until Stop is called or the
// parent context is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.status.Running = true
	l.logger.Info("starting loop", "interval", l.interval)

	go l.run(runCtx, l.done)
	return nil
}

// Stop halts polling and waits for the current poll to finish.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return ErrNotRunning
	}
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	cancel()
	<-done

	l.mu.Lock()
	l.status.Running = false
	l.mu.Unlock()

	l.logger.Info("loop stopped")
	return nil
}

// Status returns a snapshot of the loop's progress.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

// poll fetches one batch and ingests it. Failures are counted and logged
// but never stop the loop.
func (l *Loop) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	l.mu.Lock()
	l.status.LastPoll = time.Now().UTC()
	l.mu.Unlock()

	items, err := l.source.Next(ctx)
	if err != nil {
		l.recordFailure(err)
		l.logger.Warn("source poll failed", "err", err)
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if _, err := l.gateway.Ingest(ctx, item); err != nil {
			l.recordFailure(err)
			l.logger.Warn("failed to ingest item",
				"title", item.Title,
				"url", item.SourceURL,
				"err", err)
			continue
		}
		l.mu.Lock()
		l.status.Ingested++
		l.mu.Unlock()
	}
}

func (l *Loop) recordFailure(err error) {
	l.mu.Lock()
	l.status.Failed++
	l.status.LastError = err.Error()
	l.mu.Unlock()
}
