// Package worker runs a polling consumer loop over a queue.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/corvohq/perch/pkg/queue"
)

// Handler processes one reference. A non-nil error releases the claim so
// the item is retried later; a nil return finalizes it.
type Handler func(ref string) error

// Config holds worker configuration.
type Config struct {
	Queue        *queue.Queue
	Handler      Handler
	PollInterval time.Duration // sleep when the queue reports empty (default 1s)
}

// Worker drives ConsumeOne in a loop until its context is cancelled.
type Worker struct {
	queue        *queue.Queue
	handler      Handler
	pollInterval time.Duration
}

// New creates a Worker.
func New(cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		queue:        cfg.Queue,
		handler:      cfg.Handler,
		pollInterval: cfg.PollInterval,
	}
}

// Run blocks until ctx is cancelled. Storage failures are logged and
// retried after the poll interval; they never stop the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		ok, err := w.queue.ConsumeOne(ctx, func(ref string) error {
			return w.handler(ref)
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("consume failed", "error", err)
		}
		if ok && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}
