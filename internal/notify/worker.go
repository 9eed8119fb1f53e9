package notify

import (
	"context"
	"log/slog"
)

// Sink receives events after the worker has drained them from the inbox.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Worker consumes notifications from the publisher's inbox and fans them out
// to the configured sinks. A failing sink is logged and skipped; the backlog
// store sink is expected to be reliable.
type Worker struct {
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Write(ctx, event); err != nil {
					w.logger.Warn("notification sink write failed",
						slog.String("event_id", event.ID),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}

// StoreSink adapts a Store into a Sink.
type StoreSink struct {
	store Store
}

func NewStoreSink(store Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Write(ctx context.Context, event Event) error {
	return s.store.Append(ctx, event)
}
