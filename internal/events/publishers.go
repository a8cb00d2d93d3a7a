package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// NoopPublisher is a Publisher that does nothing.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Envelope) error { return nil }

func (NoopPublisher) Close() error { return nil }

// LogPublisher writes events to the structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the event to the logger.
func (p *LogPublisher) Publish(_ context.Context, event Envelope) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("vault event",
		slog.String("event_id", event.ID),
		slog.String("topic", event.Topic),
		slog.Int64("occurred_at", event.OccurredAt),
		slog.Any("payload", event.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Fanout delivers every event to all of its publishers. A failing publisher
// does not stop delivery to the others; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Envelope) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory. Tests use it to observe the
// stream.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, event Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Topics returns the topics published so far, in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}

var (
	_ Publisher = NoopPublisher{}
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = Fanout(nil)
	_ Publisher = (*Recorder)(nil)
)
