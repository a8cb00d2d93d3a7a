package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/congo-pay/payout_vault/internal/logging"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Envelope) error { return f.err }
func (f failingPublisher) Close() error                          { return nil }

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), Envelope{Topic: TopicDeposited}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

func TestLogPublisherToleratesNilLogger(t *testing.T) {
	var p *LogPublisher
	if err := p.Publish(context.Background(), Envelope{}); err != nil {
		t.Fatalf("nil log publisher: %v", err)
	}
	if err := NewLogPublisher(logging.Discard()).Publish(context.Background(), Envelope{Topic: TopicLimitSet}); err != nil {
		t.Fatalf("log publish: %v", err)
	}
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	first := &Recorder{}
	second := &Recorder{}
	f := Fanout{first, failingPublisher{err: boom}, second}

	err := f.Publish(context.Background(), Envelope{ID: "evt-1", Topic: TopicPayoutExecuted})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom error, got %v", err)
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("expected delivery to every publisher, got %d and %d", len(first.Events()), len(second.Events()))
	}
}

func TestEnvelopeEncode(t *testing.T) {
	e := Envelope{
		ID:         "evt-abc",
		Topic:      TopicOwnershipTransferred,
		OccurredAt: 42,
		Payload:    OwnershipTransferred{Previous: "alice", Next: "bob"},
	}
	data, err := e.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded struct {
		ID      string               `json:"id"`
		Topic   string               `json:"topic"`
		Payload OwnershipTransferred `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Payload.Next != "bob" || decoded.Topic != TopicOwnershipTransferred {
		t.Fatalf("unexpected decoded envelope %+v", decoded)
	}
}
