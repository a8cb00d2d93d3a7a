package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("vault.>", ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := Envelope{
		ID:         "evt-pub1",
		Topic:      TopicPayoutExecuted,
		OccurredAt: 1_700_000_000,
		Payload:    PayoutExecuted{Account: "alice", Amount: 1_000},
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := pub.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Subject != TopicPayoutExecuted {
			t.Fatalf("got subject %q, want %q", msg.Subject, TopicPayoutExecuted)
		}
		var got struct {
			ID      string         `json:"id"`
			Payload PayoutExecuted `json:"payload"`
		}
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != "evt-pub1" || got.Payload.Amount != 1_000 {
			t.Errorf("unexpected payload %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNewNATSPublisher_BadURL(t *testing.T) {
	if _, err := NewNATSPublisher("nats://127.0.0.1:1", nats.NoReconnect(), nats.Timeout(200*time.Millisecond)); err == nil {
		t.Fatal("expected connection error")
	}
}
