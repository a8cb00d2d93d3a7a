package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Journal appends every event to the vault_events table so auditing tools can
// replay the stream.
type Journal struct {
	db *sql.DB
}

// NewJournal builds a journal over db.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Publish(ctx context.Context, event Envelope) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.ID, err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO vault_events (id, topic, payload, occurred_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Topic, payload, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("journaling event %s: %w", event.ID, err)
	}
	return nil
}

// Recorded is one journal row.
type Recorded struct {
	ID         string
	Topic      string
	Payload    json.RawMessage
	OccurredAt int64
}

// Since returns journaled events of topic that occurred at or after ts,
// oldest first. An empty topic matches every topic.
func (j *Journal) Since(ctx context.Context, topic string, ts int64, limit int) ([]Recorded, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, topic, payload, occurred_at FROM vault_events
        WHERE ($1 = '' OR topic = $1) AND occurred_at >= $2
        ORDER BY occurred_at, recorded_at LIMIT $3`,
		topic, ts, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var out []Recorded
	for rows.Next() {
		var r Recorded
		if err := rows.Scan(&r.ID, &r.Topic, &r.Payload, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close is a no-op; the journal does not own db.
func (j *Journal) Close() error { return nil }

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = (*Journal)(nil)
)
