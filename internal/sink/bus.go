package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	busConnectTimeout = 5 * time.Second
	pruneTimeout      = 5 * time.Second
)

// busMessage is the wire form of an utterance on the transcript subject.
type busMessage struct {
	Session   string `json:"session"`
	Seq       int64  `json:"seq"`
	Text      string `json:"text"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
	LatencyMs int64  `json:"latency_ms"`
	Reason    string `json:"reason"`
}

// Bus publishes utterances to a NATS subject.
type Bus struct {
	conn    *nats.Conn
	subject string
}

// NewBus connects to the broker and prepares the transcript publisher.
func NewBus(url, subject string) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.Name("vinu"),
		nats.Timeout(busConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %q: %w", url, err)
	}
	return &Bus{conn: conn, subject: subject}, nil
}

func (s *Bus) Write(_ context.Context, u Utterance) error {
	payload, err := json.Marshal(busMessage{
		Session:   u.Session,
		Seq:       u.Seq,
		Text:      u.Text,
		StartMs:   u.Start.Milliseconds(),
		EndMs:     u.End.Milliseconds(),
		LatencyMs: u.Latency.Milliseconds(),
		Reason:    u.Reason,
	})
	if err != nil {
		return fmt.Errorf("encode transcript message: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("publish transcript: %w", err)
	}
	return nil
}

func (s *Bus) Close() error {
	err := s.conn.Drain()
	s.conn.Close()
	return err
}
