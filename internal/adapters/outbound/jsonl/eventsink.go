// Package jsonl implements outbound.EventSink as a single background
// goroutine draining a queue of JSON lines to an append-only file, so a
// slow disk never stalls the hot path that publishes events.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

var _ outbound.EventSink = (*EventSink)(nil)

type line struct {
	Kind      outbound.EventKind `json:"kind"`
	Timestamp string             `json:"timestamp"`
	Fields    map[string]any     `json:"fields"`
}

// EventSink appends one JSON line per published event. Publish never
// blocks on the file write itself: it hands the event to a buffered
// channel that a single background goroutine drains in order, so a slow
// disk never stalls the submission pipeline's hot path.
type EventSink struct {
	file   *os.File
	queue  chan outbound.Event
	done   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open creates or appends to the file at path and starts the draining
// goroutine. queueSize bounds how many unflushed events may be pending
// before Publish blocks; a generous default absorbs a burst without
// unbounded memory growth.
func Open(path string, queueSize int) (*EventSink, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	s := &EventSink{
		file:  f,
		queue: make(chan outbound.Event, queueSize),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

func (s *EventSink) drain() {
	defer close(s.done)
	enc := json.NewEncoder(s.file)
	for ev := range s.queue {
		l := line{Kind: ev.Kind, Timestamp: ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), Fields: ev.Fields}
		_ = enc.Encode(l) // a malformed event is dropped, not fatal to the stream
	}
}

// Publish enqueues the event for the background writer.
func (s *EventSink) Publish(ctx context.Context, event outbound.Event) error {
	select {
	case s.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new events, waits for the queue to drain, and
// closes the underlying file.
func (s *EventSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}
