package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"tourcatalog/internal/model"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed++
	return nil
}

func TestPublishRefreshed(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, "catalog.refreshed")
	run := model.RefreshRun{ID: "run-1", FinishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Products: 12, Entries: 40}

	if err := p.PublishRefreshed(context.Background(), run); err != nil {
		t.Fatalf("PublishRefreshed() error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "run-1" {
		t.Errorf("Expected key run-1, got %s", msg.Key)
	}
	var got Refreshed
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if got.Type != EventRefreshed || got.Products != 12 || got.Entries != 40 {
		t.Errorf("Unexpected payload: %+v", got)
	}
}

func TestPublishRefreshed_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewPublisher(w, "t")
	if err := p.PublishRefreshed(context.Background(), model.RefreshRun{ID: "x"}); err == nil {
		t.Error("Expected error from writer")
	}
}

func TestPublisher_Closed(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, "t")
	_ = p.Close()
	_ = p.Close()
	if w.closed != 1 {
		t.Errorf("Expected writer closed once, got %d", w.closed)
	}
	if err := p.PublishRefreshed(context.Background(), model.RefreshRun{ID: "x"}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Expected ErrPublisherClosed, got %v", err)
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "t"); err == nil {
		t.Error("Expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Error("Expected error without topic")
	}
}
