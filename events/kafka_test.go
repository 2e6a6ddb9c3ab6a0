package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"TitanMusic/core/catalog"
	"TitanMusic/model"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evt := catalog.Event{
		Type:       catalog.EventCreated,
		TrackID:    "t1",
		UploaderID: "u1",
		Track:      &model.Track{ID: "t1", Title: "Song"},
		At:         at,
	}

	t.Run("WritesKeyedJSON", func(t *testing.T) {
		w := &fakeWriter{}
		p := &KafkaPublisher{writer: w, topic: "titan.tracks"}
		if err := p.Publish(context.Background(), evt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(w.msgs) != 1 {
			t.Fatalf("expected one message, got %d", len(w.msgs))
		}
		msg := w.msgs[0]
		if string(msg.Key) != "t1" || !msg.Time.Equal(at) {
			t.Errorf("unexpected key/time %s %s", msg.Key, msg.Time)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "created" {
			t.Errorf("unexpected headers %+v", msg.Headers)
		}

		got, err := Decode(msg.Value)
		if err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got.Type != catalog.EventCreated || got.UploaderID != "u1" || got.Track == nil || got.Track.Title != "Song" {
			t.Errorf("unexpected decoded event %+v", got)
		}
	})

	t.Run("WriterError", func(t *testing.T) {
		p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "x"}
		if err := p.Publish(context.Background(), evt); err == nil {
			t.Error("expected error")
		}
	})
}

func TestDecodeRejectsIncompleteEvents(t *testing.T) {
	for _, raw := range []string{`not json`, `{}`, `{"type":"created"}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}
