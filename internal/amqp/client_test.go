package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"chitieu/internal/core"
	"chitieu/internal/kv/memory"
	"chitieu/internal/log"
	"chitieu/internal/store"
)

type fakeAck struct {
	acked    int
	nacked   int
	requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error { return nil }

func sampleRecord() core.Record {
	return core.Record{
		ID:        "r1",
		Amount:    decimal.NewFromInt(50000),
		Category:  core.Food,
		Timestamp: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Note:      "pho",
	}
}

func TestNewRecordEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 31, 0, 0, time.UTC)
	msg := NewRecordEvent(store.Event{Kind: store.EventCreated, Record: sampleRecord(), Count: 1, At: at})
	if msg.RoutingKey() != "record.created" {
		t.Fatalf("unexpected routing key %q", msg.RoutingKey())
	}
	if msg.RecordID != "r1" || msg.Amount != "50000" || msg.Category != "food" || msg.Note != "pho" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Timestamp == nil || !msg.Timestamp.Equal(sampleRecord().Timestamp) {
		t.Fatalf("unexpected timestamp %v", msg.Timestamp)
	}

	cleared := NewRecordEvent(store.Event{Kind: store.EventCleared, Count: 4, At: at})
	if cleared.RecordID != "" || cleared.Timestamp != nil || cleared.Count != 4 {
		t.Fatalf("cleared event should carry only a count: %+v", cleared)
	}
	if cleared.RoutingKey() != "record.cleared" {
		t.Fatalf("unexpected routing key %q", cleared.RoutingKey())
	}
}

func TestRecordEventJSON(t *testing.T) {
	msg := NewRecordEvent(store.Event{Kind: store.EventRemoved, Record: sampleRecord(), Count: 1, At: time.Now()})
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := RecordEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "removed" || got.RecordID != "r1" || got.Amount != "50000" {
		t.Fatalf("unexpected decoded message %+v", got)
	}

	if _, err := RecordEventFromJSON([]byte(`{"type":"renamed"}`)); err == nil {
		t.Fatalf("expected unknown type to be rejected")
	}
	if _, err := RecordEventFromJSON([]byte(`not json`)); err == nil {
		t.Fatalf("expected invalid json to be rejected")
	}
}

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()
	body, _ := NewRecordEvent(store.Event{Kind: store.EventCreated, Record: sampleRecord(), Count: 1}).ToJSON()

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var seen *RecordEvent
		handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: body}, func(m *RecordEvent) error {
			seen = m
			return nil
		}, log.Discard())
		if ack.acked != 1 || ack.nacked != 0 {
			t.Fatalf("expected ack, got %+v", ack)
		}
		if seen == nil || seen.RecordID != "r1" {
			t.Fatalf("handler not called with message: %+v", seen)
		}
	})

	t.Run("drop undecodable", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: []byte("{")}, func(*RecordEvent) error {
			called = true
			return nil
		}, log.Discard())
		if called || ack.nacked != 1 || ack.requeued != 0 {
			t.Fatalf("expected nack without requeue, got %+v called=%v", ack, called)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: body}, func(*RecordEvent) error {
			return errors.New("boom")
		}, log.Discard())
		if ack.nacked != 1 || ack.requeued != 1 || ack.acked != 0 {
			t.Fatalf("expected nack with requeue, got %+v", ack)
		}
	})
}

func TestConsumeStops(t *testing.T) {
	msgs := make(chan amqp091.Delivery)
	close(msgs)
	if err := consume(context.Background(), msgs, func(*RecordEvent) error { return nil }, log.Discard()); err == nil {
		t.Fatalf("expected error when channel closes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	open := make(chan amqp091.Delivery)
	if err := consume(ctx, open, func(*RecordEvent) error { return nil }, log.Discard()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*RecordEvent
	err  error
}

func (f *fakePublisher) PublishEvent(_ context.Context, msg *RecordEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type countingMetrics struct {
	ok, failed int
}

func (c *countingMetrics) EventPublished(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestPublisherNotify(t *testing.T) {
	pub := &fakePublisher{}
	m := &countingMetrics{}
	p := NewPublisher(pub, log.Discard(), m)

	p.Notify(context.Background(), store.Event{Kind: store.EventCreated, Record: sampleRecord(), Count: 1})
	if len(pub.msgs) != 1 || pub.msgs[0].Type != "created" || m.ok != 1 {
		t.Fatalf("expected one published event, got %d (metrics %+v)", len(pub.msgs), m)
	}

	pub.err = errors.New("broker down")
	p.Notify(context.Background(), store.Event{Kind: store.EventCleared, Count: 1})
	if m.failed != 1 {
		t.Fatalf("expected failure to be counted, got %+v", m)
	}
}

func TestPublisherIsStoreObserver(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	s := store.New(memory.New(), store.WithObserver(NewPublisher(pub, nil, nil)))

	rec, err := s.Append(context.Background(), core.Candidate{Amount: decimal.NewFromInt(10), Category: core.Food})
	if err != nil {
		t.Fatalf("append must not fail when publishing fails: %v", err)
	}
	if !s.Remove(context.Background(), rec.ID) {
		t.Fatalf("expected remove to succeed")
	}
	if len(pub.msgs) != 2 || pub.msgs[1].Type != "removed" {
		t.Fatalf("expected created and removed events, got %d", len(pub.msgs))
	}
}
