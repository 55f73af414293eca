package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/redular/internal/domain"
)

// fakeAck запоминает, как было подтверждено сообщение.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(_ uint64, requeue bool) error {
	return f.Nack(0, false, requeue)
}

func delivery(t *testing.T, ack *fakeAck, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	return amqp.Delivery{Acknowledger: ack, Body: raw}
}

func TestConsumer_HandleDelivery(t *testing.T) {
	msg := NewMessage(MessageTypeCommandDelete, DeletePayload{EventKey: "redular:a:b:c"})

	tests := []struct {
		name        string
		body        any
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"ok", msg, nil, true, false},
		{"rejected", msg, fmt.Errorf("bad command: %w", ErrReject), false, false},
		{"transient", msg, errors.New("redis down"), false, true},
		{"malformed", []byte("not json"), nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Delivery
			c := NewConsumer(nil, nil, ConsumerConfig{
				Queue: string(QueueCommands),
				Handler: func(_ context.Context, d *Delivery) error {
					got = d
					return tt.handlerErr
				},
			})

			ack := &fakeAck{}
			c.handleDelivery(context.Background(), delivery(t, ack, tt.body))

			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("expected nack")
			}
			if ack.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", ack.requeue, tt.wantRequeue)
			}
			if tt.name != "malformed" && (got == nil || got.Message.ID != msg.ID) {
				t.Errorf("handler got %+v", got)
			}
		})
	}
}

func TestParsePayload(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	body, _ := json.Marshal(NewMessage(MessageTypeCommandSchedule, SchedulePayload{
		Name:    "goodbye",
		At:      at,
		Payload: json.RawMessage(`{"a":1}`),
	}))

	// Как после доставки: payload распарсен в map
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := ParsePayload[SchedulePayload](&msg)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if p.Name != "goodbye" || !p.At.Equal(at) || string(p.Payload) != `{"a":1}` {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestNewEventFiredPayload(t *testing.T) {
	firedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	p := NewEventFiredPayload(domain.FiredEvent{
		Key:      "redular:global:goodbye:x",
		EventRef: domain.EventRef{Scope: "global", Name: "goodbye", ID: "x"},
		Source:   domain.SourceExpiry,
		Payload:  json.RawMessage(`1`),
		FiredAt:  firedAt,
	})

	if p.Name != "goodbye" || p.EventID != "x" || p.Scope != "global" || string(p.Data) != "1" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.FiredAt.Location() != time.UTC || !p.FiredAt.Equal(firedAt) {
		t.Errorf("expected UTC fired_at, got %s", p.FiredAt)
	}

	if got := EventRoutingKey("goodbye"); got != "event.goodbye" {
		t.Errorf("unexpected routing key %q", got)
	}
}

func TestTopology(t *testing.T) {
	declared := map[Queue]bool{}
	for _, q := range queues() {
		declared[q.name] = true
	}

	exchangesByName := map[Exchange]string{}
	for _, ex := range exchanges() {
		exchangesByName[ex.name] = ex.kind
	}
	if exchangesByName[ExchangeEvents] != amqp.ExchangeTopic {
		t.Errorf("events exchange must be topic, got %q", exchangesByName[ExchangeEvents])
	}

	for _, b := range bindings() {
		if !declared[b.queue] {
			t.Errorf("binding to undeclared queue %s", b.queue)
		}
		if _, ok := exchangesByName[b.exchange]; !ok {
			t.Errorf("binding to undeclared exchange %s", b.exchange)
		}
	}

	for _, q := range queues() {
		if q.name != QueueCommands {
			continue
		}
		if q.args["x-dead-letter-exchange"] != string(ExchangeDLQ) {
			t.Errorf("commands queue must dead-letter to %s", ExchangeDLQ)
		}
	}
}

func TestWithChannel_NoChannel(t *testing.T) {
	c := &Connection{}
	err := c.WithChannel(context.Background(), func(*amqp.Channel) error { return nil })
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
}
