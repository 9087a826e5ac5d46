package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter builds a writer that hashes on the message key, keeping the
// events of one order on one partition.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Publisher forwards order events to a topic, keyed by order id.
type Publisher struct {
	writer Writer
}

func NewPublisher(w Writer) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) Deliver(ctx context.Context, ev domain.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(ev.OrderID),
		Value: value,
		Time:  ev.At,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(ev.Status)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
