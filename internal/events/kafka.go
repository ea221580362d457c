package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes sale events to a topic keyed by business.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaWriter returns a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) PublishSale(ctx context.Context, ev SaleRecorded) error {
	body, err := ev.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(ev.Key()), Value: body}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write sale %d: %w", ev.SaleID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
