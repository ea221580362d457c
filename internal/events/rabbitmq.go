package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// ChannelPool hands out pre-opened AMQP channels bound to one queue.
type ChannelPool struct {
	conn      *amqp.Connection
	channels  chan amqpChannel
	open      func() (amqpChannel, error)
	mu        sync.Mutex
	queueName string
	log       zerolog.Logger
}

// NewChannelPool dials url and opens size channels, each declaring queueName.
func NewChannelPool(url, queueName string, size int, log zerolog.Logger) (*ChannelPool, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	open := func() (amqpChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		// durable, not auto-deleted, not exclusive
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
		return ch, nil
	}
	pool, err := newChannelPool(queueName, size, open, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	pool.conn = conn
	log.Info().Int("size", size).Str("queue", queueName).Msg("rabbitmq channel pool ready")
	return pool, nil
}

func newChannelPool(queueName string, size int, open func() (amqpChannel, error), log zerolog.Logger) (*ChannelPool, error) {
	if size < 1 {
		size = 1
	}
	pool := &ChannelPool{
		channels:  make(chan amqpChannel, size),
		open:      open,
		queueName: queueName,
		log:       log,
	}
	for i := 0; i < size; i++ {
		ch, err := open()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		pool.channels <- ch
	}
	return pool, nil
}

// Get takes a channel from the pool. Closed channels are replaced and an
// empty pool opens a fresh one.
func (p *ChannelPool) Get() (amqpChannel, error) {
	select {
	case ch := <-p.channels:
		if ch.IsClosed() {
			return p.open()
		}
		return ch, nil
	default:
		ch, err := p.open()
		if err != nil {
			return nil, fmt.Errorf("no channels available in pool: %w", err)
		}
		return ch, nil
	}
}

// Put returns ch to the pool. A closed channel is swapped for a new one so
// the pool keeps its size. Channels beyond capacity are closed.
func (p *ChannelPool) Put(ch amqpChannel) {
	if ch == nil {
		return
	}
	if ch.IsClosed() {
		fresh, err := p.open()
		if err != nil {
			p.log.Warn().Err(err).Str("queue", p.queueName).Msg("failed to replace closed rabbitmq channel")
			return
		}
		ch = fresh
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

func (p *ChannelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.log.Info().Msg("closed rabbitmq channel pool")
}

// RabbitPublisher publishes persistent JSON messages to a queue.
type RabbitPublisher struct {
	pool      *ChannelPool
	queueName string
	timeout   time.Duration
}

func NewRabbitPublisher(pool *ChannelPool, queueName string) *RabbitPublisher {
	return &RabbitPublisher{pool: pool, queueName: queueName, timeout: 5 * time.Second}
}

func (p *RabbitPublisher) PublishSale(ctx context.Context, ev SaleRecorded) error {
	body, err := ev.Encode()
	if err != nil {
		return err
	}
	ch, err := p.pool.Get()
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.Put(ch)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    ev.Key(),
		Timestamp:    ev.RecordedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish sale %d: %w", ev.SaleID, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.pool.Close()
	return nil
}
