package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/signage-pairing/internal/model"
)

const (
	publishTimeout = 3 * time.Second
	// dialTimeout bounds TCP connect plus the AMQP handshake.
	dialTimeout = 5 * time.Second
	// maxInFlight caps concurrent background deliveries; events beyond it
	// are dropped and logged.
	maxInFlight = 32
)

// dialBroker connects to url with a bounded connect and handshake.
func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}

// Channel is the slice of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a fresh channel for one publish.
type Dialer func() (Channel, func(), error)

// AMQPDialer dials url for every publish and closes the connection
// afterwards.  Pairings and content assignments are rare enough that a
// connection per event is acceptable.
func AMQPDialer(url string) Dialer {
	return func() (Channel, func(), error) {
		conn, err := dialBroker(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		return ch, func() { _ = conn.Close() }, nil
	}
}

// Publisher sends domain events as persistent JSON messages.  The event
// methods return immediately; delivery happens in the background and
// failures are logged and swallowed so the originating request still
// succeeds.
type Publisher struct {
	dial  Dialer
	log   *zap.Logger
	now   func() time.Time
	slots chan struct{}
	wg    sync.WaitGroup
}

func NewPublisher(dial Dialer, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{dial: dial, log: log, now: time.Now, slots: make(chan struct{}, maxInFlight)}
}

// Wait blocks until every background delivery started so far has finished.
func (p *Publisher) Wait() { p.wg.Wait() }

func (p *Publisher) PlayerPaired(ctx context.Context, pl model.Player) {
	p.publish(ctx, PlayerPairedQueue, NewPlayerPairedEvent(pl))
}

func (p *Publisher) ContentAssigned(ctx context.Context, pl model.Player) {
	p.publish(ctx, ContentAssignedQueue, NewContentAssignedEvent(pl, p.now()))
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) {
	select {
	case p.slots <- struct{}{}:
	default:
		p.log.Warn("event dropped, too many deliveries in flight", zap.String("queue", queue))
		return
	}
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()
		if err := p.Publish(ctx, queue, event); err != nil {
			p.log.Warn("event publish failed", zap.String("queue", queue), zap.Error(err))
		}
	}()
}

// Publish declares queue (durable, idempotent) and sends event to it.
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, closeConn, err := p.dial()
	if err != nil {
		return err
	}
	defer closeConn()
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	// The request context may already be finishing; give the broker its own
	// deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
