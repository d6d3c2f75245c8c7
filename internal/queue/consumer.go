package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const eventsLogName = "events.log"

// Consumer drains the event queues into dir/events.log, one line per event.
type Consumer struct {
	url string
	dir string
	log *zap.Logger
	mu  sync.Mutex
}

func NewConsumer(url, dir string, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, dir: dir, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx is
// cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dialBroker(c.url)
		if err != nil {
			c.log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("event consumer: set QoS failed", zap.Error(err))
	}

	type delivery struct {
		queue string
		d     amqp.Delivery
	}
	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range []string{PlayerPairedQueue, ContentAssignedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, d: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() { wg.Wait(); close(merged) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(m.queue, m.d.Body); err != nil {
				c.log.Warn("event consumer: handle message failed", zap.String("queue", m.queue), zap.Error(err))
				_ = m.d.Nack(false, false)
				continue
			}
			_ = m.d.Ack(false)
		}
	}
}

// Handle decodes one message from queue and appends its log line.
func (c *Consumer) Handle(queue string, body []byte) error {
	line, err := formatEvent(queue, body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, eventsLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatEvent(queue string, body []byte) (string, error) {
	switch queue {
	case PlayerPairedQueue:
		var ev PlayerPairedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Player paired | player_id=%s | name=%q | device_id=%s | org_id=%s | code=%s | location=%q\n",
			ev.PairedAt, ev.PlayerID, ev.PlayerName, ev.DeviceID, ev.OrgID, ev.PairingCode, ev.Location), nil
	case ContentAssignedQueue:
		var ev ContentAssignedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		content := ev.ContentURL
		if content == "" {
			content = "<cleared>"
		}
		return fmt.Sprintf("[%s] Content assigned | player_id=%s | device_id=%s | org_id=%s | content=%s\n",
			ev.AssignedAt, ev.PlayerID, ev.DeviceID, ev.OrgID, content), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
