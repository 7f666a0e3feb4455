package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionName — имя соединения в management UI RabbitMQ.
const ConnectionName = "bgjob"

const (
	heartbeat         = 10 * time.Second
	reconnectDelay    = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// errNoChannel — соединение сейчас восстанавливается.
var errNoChannel = errors.New("amqp channel not available")

// Connection — AMQP соединение с одним каналом и переподключением.
//
// run-job держит соединение секунды; events живёт долго и переживает
// рестарт брокера, узнавая о нём через ReconnectNotify.
type Connection struct {
	url    string
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	lost    chan *amqp.Error

	done        chan struct{}
	closeOnce   sync.Once
	reconnected chan struct{}
}

// NewConnection подключается к RabbitMQ.
// name дополняет ConnectionName (например, "run-job").
func NewConnection(url, name string, logger *slog.Logger) (*Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("dial amqp: url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:         url,
		name:        ConnectionName + "/" + name,
		logger:      logger.With("component", "mq"),
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.watch()
	return c, nil
}

// dial открывает соединение и канал и подписывается на их потерю.
func (c *Connection) dial() error {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(c.name)

	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.lost = conn.NotifyClose(make(chan *amqp.Error, 1))
	c.mu.Unlock()

	c.logger.Debug("connected to RabbitMQ", "connection", c.name)
	return nil
}

// watch ждёт потери соединения и переподключается до Close.
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		lost := c.lost
		c.mu.RUnlock()

		select {
		case <-c.done:
			return
		case err := <-lost:
			c.logger.Warn("connection lost", "error", err)
		}

		c.mu.Lock()
		c.channel = nil
		c.mu.Unlock()

		if !c.redial() {
			return
		}
	}
}

// redial повторяет dial с удвоением паузы. false — соединение закрыто.
func (c *Connection) redial() bool {
	delay := reconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		if err := c.dial(); err != nil {
			c.logger.Warn("reconnect failed", "error", err, "next_delay", delay)
			delay = min(delay*2, reconnectMaxDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")
		select {
		case c.reconnected <- struct{}{}:
		default:
		}
		return true
	}
}

// Channel возвращает текущий канал или nil во время переподключения.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify сигналит после каждого успешного переподключения.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnected
}

// WithChannel вызывает fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.Channel()
	if ch == nil {
		return errNoChannel
	}
	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.channel != nil {
			if cerr := c.channel.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close channel: %w", cerr))
			}
		}
		if c.conn != nil {
			if cerr := c.conn.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close connection: %w", cerr))
			}
		}
	})
	return err
}
