package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sealdb/internal/infrastructure/config"
)

// Client publishes database lifecycle events to the broker and lets event
// watchers subscribe to them.
//
// Events raised while the broker is unreachable are dropped and counted; the
// count is reported in the next online status message.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	// watchers maps topic patterns to handlers so they survive a reconnect.
	watchers map[string]MessageHandler
	watchMu  sync.RWMutex

	connected atomic.Bool
	dropped   atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler receives one message. Handlers run on paho's goroutines;
// a returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// Connect connects to the broker with a Last Will on the status topic and
// publishes the online status once the session is up.
//
// Returns ErrDisabled when MQTT is off in config, or ErrConnectionFailed when
// the broker cannot be reached within the connect timeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := &Client{
		cfg:      cfg,
		topics:   Topics{Prefix: cfg.TopicPrefix},
		watchers: make(map[string]MessageHandler),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; events may be published
	// before it fires.
	c.connected.Store(true)

	return c, nil
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.rewatch()
	c.publishStatus(statusOnline, "")
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)
	if logger := c.getLogger(); logger != nil {
		logger.Warn("mqtt connection lost, database events dropped until reconnect", "error", err)
	}
}

// publishStatus publishes the retained service status. An online status
// carries, and resets, the number of events dropped while offline.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	var dropped uint64
	if status == statusOnline {
		dropped = c.dropped.Swap(0)
	}
	payload := buildStatusPayload(c.cfg.Broker.ClientID, status, reason, dropped)
	return c.client.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close publishes a graceful offline status, which replaces the Last Will,
// and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)

	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// DroppedEvents returns the number of events dropped since the last online
// status was published.
func (c *Client) DroppedEvents() uint64 {
	return c.dropped.Load()
}

// SetLogger sets the logger for connection loss and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
