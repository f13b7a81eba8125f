package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// send publishes payload at the configured QoS and waits for the broker.
func (c *Client) send(topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// watch subscribes handler to pattern and remembers it for rewatch.
// Watching the same pattern again replaces its handler.
func (c *Client) watch(pattern string, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(pattern, byte(c.cfg.QoS), c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.watchMu.Lock()
	c.watchers[pattern] = handler
	c.watchMu.Unlock()
	return nil
}

// rewatch restores every watcher after a reconnect. The session is clean,
// so the broker has forgotten them.
func (c *Client) rewatch() {
	c.watchMu.RLock()
	defer c.watchMu.RUnlock()

	for pattern, handler := range c.watchers {
		c.client.Subscribe(pattern, byte(c.cfg.QoS), c.wrapHandler(handler))
	}
}

// WatcherCount returns the number of active watchers.
func (c *Client) WatcherCount() int {
	c.watchMu.RLock()
	defer c.watchMu.RUnlock()
	return len(c.watchers)
}

// wrapHandler logs handler errors and recovers handler panics so one bad
// message cannot stop delivery.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("mqtt handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt handler failed", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
