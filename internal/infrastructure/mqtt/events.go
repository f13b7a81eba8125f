package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatabaseEvent is the JSON payload published for a database lifecycle event.
type DatabaseEvent struct {
	ID        string         `json:"id"`
	Database  string         `json:"database"`
	Kind      string         `json:"kind"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// newDatabaseEvent stamps an event with a fresh ID and the current time.
func newDatabaseEvent(name, kind string, attrs map[string]any) DatabaseEvent {
	return DatabaseEvent{
		ID:        uuid.NewString(),
		Database:  name,
		Kind:      kind,
		Attrs:     attrs,
		Timestamp: time.Now().UTC(),
	}
}

// PublishDatabaseEvent publishes a lifecycle event for database name to
// "<prefix>/database/<name>/events" with the configured QoS. Events are
// not retained. An event that cannot be delivered is counted as dropped.
//
// Attrs must not carry credentials.
func (c *Client) PublishDatabaseEvent(name, kind string, attrs map[string]any) error {
	if !validTopicLevel(name) {
		return fmt.Errorf("%w: database name %q is not a valid topic level", ErrInvalidTopic, name)
	}

	if !c.IsConnected() {
		c.dropped.Add(1)
		return ErrNotConnected
	}

	payload, err := json.Marshal(newDatabaseEvent(name, kind, attrs))
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}

	if err := c.send(c.topics.DatabaseEvents(name), payload, false); err != nil {
		c.dropped.Add(1)
		return err
	}
	return nil
}

// SubscribeDatabaseEvents delivers every database lifecycle event under the
// configured prefix to handler. Payloads that do not decode are reported to
// the client logger and skipped.
func (c *Client) SubscribeDatabaseEvents(handler func(DatabaseEvent)) error {
	return c.watch(c.topics.AllDatabaseEvents(), func(_ string, payload []byte) error {
		var ev DatabaseEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decoding database event: %w", err)
		}
		handler(ev)
		return nil
	})
}
