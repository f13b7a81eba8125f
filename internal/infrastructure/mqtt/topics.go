package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds SealDB MQTT topics under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "sealdb"}
//	topics.DatabaseEvents("notes") // "sealdb/database/notes/events"
type Topics struct {
	Prefix string
}

// SystemStatus returns the retained service status topic.
//
// Example: sealdb/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}

// DatabaseEvents returns the lifecycle event topic for one database.
//
// Example: sealdb/database/notes/events
func (t Topics) DatabaseEvents(name string) string {
	return fmt.Sprintf("%s/database/%s/events", t.Prefix, name)
}

// AllDatabaseEvents returns a pattern matching every database's events.
//
// Pattern: sealdb/database/+/events
func (t Topics) AllDatabaseEvents() string {
	return fmt.Sprintf("%s/database/+/events", t.Prefix)
}

// validTopicLevel reports whether s can be used as a single topic level.
// MQTT forbids wildcards in published topics, and '/' would add levels.
func validTopicLevel(s string) bool {
	return s != "" && !strings.ContainsAny(s, "+#/\x00")
}
