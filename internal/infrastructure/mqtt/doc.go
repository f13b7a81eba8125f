// Package mqtt publishes SealDB database lifecycle events over MQTT.
//
// Events go out at the configured QoS and are never retained. While the
// broker is unreachable they are dropped, not queued; the online status
// published on reconnect reports how many were lost. Watchers registered
// with SubscribeDatabaseEvents are restored after a reconnect.
//
// # Topics
//
//	<prefix>/system/status              retained online/offline status, LWT, dropped_events
//	<prefix>/database/<name>/events     one JSON DatabaseEvent per lifecycle change
//
// # Security Considerations
//
//   - TLS should be enabled outside local development (cfg.Broker.TLS=true)
//   - Events carry database names and flags only, never credentials or SQL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishDatabaseEvent("notes", "opened", map[string]any{"encrypted": true})
package mqtt
