// Package mqtt provides MQTT client connectivity for the kiosk.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Each kiosk publishes under its own topic subtree, kiosk/{kiosk_id}/...,
// carrying its online status, map session state, security wait times and
// usage events. Operations tooling subscribes fleet-wide with wildcards
// and can push commands back to an individual kiosk.
//
//	Kiosk ↔ MQTT Broker ↔ Operations dashboards / signage / other kiosks
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Kiosk.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to remote commands for this kiosk
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(cfg.Kiosk.ID), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish refreshed wait times, retained for late joiners
//	topic := mqtt.Topics{}.Waits(cfg.Kiosk.ID)
//	client.Publish(topic, payload, 1, true)
package mqtt
