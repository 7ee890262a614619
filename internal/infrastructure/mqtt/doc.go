// Package mqtt provides the gateway's MQTT event relay.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//   - Republishing dispatched thing events to per-thing topics
//
// # Architecture
//
// The relay is a one-way bridge: every event dispatched through a thing's
// hub is republished to things/{thing_id}/events/{event_name}, so external
// consumers can follow thing activity without holding a websocket open.
// The gateway never subscribes; MQTT is an egress surface only.
//
//	Thing.DispatchEvent → Registry event sink → mqtt.Client.EventRelay → Broker
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	registry.AddEventSink(client.EventRelay())
package mqtt
