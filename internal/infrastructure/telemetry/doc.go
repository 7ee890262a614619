// Package telemetry provides InfluxDB-backed event telemetry for the gateway.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring.
//
// # Purpose
//
// Every dispatched thing event can be recorded as a time-series point in
// the thing_events measurement, tagged by thing and event name. This
// gives operators per-thing activity rates without touching the in-memory
// event logs.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	registry.AddEventSink(client.EventSink())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors surface via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package telemetry
