package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/thing-core/internal/thing"
)

// WriteEvent records a dispatched thing event as a time-series point.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Points land in the thing_events measurement, tagged by thing and event
// name so per-thing and per-event rates can be queried cheaply.
//
// Parameters:
//   - thingID: The dispatching thing's identifier
//   - event: The event name
//   - timestamp: When the event was dispatched
func (c *Client) WriteEvent(thingID, event string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"thing_events",
		map[string]string{
			"thing_id": thingID,
			"event":    event,
		},
		map[string]interface{}{
			"count": 1,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for operational measurements, such as periodic gateway
// stats, that do not fit the event helper.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// EventSink returns an event listener that records every dispatched thing
// event. Attach it gateway-wide via Registry.AddEventSink.
//
// The listener never returns an error: writes are fire-and-forget and
// async failures surface through the SetOnError callback instead.
func (c *Client) EventSink() thing.EventListener {
	return func(ev thing.EventRecord) error {
		c.WriteEvent(ev.ThingID, ev.Name, ev.Timestamp)
		return nil
	}
}
