package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/thing-core/internal/thing"
)

// eventPayload is the wire form of a relayed thing event.
type eventPayload struct {
	ThingID   string    `json:"thingId"`
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventRelay returns an event listener that republishes every dispatched
// thing event to things/<thing_id>/events/<event_name>.
//
// The listener is intended to be attached gateway-wide via
// Registry.AddEventSink. Publish failures are returned to the hub, which
// logs them without affecting delivery to other listeners; an offline
// broker therefore degrades the relay, never event dispatch itself.
func (c *Client) EventRelay() thing.EventListener {
	topics := Topics{}

	return func(ev thing.EventRecord) error {
		payload, err := json.Marshal(eventPayload{
			ThingID:   ev.ThingID,
			Event:     ev.Name,
			Data:      ev.Data,
			Timestamp: ev.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("encoding event %s: %w", ev.Name, err)
		}

		topic := topics.ThingEvent(ev.ThingID, ev.Name)
		if err := c.Publish(topic, payload, byte(c.cfg.QoS), false); err != nil {
			return fmt.Errorf("relaying event %s: %w", ev.Name, err)
		}
		return nil
	}
}
