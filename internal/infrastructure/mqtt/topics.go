package mqtt

import "fmt"

// Topic prefixes for the gateway's MQTT surface.
//
// Event topics follow the scheme: things/{thing_id}/events/{event_name},
// mirroring the REST hrefs so a consumer can map between the two.
const (
	// TopicPrefixThings is the base for all per-thing topics.
	TopicPrefixThings = "things"

	// TopicPrefixGateway is the base for gateway-level topics.
	TopicPrefixGateway = "things/gateway"
)

// Topics provides builders for the gateway's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.ThingEvent("lamp-1", "overheated")
//	// Returns: "things/lamp-1/events/overheated"
type Topics struct{}

// ThingEvent returns the topic a dispatched thing event is relayed to.
//
// Example: things/lamp-1/events/overheated
func (Topics) ThingEvent(thingID, event string) string {
	return fmt.Sprintf("%s/%s/events/%s", TopicPrefixThings, thingID, event)
}

// ThingDescription returns the topic for retained thing description updates.
//
// Example: things/lamp-1/description
func (Topics) ThingDescription(thingID string) string {
	return fmt.Sprintf("%s/%s/description", TopicPrefixThings, thingID)
}

// GatewayStatus returns the gateway status topic (online/offline, LWT).
//
// Example: things/gateway/status
func (Topics) GatewayStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixGateway)
}
