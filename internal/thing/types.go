package thing

import "time"

// DefaultContext is the schema namespace applied when a description
// does not carry an "@context" of its own.
const DefaultContext = "https://webthings.io/schemas"

// Description is a thing description as exchanged with collaborators:
// the raw input to New and the snapshot output of Describe.
type Description map[string]any

// Descriptor is the opaque payload describing a single property, action
// or event. The core does not interpret it beyond stamping the computed
// "href" member; everything else belongs to the caller.
type Descriptor map[string]any

// Link is a hyperlink-like reference exposed in a thing description.
type Link struct {
	Rel       string `json:"rel"`
	Href      string `json:"href"`
	MediaType string `json:"mediaType,omitempty"`
}

// EventRecord is a single dispatched event. Records are immutable once
// appended to the event log.
type EventRecord struct {
	Name      string    `json:"name"`
	Data      any       `json:"data,omitempty"`
	ThingID   string    `json:"thingId"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState is the transport-level state of a registered session.
// The core only ever reads the state and requests closure; it never
// touches session payload.
type SessionState string

// SessionState constants.
const (
	SessionOpen       SessionState = "open"
	SessionConnecting SessionState = "connecting"
	SessionClosing    SessionState = "closing"
	SessionClosed     SessionState = "closed"
)

// Session is an opaque transport session handle registered with a thing.
type Session interface {
	// State reports the current transport state.
	State() SessionState

	// Close requests closure of the underlying transport.
	Close() error
}

// RequestContext carries the per-request information needed to derive
// host-qualified links in Describe.
type RequestContext struct {
	// Host is the request's Host header value.
	Host string

	// Secure reports whether the request arrived over TLS.
	Secure bool
}

// deepCopyDescriptor creates an independent copy of a descriptor.
// Nested maps and slices are recursively copied so modifications to the
// copy do not affect the original.
func deepCopyDescriptor(d Descriptor) Descriptor {
	if d == nil {
		return nil
	}
	return Descriptor(deepCopyMap(d))
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}
