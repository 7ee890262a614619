package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/thing-core/internal/thing"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"thing event", topics.ThingEvent("lamp-1", "overheated"), "things/lamp-1/events/overheated"},
		{"thing description", topics.ThingDescription("lamp-1"), "things/lamp-1/description"},
		{"gateway status", topics.GatewayStatus(), "things/gateway/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline map[string]any

	if err := json.Unmarshal([]byte(buildOnlinePayload("gw-1")), &online); err != nil {
		t.Fatalf("online payload is not valid JSON: %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "gw-1" {
		t.Errorf("online payload = %v", online)
	}

	if err := json.Unmarshal([]byte(buildOfflinePayload("gw-1")), &offline); err != nil {
		t.Fatalf("offline payload is not valid JSON: %v", err)
	}
	if offline["status"] != "offline" || offline["reason"] != "graceful_shutdown" {
		t.Errorf("offline payload = %v", offline)
	}
}

func TestPublishValidation(t *testing.T) {
	// A zero client is never connected; validation runs before any
	// network interaction.
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("things/x/events/y", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	big := strings.Repeat("a", maxPayloadSize+1)
	if err := c.Publish("things/x/events/y", []byte(big), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("things/x/events/y", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected publish error = %v, want ErrNotConnected", err)
	}
}

func TestEventRelay_DisconnectedReportsError(t *testing.T) {
	c := &Client{}
	relay := c.EventRelay()

	err := relay(thing.EventRecord{
		Name:      "overheated",
		ThingID:   "lamp-1",
		Data:      104,
		Timestamp: time.Now().UTC(),
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("relay error = %v, want ErrNotConnected", err)
	}
}
