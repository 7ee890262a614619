package thing

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingListener collects every event it receives, safely under
// concurrent delivery.
type recordingListener struct {
	mu     sync.Mutex
	events []EventRecord
}

func (r *recordingListener) listen(ev EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingListener) received() []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventRecord, len(r.events))
	copy(out, r.events)
	return out
}

func TestHub_DeliversToAllListenersInOrder(t *testing.T) {
	hub := NewHub(nil)

	listeners := make([]*recordingListener, 3)
	for i := range listeners {
		listeners[i] = &recordingListener{}
		hub.Register(listeners[i].listen)
	}

	names := []string{"a", "b", "c", "d", "e"}
	for _, n := range names {
		hub.Publish(EventRecord{Name: n})
	}

	for i, l := range listeners {
		got := l.received()
		if len(got) != len(names) {
			t.Fatalf("listener %d received %d events, want %d", i, len(got), len(names))
		}
		for j, ev := range got {
			if ev.Name != names[j] {
				t.Errorf("listener %d event %d = %q, want %q", i, j, ev.Name, names[j])
			}
		}
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil)

	kept := &recordingListener{}
	removed := &recordingListener{}
	hub.Register(kept.listen)
	id := hub.Register(removed.listen)

	hub.Publish(EventRecord{Name: "before"})
	hub.Unregister(id)
	hub.Publish(EventRecord{Name: "after"})

	if got := removed.received(); len(got) != 1 || got[0].Name != "before" {
		t.Errorf("removed listener received %v, want only the first event", got)
	}
	if got := kept.received(); len(got) != 2 {
		t.Errorf("kept listener received %d events, want 2", len(got))
	}
}

func TestHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub(nil)
	l := &recordingListener{}
	hub.Register(l.listen)

	hub.Unregister("never-issued")
	hub.Unregister("never-issued")

	if hub.Count() != 1 {
		t.Errorf("Count() = %d, want 1", hub.Count())
	}
}

func TestHub_SameFunctionTwiceGetsDistinctIDs(t *testing.T) {
	hub := NewHub(nil)
	l := &recordingListener{}

	id1 := hub.Register(l.listen)
	id2 := hub.Register(l.listen)

	if id1 == id2 {
		t.Fatal("registering the same function twice returned the same ID")
	}

	hub.Publish(EventRecord{Name: "x"})
	if got := l.received(); len(got) != 2 {
		t.Errorf("double-registered listener received %d deliveries, want 2", len(got))
	}

	hub.Unregister(id1)
	hub.Publish(EventRecord{Name: "y"})
	if got := l.received(); len(got) != 3 {
		t.Errorf("after removing one registration, received %d deliveries total, want 3", len(got))
	}
}

func TestHub_PanickingListenerIsolated(t *testing.T) {
	hub := NewHub(nil)

	survivor := &recordingListener{}
	hub.Register(func(EventRecord) error { panic("listener bug") })
	hub.Register(survivor.listen)
	hub.Register(func(EventRecord) error { return errors.New("listener error") })

	hub.Publish(EventRecord{Name: "x"})
	hub.Publish(EventRecord{Name: "y"})

	if got := survivor.received(); len(got) != 2 {
		t.Errorf("survivor received %d events, want 2", len(got))
	}
}

func TestHub_ListenerCanUnregisterDuringPublish(t *testing.T) {
	hub := NewHub(nil)

	var id SubscriptionID
	id = hub.Register(func(EventRecord) error {
		hub.Unregister(id)
		return nil
	})

	// Must not deadlock
	hub.Publish(EventRecord{Name: "x"})

	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

func TestHub_UnregisterWaitsForInFlightDelivery(t *testing.T) {
	hub := NewHub(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	id := hub.Register(func(EventRecord) error {
		close(entered)
		<-release
		return nil
	})

	go hub.Publish(EventRecord{Name: "x"})
	<-entered

	done := make(chan struct{})
	go func() {
		hub.Unregister(id)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Unregister returned while the listener was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister did not return after the delivery finished")
	}
}

func TestHub_NoInvocationAfterUnregisterReturns(t *testing.T) {
	// Map iteration order is randomised, so repeat to get runs where the
	// parked listener is delivered before the removed one.
	for attempt := 0; attempt < 50; attempt++ {
		hub := NewHub(nil)

		entered := make(chan struct{})
		release := make(chan struct{})
		hub.Register(func(EventRecord) error {
			close(entered)
			<-release
			return nil
		})

		var removalAcked atomic.Bool
		var invokedAfterAck atomic.Bool
		id := hub.Register(func(EventRecord) error {
			if removalAcked.Load() {
				invokedAfterAck.Store(true)
			}
			return nil
		})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(EventRecord{Name: "x"})
		}()

		<-entered
		hub.Unregister(id)
		removalAcked.Store(true)
		close(release)
		wg.Wait()

		if invokedAfterAck.Load() {
			t.Fatalf("attempt %d: listener invoked after Unregister returned", attempt)
		}
	}
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(nil)
	l := &recordingListener{}
	hub.Register(l.listen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(EventRecord{Name: "ev"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := hub.Register(func(EventRecord) error { return nil })
				hub.Unregister(id)
			}
		}()
	}
	wg.Wait()

	if got := l.received(); len(got) != 8*50 {
		t.Errorf("stable listener received %d events, want %d", len(got), 8*50)
	}
}

func TestThing_DispatchOrderMatchesDeliveryOrder(t *testing.T) {
	th := newTestThing(t, Description{"name": "x"}, Options{})
	l := &recordingListener{}
	th.AddEventSubscription(l.listen)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				th.DispatchEvent(EventRecord{Name: "ev", Data: worker*25 + j})
			}
		}(i)
	}
	wg.Wait()

	history := th.EventHistory()
	delivered := l.received()
	if len(history) != 100 || len(delivered) != 100 {
		t.Fatalf("history=%d delivered=%d, want 100 each", len(history), len(delivered))
	}
	for i := range history {
		if history[i].Data != delivered[i].Data {
			t.Fatalf("delivery order diverged from log order at index %d", i)
		}
	}
}
