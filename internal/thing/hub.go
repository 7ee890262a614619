package thing

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// EventListener is the callback signature for event subscribers.
//
// Listeners are invoked synchronously during Publish, one after another,
// without any hub lock held. A returned error is logged and does not
// affect delivery to other listeners.
type EventListener func(ev EventRecord) error

// SubscriptionID identifies a registered listener. Go function values are
// not comparable, so the hub hands out opaque IDs on registration and
// removal is by ID.
type SubscriptionID string

// subscription pairs a listener with the state that fences delivery
// against removal. deliveryMu is held for the duration of each
// invocation; Unregister acquires it so an in-flight delivery has
// finished by the time removal returns. deliverer records the goroutine
// currently inside the callback, letting a listener that removes itself
// mid-invocation skip the wait on its own frame.
type subscription struct {
	id         SubscriptionID
	fn         EventListener
	deliveryMu sync.Mutex
	removed    atomic.Bool
	deliverer  atomic.Uint64
}

// Hub fans dispatched events out to all currently-registered listeners.
//
// It exposes exactly three operations: Register, Unregister and Publish.
// All three are safe to call concurrently. Publish delivers each event to
// every listener registered at the start of the publish exactly once; a
// listener registered while a publish is in flight does not receive that
// event but receives all subsequent ones.
//
// A listener is never invoked after Unregister for its ID has returned:
// Unregister waits for any in-flight invocation of that listener to
// finish before returning, except when called from inside the listener's
// own callback, where the caller's frame is the in-flight invocation.
type Hub struct {
	mu        sync.RWMutex
	listeners map[SubscriptionID]*subscription
	logger    Logger
}

// NewHub creates an empty hub.
func NewHub(logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		listeners: make(map[SubscriptionID]*subscription),
		logger:    logger,
	}
}

// Register adds a listener and returns its subscription ID.
func (h *Hub) Register(fn EventListener) SubscriptionID {
	sub := &subscription{
		id: SubscriptionID(uuid.NewString()),
		fn: fn,
	}

	h.mu.Lock()
	h.listeners[sub.id] = sub
	h.mu.Unlock()

	h.logger.Debug("event listener registered", "subscription", string(sub.id))
	return sub.id
}

// Unregister removes a listener. Removing an unknown or already-removed
// ID is a no-op.
//
// When Unregister returns, the listener is guaranteed not to be running
// and will never be invoked again. A listener unregistering itself from
// inside its own callback returns immediately; its current invocation is
// the caller's own stack frame.
func (h *Hub) Unregister(id SubscriptionID) {
	h.mu.Lock()
	sub, existed := h.listeners[id]
	delete(h.listeners, id)
	h.mu.Unlock()

	if !existed {
		return
	}

	sub.removed.Store(true)

	// Wait out an in-flight delivery unless this goroutine is the one
	// delivering, which happens when a listener removes itself. Taking
	// and releasing the delivery mutex is the wait.
	if sub.deliverer.Load() != goroutineID() {
		sub.deliveryMu.Lock()
		sub.deliveryMu.Unlock()
	}

	h.logger.Debug("event listener removed", "subscription", string(id))
}

// Publish delivers the event to every currently-registered listener.
//
// The listener set is snapshotted under the read lock and invocation
// happens outside it, so listeners may register or unregister other
// listeners without deadlocking. A panicking or failing listener is
// isolated: delivery continues to the remaining listeners and the
// failure is logged.
func (h *Hub) Publish(ev EventRecord) {
	// Snapshot listeners under lock, then release before invoking
	h.mu.RLock()
	snapshot := make([]*subscription, 0, len(h.listeners))
	for _, sub := range h.listeners {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	for _, sub := range snapshot {
		h.deliver(sub, ev)
	}
}

// Count returns the number of registered listeners.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// deliver invokes a single listener under its delivery mutex, with panic
// recovery. The removal flag is rechecked under the mutex so a listener
// whose Unregister has completed is skipped even when it was part of the
// publish snapshot.
func (h *Hub) deliver(sub *subscription, ev EventRecord) {
	sub.deliveryMu.Lock()
	defer sub.deliveryMu.Unlock()

	if sub.removed.Load() {
		return
	}

	sub.deliverer.Store(goroutineID())
	defer sub.deliverer.Store(0)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event listener panic recovered",
				"subscription", string(sub.id),
				"event", ev.Name,
				"panic", r,
			)
		}
	}()

	if err := sub.fn(ev); err != nil {
		h.logger.Warn("event listener returned error",
			"subscription", string(sub.id),
			"event", ev.Name,
			"error", err,
		)
	}
}

// goroutineID reads the current goroutine's ID out of its stack header
// ("goroutine N [running]:"); the runtime has no direct accessor. Used
// only to recognise a listener unregistering itself mid-invocation.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}
