package thing

import (
	"sync"
	"testing"
)

func TestEventLog_AppendOrder(t *testing.T) {
	log := NewEventLog()

	log.Append(EventRecord{Name: "a"})
	log.Append(EventRecord{Name: "b"})
	log.Append(EventRecord{Name: "c"})

	snap := log.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() length = %d, want 3", len(snap))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap[i].Name != want {
			t.Errorf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
	if log.Len() != 3 {
		t.Errorf("Len() = %d, want 3", log.Len())
	}
}

func TestEventLog_SnapshotIndependence(t *testing.T) {
	log := NewEventLog()
	log.Append(EventRecord{Name: "a"})

	snap := log.Snapshot()
	snap[0].Name = "tampered"
	_ = append(snap, EventRecord{Name: "extra"})

	fresh := log.Snapshot()
	if len(fresh) != 1 || fresh[0].Name != "a" {
		t.Errorf("log mutated through a snapshot: %v", fresh)
	}
}

func TestEventLog_ConcurrentAppend(t *testing.T) {
	log := NewEventLog()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Append(EventRecord{Name: "ev"})
			}
		}()
	}
	wg.Wait()

	if log.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", log.Len())
	}
}
