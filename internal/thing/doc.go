// Package thing provides the Thing model for Thing Core.
//
// A Thing is the authoritative in-memory representation of a networked
// device exposed through a uniform description: a named set of property,
// action and event descriptors, each independently addressable by a
// computed href. The package owns the concerns with real concurrency
// and resource-lifecycle risk: event fan-out to live subscribers, the
// append-only event history, and the atomic icon-asset replace protocol.
//
// # Key Types
//
//   - Thing: the root aggregate for a single device
//   - Hub: the publish/subscribe core fanning events out to listeners
//   - EventLog: append-only history of dispatched events
//   - AssetStore / DiskAssetStore: icon binary lifecycle
//   - Registry: the container of all things, backed by a Repository
//   - Repository / SQLiteRepository: durable description storage
//
// # Usage
//
//	repo := thing.NewSQLiteRepository(db.DB)
//	registry := thing.NewRegistry(repo, thing.NewDiskAssetStore(dir, "/uploads"), "/things")
//	registry.SetLogger(log)
//
//	if err := registry.LoadAll(ctx); err != nil {
//	    return err
//	}
//
//	t, err := registry.CreateThing(ctx, "lamp-1", thing.Description{
//	    "name": "Desk Lamp",
//	    "properties": map[string]any{
//	        "on": map[string]any{"type": "boolean"},
//	    },
//	})
//
//	sub := t.AddEventSubscription(func(ev thing.EventRecord) error {
//	    fmt.Println(ev.Name, ev.Data)
//	    return nil
//	})
//	t.DispatchEvent(thing.EventRecord{Name: "overheated", Data: 102})
//	t.RemoveEventSubscription(sub)
//
// # Concurrency
//
// DispatchEvent, subscription changes, session registration and Describe
// are safe under concurrent invocation. Structural setters (SetName,
// SetCoordinates, SetSelectedCapability, SetIcon) are expected to be
// serialised per thing by the caller; they never hold a thing lock while
// a persistence or asset-store call is in flight.
package thing
