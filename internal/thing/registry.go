package thing

import (
	"context"
	"fmt"
	"sync"
)

// Registry is the container of all things known to the gateway.
//
// It owns the in-memory Thing aggregates and keeps them in sync with the
// repository: things are loaded on startup via LoadAll and every create
// or remove goes through the repository as well.
//
// All public methods are thread-safe.
type Registry struct {
	repo   Repository
	assets AssetStore
	root   string

	things map[string]*Thing
	mu     sync.RWMutex

	// sinks are gateway-wide event listeners (relay, telemetry) attached
	// to every current and future thing. Guarded by mu so a sink cannot
	// be attached twice to a thing being built concurrently.
	sinks []EventListener

	logger Logger
}

// NewRegistry creates a thing registry backed by the given repository.
// assets may be nil when icon support is not needed (tests).
func NewRegistry(repo Repository, assets AssetStore, thingsRoot string) *Registry {
	return &Registry{
		repo:   repo,
		assets: assets,
		root:   thingsRoot,
		things: make(map[string]*Thing),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry and for things it creates.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// LoadAll reconstructs all things from the repository.
// This should be called once on application startup.
func (r *Registry) LoadAll(ctx context.Context) error {
	descs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading things: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.things = make(map[string]*Thing, len(descs))
	for id, desc := range descs {
		t, err := r.buildThing(id, desc)
		if err != nil {
			r.logger.Error("skipping invalid stored thing", "thing_id", id, "error", err)
			continue
		}
		r.things[id] = t
	}

	r.logger.Info("things loaded", "count", len(r.things))
	return nil
}

// CreateThing constructs a thing from an (id, description) pair, attaches
// the gateway-wide event sinks, persists it, and registers it.
// Returns ErrThingExists when the ID is already in use.
func (r *Registry) CreateThing(ctx context.Context, id string, desc Description) (*Thing, error) {
	r.mu.Lock()
	if _, exists := r.things[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrThingExists, id)
	}
	t, err := r.buildThing(id, desc)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.things[id] = t
	r.mu.Unlock()

	if err := r.repo.Save(ctx, id, t.Describe(nil)); err != nil {
		// Roll back the registration so a failed create leaves no trace
		r.mu.Lock()
		delete(r.things, id)
		r.mu.Unlock()
		return nil, fmt.Errorf("persisting new thing: %w", err)
	}

	r.logger.Info("thing created", "thing_id", id, "name", t.Name())
	return t, nil
}

// GetThing retrieves a thing by ID.
// Returns ErrThingNotFound if the thing does not exist.
func (r *Registry) GetThing(id string) (*Thing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.things[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThingNotFound, id)
	}
	return t, nil
}

// ListThings returns all registered things.
func (r *Registry) ListThings() []*Thing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Thing, 0, len(r.things))
	for _, t := range r.things {
		out = append(out, t)
	}
	return out
}

// Count returns the number of registered things.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.things)
}

// RemoveThing tears down a thing (icon release, session closure) and
// deletes it from the repository and the registry.
func (r *Registry) RemoveThing(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.things[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrThingNotFound, id)
	}
	delete(r.things, id)
	r.mu.Unlock()

	t.Remove()

	if err := r.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting thing %s: %w", id, err)
	}

	r.logger.Info("thing deleted", "thing_id", id)
	return nil
}

// AddEventSink attaches a gateway-wide event listener to every current
// and future thing. Sinks cannot be removed; they live for the process.
//
// The append and the subscription of existing things happen under the
// registry lock, so a thing being created concurrently picks the sink up
// exactly once: either buildThing sees it, or this loop does.
func (r *Registry) AddEventSink(fn EventListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks = append(r.sinks, fn)
	for _, t := range r.things {
		t.AddEventSubscription(fn)
	}
}

// buildThing constructs a Thing wired to the registry's collaborators
// and subscribes the gateway-wide sinks. Caller must hold r.mu.
func (r *Registry) buildThing(id string, desc Description) (*Thing, error) {
	t, err := New(id, desc, Options{
		ThingsRoot: r.root,
		Store:      r.repo,
		Assets:     r.assets,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	for _, sink := range r.sinks {
		t.AddEventSubscription(sink)
	}

	return t, nil
}
