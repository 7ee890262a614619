package thing

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the thing package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the persistence collaborator contract: an idempotent upsert
// of a thing's full description. Failures are reported back to the
// caller of the setter that triggered the save.
type Store interface {
	Save(ctx context.Context, id string, desc Description) error
}

// Options carries the collaborators and settings for a new Thing.
type Options struct {
	// ThingsRoot is the URL path prefix for thing hrefs ("/things" when empty).
	ThingsRoot string

	// Store persists the thing description on mutating setters.
	// When nil, setters mutate in memory only.
	Store Store

	// Assets manages the icon binary. Required for SetIcon.
	Assets AssetStore

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger Logger
}

// Thing is the authoritative in-memory representation of a single
// networked device: a named set of properties, actions and events, each
// independently addressable, plus the live transport sessions and event
// subscribers attached to it.
//
// Structural setters (SetName, SetCoordinates, SetSelectedCapability,
// SetIcon) are expected to be serialised by the caller per thing.
// DispatchEvent, subscription changes, session registration and Describe
// are safe under concurrent invocation regardless.
type Thing struct {
	id   string
	href string

	mu                 sync.RWMutex
	name               string
	thingType          string
	schemaContext      string
	typeTags           []string
	description        string
	properties         map[string]Descriptor
	actions            map[string]Descriptor
	events             map[string]Descriptor
	floorplanX         *float64
	floorplanY         *float64
	selectedCapability string
	iconHref           string
	uiHref             string
	descLinks          []Link
	sessions           []Session

	// dispatchMu serialises append+publish so the event log order always
	// matches per-listener delivery order.
	dispatchMu sync.Mutex
	hub        *Hub
	log        *EventLog

	store  Store
	assets AssetStore
	logger Logger
}

// New creates a Thing from an (id, description) pair.
//
// It returns ErrInvalidArgument when id or description is absent/empty;
// no partially-constructed thing is produced. Absent optional fields
// take their documented defaults: name/type/description the empty
// string, context the default schema URI, and empty tag sets and
// collections.
func New(id string, desc Description, opts Options) (*Thing, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	if len(desc) == 0 {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}

	root := opts.ThingsRoot
	if root == "" {
		root = "/things"
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	t := &Thing{
		id:            id,
		href:          root + "/" + id,
		name:          stringField(desc, "name"),
		thingType:     stringField(desc, "type"),
		schemaContext: DefaultContext,
		description:   stringField(desc, "description"),
		hub:           NewHub(logger),
		log:           NewEventLog(),
		store:         opts.Store,
		assets:        opts.Assets,
		logger:        logger,
	}

	// Older descriptions carry "title" instead of "name".
	if t.name == "" {
		t.name = stringField(desc, "title")
	}
	if ctx, ok := desc["@context"].(string); ok && ctx != "" {
		t.schemaContext = ctx
	}
	t.typeTags = stringSliceField(desc, "@type")
	t.properties = descriptorCollection(desc, "properties", t.href)
	t.actions = descriptorCollection(desc, "actions", t.href)
	t.events = descriptorCollection(desc, "events", t.href)
	t.floorplanX = floatField(desc, "floorplanX")
	t.floorplanY = floatField(desc, "floorplanY")
	t.selectedCapability = stringField(desc, "selectedCapability")
	t.iconHref = stringField(desc, "iconHref")
	t.uiHref = stringField(desc, "uiHref")
	t.descLinks = parseDescLinks(desc)

	return t, nil
}

// ID returns the thing's immutable identifier.
func (t *Thing) ID() string {
	return t.id
}

// Href returns the thing's derived href (<things-root>/<id>).
func (t *Thing) Href() string {
	return t.href
}

// Name returns the current name.
func (t *Thing) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// IconRef returns the public reference of the current icon asset, or
// the empty string when no icon is set.
func (t *Thing) IconRef() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.iconHref
}

// SelectedCapability returns the currently selected capability tag.
func (t *Thing) SelectedCapability() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selectedCapability
}

// Coordinates returns the floorplan position, nil when unset.
func (t *Thing) Coordinates() (x, y *float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyFloat(t.floorplanX), copyFloat(t.floorplanY)
}

// SetName changes the name and synchronously persists the full current
// description. The persistence outcome is the setter's outcome.
func (t *Thing) SetName(ctx context.Context, name string) error {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()

	return t.persist(ctx)
}

// SetCoordinates changes the floorplan position and synchronously
// persists. Both coordinates must be within [0,100].
func (t *Thing) SetCoordinates(ctx context.Context, x, y float64) error {
	if x < 0 || x > 100 || y < 0 || y > 100 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, x, y)
	}

	t.mu.Lock()
	t.floorplanX = &x
	t.floorplanY = &y
	t.mu.Unlock()

	return t.persist(ctx)
}

// SetSelectedCapability changes the selected capability tag and
// synchronously persists.
func (t *Thing) SetSelectedCapability(ctx context.Context, capability string) error {
	t.mu.Lock()
	t.selectedCapability = capability
	t.mu.Unlock()

	return t.persist(ctx)
}

// SetIcon replaces the thing's icon asset.
//
// dataB64 is the base64-encoded image payload; mime must be one of
// image/jpeg, image/png or image/svg+xml. On a validation error nothing
// changes. An existing icon is retired first: its file deletion is
// best-effort (a failure is logged and processing continues, accepting a
// possible orphan file), but the old reference is cleared regardless, so
// the thing never points at two assets at once. If the new asset cannot
// be written the icon reference is left unset and ErrAssetWrite is
// reported. On success the reference points at the new asset and, when
// persist is true, the description is synchronously saved.
func (t *Thing) SetIcon(ctx context.Context, dataB64, mime string, persist bool) error {
	if t.assets == nil {
		return ErrNoAssetStore
	}
	ext, ok := iconExtensions[mime]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMIME, mime)
	}
	if dataB64 == "" {
		return fmt.Errorf("%w: icon data is required", ErrInvalidArgument)
	}
	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return fmt.Errorf("%w: decoding icon data: %v", ErrInvalidArgument, err)
	}

	// Retire the old asset before installing the new one. Deletion
	// failure is non-fatal: an orphan file is the lesser failure mode
	// compared to a dangling reference.
	t.mu.Lock()
	old := t.iconHref
	t.iconHref = ""
	t.mu.Unlock()

	if old != "" {
		if err := t.assets.Delete(old); err != nil {
			t.logger.Warn("old icon cleanup failed", "thing_id", t.id, "ref", old, "error", err)
		}
	}

	ref, err := t.assets.WriteNew(ext, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssetWrite, err)
	}

	t.mu.Lock()
	t.iconHref = ref
	t.mu.Unlock()

	t.logger.Info("icon updated", "thing_id", t.id, "ref", ref)

	if persist {
		return t.persist(ctx)
	}
	return nil
}

// DispatchEvent stamps the event with the thing's ID and a timestamp if
// absent, appends it to the event log, and fans it out to all current
// listeners. Dispatch never fails: listener errors are isolated and at
// most logged.
func (t *Thing) DispatchEvent(ev EventRecord) {
	if ev.ThingID == "" {
		ev.ThingID = t.id
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()

	t.log.Append(ev)
	t.hub.Publish(ev)
}

// AddEventSubscription registers a listener for dispatched events and
// returns its subscription ID.
func (t *Thing) AddEventSubscription(fn EventListener) SubscriptionID {
	return t.hub.Register(fn)
}

// RemoveEventSubscription removes a listener. Removing an unregistered
// listener is a no-op, not an error.
func (t *Thing) RemoveEventSubscription(id SubscriptionID) {
	t.hub.Unregister(id)
}

// EventHistory returns a copy of the dispatched-event log in dispatch order.
func (t *Thing) EventHistory() []EventRecord {
	return t.log.Snapshot()
}

// AddAction reports whether the action's name is a declared action of
// this thing. It does not insert anything: callers use the result to
// decide whether to proceed with the actual request elsewhere.
func (t *Thing) AddAction(action Descriptor) bool {
	return t.hasAction(action)
}

// RemoveAction reports whether the action's name is a declared action of
// this thing. Like AddAction it is a pure membership check.
func (t *Thing) RemoveAction(action Descriptor) bool {
	return t.hasAction(action)
}

func (t *Thing) hasAction(action Descriptor) bool {
	name, _ := action["name"].(string) //nolint:errcheck // Missing name simply never matches
	if name == "" {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.actions[name]
	return ok
}

// SetPropertyDescriptor replaces the named property descriptor. The
// descriptor's href is recomputed from the thing href and the name.
func (t *Thing) SetPropertyDescriptor(name string, d Descriptor) {
	t.setDescriptor(t.properties, "properties", name, d)
}

// SetActionDescriptor replaces the named action descriptor.
func (t *Thing) SetActionDescriptor(name string, d Descriptor) {
	t.setDescriptor(t.actions, "actions", name, d)
}

// SetEventDescriptor replaces the named event descriptor.
func (t *Thing) SetEventDescriptor(name string, d Descriptor) {
	t.setDescriptor(t.events, "events", name, d)
}

func (t *Thing) setDescriptor(collection map[string]Descriptor, kind, name string, d Descriptor) {
	cpy := deepCopyDescriptor(d)
	if cpy == nil {
		cpy = Descriptor{}
	}
	cpy["href"] = t.href + "/" + kind + "/" + name

	t.mu.Lock()
	collection[name] = cpy
	t.mu.Unlock()
}

// RegisterSession appends a transport session handle. Duplicate
// registration is permitted; the core does not deduplicate.
func (t *Thing) RegisterSession(s Session) {
	t.mu.Lock()
	t.sessions = append(t.sessions, s)
	t.mu.Unlock()

	t.logger.Debug("session registered", "thing_id", t.id)
}

// SessionCount returns the number of registered sessions.
func (t *Thing) SessionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Remove tears the thing down: it releases the icon asset (a no-op when
// none is set) and requests closure of every registered session that is
// still open or connecting. Sessions already closed are left untouched.
func (t *Thing) Remove() {
	t.mu.Lock()
	icon := t.iconHref
	t.iconHref = ""
	sessions := make([]Session, len(t.sessions))
	copy(sessions, t.sessions)
	t.sessions = nil
	t.mu.Unlock()

	if icon != "" && t.assets != nil {
		if err := t.assets.Delete(icon); err != nil {
			t.logger.Warn("icon cleanup on remove failed", "thing_id", t.id, "ref", icon, "error", err)
		}
	}

	for _, s := range sessions {
		switch s.State() {
		case SessionOpen, SessionConnecting:
			if err := s.Close(); err != nil {
				t.logger.Warn("session close failed", "thing_id", t.id, "error", err)
			}
		case SessionClosing, SessionClosed:
			// Already on the way down
		}
	}

	t.logger.Info("thing removed", "thing_id", t.id)
}

// Describe returns a snapshot description of the thing. The returned
// value is deep-copied and never aliases internal state; Describe never
// mutates the thing.
//
// When a request context is supplied, one additional websocket alternate
// link is appended, using wss:// when the request was secure.
func (t *Thing) Describe(rc *RequestContext) Description {
	t.mu.RLock()
	defer t.mu.RUnlock()

	desc := Description{
		"id":          t.id,
		"name":        t.name,
		"type":        t.thingType,
		"@context":    t.schemaContext,
		"@type":       append([]string{}, t.typeTags...),
		"description": t.description,
		"href":        t.href,
		"properties":  copyCollection(t.properties, t.href, "properties"),
		"actions":     copyCollection(t.actions, t.href, "actions"),
		"events":      copyCollection(t.events, t.href, "events"),
		"links":       deriveLinks(t.href, t.uiHref, t.descLinks, rc),
	}

	if t.floorplanX != nil {
		desc["floorplanX"] = *t.floorplanX
	}
	if t.floorplanY != nil {
		desc["floorplanY"] = *t.floorplanY
	}
	if t.selectedCapability != "" {
		desc["selectedCapability"] = t.selectedCapability
	}
	if t.iconHref != "" {
		desc["iconHref"] = t.iconHref
	}

	return desc
}

// persist saves the full current description through the store. It
// snapshots the description first so no thing lock is held while the
// store call is in flight.
func (t *Thing) persist(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	desc := t.Describe(nil)
	if err := t.store.Save(ctx, t.id, desc); err != nil {
		return fmt.Errorf("persisting thing %s: %w", t.id, err)
	}
	return nil
}

// copyCollection deep-copies a descriptor collection, recomputing each
// descriptor's href so stored copies can never drift from the thing href.
func copyCollection(in map[string]Descriptor, href, kind string) map[string]Descriptor {
	out := make(map[string]Descriptor, len(in))
	for name, d := range in {
		cpy := deepCopyDescriptor(d)
		cpy["href"] = href + "/" + kind + "/" + name
		out[name] = cpy
	}
	return out
}

// descriptorCollection extracts a named descriptor collection from a raw
// description, stamping each entry's computed href.
func descriptorCollection(desc Description, kind, href string) map[string]Descriptor {
	out := make(map[string]Descriptor)

	raw, ok := desc[kind].(map[string]any)
	if !ok {
		return out
	}
	for name, entry := range raw {
		var d Descriptor
		if m, ok := entry.(map[string]any); ok {
			d = Descriptor(deepCopyMap(m))
		} else {
			d = Descriptor{}
		}
		d["href"] = href + "/" + kind + "/" + name
		out[name] = d
	}
	return out
}

func stringField(desc Description, key string) string {
	s, _ := desc[key].(string) //nolint:errcheck // Absent or non-string means default
	return s
}

func floatField(desc Description, key string) *float64 {
	switch v := desc[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func stringSliceField(desc Description, key string) []string {
	switch v := desc[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
