package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thing-core/internal/thing"
)

// requestContext derives the websocket-link context from the incoming
// request. Secure is true for direct TLS and for requests forwarded by a
// TLS-terminating proxy.
func requestContext(r *http.Request) *thing.RequestContext {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	return &thing.RequestContext{
		Host:   r.Host,
		Secure: secure,
	}
}

// handleListThings returns the descriptions of all registered things.
func (s *Server) handleListThings(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)

	things := s.registry.ListThings()
	descs := make([]thing.Description, 0, len(things))
	for _, t := range things {
		descs = append(descs, t.Describe(rc))
	}

	writeJSON(w, http.StatusOK, map[string]any{"things": descs, "count": len(descs)})
}

// handleCreateThing registers a new thing from a posted description.
// The description must carry an "id" field.
func (s *Server) handleCreateThing(w http.ResponseWriter, r *http.Request) {
	var desc thing.Description
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, _ := desc["id"].(string) //nolint:errcheck // Missing id rejected below
	if id == "" {
		writeBadRequest(w, "description id is required")
		return
	}

	t, err := s.registry.CreateThing(r.Context(), id, desc)
	if err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, t.Describe(requestContext(r)))
}

// handleGetThing returns a single thing's description.
func (s *Server) handleGetThing(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t.Describe(requestContext(r)))
}

// handleDeleteThing removes a thing: sessions are closed, the icon asset
// released, and the stored description deleted.
func (s *Server) handleDeleteThing(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.RemoveThing(r.Context(), chi.URLParam(r, "thingID")); err != nil {
		writeThingError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetName renames a thing.
func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := t.SetName(r.Context(), body.Name); err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": t.Name()})
}

// handleSetCoordinates moves a thing on the floorplan.
func (s *Server) handleSetCoordinates(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	var body struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := t.SetCoordinates(r.Context(), body.X, body.Y); err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"x": body.X, "y": body.Y})
}

// handleSetCapability selects a thing's primary capability tag.
func (s *Server) handleSetCapability(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	var body struct {
		Capability string `json:"capability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := t.SetSelectedCapability(r.Context(), body.Capability); err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"selectedCapability": t.SelectedCapability()})
}

// handleSetIcon replaces a thing's icon from a base64-encoded upload.
func (s *Server) handleSetIcon(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	var body struct {
		Data string `json:"data"`
		Mime string `json:"mime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := t.SetIcon(r.Context(), body.Data, body.Mime, true); err != nil {
		writeThingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"iconHref": t.IconRef()})
}

// handleListEvents returns a thing's dispatched-event history in order.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	events := t.EventHistory()
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleDispatchEvent dispatches an event through the thing's hub: it is
// appended to the event log and fanned out to all subscribers (websocket
// sessions, MQTT relay, telemetry).
func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.GetThing(chi.URLParam(r, "thingID"))
	if err != nil {
		writeThingError(w, err)
		return
	}

	var body struct {
		Name string `json:"name"`
		Data any    `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Name == "" {
		writeBadRequest(w, "event name is required")
		return
	}

	t.DispatchEvent(thing.EventRecord{Name: body.Name, Data: body.Data})

	w.WriteHeader(http.StatusAccepted)
}
