package mqtt

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/thing-core/internal/thing"
)

// mirrorRepository decorates a thing.Repository so every saved
// description is also published retained to things/<thing_id>/description
// and a delete clears the retained copy. Consumers on the bus then see
// the current description of every thing without polling the gateway.
type mirrorRepository struct {
	next   thing.Repository
	client *Client
	topics Topics
}

// MirrorRepository wraps a repository so the broker carries a retained
// copy of every thing description.
//
// Broker failures never fail the store operation: the description is
// republished on the next save anyway, so a missed mirror update is
// logged and swallowed.
func (c *Client) MirrorRepository(next thing.Repository) thing.Repository {
	return &mirrorRepository{next: next, client: c}
}

func (m *mirrorRepository) Save(ctx context.Context, id string, desc thing.Description) error {
	if err := m.next.Save(ctx, id, desc); err != nil {
		return err
	}

	payload, err := json.Marshal(desc)
	if err != nil {
		m.warn("encoding description for mirror failed", id, err)
		return nil
	}
	if err := m.client.PublishRetained(m.topics.ThingDescription(id), payload); err != nil {
		m.warn("description mirror publish failed", id, err)
	}
	return nil
}

func (m *mirrorRepository) Load(ctx context.Context, id string) (thing.Description, error) {
	return m.next.Load(ctx, id)
}

func (m *mirrorRepository) List(ctx context.Context) (map[string]thing.Description, error) {
	return m.next.List(ctx)
}

func (m *mirrorRepository) Delete(ctx context.Context, id string) error {
	if err := m.next.Delete(ctx, id); err != nil {
		return err
	}

	// An empty retained payload clears the retained message on the broker
	if err := m.client.PublishRetained(m.topics.ThingDescription(id), nil); err != nil {
		m.warn("clearing mirrored description failed", id, err)
	}
	return nil
}

func (m *mirrorRepository) warn(msg, id string, err error) {
	if logger := m.client.getLogger(); logger != nil {
		logger.Warn(msg, "thing_id", id, "error", err)
	}
}
