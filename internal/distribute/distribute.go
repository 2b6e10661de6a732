// Package distribute publishes resolved target configurations over MQTT.
//
// Each resolved key goes to its own retained topic so that a simulator can
// subscribe to exactly the keys it consumes. A retained summary follows the
// keys; seeing a new fingerprint on the summary topic means every key topic
// already carries the matching values.
package distribute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
	"github.com/microbit-carlos/codalcfg/internal/target"
)

// Publisher sends a retained message. *mqtt.Client satisfies it.
type Publisher interface {
	PublishRetained(ctx context.Context, topic string, payload []byte) error
}

// KeyMessage is the payload published for one resolved key.
type KeyMessage struct {
	Kind  string `json:"kind"`
	Type  string `json:"type"`
	Value any    `json:"value"`
	Ref   string `json:"ref,omitempty"`
}

// Summary is the payload published on a target's resolved topic.
type Summary struct {
	Target      string    `json:"target"`
	Fingerprint string    `json:"fingerprint"`
	KeyCount    int       `json:"key_count"`
	PublishedAt time.Time `json:"published_at"`
}

// Distributor publishes resolved configurations under one topic prefix.
type Distributor struct {
	pub    Publisher
	topics mqtt.Topics
	now    func() time.Time
}

// New returns a Distributor that publishes through pub.
func New(pub Publisher, topics mqtt.Topics) *Distributor {
	return &Distributor{
		pub:    pub,
		topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish sends every entry of r in resolved order, then the summary.
// It stops at the first failure; the summary is only sent when every key
// was published.
func (d *Distributor) Publish(ctx context.Context, name string, r *target.Resolved) (Summary, error) {
	for _, e := range r.Entries() {
		payload, err := json.Marshal(keyMessage(e))
		if err != nil {
			return Summary{}, fmt.Errorf("encoding %s: %w", e.Key, err)
		}
		if err := d.pub.PublishRetained(ctx, d.topics.ConfigKey(name, string(e.Key)), payload); err != nil {
			return Summary{}, fmt.Errorf("publishing %s: %w", e.Key, err)
		}
	}

	summary := Summary{
		Target:      name,
		Fingerprint: r.Fingerprint(),
		KeyCount:    r.Len(),
		PublishedAt: d.now(),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, fmt.Errorf("encoding summary: %w", err)
	}
	if err := d.pub.PublishRetained(ctx, d.topics.Resolved(name), payload); err != nil {
		return Summary{}, fmt.Errorf("publishing summary: %w", err)
	}
	return summary, nil
}

func keyMessage(e target.Entry) KeyMessage {
	return KeyMessage{
		Kind:  e.Value.Kind().String(),
		Type:  e.Value.Type(),
		Value: e.Value.Interface(),
		Ref:   string(e.Ref),
	}
}
