package distribute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
)

// Subscriber registers a topic handler. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Watch calls fn with every summary published under topics, including the
// retained summary of each target at subscription time. Empty payloads,
// which clear a retained message, are skipped.
func Watch(sub Subscriber, topics mqtt.Topics, qos byte, fn func(Summary)) error {
	return sub.Subscribe(topics.AllResolved(), qos, func(topic string, payload []byte) error {
		if len(payload) == 0 {
			return nil
		}
		var s Summary
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("decoding summary on %s: %w", topic, err)
		}
		if s.Target == "" {
			s.Target, _ = topics.TargetOf(topic)
		}
		fn(s)
		return nil
	})
}

// WatchKeys calls fn with every key message published for target, starting
// with the retained values. Empty payloads are skipped. Numeric values
// arrive as json.Number.
func WatchKeys(sub Subscriber, topics mqtt.Topics, target string, qos byte, fn func(key string, m KeyMessage)) error {
	prefix := topics.ConfigKey(target, "")
	return sub.Subscribe(topics.AllConfig(target), qos, func(topic string, payload []byte) error {
		key, ok := strings.CutPrefix(topic, prefix)
		if !ok || key == "" || len(payload) == 0 {
			return nil
		}
		// Numbers stay json.Number so 64-bit values and addresses print exactly.
		var m KeyMessage
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("decoding key message on %s: %w", topic, err)
		}
		fn(key, m)
		return nil
	})
}
