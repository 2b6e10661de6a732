package mqtt

import "strings"

// DefaultTopicPrefix is used when Topics.Prefix is empty.
const DefaultTopicPrefix = "codal"

// Topics builds codalcfg topic names under a configurable prefix.
//
// Layout:
//
//	{prefix}/{target}/config/{key}   retained, one message per resolved key
//	{prefix}/{target}/resolved       retained summary of the last resolution
//	{prefix}/system/status           retained publisher online/offline status
//
// Example:
//
//	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
//	topics.ConfigKey("codal-wasm", "device_stack_size")
//	// Returns: "codal/codal-wasm/config/device_stack_size"
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// ConfigKey returns the topic carrying one resolved key of a target.
func (t Topics) ConfigKey(target, key string) string {
	return t.join(target, "config", key)
}

// Resolved returns the topic carrying a target's resolution summary.
func (t Topics) Resolved(target string) string {
	return t.join(target, "resolved")
}

// SystemStatus returns the topic for publisher online/offline status.
func (t Topics) SystemStatus() string {
	return t.join("system", "status")
}

// AllConfig returns a wildcard matching every key topic of a target.
func (t Topics) AllConfig(target string) string {
	return t.join(target, "config", "+")
}

// AllResolved returns a wildcard matching every target's summary topic.
func (t Topics) AllResolved() string {
	return t.join("+", "resolved")
}

// TargetOf extracts the target segment from a topic built by these helpers.
// It returns false for topics outside the prefix or the system subtree.
func (t Topics) TargetOf(topic string) (string, bool) {
	root := t.join("")
	rest, ok := strings.CutPrefix(topic, root)
	if !ok {
		return "", false
	}
	target, _, found := strings.Cut(rest, "/")
	if !found || target == "" || target == "system" {
		return "", false
	}
	return target, true
}
