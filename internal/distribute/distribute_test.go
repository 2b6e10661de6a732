package distribute

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/profile"
)

type message struct {
	topic   string
	payload []byte
}

// fakePublisher records messages and fails on the topic named by failOn.
type fakePublisher struct {
	messages []message
	failOn   string
}

func (f *fakePublisher) PublishRetained(_ context.Context, topic string, payload []byte) error {
	if topic == f.failOn {
		return errors.New("broker rejected publish")
	}
	f.messages = append(f.messages, message{topic: topic, payload: payload})
	return nil
}

func resolveWASM(t *testing.T) *target.Resolved {
	t.Helper()
	r, err := target.Resolve(profile.Base(), profile.CodalWASM())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return r
}

func newTestDistributor(pub Publisher) *Distributor {
	d := New(pub, mqtt.Topics{Prefix: "lab"})
	d.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return d
}

func TestDistributor_Publish(t *testing.T) {
	r := resolveWASM(t)
	pub := &fakePublisher{}

	summary, err := newTestDistributor(pub).Publish(context.Background(), "codal-wasm", r)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(pub.messages) != r.Len()+1 {
		t.Fatalf("published %d messages, want %d keys plus summary", len(pub.messages), r.Len())
	}
	for i, k := range r.Keys() {
		want := "lab/codal-wasm/config/" + string(k)
		if pub.messages[i].topic != want {
			t.Errorf("message %d topic = %q, want %q", i, pub.messages[i].topic, want)
		}
	}

	last := pub.messages[len(pub.messages)-1]
	if last.topic != "lab/codal-wasm/resolved" {
		t.Errorf("last topic = %q, want the summary topic", last.topic)
	}
	var got Summary
	if err := json.Unmarshal(last.payload, &got); err != nil {
		t.Fatalf("summary is not JSON: %v", err)
	}
	want := Summary{
		Target:      "codal-wasm",
		Fingerprint: r.Fingerprint(),
		KeyCount:    r.Len(),
		PublishedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("returned summary mismatch (-want +got):\n%s", diff)
	}
}

func TestDistributor_KeyPayloads(t *testing.T) {
	r := resolveWASM(t)
	pub := &fakePublisher{}
	if _, err := newTestDistributor(pub).Publish(context.Background(), "codal-wasm", r); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	byTopic := make(map[string]string, len(pub.messages))
	for _, m := range pub.messages {
		byTopic[m.topic] = string(m.payload)
	}

	tests := []struct {
		key  target.Key
		want string
	}{
		{target.KeySchedulerTickPeriodUS, `{"kind":"int","type":"uint32","value":4000}`},
		{target.KeyStackBase, `{"kind":"int","type":"uint32","value":536997888,"ref":"device_sram_end"}`},
		{target.KeyTimer32Bit, `{"kind":"bool","type":"bool","value":true}`},
		{target.KeyDefaultPullMode, `{"kind":"enum","type":"enum PullMode","value":"PullMode::Down"}`},
		{target.KeyTimestamp, `{"kind":"type","type":"type","value":"uint64_t"}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got, ok := byTopic["lab/codal-wasm/config/"+string(tt.key)]
			if !ok {
				t.Fatalf("no message for %s", tt.key)
			}
			if got != tt.want {
				t.Errorf("payload = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDistributor_PublishFailure(t *testing.T) {
	r := resolveWASM(t)

	tests := []struct {
		name    string
		failOn  string
		wantMsg string
	}{
		{"key topic", "lab/codal-wasm/config/device_stack_size", "publishing device_stack_size"},
		{"summary topic", "lab/codal-wasm/resolved", "publishing summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{failOn: tt.failOn}
			_, err := newTestDistributor(pub).Publish(context.Background(), "codal-wasm", r)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("Publish() error = %v, want it to mention %q", err, tt.wantMsg)
			}
			for _, m := range pub.messages {
				if m.topic == "lab/codal-wasm/resolved" {
					t.Error("summary published after a failure")
				}
			}
		})
	}
}

// fakeSubscriber captures the handler so tests can deliver messages.
type fakeSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.topic, f.handler = topic, handler
	return f.err
}

func TestWatch(t *testing.T) {
	sub := &fakeSubscriber{}
	var got []Summary
	if err := Watch(sub, mqtt.Topics{Prefix: "lab"}, 1, func(s Summary) { got = append(got, s) }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if sub.topic != "lab/+/resolved" {
		t.Errorf("subscribed to %q, want lab/+/resolved", sub.topic)
	}

	deliveries := []struct {
		topic   string
		payload string
		wantErr bool
	}{
		{"lab/codal-wasm/resolved", `{"target":"codal-wasm","fingerprint":"abc","key_count":38}`, false},
		{"lab/nrf52/resolved", `{"fingerprint":"def","key_count":12}`, false},
		{"lab/cleared/resolved", ``, false},
		{"lab/broken/resolved", `{not json`, true},
	}
	for _, d := range deliveries {
		err := sub.handler(d.topic, []byte(d.payload))
		if (err != nil) != d.wantErr {
			t.Errorf("handler(%s) error = %v, wantErr %v", d.topic, err, d.wantErr)
		}
	}

	want := []Summary{
		{Target: "codal-wasm", Fingerprint: "abc", KeyCount: 38},
		{Target: "nrf52", Fingerprint: "def", KeyCount: 12},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_SubscribeError(t *testing.T) {
	sub := &fakeSubscriber{err: mqtt.ErrNotConnected}
	err := Watch(sub, mqtt.Topics{}, 1, func(Summary) {})
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Watch() error = %v, want ErrNotConnected", err)
	}
}

func TestWatchKeys(t *testing.T) {
	sub := &fakeSubscriber{}
	got := make(map[string]KeyMessage)
	err := WatchKeys(sub, mqtt.Topics{Prefix: "lab"}, "codal-wasm", 1, func(key string, m KeyMessage) {
		got[key] = m
	})
	if err != nil {
		t.Fatalf("WatchKeys() error = %v", err)
	}
	if sub.topic != "lab/codal-wasm/config/+" {
		t.Errorf("subscribed to %q, want lab/codal-wasm/config/+", sub.topic)
	}

	deliveries := []struct {
		topic   string
		payload string
		wantErr bool
	}{
		{"lab/codal-wasm/config/scheduler_tick_period_us", `{"kind":"int","type":"uint32","value":4000}`, false},
		{"lab/codal-wasm/config/device_stack_base", `{"kind":"int","type":"uint32","value":536997888,"ref":"device_sram_end"}`, false},
		{"lab/codal-wasm/config/device_usb", ``, false},
		{"lab/other/config/device_usb", `{"kind":"bool","type":"bool","value":true}`, false},
		{"lab/codal-wasm/config/codal_debug", `{not json`, true},
	}
	for _, d := range deliveries {
		err := sub.handler(d.topic, []byte(d.payload))
		if (err != nil) != d.wantErr {
			t.Errorf("handler(%s) error = %v, wantErr %v", d.topic, err, d.wantErr)
		}
	}

	want := map[string]KeyMessage{
		"scheduler_tick_period_us": {Kind: "int", Type: "uint32", Value: json.Number("4000")},
		"device_stack_base":        {Kind: "int", Type: "uint32", Value: json.Number("536997888"), Ref: "device_sram_end"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("key messages mismatch (-want +got):\n%s", diff)
	}
}

var (
	_ Publisher  = (*mqtt.Client)(nil)
	_ Subscriber = (*mqtt.Client)(nil)
)
