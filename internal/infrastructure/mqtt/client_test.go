package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "codalcfg-test",
		},
		QoS:         1,
		TopicPrefix: "lab",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Topics
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	lab := Topics{Prefix: "lab"}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigKey", lab.ConfigKey("codal-wasm", "device_stack_size"), "lab/codal-wasm/config/device_stack_size"},
		{"Resolved", lab.Resolved("codal-wasm"), "lab/codal-wasm/resolved"},
		{"SystemStatus", lab.SystemStatus(), "lab/system/status"},
		{"AllConfig", lab.AllConfig("codal-wasm"), "lab/codal-wasm/config/+"},
		{"AllResolved", lab.AllResolved(), "lab/+/resolved"},
		{"default prefix", Topics{}.Resolved("x"), "codal/x/resolved"},
		{"trailing slash", Topics{Prefix: "a/b/"}.Resolved("x"), "a/b/x/resolved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopics_TargetOf(t *testing.T) {
	lab := Topics{Prefix: "lab"}
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"lab/codal-wasm/resolved", "codal-wasm", true},
		{"lab/nrf52/config/device_tag", "nrf52", true},
		{"lab/system/status", "", false},
		{"other/codal-wasm/resolved", "", false},
		{"lab/", "", false},
		{"lab/orphan", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := lab.TargetOf(tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("TargetOf(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// =============================================================================
// Options
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain TCP", func(t *testing.T) {
		opts := buildClientOptions(testConfig())

		if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
			t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
		}
		if opts.ClientID != "codalcfg-test" {
			t.Errorf("ClientID = %q", opts.ClientID)
		}
		if opts.Username != "" || opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
			t.Errorf("unexpected auth or TLS: user=%q tls=%v", opts.Username, opts.TLSConfig)
		}
		if !opts.AutoReconnect || opts.ConnectRetry {
			t.Errorf("AutoReconnect = %v, ConnectRetry = %v, want true and false", opts.AutoReconnect, opts.ConnectRetry)
		}
		if opts.MaxReconnectInterval != 5*time.Second {
			t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
		}
	})

	t.Run("TLS with auth", func(t *testing.T) {
		cfg := testConfig()
		cfg.Broker.TLS = true
		cfg.Broker.Port = 8883
		cfg.Auth = config.MQTTAuthConfig{Username: "builder", Password: "secret"}

		opts := buildClientOptions(cfg)
		if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
			t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
		}
		if opts.Username != "builder" || opts.Password != "secret" {
			t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
		}
		if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tls.VersionTLS12 {
			t.Errorf("TLSConfig = %v, want MinVersion TLS 1.2", opts.TLSConfig)
		}
	})

	t.Run("last will", func(t *testing.T) {
		opts := buildClientOptions(testConfig())
		if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != "lab/system/status" {
			t.Fatalf("will = enabled:%v retained:%v topic:%q", opts.WillEnabled, opts.WillRetained, opts.WillTopic)
		}

		var status statusPayload
		if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
			t.Fatalf("will payload is not JSON: %v", err)
		}
		if status.Status != "offline" || status.Reason != "unexpected_disconnect" || status.ClientID != "codalcfg-test" {
			t.Errorf("will payload = %+v", status)
		}
	})
}

func TestBuildStatusPayload(t *testing.T) {
	var status statusPayload
	if err := json.Unmarshal(buildStatusPayload("online", "c1", ""), &status); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if status.Status != "online" || status.ClientID != "c1" || status.Reason != "" {
		t.Errorf("status = %+v", status)
	}
	if _, err := time.Parse(time.RFC3339, status.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", status.Timestamp, err)
	}
}

// =============================================================================
// Validation without a broker
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: map[string]subscription{}}
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"wildcard topic", "lab/+/resolved", nil, 1, ErrInvalidTopic},
		{"invalid QoS", "lab/x/resolved", nil, 3, ErrInvalidQoS},
		{"oversized payload", "lab/x/resolved", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "lab/x/resolved", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(ctx, tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := c.PublishRetained(ctx, "lab/x/resolved", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: map[string]subscription{}}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"invalid QoS", "lab/#", 5, noop, ErrInvalidQoS},
		{"nil handler", "lab/#", 1, nil, ErrSubscribeFailed},
		{"not connected", "lab/#", 1, noop, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Subscribe(tt.topic, tt.qos, tt.handler); !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n := c.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribes, want 0", n)
	}
}

func TestHealthCheck_Offline(t *testing.T) {
	c := &Client{}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClose_NilClient(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestConnect_Refused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // nothing listens here

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := Connect(ctx, cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Token waiting and handler wrapping
// =============================================================================

type fakeToken struct {
	done chan struct{}
	err  error
}

func (f *fakeToken) Wait() bool                     { <-f.done; return true }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f *fakeToken) Done() <-chan struct{}          { return f.done }
func (f *fakeToken) Error() error                   { return f.err }

func TestWait(t *testing.T) {
	t.Run("completed with error", func(t *testing.T) {
		tok := &fakeToken{done: make(chan struct{}), err: errors.New("not authorised")}
		close(tok.done)
		if err := wait(context.Background(), tok, time.Second); err == nil || err.Error() != "not authorised" {
			t.Errorf("wait() error = %v, want token error", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tok := &fakeToken{done: make(chan struct{})}
		if err := wait(ctx, tok, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("wait() error = %v, want context.Canceled", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		tok := &fakeToken{done: make(chan struct{})}
		err := wait(context.Background(), tok, 10*time.Millisecond)
		if err == nil || !strings.Contains(err.Error(), "timeout") {
			t.Errorf("wait() error = %v, want timeout", err)
		}
	})
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return true }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestWrapHandler(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)
	msg := fakeMessage{topic: "lab/x/resolved", payload: []byte("{}")}

	var got string
	c.wrapHandler(func(topic string, _ []byte) error {
		got = topic
		return nil
	})(nil, msg)
	if got != msg.topic {
		t.Errorf("handler saw topic %q, want %q", got, msg.topic)
	}

	c.wrapHandler(func(string, []byte) error { return errors.New("bad summary") })(nil, msg)
	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, msg)

	if len(logger.warns) != 1 || len(logger.errors) != 1 {
		t.Errorf("warns = %v, errors = %v, want one of each", logger.warns, logger.errors)
	}
}
