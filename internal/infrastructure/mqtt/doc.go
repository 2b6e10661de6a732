// Package mqtt provides the MQTT client codalcfg uses to distribute resolved
// target configurations.
//
// This package manages:
//   - Connection to the broker with reconnect after the first success
//   - Retained publishing of per-key configuration and summaries
//   - Wildcard subscriptions for watching summaries
//   - Last Will and Testament for offline detection
//
// # Topics
//
// All topics live under a configurable prefix (mqtt.topic_prefix, default
// "codal"). See Topics for the layout. Retained messages mean a device
// simulator that connects later still receives its current configuration.
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) for any broker off the local host
//   - Supply the password through CODALCFG_MQTT_PASSWORD, not the config file
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().ConfigKey("codal-wasm", "device_stack_size")
//	err = client.PublishRetained(ctx, topic, []byte(`{"kind":"int","value":2048}`))
package mqtt
