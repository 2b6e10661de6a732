// Package influxdb records resolution telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Each resolve run
// writes one config_resolution point, which makes it easy to chart how often
// a target fails and which invariant trips.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteResolution("codal-wasm", "ok", resolved.Len(), "", elapsed)
//
// # Error Handling
//
// Writes are non-blocking and batched (influxdb.batch_size,
// influxdb.flush_interval). Write errors arrive asynchronously through the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
