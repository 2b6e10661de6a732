package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementResolution is the measurement written once per resolve run.
const MeasurementResolution = "config_resolution"

// WriteResolution records the outcome of one resolve run.
//
// Tags are target, outcome and, for invariant failures, invariant. Fields
// are the resolved key count, the run duration in microseconds and ok.
// The write is non-blocking; it is dropped when the client is closed.
//
// Example:
//
//	client.WriteResolution("codal-wasm", "ok", resolved.Len(), "", time.Since(start))
func (c *Client) WriteResolution(target, outcome string, keys int, invariant string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(resolutionPoint(target, outcome, keys, invariant, duration, time.Now()))
}

func resolutionPoint(target, outcome string, keys int, invariant string, duration time.Duration, at time.Time) *write.Point {
	tags := map[string]string{
		"target":  target,
		"outcome": outcome,
	}
	if invariant != "" {
		tags["invariant"] = invariant
	}
	return write.NewPoint(
		MeasurementResolution,
		tags,
		map[string]any{
			"keys":        keys,
			"duration_us": duration.Microseconds(),
			"ok":          outcome == "ok",
		},
		at,
	)
}
