package defensio

import "time"

// Metrics is an optional interface for client telemetry.
type Metrics interface {
	// IncrementCounter increments a counter metric.
	IncrementCounter(name string, value int64)
	// RecordDuration records a duration metric.
	RecordDuration(name string, duration time.Duration)
}

// Metric names.
const (
	MetricRequests        = "defensio.requests"
	MetricRequestErrors   = "defensio.errors"
	MetricDecodeErrors    = "defensio.decode_errors"
	MetricRequestDuration = "defensio.request_duration"
	MetricCallbacks       = "defensio.callbacks"
)

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, int64)        {}
func (nopMetrics) RecordDuration(string, time.Duration) {}
