package graphql

import (
	"go.uber.org/zap"
)

// CallEvent records metadata about a single API call.
type CallEvent struct {
	Operation string
	RequestID string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about API calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a zap logger at debug level.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver creates an Observer that logs events to log.
func NewLogObserver(log *zap.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	status := "ok"
	if !event.Success {
		status = "err:" + event.ErrorCode
	}
	o.log.Debug("lms_call",
		zap.String("operation", event.Operation),
		zap.String("request.id", event.RequestID),
		zap.Int64("latency_ms", event.LatencyMs),
		zap.String("status", status),
	)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
