package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/alexanderramin/coursetrack"

// Metrics counts the failures the tracker swallows, plus sync outcomes.
// Totals are also kept in-process so the CLI can show them without an
// exporter.
type Metrics struct {
	lookupMisses  metric.Int64Counter
	storageErrors metric.Int64Counter
	syncSuccesses metric.Int64Counter
	syncFailures  metric.Int64Counter

	totals struct {
		lookupMisses  atomic.Int64
		storageErrors atomic.Int64
		syncSuccesses atomic.Int64
		syncFailures  atomic.Int64
	}
}

// Totals is a point-in-time copy of the in-process counters.
type Totals struct {
	LookupMisses  int64
	StorageErrors int64
	SyncSuccesses int64
	SyncFailures  int64
}

// NewMetrics registers the counters on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error
	if m.lookupMisses, err = meter.Int64Counter("coursetrack.lookup.misses",
		metric.WithDescription("Lesson IDs not found in the course catalog")); err != nil {
		return nil, fmt.Errorf("creating lookup counter: %w", err)
	}
	if m.storageErrors, err = meter.Int64Counter("coursetrack.storage.errors",
		metric.WithDescription("Local persistence reads or writes that failed")); err != nil {
		return nil, fmt.Errorf("creating storage counter: %w", err)
	}
	if m.syncSuccesses, err = meter.Int64Counter("coursetrack.sync.successes",
		metric.WithDescription("Progress writes accepted by the remote API")); err != nil {
		return nil, fmt.Errorf("creating sync success counter: %w", err)
	}
	if m.syncFailures, err = meter.Int64Counter("coursetrack.sync.failures",
		metric.WithDescription("Progress writes rejected or not delivered")); err != nil {
		return nil, fmt.Errorf("creating sync failure counter: %w", err)
	}
	return m, nil
}

// NopMetrics returns counters backed by a no-op provider.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func courseAttr(courseID string) metric.AddOption {
	return metric.WithAttributes(attribute.String("course.id", courseID))
}

func (m *Metrics) LookupMiss(ctx context.Context, courseID string) {
	m.totals.lookupMisses.Add(1)
	m.lookupMisses.Add(ctx, 1, courseAttr(courseID))
}

// StorageError records a failed persistence operation; op is "load", "save"
// or "clear".
func (m *Metrics) StorageError(ctx context.Context, courseID, op string) {
	m.totals.storageErrors.Add(1)
	m.storageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.String("op", op),
	))
}

func (m *Metrics) SyncSucceeded(ctx context.Context, courseID string) {
	m.totals.syncSuccesses.Add(1)
	m.syncSuccesses.Add(ctx, 1, courseAttr(courseID))
}

func (m *Metrics) SyncFailed(ctx context.Context, courseID string) {
	m.totals.syncFailures.Add(1)
	m.syncFailures.Add(ctx, 1, courseAttr(courseID))
}

func (m *Metrics) Totals() Totals {
	return Totals{
		LookupMisses:  m.totals.lookupMisses.Load(),
		StorageErrors: m.totals.storageErrors.Load(),
		SyncSuccesses: m.totals.syncSuccesses.Load(),
		SyncFailures:  m.totals.syncFailures.Load(),
	}
}
