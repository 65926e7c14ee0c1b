package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_ProductionWritesECSJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coursetrack.log")
	log, err := NewLogger(LogConfig{Env: "production", Level: "info", FilePath: path})
	require.NoError(t, err)

	log.Info("progress saved", zap.String("course.id", "c1"))
	log.Debug("dropped below level")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `"@timestamp"`)
	assert.Contains(t, out, `"log.level":"info"`)
	assert.Contains(t, out, `"message":"progress saved"`)
	assert.Contains(t, out, `"course.id":"c1"`)
	assert.NotContains(t, out, "dropped below level")
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_EnabledWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.json")
	p, err := Setup(context.Background(), Config{Enabled: true, TraceFile: path}, zap.NewNop())
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "progress.sync")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "progress.sync")
}
