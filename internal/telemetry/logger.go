package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds the options used to build the zap logger.
type LogConfig struct {
	Env      string // development or production
	Level    string // debug, info, warn, error
	FilePath string // optional; stderr when empty
}

// NewLogger returns a console logger for development and an ECS-style JSON
// logger for production. Both write to FilePath when set.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch cfg.Env {
	case "production":
		encoder = zapcore.NewJSONEncoder(ecsEncoderConfig())
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.CallerKey = "log.origin.file.name"
		if cfg.FilePath != "" {
			ec.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(ec)
	}

	out, err := writeSyncer(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("opening log output: %w", err)
	}

	core := zapcore.NewCore(encoder, out, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.LevelEnablerFunc(func(lv zapcore.Level) bool { return lv > zap.WarnLevel })),
	), nil
}

func ecsEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	ec.TimeKey = "@timestamp"
	ec.MessageKey = "message"
	ec.LevelKey = "log.level"
	ec.CallerKey = "log.origin.file.name"
	ec.StacktraceKey = "error.stack_trace"
	return ec
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zap.WarnLevel, nil
	}
	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("unknown logging level %q", level)
	}
	return lv, nil
}

func writeSyncer(path string) (zapcore.WriteSyncer, error) {
	if path == "" {
		return zapcore.Lock(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(fd), nil
}
