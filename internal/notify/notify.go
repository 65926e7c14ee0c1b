// Package notify fans progress notifications out to presentation surfaces:
// the terminal, the log and websocket subscribers.
package notify

import (
	"github.com/alexanderramin/coursetrack/internal/domain"
	"go.uber.org/zap"
)

// Notifier receives user-facing progress events. Implementations must not
// block the caller for long.
type Notifier interface {
	Notify(n domain.Notification)
}

// Func adapts a function to Notifier.
type Func func(n domain.Notification)

func (f Func) Notify(n domain.Notification) { f(n) }

// Multi delivers every notification to each target in order.
type Multi []Notifier

func (m Multi) Notify(n domain.Notification) {
	for _, t := range m {
		if t != nil {
			t.Notify(n)
		}
	}
}

// Log writes notifications to a zap logger. Sync failures are warnings; the
// rest is info.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(n domain.Notification) {
	fields := []zap.Field{
		zap.String("notification.kind", string(n.Kind)),
		zap.String("course.id", n.CourseID),
		zap.Float64("progress", n.Progress),
	}
	if n.LessonID != "" {
		fields = append(fields, zap.String("lesson.id", n.LessonID))
	}
	if n.Kind == domain.NotifySyncFailed {
		l.log.Warn(n.Message(), append(fields, zap.String("error", n.Error))...)
		return
	}
	l.log.Info(n.Message(), fields...)
}
