package progress

import (
	"context"
	"sync"
	"time"

	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// RemoteSync delivers the aggregate course percentage to the LMS.
type RemoteSync interface {
	UpdateProgress(ctx context.Context, courseID string, in domain.ProgressInput) error
}

// Notifier receives user-facing progress events.
type Notifier interface {
	Notify(n domain.Notification)
}

// Options carries the tracker's collaborators. Store and Remote are required;
// everything else has a working default.
type Options struct {
	Store           *CompletedStore
	Remote          RemoteSync
	Notifier        Notifier
	Logger          *zap.Logger
	Metrics         *telemetry.Metrics
	Tracer          trace.Tracer
	Clock           clock.Clock
	DebounceWindow  time.Duration // zero means DefaultDebounceWindow
	InitialProgress float64       // server-side percentage when the tracker opened
}

// Snapshot is a consistent copy of tracker state for presentation.
type Snapshot struct {
	CourseID         string   `json:"courseId"`
	Progress         float64  `json:"progress"`
	CompletedLessons []string `json:"completedLessons"`
	TotalLessons     int      `json:"totalLessons"`
	Loading          bool     `json:"loading"`
	LastError        string   `json:"lastError,omitempty"`
	SyncPending      bool     `json:"syncPending"`
}

// Tracker owns the completed-lesson state of one course for one learner. It
// de-duplicates playback events, persists completions locally as they happen
// and pushes the aggregate percentage to the LMS after a quiet window.
type Tracker struct {
	courseID string
	catalog  *domain.Catalog
	total    int
	initial  float64

	store    *CompletedStore
	remote   RemoteSync
	notifier Notifier
	log      *zap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	clock    clock.Clock
	debounce *Debouncer[float64]

	mu         sync.Mutex
	completed  map[string]struct{}
	evaluated  map[string]struct{}
	inflight   int
	lastErr    error
	celebrated bool
}

// NewTracker loads the locally persisted completions for courseID and returns
// a ready tracker. Completions are never fetched from the remote API.
func NewTracker(ctx context.Context, courseID string, catalog *domain.Catalog, opts Options) *Tracker {
	t := &Tracker{
		courseID:  courseID,
		catalog:   catalog,
		total:     domain.TotalLessons(catalog),
		initial:   opts.InitialProgress,
		store:     opts.Store,
		remote:    opts.Remote,
		notifier:  opts.Notifier,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		clock:     opts.Clock,
		evaluated: make(map[string]struct{}),
	}
	if t.notifier == nil {
		t.notifier = discard{}
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	t.log = t.log.With(zap.String("course.id", courseID))
	if t.metrics == nil {
		t.metrics = telemetry.NopMetrics()
	}
	if t.tracer == nil {
		t.tracer = noop.NewTracerProvider().Tracer("")
	}
	if t.clock == nil {
		t.clock = clock.Real()
	}
	window := opts.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	t.debounce = NewDebouncer(t.clock, window, func(p float64) {
		_ = t.sync(context.Background(), p)
	})

	t.completed = t.store.Load(ctx, courseID)
	t.log.Debug("tracker ready",
		zap.Int("lessons.completed", len(t.completed)),
		zap.Int("lessons.total", t.total),
		zap.Float64("progress.initial", t.initial),
	)
	return t
}

func (t *Tracker) CourseID() string { return t.courseID }

func (t *Tracker) Catalog() *domain.Catalog { return t.catalog }

// HandleVideoProgress is fed by the player on every time update. The first
// time a lesson reaches the watch threshold it is marked complete; every
// later event for that lesson is ignored. It reports whether this call
// completed the lesson.
func (t *Tracker) HandleVideoProgress(lessonID string, currentTime, duration float64) bool {
	if duration <= 0 {
		return false
	}
	t.mu.Lock()
	if _, seen := t.evaluated[lessonID]; seen {
		t.mu.Unlock()
		return false
	}
	if !domain.IsThresholdReached(currentTime, duration) {
		t.mu.Unlock()
		return false
	}
	t.evaluated[lessonID] = struct{}{}
	t.mu.Unlock()

	return t.MarkLessonComplete(lessonID)
}

// MarkLessonComplete records lessonID as completed, persists it, raises a
// lesson_completed notification and schedules a debounced remote write. It
// returns false without side effects when the lesson is already completed or
// not part of the catalog. It never waits on the network.
func (t *Tracker) MarkLessonComplete(lessonID string) bool {
	ctx := context.Background()

	t.mu.Lock()
	if _, done := t.completed[lessonID]; done {
		t.mu.Unlock()
		return false
	}
	ref, ok := domain.FindLesson(t.catalog, lessonID)
	if !ok {
		t.mu.Unlock()
		t.metrics.LookupMiss(ctx, t.courseID)
		t.log.Debug("lesson not in catalog", zap.String("lesson.id", lessonID))
		return false
	}
	t.completed[lessonID] = struct{}{}
	if !t.store.Save(ctx, t.courseID, lessonID) {
		// the stored list could not be read; the in-memory set is a superset of it
		t.store.SaveAll(ctx, t.courseID, domain.SortedIDs(t.completed))
	}
	pct := domain.CourseProgress(len(t.completed), t.total)
	t.debounce.Push(pct)
	t.mu.Unlock()

	t.log.Info("lesson completed",
		zap.String("lesson.id", lessonID),
		zap.String("module.id", ref.ModuleID),
		zap.Float64("progress", pct),
	)
	t.notifier.Notify(domain.Notification{
		Kind:       domain.NotifyLessonCompleted,
		CourseID:   t.courseID,
		LessonID:   lessonID,
		LessonName: ref.Lesson.Name,
		Progress:   pct,
		At:         t.clock.Now(),
	})
	return true
}

// SyncProgress sends the current percentage to the LMS immediately. A failed
// write leaves local state untouched and is not retried.
func (t *Tracker) SyncProgress(ctx context.Context) error {
	return t.sync(ctx, t.CourseProgress())
}

func (t *Tracker) sync(ctx context.Context, pct float64) error {
	ctx, span := t.tracer.Start(ctx, "progress.sync", trace.WithAttributes(
		attribute.String("course.id", t.courseID),
		attribute.Float64("progress", pct),
	))
	defer span.End()

	if t.remote == nil {
		t.log.Debug("no remote configured; skipping sync")
		return nil
	}

	t.mu.Lock()
	t.inflight++
	t.mu.Unlock()

	err := t.remote.UpdateProgress(ctx, t.courseID, domain.ProgressInput{Progress: pct})

	t.mu.Lock()
	t.inflight--
	if err != nil {
		t.lastErr = err
		t.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "update progress failed")
		t.metrics.SyncFailed(ctx, t.courseID)
		t.log.Warn("progress sync failed", zap.Float64("progress", pct), zap.Error(err))
		t.notifier.Notify(domain.Notification{
			Kind:     domain.NotifySyncFailed,
			CourseID: t.courseID,
			Progress: pct,
			Error:    err.Error(),
			At:       t.clock.Now(),
		})
		return err
	}
	t.lastErr = nil
	var kind domain.NotificationKind
	switch {
	case pct >= 100 && t.initial < 100 && !t.celebrated:
		t.celebrated = true
		kind = domain.NotifyCourseCompleted
	case pct > t.initial && pct < 100:
		kind = domain.NotifyProgressUpdated
	}
	t.mu.Unlock()

	t.metrics.SyncSucceeded(ctx, t.courseID)
	t.log.Debug("progress synced", zap.Float64("progress", pct))
	if kind != "" {
		t.notifier.Notify(domain.Notification{
			Kind:     kind,
			CourseID: t.courseID,
			Progress: pct,
			At:       t.clock.Now(),
		})
	}
	return nil
}

func (t *Tracker) IsLessonCompleted(lessonID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.completed[lessonID]
	return ok
}

// CourseProgress returns the completed percentage, one decimal.
func (t *Tracker) CourseProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.CourseProgress(len(t.completed), t.total)
}

// CompletedLessons returns the completed lesson IDs, sorted.
func (t *Tracker) CompletedLessons() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.SortedIDs(t.completed)
}

func (t *Tracker) TotalLessons() int { return t.total }

// Loading reports whether a remote write is in flight.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight > 0
}

// LastError returns the error of the most recent failed sync, cleared by the
// next successful one.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		CourseID:         t.courseID,
		Progress:         domain.CourseProgress(len(t.completed), t.total),
		CompletedLessons: domain.SortedIDs(t.completed),
		TotalLessons:     t.total,
		Loading:          t.inflight > 0,
		SyncPending:      t.debounce.Pending(),
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

// Flush sends a pending debounced write now.
func (t *Tracker) Flush() {
	t.debounce.Flush()
}

// Close flushes any pending write and stops the debouncer. Completions made
// after Close are still persisted locally but never synced.
func (t *Tracker) Close() {
	t.debounce.Flush()
	t.debounce.Stop()
}

type discard struct{}

func (discard) Notify(domain.Notification) {}
