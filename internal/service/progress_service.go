package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/catalog"
	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/progress"
	"github.com/alexanderramin/coursetrack/internal/telemetry"
)

// EnrollmentReader fetches the server-side enrollment of the signed-in
// learner.
type EnrollmentReader interface {
	GetEnrollment(ctx context.Context, courseID string) (*domain.Enrollment, error)
}

// ProgressDeps wires a ProgressService. Catalogs and Store are required.
type ProgressDeps struct {
	Catalogs       catalog.Source
	Enrollments    EnrollmentReader
	Store          *progress.CompletedStore
	Remote         progress.RemoteSync
	Notifier       progress.Notifier
	Logger         *zap.Logger
	Metrics        *telemetry.Metrics
	Tracer         trace.Tracer
	Clock          clock.Clock
	DebounceWindow time.Duration
}

// ModuleStatus is the per-module completion count.
type ModuleStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Progress  float64 `json:"progress"`
}

// CourseStatus is the full progress picture of one course.
type CourseStatus struct {
	progress.Snapshot
	Title            string                  `json:"title,omitempty"`
	ModuleWeighted   float64                 `json:"moduleWeightedProgress"`
	Modules          []ModuleStatus          `json:"modules"`
	Validation       domain.CompletionReport `json:"validation"`
	DuplicateLessons []string                `json:"duplicateLessons,omitempty"`
}

// ProgressService hands out one tracker per course and keeps it for the
// life of the process.
type ProgressService struct {
	deps     ProgressDeps
	log      *zap.Logger
	observer UseCaseObserver

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

func NewProgressService(deps ProgressDeps, observers ...UseCaseObserver) *ProgressService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressService{
		deps:     deps,
		log:      log,
		observer: useCaseObserverOrNoop(observers),
		trackers: make(map[string]*progress.Tracker),
	}
}

// Open returns the tracker for courseID, creating it on first use.
func (s *ProgressService) Open(ctx context.Context, courseID string) (*progress.Tracker, error) {
	var t *progress.Tracker
	err := observe(ctx, s.observer, "progress.open", map[string]any{"course_id": courseID}, func() error {
		var err error
		t, err = s.open(ctx, courseID)
		return err
	})
	return t, err
}

func (s *ProgressService) open(ctx context.Context, courseID string) (*progress.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.trackers[courseID]; ok {
		return t, nil
	}

	cat, err := s.deps.Catalogs.Load(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if dups := domain.DuplicateLessonIDs(cat); len(dups) > 0 {
		s.log.Warn("catalog repeats lesson ids",
			zap.String("course.id", courseID),
			zap.Strings("lesson.ids", dups),
		)
	}

	t := progress.NewTracker(ctx, courseID, cat, progress.Options{
		Store:           s.deps.Store,
		Remote:          s.deps.Remote,
		Notifier:        s.deps.Notifier,
		Logger:          s.deps.Logger,
		Metrics:         s.deps.Metrics,
		Tracer:          s.deps.Tracer,
		Clock:           s.deps.Clock,
		DebounceWindow:  s.deps.DebounceWindow,
		InitialProgress: s.initialProgress(ctx, courseID),
	})
	s.trackers[courseID] = t
	return t, nil
}

// initialProgress reads the server-side percentage used to decide which
// notifications a sync earns. It never fails the open.
func (s *ProgressService) initialProgress(ctx context.Context, courseID string) float64 {
	if s.deps.Enrollments == nil {
		return 0
	}
	e, err := s.deps.Enrollments.GetEnrollment(ctx, courseID)
	if err != nil {
		s.log.Warn("reading enrollment, assuming no prior progress",
			zap.String("course.id", courseID),
			zap.Error(err),
		)
		return 0
	}
	return e.Progress
}

// RecordPlayback forwards a player time update to the course tracker.
func (s *ProgressService) RecordPlayback(ctx context.Context, courseID, lessonID string, currentTime, duration float64) (bool, progress.Snapshot, error) {
	t, err := s.Open(ctx, courseID)
	if err != nil {
		return false, progress.Snapshot{}, err
	}
	done := t.HandleVideoProgress(lessonID, currentTime, duration)
	return done, t.Snapshot(), nil
}

// CompleteLesson marks a lesson complete directly.
func (s *ProgressService) CompleteLesson(ctx context.Context, courseID, lessonID string) (bool, progress.Snapshot, error) {
	var added bool
	var snap progress.Snapshot
	err := observe(ctx, s.observer, "progress.complete_lesson", map[string]any{"course_id": courseID, "lesson_id": lessonID}, func() error {
		t, err := s.open(ctx, courseID)
		if err != nil {
			return err
		}
		added = t.MarkLessonComplete(lessonID)
		snap = t.Snapshot()
		return nil
	})
	return added, snap, err
}

// Sync pushes the current percentage to the LMS immediately.
func (s *ProgressService) Sync(ctx context.Context, courseID string) error {
	return observe(ctx, s.observer, "progress.sync", map[string]any{"course_id": courseID}, func() error {
		t, err := s.open(ctx, courseID)
		if err != nil {
			return err
		}
		return t.SyncProgress(ctx)
	})
}

// Status reports the tracker snapshot together with the module-weighted
// view and a validation of the stored completions against the catalog.
func (s *ProgressService) Status(ctx context.Context, courseID string) (*CourseStatus, error) {
	t, err := s.Open(ctx, courseID)
	if err != nil {
		return nil, err
	}
	snap := t.Snapshot()
	cat := t.Catalog()

	set := make(map[string]struct{}, len(snap.CompletedLessons))
	for _, id := range snap.CompletedLessons {
		set[id] = struct{}{}
	}

	st := &CourseStatus{
		Snapshot:         snap,
		ModuleWeighted:   domain.ModuleWeightedProgress(cat, set),
		Validation:       domain.ValidateCompletions(cat, snap.CompletedLessons),
		DuplicateLessons: domain.DuplicateLessonIDs(cat),
	}
	if cat != nil {
		st.Title = cat.Title
		for _, m := range cat.Modules {
			if m == nil {
				continue
			}
			ms := ModuleStatus{ID: m.ID, Name: m.Name, Total: len(m.Lessons)}
			for _, l := range m.Lessons {
				if _, ok := set[l.ID]; ok {
					ms.Completed++
				}
			}
			ms.Progress = domain.CourseProgress(ms.Completed, ms.Total)
			st.Modules = append(st.Modules, ms)
		}
	}
	return st, nil
}

// Reset clears the locally stored completions of a course. A pending sync
// for the course is delivered first. The server-side percentage is left
// untouched.
func (s *ProgressService) Reset(ctx context.Context, courseID string) error {
	return observe(ctx, s.observer, "progress.reset", map[string]any{"course_id": courseID}, func() error {
		s.mu.Lock()
		t, ok := s.trackers[courseID]
		delete(s.trackers, courseID)
		s.mu.Unlock()

		if ok {
			t.Close()
		}
		s.deps.Store.Clear(ctx, courseID)
		return nil
	})
}

// OpenCourses lists the course IDs with a live tracker.
func (s *ProgressService) OpenCourses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.trackers))
	for id := range s.trackers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close flushes and stops every tracker.
func (s *ProgressService) Close() {
	s.mu.Lock()
	trackers := s.trackers
	s.trackers = make(map[string]*progress.Tracker)
	s.mu.Unlock()

	for _, t := range trackers {
		t.Close()
	}
}
