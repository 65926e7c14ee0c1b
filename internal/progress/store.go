package progress

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/telemetry"
	"go.uber.org/zap"
)

// StorageKey returns the persistence key for a course's completed lessons.
func StorageKey(courseID string) string {
	return "completedLessons_" + courseID
}

// CompletedStore persists completed lesson IDs per course as a JSON array.
// It never returns errors: failures are logged, counted and treated as an
// empty set or a skipped write.
type CompletedStore struct {
	kv      repository.KVStore
	log     *zap.Logger
	metrics *telemetry.Metrics
}

func NewCompletedStore(kv repository.KVStore, log *zap.Logger, metrics *telemetry.Metrics) *CompletedStore {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &CompletedStore{kv: kv, log: log, metrics: metrics}
}

// Load returns the completed set for courseID. Missing keys, unreadable
// values and backend errors all yield an empty set.
func (s *CompletedStore) Load(ctx context.Context, courseID string) map[string]struct{} {
	ids, _ := s.read(ctx, courseID, "load")
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Save appends lessonID to the stored list unless it is already present. A
// stored value that does not decode is replaced. When the backend read fails
// nothing is written and Save returns false.
func (s *CompletedStore) Save(ctx context.Context, courseID, lessonID string) bool {
	ids, state := s.read(ctx, courseID, "save")
	if state == readFailed {
		return false
	}
	for _, id := range ids {
		if id == lessonID {
			return true
		}
	}
	s.write(ctx, courseID, append(ids, lessonID))
	return true
}

// SaveAll replaces the stored list for courseID with ids.
func (s *CompletedStore) SaveAll(ctx context.Context, courseID string, ids []string) {
	s.write(ctx, courseID, ids)
}

func (s *CompletedStore) write(ctx context.Context, courseID string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		s.fail(ctx, courseID, "save", err)
		return
	}
	if err := s.kv.Set(ctx, StorageKey(courseID), string(raw)); err != nil {
		s.fail(ctx, courseID, "save", err)
	}
}

// Clear removes the stored list for courseID.
func (s *CompletedStore) Clear(ctx context.Context, courseID string) {
	if err := s.kv.Delete(ctx, StorageKey(courseID)); err != nil {
		s.fail(ctx, courseID, "clear", err)
	}
}

type readState int

const (
	readOK readState = iota
	readCorrupt
	readFailed
)

// read returns the stored IDs in order. A missing key is readOK with no IDs.
func (s *CompletedStore) read(ctx context.Context, courseID, op string) ([]string, readState) {
	raw, err := s.kv.Get(ctx, StorageKey(courseID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, readOK
		}
		s.fail(ctx, courseID, op, err)
		return nil, readFailed
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.fail(ctx, courseID, op, err)
		return nil, readCorrupt
	}
	return ids, readOK
}

func (s *CompletedStore) fail(ctx context.Context, courseID, op string, err error) {
	s.metrics.StorageError(ctx, courseID, op)
	s.log.Warn("completed lessons storage failed",
		zap.String("course.id", courseID),
		zap.String("op", op),
		zap.Error(err),
	)
}
