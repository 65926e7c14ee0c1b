package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

// ProgressCall is one UpdateProgress invocation seen by FakeRemote.
type ProgressCall struct {
	CourseID string
	Progress float64
}

// FakeRemote records progress writes. Err, when set, is returned by every
// call until cleared.
type FakeRemote struct {
	mu    sync.Mutex
	calls []ProgressCall
	Err   error
}

func (f *FakeRemote) UpdateProgress(_ context.Context, courseID string, in domain.ProgressInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ProgressCall{CourseID: courseID, Progress: in.Progress})
	return f.Err
}

func (f *FakeRemote) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

func (f *FakeRemote) Calls() []ProgressCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ProgressCall(nil), f.calls...)
}

// Recorder collects notifications in arrival order.
type Recorder struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *Recorder) Notify(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.got...)
}

// Kinds returns the kinds received so far, in order.
func (r *Recorder) Kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationKind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

// Count returns how many notifications of kind were received.
func (r *Recorder) Count(kind domain.NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.got {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

// ErrStorageDown is returned by BrokenKV.
var ErrStorageDown = errors.New("storage unavailable")

// BrokenKV is a key-value store whose every operation fails.
type BrokenKV struct{}

func (BrokenKV) Get(context.Context, string) (string, error) { return "", ErrStorageDown }
func (BrokenKV) Set(context.Context, string, string) error { return ErrStorageDown }
func (BrokenKV) Delete(context.Context, string) error { return ErrStorageDown }
func (BrokenKV) Ping(context.Context) error { return ErrStorageDown }

// CountingKV wraps a store and counts writes. FailNextGets makes the next
// reads fail with ErrStorageDown.
type CountingKV struct {
	Inner interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		Delete(ctx context.Context, key string) error
		Ping(ctx context.Context) error
	}
	mu       sync.Mutex
	sets     int
	failGets int
}

func (c *CountingKV) FailNextGets(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failGets = n
}

func (c *CountingKV) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	if c.failGets > 0 {
		c.failGets--
		c.mu.Unlock()
		return "", ErrStorageDown
	}
	c.mu.Unlock()
	return c.Inner.Get(ctx, key)
}

func (c *CountingKV) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Inner.Set(ctx, key, value)
}

func (c *CountingKV) Delete(ctx context.Context, key string) error {
	return c.Inner.Delete(ctx, key)
}

func (c *CountingKV) Ping(ctx context.Context) error { return c.Inner.Ping(ctx) }

func (c *CountingKV) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
