package notify

import (
	"sync"
	"sync/atomic"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 32

// Hub broadcasts notifications to any number of subscribers. A subscriber
// whose buffer is full misses the notification; publishers never block.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	buffer  int
	dropped atomic.Int64
	closed  bool
}

type subscription struct {
	ch       chan domain.Notification
	courseID string
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[uint64]*subscription), buffer: buffer}
}

// Subscribe returns a channel of notifications for courseID, or for every
// course when courseID is empty. Cancel unsubscribes and closes the channel.
func (h *Hub) Subscribe(courseID string) (<-chan domain.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Notification, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscription{ch: ch, courseID: courseID}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(s.ch)
			}
		})
	}
}

func (h *Hub) Notify(n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.courseID != "" && s.courseID != n.CourseID {
			continue
		}
		select {
		case s.ch <- n:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}
