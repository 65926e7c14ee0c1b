package cli

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/alexanderramin/coursetrack/internal/cli/formatter"
	"github.com/alexanderramin/coursetrack/internal/domain"
)

// Console prints notifications to a terminal stream. It can be muted while
// a full-screen view owns the terminal.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	muted atomic.Bool
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(n domain.Notification) {
	if c.muted.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, formatter.FormatNotification(n))
}

// Mute suppresses output until the returned function is called.
func (c *Console) Mute() (unmute func()) {
	c.muted.Store(true)
	return func() { c.muted.Store(false) }
}
