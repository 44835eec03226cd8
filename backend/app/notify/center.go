package notify

import (
	"sync"
	"time"
)

// MaxEntries bounds the notification log; oldest entries fall off.
const MaxEntries = 30

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Entry is one logged notification, immutable once recorded.
type Entry struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Center keeps a capacity-bounded, most-recent-first notification log
// with an unread counter. The panel has two states: closed (unread
// accumulates) and open (unread pinned at zero).
type Center struct {
	mu      sync.Mutex
	entries []Entry
	unread  int
	open    bool

	// dismiss is invoked when the panel opens so live transient toasts
	// do not compete with the history view.
	dismiss func()
}

func NewCenter(dismiss func()) *Center {
	return &Center{dismiss: dismiss}
}

// Record prepends an entry and trims to MaxEntries. Unread only grows
// while the panel is closed.
func (c *Center) Record(kind Kind, message, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := Entry{Kind: kind, Message: message, Detail: detail, Timestamp: time.Now()}
	c.entries = append([]Entry{e}, c.entries...)
	if len(c.entries) > MaxEntries {
		c.entries = c.entries[:MaxEntries]
	}
	if !c.open {
		c.unread++
	}
}

// Open shows the panel, zeroes unread and dismisses live toasts.
func (c *Center) Open() {
	c.mu.Lock()
	wasOpen := c.open
	c.open = true
	c.unread = 0
	dismiss := c.dismiss
	c.mu.Unlock()
	if !wasOpen && dismiss != nil {
		dismiss()
	}
}

// Close hides the panel; unread starts accumulating again.
func (c *Center) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// Toggle flips the panel state.
func (c *Center) Toggle() {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if open {
		c.Close()
	} else {
		c.Open()
	}
}

// Clear empties the log and resets unread.
func (c *Center) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.unread = 0
	c.mu.Unlock()
}

// Entries returns a copy of the log, most recent first.
func (c *Center) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

func (c *Center) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

func (c *Center) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
