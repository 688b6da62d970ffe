package audit

import (
	"sync"
	"time"
)

// Entry is one moderation action as seen on the event bus.
type Entry struct {
	Event    string    `json:"event"`
	RoomCode string    `json:"room_code"`
	Subject  string    `json:"subject,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Trail keeps the most recent entries up to a fixed capacity.
type Trail struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	total   int
}

// NewTrail creates a trail holding at most capacity entries.
func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = 200
	}
	return &Trail{entries: make([]Entry, capacity)}
}

// Add records an entry, evicting the oldest when full.
func (t *Trail) Add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[t.next] = e
	t.next = (t.next + 1) % len(t.entries)
	if t.next == 0 {
		t.full = true
	}
	t.total++
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (t *Trail) Recent(limit int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.next
	if t.full {
		n = len(t.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (t.next - 1 - i + len(t.entries)) % len(t.entries)
		out = append(out, t.entries[idx])
	}
	return out
}

// Total returns how many entries were ever recorded.
func (t *Trail) Total() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}
