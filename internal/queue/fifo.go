package queue

import (
	"github.com/notifyhub/cogbot/internal/domain"
)

// FIFO is a bounded first-in-first-out list of tracks for one context.
//
// FIFO is not safe for concurrent use; the owning session serializes access
// under its own mutex so that push, pop and clear on one context never
// interleave.
type FIFO struct {
	items    []domain.Track
	capacity int
}

// New returns an empty FIFO holding at most capacity tracks.
// A non-positive capacity means unbounded.
func New(capacity int) *FIFO {
	return &FIFO{capacity: capacity}
}

// Push appends t at the tail and returns its 1-based position.
// It returns ErrQueueFull instead of growing past capacity.
func (q *FIFO) Push(t domain.Track) (int, error) {
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return 0, domain.ErrQueueFull
	}
	q.items = append(q.items, t)
	return len(q.items), nil
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *FIFO) Pop() (t domain.Track, ok bool) {
	if len(q.items) == 0 {
		return domain.Track{}, false
	}
	t = q.items[0]
	q.items[0] = domain.Track{}
	q.items = q.items[1:]
	return t, true
}

// Clear discards every queued track and returns how many were dropped.
func (q *FIFO) Clear() int {
	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of queued tracks.
func (q *FIFO) Len() int {
	return len(q.items)
}

// Peek returns a copy of up to n tracks from the head; n <= 0 returns all.
func (q *FIFO) Peek(n int) []domain.Track {
	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	out := make([]domain.Track, n)
	copy(out, q.items[:n])
	return out
}
