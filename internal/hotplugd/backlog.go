package hotplugd

import (
	"container/list"
	"sync"

	"github.com/hotplugd/hotplugd/internal/netlink"
)

// backlogQueue is the FIFO overflow queue events are deferred into when
// the worker pool is saturated. It preserves insertion order. Capacity
// gates the main loop's read side (full() pauses netlink reads); the
// dispatcher's enqueue decision checks child_count, not backlog
// capacity.
type backlogQueue struct {
	mu  sync.Mutex
	cap int
	l   *list.List
}

func newBacklogQueue(capacity int) *backlogQueue {
	return &backlogQueue{cap: capacity, l: list.New()}
}

// enqueue appends event to the tail.
func (q *backlogQueue) enqueue(event *netlink.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.l.PushBack(event)
}

// dequeue removes and returns the head event, or nil if empty.
func (q *backlogQueue) dequeue() *netlink.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := q.l.Front()
	if front == nil {
		return nil
	}
	q.l.Remove(front)
	return front.Value.(*netlink.Event)
}

// count returns the number of queued events.
func (q *backlogQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}

// full reports whether the backlog has reached its configured capacity.
func (q *backlogQueue) full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len() >= q.cap
}

// empty reports whether the backlog has no queued events.
func (q *backlogQueue) empty() bool {
	return q.count() == 0
}
