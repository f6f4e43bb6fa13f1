// Package scheduler runs time-keyed callbacks from an owning tick loop.
// Nothing fires on its own: the owner calls RunDue with the current time.
package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Handle identifies a scheduled callback and allows cancelling it
type Handle struct {
	id        uint64
	cancelled bool
	s         *Scheduler
}

// Cancel stops the callback from firing again. Safe to call more than once or on nil.
func (h *Handle) Cancel() {
	if h == nil || h.s == nil {
		return
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.cancelled = true
}

// Active reports whether the handle can still fire
func (h *Handle) Active() bool {
	if h == nil || h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return !h.cancelled
}

type entry struct {
	at       time.Time
	interval time.Duration // zero for one-shot
	seq      uint64
	fn       func(now time.Time)
	handle   *Handle
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is a priority queue of callbacks keyed by next fire time
type Scheduler struct {
	mu     sync.Mutex
	queue  entryHeap
	nextID uint64
	seq    uint64
}

// New creates an empty scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// After schedules fn to run once at start+delay
func (s *Scheduler) After(start time.Time, delay time.Duration, fn func(now time.Time)) *Handle {
	return s.schedule(start.Add(delay), 0, fn)
}

// Every schedules fn to run at start+interval and every interval after that.
// A non-positive interval returns an already-cancelled handle.
func (s *Scheduler) Every(start time.Time, interval time.Duration, fn func(now time.Time)) *Handle {
	if interval <= 0 {
		return &Handle{s: s, cancelled: true}
	}
	return s.schedule(start.Add(interval), interval, fn)
}

func (s *Scheduler) schedule(at time.Time, interval time.Duration, fn func(now time.Time)) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := &Handle{id: s.nextID, s: s}
	s.push(&entry{at: at, interval: interval, fn: fn, handle: h})
	return h
}

func (s *Scheduler) push(e *entry) {
	s.seq++
	e.seq = s.seq
	heap.Push(&s.queue, e)
}

// RunDue fires every callback whose time is at or before now, in time order.
// Repeating callbacks that fell behind fire once per missed interval.
// Callbacks run without the scheduler lock held and may schedule or cancel.
func (s *Scheduler) RunDue(now time.Time) int {
	fired := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].at.After(now) {
			s.mu.Unlock()
			return fired
		}
		e := heap.Pop(&s.queue).(*entry)
		if e.handle.cancelled {
			s.mu.Unlock()
			continue
		}
		if e.interval > 0 {
			next := *e
			next.at = e.at.Add(e.interval)
			s.push(&next)
		} else {
			e.handle.cancelled = true
		}
		s.mu.Unlock()

		e.fn(e.at)
		fired++
	}
}

// Len returns the number of live entries
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.queue {
		if !e.handle.cancelled {
			n++
		}
	}
	return n
}
