package tempora

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled callback. The zero value is never issued.
type TimerID uint64

// Scheduler is a tick-driven timer queue.
// Nothing fires on its own: callbacks run inside Advance,
// on the first tick whose time reaches their due time.
// It is not safe for concurrent use; the engine lock guards it.
type Scheduler struct {
	queue    timerQueue
	byID     map[TimerID]*timer
	nextID   TimerID
	disposed bool
}

type timer struct {
	id    TimerID
	due   time.Time
	fn    func(now time.Time)
	index int
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		byID: make(map[TimerID]*timer),
	}
}

// At schedules fn for the first Advance at or after due.
// After Dispose it returns 0 and never runs fn.
func (s *Scheduler) At(due time.Time, fn func(now time.Time)) TimerID {
	if s.disposed || fn == nil {
		return 0
	}
	s.nextID++
	t := &timer{id: s.nextID, due: due, fn: fn}
	heap.Push(&s.queue, t)
	s.byID[t.id] = t
	return t.id
}

// Cancel removes a pending callback, reporting whether it was still pending
func (s *Scheduler) Cancel(id TimerID) bool {
	t, ok := s.byID[id]
	if !ok {
		return false
	}
	// popped timers waiting in Advance's deferred list carry index -1
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	delete(s.byID, id)
	return true
}

// Pending reports whether id is still waiting to fire
func (s *Scheduler) Pending(id TimerID) bool {
	_, ok := s.byID[id]
	return ok
}

// Len is the number of pending callbacks
func (s *Scheduler) Len() int {
	return len(s.byID)
}

// Advance runs every callback due at or before now, earliest first.
// Callbacks scheduled while advancing wait for the next Advance
// even when already due, so a callback cannot starve the tick.
func (s *Scheduler) Advance(now time.Time) int {
	fired := 0
	limit := s.nextID
	var deferred []*timer
	for len(s.queue) > 0 && !s.disposed {
		next := s.queue[0]
		if next.due.After(now) {
			break
		}
		heap.Pop(&s.queue)
		if next.id > limit {
			deferred = append(deferred, next)
			continue
		}
		delete(s.byID, next.id)
		next.fn(now)
		fired++
	}
	if s.disposed {
		return fired
	}
	for _, t := range deferred {
		// a callback may have cancelled it in the meantime
		if _, ok := s.byID[t.id]; ok {
			heap.Push(&s.queue, t)
		}
	}
	return fired
}

// Dispose cancels everything and refuses new callbacks
func (s *Scheduler) Dispose() {
	s.disposed = true
	s.queue = nil
	s.byID = make(map[TimerID]*timer)
}

// timerQueue orders by due time, then by scheduling order
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].id < q[j].id
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
