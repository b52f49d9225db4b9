package page

import (
	"sync"
	"time"
)

type task struct {
	fn  func()
	due time.Duration
	seq uint64
}

// EventLoop is a single-threaded task queue driven by a virtual clock.
// Tasks may be queued from any goroutine; they run only inside RunOnce/Drain.
type EventLoop struct {
	tasks []task
	seq   uint64
	clock time.Duration
	mu    sync.Mutex
}

// NewEventLoop creates an empty loop at virtual time zero.
func NewEventLoop() *EventLoop {
	return &EventLoop{}
}

// SetTimeout queues fn to run once the virtual clock reaches now+delay.
// Tasks with equal due times run in queue order.
func (l *EventLoop) SetTimeout(fn func(), delay time.Duration) {
	if fn == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}
	l.mu.Lock()
	l.seq++
	l.tasks = append(l.tasks, task{fn: fn, due: l.clock + delay, seq: l.seq})
	l.mu.Unlock()
}

// Post queues fn to run as soon as possible.
func (l *EventLoop) Post(fn func()) {
	l.SetTimeout(fn, 0)
}

// Pending returns the number of queued tasks.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Now returns the virtual clock.
func (l *EventLoop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock
}

// RunOnce runs the earliest task, advancing the clock to its due time.
// It reports false when the queue is empty.
func (l *EventLoop) RunOnce() bool {
	l.mu.Lock()
	if len(l.tasks) == 0 {
		l.mu.Unlock()
		return false
	}
	next := 0
	for i := 1; i < len(l.tasks); i++ {
		t := l.tasks[i]
		if t.due < l.tasks[next].due || (t.due == l.tasks[next].due && t.seq < l.tasks[next].seq) {
			next = i
		}
	}
	t := l.tasks[next]
	l.tasks = append(l.tasks[:next], l.tasks[next+1:]...)
	if t.due > l.clock {
		l.clock = t.due
	}
	l.mu.Unlock()

	t.fn()
	return true
}

// Drain runs tasks until the queue is empty, including tasks queued by the
// tasks it runs. It returns the number of tasks run.
func (l *EventLoop) Drain() int {
	n := 0
	for l.RunOnce() {
		n++
	}
	return n
}
