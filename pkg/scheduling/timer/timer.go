package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a pending callback that can be released before it fires.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Scheduler is the time source used by delayed and windowed stream operators.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// AfterFunc runs f once d has elapsed. Callbacks may run on any goroutine.
	AfterFunc(d time.Duration, f func()) Timer
}

// System returns a Scheduler backed by the wall clock.
func System() Scheduler {
	return FromClock(clock.New())
}

// FromClock adapts a clock.Clock (real or mock) to a Scheduler.
func FromClock(c clock.Clock) Scheduler {
	return clockScheduler{clock: c}
}

type clockScheduler struct {
	clock clock.Clock
}

func (s clockScheduler) Now() time.Time {
	return s.clock.Now()
}

func (s clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return s.clock.AfterFunc(d, f)
}

// Virtual is a deterministic Scheduler. Time only moves when Advance is
// called, and due callbacks run in time order on the goroutine calling Advance.
// Callbacks with the same due time run in the order they were scheduled.
//
// Advance must not be called concurrently with itself.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers timerHeap
}

// NewVirtual creates a virtual scheduler starting at start. A zero start
// uses the Unix epoch so test output does not depend on the wall clock.
func NewVirtual(start time.Time) *Virtual {
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	return &Virtual{now: start}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// AfterFunc schedules f to run once virtual time reaches Now()+d.
func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	t := &virtualTimer{
		owner: v,
		at:    v.now.Add(d),
		seq:   v.seq,
		fn:    f,
	}
	v.seq++
	heap.Push(&v.timers, t)
	return t
}

// Advance moves virtual time forward by d, running every callback that falls
// due on the way, including callbacks scheduled by earlier callbacks.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	for {
		v.mu.Lock()
		if len(v.timers) == 0 || v.timers[0].at.After(target) {
			if target.After(v.now) {
				v.now = target
			}
			v.mu.Unlock()
			return
		}

		t := heap.Pop(&v.timers).(*virtualTimer)
		if t.at.After(v.now) {
			v.now = t.at
		}
		v.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.timers)
}

type virtualTimer struct {
	owner *Virtual
	at    time.Time
	seq   uint64
	fn    func()
	index int
}

func (t *virtualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&t.owner.timers, t.index)
	return true
}

// timerHeap orders timers by due time, then by scheduling order.
type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
