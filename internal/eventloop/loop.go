package eventloop

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	logx "pagefx/pkg/logx"
)

// DefaultFrameInterval is the nominal frame period at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Host is the narrow view of the loop that effects depend on.
type Host interface {
	Now() time.Time
	Post(fn func())
	SetTimeout(d time.Duration, fn func()) (cancel func())
	RequestFrame(fn func())
}

// Loop runs every callback on a single logical thread: queued tasks first,
// then due timers, then frame callbacks at frame boundaries.
//
// A virtual loop never sleeps; time only moves through Advance/RunUntilIdle.
// A real loop is driven by Run and the wall clock.
type Loop struct {
	mu  sync.Mutex
	log logx.Logger

	frameInterval time.Duration
	virtual       bool
	now           time.Time // virtual clock
	epoch         time.Time // frame grid origin

	tasks    []func()
	timers   timerHeap
	seq      uint64
	frames   []func()
	frameDue time.Time

	wake chan struct{}
}

type Option func(*Loop)

func WithLogger(log logx.Logger) Option {
	return func(l *Loop) { l.log = log }
}

func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.frameInterval = d
		}
	}
}

// New returns a wall-clock loop. Call Run to drive it.
func New(opts ...Option) *Loop {
	l := newLoop(opts...)
	l.epoch = time.Now()
	return l
}

// NewVirtual returns a loop with a manual clock starting at start.
func NewVirtual(start time.Time, opts ...Option) *Loop {
	l := newLoop(opts...)
	l.virtual = true
	l.now = start
	l.epoch = start
	return l
}

func newLoop(opts ...Option) *Loop {
	l := &Loop{
		frameInterval: DefaultFrameInterval,
		wake:          make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(l)
	}
	if l.log.IsZero() {
		l.log = logx.Nop()
	}
	return l
}

func (l *Loop) FrameInterval() time.Duration { return l.frameInterval }

func (l *Loop) Now() time.Time {
	if !l.virtual {
		return time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

func (l *Loop) nowLocked() time.Time {
	if l.virtual {
		return l.now
	}
	return time.Now()
}

// Post queues fn to run on the loop as soon as possible, after any task already queued.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// SetTimeout runs fn once after d. Negative delays are treated as zero.
// The returned cancel is safe to call at any time, including after fn ran.
func (l *Loop) SetTimeout(d time.Duration, fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &timer{due: l.nowLocked().Add(d), seq: l.seq, fn: fn}
	heapPush(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return func() {
		l.mu.Lock()
		t.cancelled = true
		l.mu.Unlock()
	}
}

// RequestFrame runs fn at the next frame boundary. Frames requested while a
// frame is being processed run on the following frame.
func (l *Loop) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if len(l.frames) == 0 {
		l.frameDue = l.nextFrameLocked(l.nowLocked())
	}
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) nextFrameLocked(t time.Time) time.Time {
	elapsed := t.Sub(l.epoch)
	if elapsed < 0 {
		return l.epoch
	}
	n := elapsed/l.frameInterval + 1
	return l.epoch.Add(n * l.frameInterval)
}

// Pending reports queued tasks, live timers and frame callbacks.
func (l *Loop) Pending() (tasks, timers, frames int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.timers {
		if !t.cancelled {
			timers++
		}
	}
	return len(l.tasks), timers, len(l.frames)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// nextDue returns the earliest time at which a timer or frame wants to run.
func (l *Loop) nextDueLocked() (time.Time, bool) {
	var due time.Time
	ok := false
	if t := l.timers.peek(); t != nil {
		due, ok = t.due, true
	}
	if len(l.frames) > 0 && (!ok || l.frameDue.Before(due)) {
		due, ok = l.frameDue, true
	}
	return due, ok
}

// runDue executes everything due at or before now and reports whether anything ran.
func (l *Loop) runDue(now time.Time) bool {
	ran := l.drainTasks()
	for {
		l.mu.Lock()
		t := l.timers.peek()
		if t == nil || t.due.After(now) {
			l.mu.Unlock()
			break
		}
		heapPop(&l.timers)
		l.mu.Unlock()
		l.safeCall("timer", t.fn)
		l.drainTasks()
		ran = true
	}

	l.mu.Lock()
	var frames []func()
	if len(l.frames) > 0 && !l.frameDue.After(now) {
		frames = l.frames
		l.frames = nil
	}
	l.mu.Unlock()
	for _, fn := range frames {
		l.safeCall("frame", fn)
		ran = true
	}
	if len(frames) > 0 {
		l.drainTasks()
	}
	return ran
}

func (l *Loop) drainTasks() bool {
	ran := false
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()
		l.safeCall("task", fn)
		ran = true
	}
}

func (l *Loop) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop callback panicked", logx.String("kind", kind), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}

// Advance moves the virtual clock forward by d, running every task, timer and
// frame that becomes due on the way, in time order.
func (l *Loop) Advance(d time.Duration) error {
	if !l.virtual {
		return fmt.Errorf("eventloop: Advance requires a virtual loop")
	}
	l.mu.Lock()
	target := l.now.Add(d)
	l.mu.Unlock()

	for {
		l.drainTasks()
		l.mu.Lock()
		due, ok := l.nextDueLocked()
		if !ok || due.After(target) {
			l.now = target
			l.mu.Unlock()
			l.drainTasks()
			return nil
		}
		if due.After(l.now) {
			l.now = due
		}
		now := l.now
		l.mu.Unlock()
		l.runDue(now)
	}
}

// RunUntilIdle advances the virtual clock until nothing is pending or limit
// of virtual time has elapsed. It reports whether the loop went idle.
func (l *Loop) RunUntilIdle(limit time.Duration) (bool, error) {
	if !l.virtual {
		return false, fmt.Errorf("eventloop: RunUntilIdle requires a virtual loop")
	}
	l.mu.Lock()
	deadline := l.now.Add(limit)
	l.mu.Unlock()

	for {
		l.drainTasks()
		l.mu.Lock()
		due, ok := l.nextDueLocked()
		if !ok && len(l.tasks) == 0 {
			l.mu.Unlock()
			return true, nil
		}
		if ok && due.After(deadline) {
			l.now = deadline
			l.mu.Unlock()
			return false, nil
		}
		if ok && due.After(l.now) {
			l.now = due
		}
		now := l.now
		l.mu.Unlock()
		l.runDue(now)
	}
}

// Run drives a wall-clock loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.virtual {
		return fmt.Errorf("eventloop: Run requires a wall-clock loop")
	}
	l.log.Debug("loop started", logx.Duration("frame_interval", l.frameInterval))
	defer l.log.Debug("loop stopped")

	var sleep *time.Timer
	defer func() {
		if sleep != nil {
			sleep.Stop()
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.runDue(time.Now())

		l.mu.Lock()
		due, ok := l.nextDueLocked()
		pendingTasks := len(l.tasks) > 0
		l.mu.Unlock()
		if pendingTasks {
			continue
		}

		var wait <-chan time.Time
		if ok {
			d := time.Until(due)
			if d < 0 {
				d = 0
			}
			if sleep == nil {
				sleep = time.NewTimer(d)
			} else {
				sleep.Reset(d)
			}
			wait = sleep.C
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
			if sleep != nil && !sleep.Stop() {
				select {
				case <-sleep.C:
				default:
				}
			}
		case <-wait:
		}
	}
}
