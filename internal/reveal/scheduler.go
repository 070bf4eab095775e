package reveal

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pagefx/internal/eventbus"
	"pagefx/internal/eventloop"
	"pagefx/internal/viewport"
	logx "pagefx/pkg/logx"
)

// Scheduler fires a one-shot effect for each registered element the first
// time the element is reported visible, then stops watching it.
//
// The registry is owned by the scheduler: an element's triggered flag flips
// under the scheduler lock, so an element fires at most once even when
// duplicate or concurrent visibility batches arrive.
type Scheduler struct {
	mu sync.Mutex

	name string
	log  logx.Logger
	bus  eventbus.Bus
	host eventloop.Host

	observer viewport.Observer // nil when the platform cannot observe
	registry map[viewport.ElementID]*watchState
	closed   bool

	staggerUnit   time.Duration
	staggerMode   StaggerMode
	frameInterval time.Duration

	triggered uint64
	ignored   uint64

	ignoredLog rate.Sometimes
}

// New creates a scheduler on top of platform. A nil platform, or one that
// reports viewport.ErrUnavailable, yields a scheduler where every
// registration is a no-op.
func New(platform viewport.Platform, host eventloop.Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:          host,
		registry:      map[viewport.ElementID]*watchState{},
		staggerUnit:   DefaultStaggerUnit,
		frameInterval: DefaultFrameInterval,
		ignoredLog:    rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}

	if platform == nil {
		s.log.Info("visibility observation unavailable; effects disabled")
		return s
	}
	obs, err := platform.NewObserver(s.deliver)
	if err != nil {
		if errors.Is(err, viewport.ErrUnavailable) {
			s.log.Info("visibility observation unavailable; effects disabled")
		} else {
			s.log.Warn("observer init failed; effects disabled", logx.Err(err))
		}
		return s
	}
	s.observer = obs
	s.log.Debug("scheduler ready",
		logx.Duration("stagger_unit", s.staggerUnit),
		logx.String("stagger_mode", s.staggerMode.String()),
		logx.Duration("frame_interval", s.frameInterval))
	return s
}

// Enabled reports whether the platform can observe visibility.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer != nil
}

// Len returns the number of elements still being watched.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Enabled:   s.observer != nil,
		Closed:    s.closed,
		Watching:  len(s.registry),
		Triggered: s.triggered,
		Ignored:   s.ignored,
	}
}

// Register adds id to the watch set. Registering an id that is already
// watched, registering after UnregisterAll, or registering without an
// observation capability is a silent no-op. The only error is an invalid threshold.
func (s *Scheduler) Register(id viewport.ElementID, opts viewport.Options, fn TriggerFunc) error {
	_, err := s.register(id, opts, "custom", fn)
	return err
}

func (s *Scheduler) register(id viewport.ElementID, opts viewport.Options, kind string, fn TriggerFunc) (bool, error) {
	if err := validateThreshold(opts.Threshold); err != nil {
		return false, fmt.Errorf("register %s: %w", id, err)
	}
	if fn == nil {
		fn = func(Trigger) {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observer == nil || s.closed {
		return false, nil
	}
	if _, ok := s.registry[id]; ok {
		s.log.Debug("duplicate registration ignored", logx.String("id", string(id)))
		return false, nil
	}
	s.registry[id] = &watchState{id: id, opts: opts, kind: kind, onTrigger: fn}
	s.observer.Observe(id, opts)
	s.log.Trace("element registered",
		logx.String("id", string(id)),
		logx.String("kind", kind),
		logx.Float64("threshold", opts.Threshold),
		logx.String("root_margin", opts.RootMargin.String()))
	return true, nil
}

// RegisterReveal watches a reveal element. The element is put in its hidden
// state only when observation is available; on trigger its reveal is
// delayed by Index*StaggerUnit from batch dispatch.
func (s *Scheduler) RegisterReveal(id viewport.ElementID, opts viewport.Options, styler Styler) error {
	added, err := s.register(id, opts, "reveal", func(t Trigger) {
		delay := t.BatchTime.Add(time.Duration(t.Index) * s.staggerUnit).Sub(s.host.Now())
		s.host.SetTimeout(delay, func() {
			styler.Reveal(t.ID)
			s.publish(eventbus.TopicShown, t.ID, t.Index)
		})
	})
	if err != nil {
		return err
	}
	if added {
		styler.Prepare(id)
	}
	return nil
}

// RegisterCounter watches a counter element. Invalid targets fail fast even
// when observation is unavailable.
func (s *Scheduler) RegisterCounter(id viewport.ElementID, opts viewport.Options, cc CounterConfig, text TextRenderer) error {
	if _, err := NewRamp(cc.Target, cc.Duration, s.frameInterval, nil); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	_, err := s.register(id, opts, "counter", func(t Trigger) {
		s.startRamp(t.ID, cc, text)
	})
	return err
}

// RegisterImage watches a lazy image and loads src on trigger.
func (s *Scheduler) RegisterImage(id viewport.ElementID, opts viewport.Options, src string, loader ImageLoader) error {
	_, err := s.register(id, opts, "image", func(t Trigger) {
		if src == "" {
			return
		}
		loader.Load(t.ID, src)
		s.publish(eventbus.TopicImageLoaded, t.ID, src)
	})
	return err
}

// startRamp runs a counter ramp as a chain of frame callbacks. The chain only
// checks its own termination; teardown does not interrupt it.
func (s *Scheduler) startRamp(id viewport.ElementID, cc CounterConfig, text TextRenderer) {
	ramp, err := NewRamp(cc.Target, cc.Duration, s.frameInterval, func(v int) {
		text.SetValue(id, v)
		s.publish(eventbus.TopicCounterTick, id, v)
	})
	if err != nil {
		// Validated at registration.
		s.log.Error("counter ramp rejected", logx.String("id", string(id)), logx.Err(err))
		return
	}
	finish := func() {
		s.log.Debug("counter done", logx.String("id", string(id)), logx.Int("value", ramp.Value()), logx.Int("ticks", ramp.Ticks()))
		s.publish(eventbus.TopicCounterDone, id, ramp.Value())
	}
	if !ramp.Start() {
		finish()
		return
	}
	var step func()
	step = func() {
		if ramp.Tick() {
			s.host.RequestFrame(step)
			return
		}
		finish()
	}
	s.host.RequestFrame(step)
}

// UnregisterAll releases the observer and forgets every watched element.
// It is idempotent. Batches arriving afterwards are ignored.
func (s *Scheduler) UnregisterAll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	obs := s.observer
	remaining := len(s.registry)
	s.registry = map[viewport.ElementID]*watchState{}
	triggered := s.triggered
	s.mu.Unlock()

	if obs != nil {
		obs.Disconnect()
	}
	s.log.Debug("scheduler torn down", logx.Int("remaining", remaining), logx.Uint64("triggered", triggered))
	s.publish(eventbus.TopicTeardown, viewport.ElementID(s.name), remaining)
}

type dispatch struct {
	w    *watchState
	trig Trigger
}

// deliver is the observer callback. For every visible entry whose element
// is still watched it flips triggered, removes the element, and fires its
// effect; effects run after the lock is released, in batch order.
func (s *Scheduler) deliver(batch []viewport.Entry) {
	now := s.host.Now()

	s.mu.Lock()
	if s.closed {
		late := 0
		for _, e := range batch {
			if e.Visible {
				late++
			}
		}
		s.ignored += uint64(late)
		s.mu.Unlock()
		if late > 0 {
			s.ignoredLog.Do(func() {
				s.log.Debug("visibility batch after teardown ignored", logx.Int("visible", late))
			})
		}
		return
	}

	out := make([]dispatch, 0, len(batch))
	dup := 0
	for i, e := range batch {
		if !e.Visible {
			continue
		}
		w, ok := s.registry[e.Target]
		if !ok || w.triggered {
			dup++
			continue
		}
		w.triggered = true
		delete(s.registry, e.Target)
		s.observer.Unobserve(e.Target)

		idx := i
		if s.staggerMode == StaggerTriggerOrder {
			idx = len(out)
		}
		out = append(out, dispatch{w: w, trig: Trigger{ID: e.Target, Index: idx, BatchTime: now, Entry: e}})
	}
	s.triggered += uint64(len(out))
	s.ignored += uint64(dup)
	s.mu.Unlock()

	if dup > 0 {
		s.ignoredLog.Do(func() {
			s.log.Debug("visibility for unwatched elements ignored", logx.Int("count", dup))
		})
	}

	for _, d := range out {
		s.log.Debug("element triggered",
			logx.String("id", string(d.trig.ID)),
			logx.String("kind", d.w.kind),
			logx.Int("index", d.trig.Index),
			logx.Float64("ratio", d.trig.Entry.Ratio))
		s.publish(eventbus.TopicTriggered, d.trig.ID, d.trig.Index)
		s.fire(d)
	}
}

func (s *Scheduler) fire(d dispatch) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("trigger panicked", logx.String("id", string(d.trig.ID)), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	d.w.onTrigger(d.trig)
}

func (s *Scheduler) publish(topic string, id viewport.ElementID, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: topic, Time: s.host.Now(), Element: string(id), Data: data})
}

func validateThreshold(th float64) error {
	if math.IsNaN(th) || th < 0 || th > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, th)
	}
	return nil
}
