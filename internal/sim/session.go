package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"pagefx/internal/config"
	"pagefx/internal/eventbus"
	"pagefx/internal/eventloop"
	"pagefx/internal/page"
	"pagefx/internal/render"
	"pagefx/internal/reveal"
	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
	logx "pagefx/pkg/logx"
)

// DefaultNavHeight is used for anchor offsets when the navbar has no
// configured box.
const DefaultNavHeight = 70.0

// idlePoll is how often a real-time session checks whether the loop drained.
const idlePoll = 50 * time.Millisecond

var ErrNoDocument = errors.New("sim: no document")

type Options struct {
	Settings *config.Settings
	Document *page.Document
	Logger   logx.Logger

	// Sink receives every effect. Nil records into a Recorder.
	Sink render.Sink
	// Terminal, when set, also draws counter ramps.
	Terminal *render.Terminal

	// Realtime drives the session with the wall clock.
	Realtime bool
	// Start is the virtual clock origin. Zero means now.
	Start time.Time
}

// Session is one simulated visit of a page: a viewport scrolled and
// resized by a script while the scheduler and widgets react.
type Session struct {
	set *config.Settings
	doc *page.Document
	log logx.Logger

	loop     *eventloop.Loop
	geo      *viewport.Geometry
	bus      eventbus.Bus
	sink     render.Sink
	recorder *render.Recorder
	term     *render.Terminal
	realtime bool
	start    time.Time

	counters *reveal.Scheduler
	reveals  *reveal.Scheduler
	images   *reveal.Scheduler

	navbar    *widgets.ClassToggle
	backToTop *widgets.ClassToggle
	faq       *widgets.Accordion
	filter    *widgets.CourseFilter
	menu      *widgets.MobileMenu
	notices   *widgets.Notifications
	forms     *widgets.FormSubmitter

	layout     map[viewport.ElementID]viewport.Rect
	navHeight  float64
	pageHeight float64

	// report is only touched from the loop goroutine until Run returns.
	report *Report
	ran    bool
}

func New(opts Options) (*Session, error) {
	if opts.Document == nil {
		return nil, ErrNoDocument
	}
	set := opts.Settings
	if set == nil {
		var err error
		if set, err = config.Resolve(nil); err != nil {
			return nil, err
		}
	}
	log := opts.Logger
	if log.IsZero() {
		log = logx.Nop()
	}

	s := &Session{
		set:      set,
		doc:      opts.Document,
		log:      log,
		bus:      eventbus.New(),
		term:     opts.Terminal,
		realtime: opts.Realtime,
	}

	loopOpts := []eventloop.Option{eventloop.WithLogger(log.With(logx.String("component", "loop"))), eventloop.WithFrameInterval(set.FrameInterval)}
	if opts.Realtime {
		s.loop = eventloop.New(loopOpts...)
		s.start = time.Now()
	} else {
		s.start = opts.Start
		if s.start.IsZero() {
			s.start = time.Now()
		}
		s.loop = eventloop.NewVirtual(s.start, loopOpts...)
	}

	s.sink = opts.Sink
	if s.sink == nil {
		s.recorder = render.NewRecorder(s.loop.Now)
		s.sink = s.recorder
	}
	if s.term != nil {
		s.sink = render.WithCounters(s.sink, s.term)
	}

	s.geo = viewport.NewGeometry(s.loop, set.ViewportWidth, set.ViewportHeight, log.With(logx.String("component", "viewport")))
	s.layout = Layout(s.doc, set)
	for _, el := range s.doc.Elements {
		if r, ok := s.layout[el.ID]; ok {
			if b := r.Bottom(); b > s.pageHeight {
				s.pageHeight = b
			}
		}
	}
	s.navHeight = DefaultNavHeight
	if r, ok := s.layout[s.doc.Navbar]; ok && r.Height > 0 {
		s.navHeight = r.Height
	}

	var platform viewport.Platform = s.geo
	if !set.ObserverEnabled {
		platform = viewport.Unavailable{}
	}
	newScheduler := func(name string) *reveal.Scheduler {
		return reveal.New(platform, s.loop,
			reveal.WithLogger(log.With(logx.String("component", "reveal"), logx.String("scheduler", name))),
			reveal.WithBus(s.bus),
			reveal.WithName(name),
			reveal.WithStaggerUnit(set.StaggerUnit),
			reveal.WithStaggerMode(set.StaggerMode),
			reveal.WithFrameInterval(set.FrameInterval))
	}
	// One observer per effect kind, so reveal stagger indices only count reveals.
	s.counters = newScheduler("counters")
	s.reveals = newScheduler("reveals")
	s.images = newScheduler("images")

	wlog := log.With(logx.String("component", "widgets"))
	if s.doc.Navbar != "" {
		s.navbar = widgets.NewClassToggle(s.sink, s.bus, s.doc.Navbar, "scrolled", set.NavbarThreshold)
	}
	if s.doc.BackToTop != "" {
		s.backToTop = widgets.NewClassToggle(s.sink, s.bus, s.doc.BackToTop, "visible", set.BackToTopThreshold)
	}
	if len(s.doc.FAQ) > 0 {
		items := make([]viewport.ElementID, 0, len(s.doc.FAQ))
		for _, f := range s.doc.FAQ {
			items = append(items, f.ID)
		}
		s.faq = widgets.NewAccordion(s.sink, items)
	}
	if len(s.doc.Courses) > 0 || len(s.doc.Filters) > 0 {
		s.filter = widgets.NewCourseFilter(s.sink, s.doc.Courses, s.doc.Filters)
	}
	if s.doc.MenuButton != "" && s.doc.NavMenu != "" {
		s.menu = widgets.NewMobileMenu(s.sink, s.doc.MenuButton, s.doc.NavMenu)
	}
	s.notices = widgets.NewNotifications(s.loop, s.sink, widgets.NotificationOptions{
		Lifetime:   set.NotificationLifetime,
		RatePerSec: set.NotificationRate,
		Burst:      set.NotificationBurst,
		Logger:     wlog,
		Bus:        s.bus,
	})
	s.forms = widgets.NewFormSubmitter(s.loop, s.sink, s.notices, widgets.FormOptions{
		CompleteAfter: set.FormCompleteAfter,
		RestoreAfter:  set.FormRestoreAfter,
		Logger:        wlog,
		Bus:           s.bus,
	})

	s.report = newReport(s.doc.Title, s.start)
	s.report.ObserverEnabled = s.reveals.Enabled()
	return s, nil
}

// Recorder returns the default sink, or nil when Options.Sink was set.
func (s *Session) Recorder() *render.Recorder { return s.recorder }

// Bus exposes the session's event stream.
func (s *Session) Bus() eventbus.Bus { return s.bus }

// Run plays the script and returns the report. A session runs once.
// Cancelling ctx stops the script early; the report is still returned.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	if s.ran {
		return nil, errors.New("sim: session already ran")
	}
	s.ran = true

	events, unsub := s.bus.Subscribe(s.eventBuffer(),
		eventbus.TopicTriggered, eventbus.TopicShown, eventbus.TopicCounterDone,
		eventbus.TopicImageLoaded, eventbus.TopicToggle, eventbus.TopicNotify,
		eventbus.TopicForm, eventbus.TopicTeardown)
	var (
		mu        sync.Mutex
		collected []eventbus.Event
		drained   = make(chan struct{})
	)
	go func() {
		defer close(drained)
		for e := range events {
			mu.Lock()
			collected = append(collected, e)
			mu.Unlock()
		}
	}()

	var err error
	if s.realtime {
		err = s.runRealtime(ctx)
	} else {
		err = s.runVirtual(ctx)
	}

	unsub()
	<-drained
	for _, e := range collected {
		s.report.apply(e)
	}
	s.report.Dropped = eventbus.Dropped(s.bus)
	s.report.finish()
	s.log.Info("session finished",
		logx.Duration("elapsed", s.report.Elapsed),
		logx.Int("problems", len(s.report.Problems)),
		logx.Bool("idle", s.report.Idle))
	return s.report, err
}

func (s *Session) eventBuffer() int {
	return 8*len(s.doc.Elements) + 4*len(s.set.Script) + 256
}

// settle bounds how long effects started by the last step may still run.
func (s *Session) settle() time.Duration {
	d := s.set.CounterDuration + s.set.NotificationLifetime + widgets.SlideOutDuration
	d += s.set.FormCompleteAfter + s.set.FormRestoreAfter
	d += time.Duration(len(s.doc.Reveals)+1) * s.set.StaggerUnit
	return d + time.Second
}

func (s *Session) runVirtual(ctx context.Context) error {
	s.setup()
	var elapsed time.Duration
	for _, st := range s.set.Script {
		if err := ctx.Err(); err != nil {
			s.teardown()
			return err
		}
		if err := s.loop.Advance(st.At - elapsed); err != nil {
			s.teardown()
			return err
		}
		elapsed = st.At
		s.apply(st)
	}
	idle, err := s.loop.RunUntilIdle(s.settle())
	if err != nil {
		s.teardown()
		return err
	}
	s.report.Idle = idle
	s.teardown()
	// Teardown leaves in-flight ramps and reveal timers running.
	if _, err := s.loop.RunUntilIdle(s.settle()); err != nil {
		return err
	}
	s.report.Elapsed = s.loop.Now().Sub(s.start)
	return nil
}

func (s *Session) runRealtime(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- s.loop.Run(ctx) }()

	s.loop.Post(s.setup)
	var last time.Duration
	for _, st := range s.set.Script {
		s.loop.SetTimeout(st.At, func() { s.apply(st) })
		last = st.At
	}

	scriptDone := time.NewTimer(last)
	defer scriptDone.Stop()
	select {
	case <-ctx.Done():
	case <-scriptDone.C:
	}

	deadline := time.Now().Add(s.settle())
	poll := time.NewTicker(idlePoll)
	defer poll.Stop()
	idle := false
	for !idle && ctx.Err() == nil && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
		case <-poll.C:
			tasks, timers, frames := s.loop.Pending()
			idle = tasks == 0 && timers == 0 && frames == 0
		}
	}

	finish := func() {
		s.report.Idle = idle
		s.teardown()
		s.report.Elapsed = s.loop.Now().Sub(s.start)
	}
	done := make(chan struct{})
	s.loop.Post(func() {
		finish()
		close(done)
	})
	var err error
	select {
	case <-done:
		cancel()
		err = <-runErr
	case err = <-runErr:
		// The loop stopped before it could run the teardown.
		finish()
	}
	if s.term != nil {
		s.term.Wait()
	}
	if err == nil {
		err = parent.Err()
	}
	return err
}

// setup lays the page out and registers every effect, in the order the site
// wires them on load.
func (s *Session) setup() {
	for _, el := range s.doc.Elements {
		if r, ok := s.layout[el.ID]; ok {
			s.geo.SetLayout(el.ID, r)
		}
	}

	for _, c := range s.doc.Counters {
		if c.Err != nil {
			s.log.Warn("counter skipped", logx.String("id", string(c.ID)), logx.String("raw", c.Raw), logx.Err(c.Err))
			s.report.problem("counter %s: %v", c.ID, c.Err)
			continue
		}
		err := s.counters.RegisterCounter(c.ID, s.set.Counter, reveal.CounterConfig{Target: c.Target, Duration: s.set.CounterDuration}, s.sink)
		if err != nil {
			s.log.Warn("counter rejected", logx.String("id", string(c.ID)), logx.Err(err))
			s.report.problem("counter %s: %v", c.ID, err)
			continue
		}
		s.report.addCounter(c.ID, c.Target)
		if s.term != nil {
			s.term.Track(c.ID, c.Target)
		}
	}

	for _, id := range s.doc.Reveals {
		if err := s.reveals.RegisterReveal(id, s.set.Reveal, s.sink); err != nil {
			s.log.Warn("reveal rejected", logx.String("id", string(id)), logx.Err(err))
			s.report.problem("reveal %s: %v", id, err)
			continue
		}
		s.report.addReveal(id)
	}

	for _, im := range s.doc.Images {
		if err := s.images.RegisterImage(im.ID, s.set.Image, im.Src, s.sink); err != nil {
			s.log.Warn("image rejected", logx.String("id", string(im.ID)), logx.Err(err))
			s.report.problem("image %s: %v", im.ID, err)
			continue
		}
		s.report.addImage(im.ID, im.Src)
	}

	s.log.Debug("session ready",
		logx.Int("counters", s.counters.Len()),
		logx.Int("reveals", s.reveals.Len()),
		logx.Int("images", s.images.Len()),
		logx.Float64("page_height", s.pageHeight))
}

func (s *Session) teardown() {
	for _, sc := range []struct {
		name string
		s    *reveal.Scheduler
	}{{"counters", s.counters}, {"reveals", s.reveals}, {"images", s.images}} {
		s.report.Schedulers[sc.name] = sc.s.Snapshot()
		sc.s.UnregisterAll()
	}
}

// apply performs one script step on the loop.
func (s *Session) apply(st config.Step) {
	s.log.Debug("script step", logx.String("action", st.Action), logx.Duration("at", st.At))
	switch st.Action {
	case "scroll":
		s.scrollTo(st.Y)
	case "resize":
		s.geo.Resize(st.Width, st.Height)
		s.scrollTo(s.geo.ScrollY())
	case "faq":
		if s.faq == nil {
			s.report.problem("faq step at %s: page has no FAQ", st.At)
			return
		}
		if err := s.faq.Toggle(st.Index); err != nil {
			s.report.problem("faq step at %s: %v", st.At, err)
		}
	case "filter":
		if s.filter == nil {
			s.report.problem("filter step at %s: page has no course filter", st.At)
			return
		}
		s.filter.Apply(st.Category)
	case "submit":
		form, ok := s.doc.Form(viewport.ElementID(st.Form))
		if !ok {
			s.report.problem("submit step at %s: no form %q", st.At, st.Form)
			return
		}
		s.report.Forms = append(s.report.Forms, s.forms.Submit(form, st.Fields))
	case "anchor":
		target, ok := s.layout[viewport.ElementID(st.Target)]
		if !ok {
			s.report.problem("anchor step at %s: no section %q", st.At, st.Target)
			return
		}
		if s.menu != nil && s.menu.Open() {
			s.menu.Close()
		}
		y := s.geo.ScrollY()
		s.scrollTo(widgets.AnchorOffset(target.Top-y, y, s.navHeight))
	case "top":
		s.scrollTo(0)
	case "menu":
		if s.menu == nil {
			s.report.problem("menu step at %s: page has no mobile menu", st.At)
			return
		}
		s.menu.Toggle()
	default:
		s.report.problem("unknown step %q at %s", st.Action, st.At)
	}
}

// scrollTo clamps y to the scrollable range, then moves the viewport and
// updates the scroll toggles.
func (s *Session) scrollTo(y float64) {
	if limit := s.pageHeight - s.geo.Root().Height; y > limit {
		y = limit
	}
	if y < 0 {
		y = 0
	}
	s.geo.ScrollTo(y)
	now := s.loop.Now()
	if s.navbar != nil {
		s.navbar.OnScroll(now, y)
	}
	if s.backToTop != nil {
		s.backToTop.OnScroll(now, y)
	}
}

// Layout places the page's flow elements: configured boxes win, every other
// observed element or section is stacked as a full-width block in document
// order. Boxes configured for other elements (the navbar) are kept as is.
func Layout(doc *page.Document, set *config.Settings) map[viewport.ElementID]viewport.Rect {
	flow := map[viewport.ElementID]bool{}
	for _, c := range doc.Counters {
		flow[c.ID] = true
	}
	for _, id := range doc.Reveals {
		flow[id] = true
	}
	for _, im := range doc.Images {
		flow[im.ID] = true
	}
	for _, id := range doc.Sections {
		flow[id] = true
	}
	for _, f := range doc.FAQ {
		flow[f.ID] = true
	}
	for _, f := range doc.Forms {
		flow[f.ID] = true
	}

	out := make(map[viewport.ElementID]viewport.Rect, len(flow)+len(set.Elements))
	top := 0.0
	for _, el := range doc.Elements {
		if !flow[el.ID] {
			continue
		}
		if r, ok := set.Elements[el.ID]; ok {
			out[el.ID] = r
			continue
		}
		out[el.ID] = viewport.Rect{Left: 0, Top: top, Width: set.ViewportWidth, Height: set.BlockHeight}
		top += set.BlockHeight
	}
	for id, r := range set.Elements {
		if _, ok := out[id]; !ok {
			out[id] = r
		}
	}
	return out
}
