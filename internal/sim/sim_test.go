package sim

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pagefx/internal/config"
	"pagefx/internal/eventbus"
	"pagefx/internal/page"
	"pagefx/internal/render"
	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
)

// Flow blocks are 400px tall: hero 0, students 400, bad 800, c1 1200,
// c2 1600, c3 2000, campus 2400, faq 2800, q1 3200, enrollment-form 3600.
const landingPage = `<!DOCTYPE html>
<html><head><title>NIPS Education Solutions</title></head><body>
<nav id="navbar" class="navbar">
  <button id="mobile-menu-btn">=</button>
  <ul id="nav-menu"><li><a href="#faq">FAQ</a></li></ul>
</nav>
<div class="hero-content" id="hero">Learn</div>
<span class="stat-number" data-count="250" id="students">0</span>
<span class="stat-number" data-count="n/a" id="bad">0</span>
<div class="course-card" data-category="tech" id="c1"></div>
<div class="course-card" data-category="biz" id="c2"></div>
<div class="course-card" data-category="tech" id="c3"></div>
<img id="campus" data-src="/img/campus.jpg">
<section id="faq"><div class="faq-item" id="q1"><div class="faq-question">Fees?</div></div></section>
<form id="enrollment-form" action="/enroll">
  <input name="email" type="email"><input name="phone" type="tel">
  <button type="submit">Enroll Now</button>
</form>
<button id="back-to-top">^</button>
</body></html>`

const baseConfig = `
observer:
  viewport_width: 1000
  viewport_height: 800
layout:
  default_height: 400
`

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newSession(t *testing.T, yaml string) *Session {
	t.Helper()
	return newSessionFrom(t, baseConfig+yaml)
}

func newSessionFrom(t *testing.T, yaml string) *Session {
	t.Helper()
	cfg, err := config.Decode("session.yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	set, err := config.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	doc, err := page.Scan(strings.NewReader(landingPage), page.Selectors{RevealClasses: set.RevealClasses})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	s, err := New(Options{Settings: set, Document: doc, Start: t0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

const fullScript = `
script:
  - {at: 500ms, action: scroll, y: 1000}
  - {at: 1s, action: scroll, y: 2200}
  - {at: 1200ms, action: faq, index: 0}
  - {at: 1500ms, action: filter, category: tech}
  - at: 2s
    action: submit
    form: enrollment-form
    fields: {email: ada@example.com, phone: 555-123-4567}
  - {at: 2100ms, action: anchor, target: faq}
  - {at: 2200ms, action: top}
`

func TestSessionFullScript(t *testing.T) {
	t.Parallel()
	s := newSession(t, fullScript)
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.ObserverEnabled || !rep.Idle {
		t.Fatalf("observer=%t idle=%t", rep.ObserverEnabled, rep.Idle)
	}

	reveals := []struct {
		id      viewport.ElementID
		index   int
		trigger time.Duration
		shown   time.Duration
	}{
		{"hero", 0, 0, 0},
		{"c1", 0, 500 * time.Millisecond, 500 * time.Millisecond},
		{"c2", 1, 500 * time.Millisecond, 600 * time.Millisecond},
		{"c3", 0, time.Second, time.Second},
	}
	for _, tc := range reveals {
		got, ok := rep.Reveal(tc.id)
		if !ok || !got.Triggered || !got.Shown {
			t.Fatalf("%s: %+v", tc.id, got)
		}
		if got.Index != tc.index || got.TriggeredAt != tc.trigger || got.ShownAt != tc.shown {
			t.Fatalf("%s: index %d trigger %s shown %s, want %d %s %s", tc.id, got.Index, got.TriggeredAt, got.ShownAt, tc.index, tc.trigger, tc.shown)
		}
	}

	c, ok := rep.Counter("students")
	if !ok || !c.Done || c.Final != 250 || c.Target != 250 {
		t.Fatalf("students = %+v", c)
	}
	if c.DoneAt < 1900*time.Millisecond || c.DoneAt > 2100*time.Millisecond {
		t.Fatalf("students done at %s", c.DoneAt)
	}
	if _, ok := rep.Counter("bad"); ok {
		t.Fatal("unparsable counter must not be registered")
	}
	if len(rep.Problems) != 1 || !strings.Contains(rep.Problems[0], "bad") {
		t.Fatalf("problems = %v", rep.Problems)
	}

	img, ok := rep.Image("campus")
	if !ok || !img.Loaded || img.LoadedAt != time.Second {
		t.Fatalf("campus = %+v", img)
	}

	if len(rep.Forms) != 1 || rep.Forms[0].Status != widgets.SubmitSent {
		t.Fatalf("forms = %+v", rep.Forms)
	}
	if len(rep.Notices) != 1 || rep.Notices[0] != widgets.SuccessMessage {
		t.Fatalf("notices = %v", rep.Notices)
	}
	if rep.Toggles["navbar.scrolled"] || rep.Toggles["back-to-top.visible"] {
		t.Fatalf("toggles after top = %v", rep.Toggles)
	}
	if snap := rep.Schedulers["reveals"]; snap.Triggered != 4 || snap.Watching != 0 {
		t.Fatalf("reveal scheduler = %+v", snap)
	}

	rec := s.Recorder()
	if st, _ := rec.State("c2"); st.Display == nil || *st.Display {
		t.Fatalf("c2 should be filtered out: %+v", st)
	}
	if st, _ := rec.State("q1"); !st.Classes["active"] {
		t.Fatal("faq item should be open")
	}
	if st, _ := rec.State("campus"); st.Src != "/img/campus.jpg" {
		t.Fatalf("campus src = %q", st.Src)
	}
	if _, ok := rec.Notice(); ok {
		t.Fatal("notice should be removed once idle")
	}
	btn := rec.CallsOf(render.OpText)
	if len(btn) != 2 || btn[0].Value != widgets.SendingText || btn[1].Value != "Enroll Now" {
		t.Fatalf("submit button texts = %+v", btn)
	}
	if got := btn[1].At.Sub(t0); got != 5500*time.Millisecond {
		t.Fatalf("button restored at %s, want 5.5s", got)
	}
}

func TestSessionAnchorScrollsBelowNavbar(t *testing.T) {
	t.Parallel()
	s := newSession(t, `
script:
  - {at: 0s, action: menu}
  - {at: 100ms, action: anchor, target: faq}
`)
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// faq top 2800, default nav height 70, gap 20.
	if got := s.geo.ScrollY(); got != 2710 {
		t.Fatalf("scrollY = %v, want 2710", got)
	}
	if s.menu.Open() {
		t.Fatal("anchor navigation should close the menu")
	}
	if !rep.Toggles["navbar.scrolled"] || !rep.Toggles["back-to-top.visible"] {
		t.Fatalf("toggles = %v", rep.Toggles)
	}
}

func TestSessionScrollIsClamped(t *testing.T) {
	t.Parallel()
	s := newSession(t, `
script:
  - {at: 0s, action: scroll, y: 100000}
`)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Page is 4000px tall and the viewport 800px.
	if got := s.geo.ScrollY(); got != 3200 {
		t.Fatalf("scrollY = %v, want 3200", got)
	}
}

func TestSessionWithoutObserver(t *testing.T) {
	t.Parallel()
	off := newSessionFrom(t, `
observer: {enabled: false, viewport_width: 1000, viewport_height: 800}
script:
  - {at: 100ms, action: scroll, y: 2200}
`)
	rep, err := off.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.ObserverEnabled {
		t.Fatal("observer should be reported disabled")
	}
	for _, r := range rep.Reveals {
		if r.Triggered {
			t.Fatalf("%s triggered without observer", r.ID)
		}
	}
	if c, _ := rep.Counter("students"); c.Done {
		t.Fatal("counter ran without observer")
	}
	if calls := off.Recorder().CallsOf(render.OpPrepare); len(calls) != 0 {
		t.Fatalf("elements were hidden without observer: %v", calls)
	}
	if !rep.Toggles["back-to-top.visible"] {
		t.Fatal("scroll toggles do not depend on the observer")
	}
}

func TestSessionReportsBadSteps(t *testing.T) {
	t.Parallel()
	s := newSession(t, `
script:
  - {at: 0s, action: submit, form: nope}
  - {at: 0s, action: anchor, target: missing}
  - {at: 0s, action: faq, index: 3}
`)
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// One problem for the unparsable counter plus one per bad step.
	if len(rep.Problems) != 4 {
		t.Fatalf("problems = %v", rep.Problems)
	}
	for i, want := range []string{`no form "nope"`, `no section "missing"`, "out of range"} {
		if !strings.Contains(rep.Problems[i+1], want) {
			t.Fatalf("problem %d = %q, want %q", i+1, rep.Problems[i+1], want)
		}
	}
}

func TestSessionInvalidFormIsNotSent(t *testing.T) {
	t.Parallel()
	s := newSession(t, `
script:
  - {at: 0s, action: submit, form: enrollment-form, fields: {email: nope, phone: "12"}}
`)
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Forms) != 1 || rep.Forms[0].Status != widgets.SubmitInvalid || len(rep.Forms[0].Errors) != 2 {
		t.Fatalf("forms = %+v", rep.Forms)
	}
	if calls := s.Recorder().CallsOf(render.OpDisabled); len(calls) != 0 {
		t.Fatal("invalid form must not disable the button")
	}
	if len(rep.Notices) != 1 || rep.Notices[0] != widgets.InvalidMessage {
		t.Fatalf("notices = %v", rep.Notices)
	}
	st, _ := s.Recorder().State("enrollment-form")
	if st.FieldErrors["email"] == "" || st.FieldErrors["phone"] == "" {
		t.Fatalf("field errors = %v", st.FieldErrors)
	}
}

func TestSessionTeardownOrderIsStable(t *testing.T) {
	t.Parallel()
	for i := 0; i < 5; i++ {
		s := newSession(t, `
script:
  - {at: 500ms, action: scroll, y: 1000}
`)
		rep, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var got []string
		for _, ev := range rep.Timeline {
			if ev.Type == eventbus.TopicTeardown {
				got = append(got, string(ev.Element))
			}
		}
		if want := []string{"counters", "reveals", "images"}; strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("run %d: teardown order = %v, want %v", i, got, want)
		}
	}
}

func TestSessionRealtimeAppliesEachStep(t *testing.T) {
	t.Parallel()
	cfg, err := config.Decode("session.yaml", []byte(baseConfig+`
counters:
  duration: 50ms
script:
  - {at: 20ms, action: scroll, y: 1000}
  - {at: 60ms, action: scroll, y: 2200}
`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	set, err := config.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	doc, err := page.Scan(strings.NewReader(landingPage), page.Selectors{RevealClasses: set.RevealClasses})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	s, err := New(Options{Settings: set, Document: doc, Realtime: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// c1 is only in view at y=1000 and c3 only at y=2200, so both steps ran
	// with their own offsets.
	for _, id := range []viewport.ElementID{"c1", "c3"} {
		if r, ok := rep.Reveal(id); !ok || !r.Triggered {
			t.Fatalf("%s not triggered: %+v", id, r)
		}
	}
	if !rep.Idle {
		t.Fatal("realtime session should settle")
	}
}

func TestSessionCancelled(t *testing.T) {
	t.Parallel()
	s := newSession(t, `
script:
  - {at: 1s, action: scroll, y: 1000}
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v", err)
	}
	if rep == nil || !s.reveals.Snapshot().Closed {
		t.Fatal("cancelled session must still tear down")
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("second Run should fail")
	}
}

func TestLayoutStacksFlowElements(t *testing.T) {
	t.Parallel()
	doc, err := page.Scan(strings.NewReader(landingPage), page.Selectors{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	set, err := config.Resolve(&config.Config{
		Observer: config.ObserverConfig{ViewportWidth: 1000, ViewportHeight: 800},
		Layout: config.LayoutConfig{
			DefaultHeight: 300,
			Elements: map[string]config.RectConfig{
				"c1":     {Top: 5000, Width: 200, Height: 100},
				"navbar": {Width: 1000, Height: 64},
			},
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	l := Layout(doc, set)

	if r := l["hero"]; r.Top != 0 || r.Height != 300 || r.Width != 1000 {
		t.Fatalf("hero = %+v", r)
	}
	if r := l["c1"]; r.Top != 5000 || r.Width != 200 {
		t.Fatalf("c1 override = %+v", r)
	}
	// c1 is placed by config, so c2 takes the slot after bad.
	if r := l["c2"]; r.Top != 900 {
		t.Fatalf("c2 = %+v", r)
	}
	if r, ok := l["navbar"]; !ok || r.Height != 64 {
		t.Fatalf("navbar = %+v", r)
	}
	if _, ok := l["mobile-menu-btn"]; ok {
		t.Fatal("chrome elements are not laid out")
	}
}

func TestReportFormat(t *testing.T) {
	t.Parallel()
	s := newSession(t, fullScript)
	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var b strings.Builder
	if err := rep.Format(&b); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := b.String()
	for _, want := range []string{"page: NIPS Education Solutions", "students", "250 / 250", "campus", "enrollment-form", "sent", "problems:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
