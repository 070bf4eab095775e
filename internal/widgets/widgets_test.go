package widgets

import (
	"fmt"
	"testing"
	"time"

	"pagefx/internal/eventloop"
	"pagefx/internal/page"
	"pagefx/internal/viewport"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeSurface struct {
	classes  map[string]bool
	visible  map[viewport.ElementID]bool
	text     map[viewport.ElementID]string
	disabled map[viewport.ElementID]bool
	resets   []viewport.ElementID
	fieldErr map[string]string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		classes:  map[string]bool{},
		visible:  map[viewport.ElementID]bool{},
		text:     map[viewport.ElementID]string{},
		disabled: map[viewport.ElementID]bool{},
		fieldErr: map[string]string{},
	}
}

func (s *fakeSurface) SetClass(id viewport.ElementID, class string, on bool) {
	s.classes[string(id)+"."+class] = on
}
func (s *fakeSurface) SetVisible(id viewport.ElementID, v bool)  { s.visible[id] = v }
func (s *fakeSurface) SetText(id viewport.ElementID, t string)   { s.text[id] = t }
func (s *fakeSurface) SetDisabled(id viewport.ElementID, d bool) { s.disabled[id] = d }
func (s *fakeSurface) ResetForm(id viewport.ElementID)           { s.resets = append(s.resets, id) }
func (s *fakeSurface) SetFieldError(form viewport.ElementID, field, msg string) {
	if msg == "" {
		delete(s.fieldErr, string(form)+"."+field)
		return
	}
	s.fieldErr[string(form)+"."+field] = msg
}

type noticeLog struct {
	loop   *eventloop.Loop
	events []string
}

func (l *noticeLog) add(kind string, n Notice) {
	l.events = append(l.events, fmt.Sprintf("%s:%d@%v", kind, n.Seq, l.loop.Now().Sub(t0)))
}
func (l *noticeLog) ShowNotice(n Notice)     { l.add("show", n) }
func (l *noticeLog) SlideOutNotice(n Notice) { l.add("slide", n) }
func (l *noticeLog) RemoveNotice(n Notice)   { l.add("remove", n) }

func TestScrollToggleEdges(t *testing.T) {
	t.Parallel()
	tg := ScrollToggle{Threshold: 50}
	steps := []struct {
		y       float64
		on      bool
		changed bool
	}{
		{0, false, false},
		{50, false, false},
		{51, true, true},
		{400, true, false},
		{10, false, true},
	}
	for i, st := range steps {
		on, changed := tg.Update(st.y)
		if on != st.on || changed != st.changed {
			t.Fatalf("step %d y=%v: got (%v,%v), want (%v,%v)", i, st.y, on, changed, st.on, st.changed)
		}
	}
}

func TestClassToggleAppliesClass(t *testing.T) {
	t.Parallel()
	out := newFakeSurface()
	c := NewClassToggle(out, nil, "back-to-top", "visible", 500)
	if c.OnScroll(t0, 100) {
		t.Fatal("no flip expected below threshold")
	}
	if !c.OnScroll(t0, 600) || !out.classes["back-to-top.visible"] {
		t.Fatal("class not applied above threshold")
	}
	if !c.OnScroll(t0, 0) || out.classes["back-to-top.visible"] {
		t.Fatal("class not removed")
	}
}

func TestAnchorOffset(t *testing.T) {
	t.Parallel()
	if got := AnchorOffset(300, 1000, 80); got != 1200 {
		t.Fatalf("AnchorOffset = %v, want 1200", got)
	}
}

func TestAccordionKeepsOneOpen(t *testing.T) {
	t.Parallel()
	out := newFakeSurface()
	a := NewAccordion(out, []viewport.ElementID{"q1", "q2", "q3"})
	if err := a.Toggle(0); err != nil {
		t.Fatal(err)
	}
	if err := a.Toggle(2); err != nil {
		t.Fatal(err)
	}
	if i, ok := a.Active(); !ok || i != 2 {
		t.Fatalf("active = %d %v", i, ok)
	}
	if out.classes["q1.active"] || !out.classes["q3.active"] {
		t.Fatalf("classes = %v", out.classes)
	}
	if err := a.Toggle(2); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Active(); ok || out.classes["q3.active"] {
		t.Fatal("toggling the open item should close it")
	}
	if err := a.Toggle(3); err == nil {
		t.Fatal("out of range index should fail")
	}
}

func TestCourseFilter(t *testing.T) {
	t.Parallel()
	out := newFakeSurface()
	cards := []page.CourseCard{{ID: "go", Category: "tech"}, {ID: "mba", Category: "business"}, {ID: "ml", Category: "tech"}}
	buttons := []page.FilterButton{{ID: "b-all", Filter: "all"}, {ID: "b-tech", Filter: "tech"}}
	f := NewCourseFilter(out, cards, buttons)

	got := f.Apply("tech")
	if len(got) != 2 || got[0] != "go" || got[1] != "ml" {
		t.Fatalf("visible = %v", got)
	}
	if out.visible["mba"] || !out.classes["b-tech.active"] || out.classes["b-all.active"] {
		t.Fatalf("surface = %v %v", out.visible, out.classes)
	}
	if got := f.Apply(FilterAll); len(got) != 3 || !out.visible["mba"] {
		t.Fatalf("all = %v", got)
	}
	if got := f.Apply("art"); len(got) != 0 {
		t.Fatalf("unknown category visible = %v", got)
	}
	if f.Active() != "art" {
		t.Fatalf("active = %q", f.Active())
	}
}

func TestMobileMenu(t *testing.T) {
	t.Parallel()
	out := newFakeSurface()
	m := NewMobileMenu(out, "btn", "menu")
	if !m.Toggle() || !out.classes["menu.active"] || !out.classes["btn.active"] {
		t.Fatal("menu should open")
	}
	m.Close()
	if m.Open() || out.classes["menu.active"] {
		t.Fatal("menu should close")
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()
	emails := map[string]bool{
		"a@b.co":          true,
		"first.last@x.io": true,
		"no-at.example":   false,
		"a@b":             false,
		"a b@c.d":         false,
		"":                false,
	}
	for in, want := range emails {
		if got := ValidateEmail(in); got != want {
			t.Fatalf("ValidateEmail(%q) = %v, want %v", in, got, want)
		}
	}
	phones := map[string]bool{
		"555-123-4567":    true,
		"(555) 123-4567":  true,
		"+2348012345678":  false,
		"+234 801 234567": true,
		"5551234":         false,
		"555.123.456789":  true,
		"phone":           false,
	}
	for in, want := range phones {
		if got := ValidatePhone(in); got != want {
			t.Fatalf("ValidatePhone(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateForm(t *testing.T) {
	t.Parallel()
	errs := ValidateForm(map[string]string{"phone": "x", "email": "bad", "name": ""})
	if len(errs) != 2 || errs[0].Field != "email" || errs[1].Field != "phone" {
		t.Fatalf("errs = %v", errs)
	}
	if errs := ValidateForm(map[string]string{"name": "Ada"}); len(errs) != 0 {
		t.Fatalf("absent fields should not be checked: %v", errs)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	t.Parallel()
	loop := eventloop.NewVirtual(t0)
	view := &noticeLog{loop: loop}
	n := NewNotifications(loop, view, NotificationOptions{Lifetime: 5 * time.Second})

	if _, ok := n.Show("hello", ""); !ok {
		t.Fatal("show failed")
	}
	if err := loop.Advance(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	n.Show("replaced", NoticeError)
	if _, err := loop.RunUntilIdle(time.Minute); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"show:1@0s",
		"remove:1@2s",
		"show:2@2s",
		"slide:2@7s",
		"remove:2@7.3s",
	}
	if fmt.Sprint(view.events) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", view.events, want)
	}
	if _, ok := n.Current(); ok {
		t.Fatal("notice should be gone")
	}
}

func TestNotificationDismissAndRateLimit(t *testing.T) {
	t.Parallel()
	loop := eventloop.NewVirtual(t0)
	view := &noticeLog{loop: loop}
	n := NewNotifications(loop, view, NotificationOptions{Lifetime: time.Second, RatePerSec: 1, Burst: 1})

	if _, ok := n.Show("one", ""); !ok {
		t.Fatal("first show should pass")
	}
	if _, ok := n.Show("two", ""); ok {
		t.Fatal("second show within a second should be limited")
	}
	if n.Dropped() != 1 {
		t.Fatalf("dropped = %d", n.Dropped())
	}
	if !n.Dismiss() || n.Dismiss() {
		t.Fatal("dismiss should succeed once")
	}
	if _, err := loop.RunUntilIdle(time.Minute); err != nil {
		t.Fatal(err)
	}
	// The lifetime timer of a dismissed notice does nothing.
	if len(view.events) != 2 {
		t.Fatalf("events = %v", view.events)
	}
}

func TestFormSubmitInternal(t *testing.T) {
	t.Parallel()
	loop := eventloop.NewVirtual(t0)
	out := newFakeSurface()
	view := &noticeLog{loop: loop}
	notices := NewNotifications(loop, view, NotificationOptions{})
	fs := NewFormSubmitter(loop, out, notices, FormOptions{})
	form := page.Form{ID: "contact", Action: "/contact", Submit: "send", SubmitText: "Send Message"}

	if res := fs.Submit(form, nil); res.Status != SubmitSent {
		t.Fatalf("status = %v", res.Status)
	}
	if !out.disabled["send"] || out.text["send"] != SendingText {
		t.Fatal("button not in sending state")
	}
	if res := fs.Submit(form, nil); res.Status != SubmitBusy {
		t.Fatalf("resubmit status = %v", res.Status)
	}

	if err := loop.Advance(1500 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if cur, ok := notices.Current(); !ok || cur.Message != SuccessMessage {
		t.Fatalf("notice = %+v %v", cur, ok)
	}
	if len(out.resets) != 1 {
		t.Fatal("form not reset")
	}
	if err := loop.Advance(1999 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !out.disabled["send"] {
		t.Fatal("button restored too early")
	}
	if err := loop.Advance(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if out.disabled["send"] || out.text["send"] != "Send Message" {
		t.Fatal("button not restored")
	}
}

func TestFormSubmitExternalAndInvalid(t *testing.T) {
	t.Parallel()
	loop := eventloop.NewVirtual(t0)
	out := newFakeSurface()
	fs := NewFormSubmitter(loop, out, nil, FormOptions{})

	ext := page.Form{ID: "newsletter", Action: "https://formspree.io/f/xyz", Submit: "go", SubmitText: "Go"}
	if res := fs.Submit(ext, nil); res.Status != SubmitExternal {
		t.Fatalf("status = %v", res.Status)
	}
	if err := loop.Advance(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if out.disabled["go"] || len(out.resets) != 0 {
		t.Fatal("external form: button should be restored and no reset done")
	}

	enroll := page.Form{ID: "enrollment-form", Action: "/enroll", Submit: "enroll"}
	res := fs.Submit(enroll, map[string]string{"email": "nope", "phone": "555-123-4567"})
	if res.Status != SubmitInvalid || len(res.Errors) != 1 || res.Errors[0].Field != "email" {
		t.Fatalf("res = %+v", res)
	}
	if out.disabled["enroll"] {
		t.Fatal("invalid form must not enter sending state")
	}
	if res := fs.Submit(enroll, map[string]string{"email": "a@b.co"}); res.Status != SubmitSent {
		t.Fatalf("valid enrollment status = %v", res.Status)
	}
}

func TestInvalidSubmitMarksFieldsAndNotifies(t *testing.T) {
	t.Parallel()
	loop := eventloop.NewVirtual(t0)
	out := newFakeSurface()
	view := &noticeLog{loop: loop}
	notices := NewNotifications(loop, view, NotificationOptions{Lifetime: 5 * time.Second})
	fs := NewFormSubmitter(loop, out, notices, FormOptions{})
	enroll := page.Form{ID: "enrollment-form", Action: "/enroll", Submit: "enroll"}

	res := fs.Submit(enroll, map[string]string{"email": "nope", "phone": "12"})
	if res.Status != SubmitInvalid || len(res.Errors) != 2 {
		t.Fatalf("res = %+v", res)
	}
	n, ok := notices.Current()
	if !ok || n.Kind != NoticeError || n.Message != InvalidMessage {
		t.Fatalf("notice = %+v ok=%v", n, ok)
	}
	if len(view.events) != 1 || view.events[0] != "show:1@0s" {
		t.Fatalf("view events = %v", view.events)
	}
	if out.fieldErr["enrollment-form.email"] == "" || out.fieldErr["enrollment-form.phone"] == "" {
		t.Fatalf("field errors = %v", out.fieldErr)
	}

	// Fixing the phone leaves only the email marked.
	fs.Submit(enroll, map[string]string{"email": "nope", "phone": "555-123-4567"})
	if len(out.fieldErr) != 1 || out.fieldErr["enrollment-form.email"] == "" {
		t.Fatalf("field errors after retry = %v", out.fieldErr)
	}

	if res := fs.Submit(enroll, map[string]string{"email": "a@b.co", "phone": "555-123-4567"}); res.Status != SubmitSent {
		t.Fatalf("status = %v", res.Status)
	}
	if len(out.fieldErr) != 0 {
		t.Fatalf("marks should clear on a valid submit: %v", out.fieldErr)
	}
}
