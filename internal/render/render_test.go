package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
	logx "pagefx/pkg/logx"
)

func TestRecorderTracksState(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := NewRecorder(func() time.Time { return now })

	r.Prepare("card")
	if st, _ := r.State("card"); !st.Hidden || st.Revealed {
		t.Fatalf("prepared state = %+v", st)
	}
	now = now.Add(100 * time.Millisecond)
	r.Reveal("card")
	st, ok := r.State("card")
	if !ok || st.Hidden || !st.Revealed || !st.RevealedAt.Equal(now) {
		t.Fatalf("revealed state = %+v", st)
	}

	r.SetValue("stat", 2)
	r.SetValue("stat", 250)
	if st, _ := r.State("stat"); len(st.Values) != 2 {
		t.Fatalf("values = %v", st.Values)
	} else if v, _ := st.Value(); v != 250 {
		t.Fatalf("last value = %d", v)
	}

	r.SetClass("navbar", "scrolled", true)
	r.SetClass("navbar", "scrolled", false)
	if st, _ := r.State("navbar"); st.Classes["scrolled"] {
		t.Fatal("class should be removed")
	}
	r.SetVisible("mba", false)
	if st, _ := r.State("mba"); st.Display == nil || *st.Display {
		t.Fatal("display not recorded")
	}
	r.Load("img-1", "/a.jpg")
	if st, _ := r.State("img-1"); st.Src != "/a.jpg" {
		t.Fatal("src not recorded")
	}

	n := widgets.Notice{Seq: 1, Message: "hi"}
	r.ShowNotice(n)
	if cur, ok := r.Notice(); !ok || cur.Message != "hi" {
		t.Fatal("notice not shown")
	}
	r.RemoveNotice(n)
	if _, ok := r.Notice(); ok {
		t.Fatal("notice not removed")
	}

	if got := len(r.CallsOf(OpValue)); got != 2 {
		t.Fatalf("value calls = %d", got)
	}
	if got := len(r.Calls()); got != 10 {
		t.Fatalf("calls = %d, want 10", got)
	}
	if _, ok := r.State("unknown"); ok {
		t.Fatal("unknown element should have no state")
	}
}

func TestRecorderStateIsACopy(t *testing.T) {
	t.Parallel()
	r := NewRecorder(nil)
	r.SetValue("x", 1)
	st, _ := r.State("x")
	st.Values[0] = 99
	if again, _ := r.State("x"); again.Values[0] != 1 {
		t.Fatal("State must not expose internal slices")
	}
}

type countSink struct {
	Sink
	values []int
}

func (c *countSink) SetValue(_ viewport.ElementID, v int) { c.values = append(c.values, v) }

func TestWithCountersFansOut(t *testing.T) {
	t.Parallel()
	r := NewRecorder(nil)
	extra := &countSink{}
	s := WithCounters(r, extra)
	s.SetValue("n", 7)
	s.Reveal("n")
	if st, _ := r.State("n"); len(st.Values) != 1 || !st.Revealed {
		t.Fatalf("base sink state = %+v", st)
	}
	if len(extra.values) != 1 || extra.values[0] != 7 {
		t.Fatalf("extra values = %v", extra.values)
	}
	if WithCounters(r) != Sink(r) {
		t.Fatal("no extras should return base")
	}
}

func TestLogRendererAcceptsZeroLogger(t *testing.T) {
	t.Parallel()
	l := NewLog(logx.Logger{})
	l.Prepare("a")
	l.Reveal("a")
	l.SetValue("a", 1)
	l.ShowNotice(widgets.Notice{Message: "ok"})
}

func TestTerminalBars(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	term := NewTerminal(ctx, &buf)
	term.Track("students", 10)
	term.Track("students", 99)
	term.Track("zero", 0)
	term.Track("stuck", 5)

	term.SetValue("students", 5)
	term.SetValue("students", 10)
	term.SetValue("zero", 0)
	term.SetValue("stuck", 2)
	term.SetValue("untracked", 3)

	term.Wait()
	if ctx.Err() != nil {
		t.Fatal("Wait should return once bars complete or abort")
	}
}
