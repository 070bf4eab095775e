package sim

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"pagefx/internal/eventbus"
	"pagefx/internal/reveal"
	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
)

// Event is one timeline line of a session, offset from its start.
type Event struct {
	At      time.Duration
	Type    string
	Element viewport.ElementID
	Detail  string
}

type CounterResult struct {
	ID     viewport.ElementID
	Target int
	Final  int
	Done   bool
	DoneAt time.Duration
}

type RevealResult struct {
	ID          viewport.ElementID
	Index       int
	Triggered   bool
	TriggeredAt time.Duration
	Shown       bool
	ShownAt     time.Duration
}

type ImageResult struct {
	ID       viewport.ElementID
	Src      string
	Loaded   bool
	LoadedAt time.Duration
}

// Report summarizes one session. Offsets are relative to Start.
type Report struct {
	Title           string
	Start           time.Time
	Elapsed         time.Duration
	ObserverEnabled bool
	Idle            bool

	Counters []CounterResult
	Reveals  []RevealResult
	Images   []ImageResult
	Forms    []widgets.SubmitResult
	Notices  []string
	Toggles  map[string]bool

	// Schedulers holds each scheduler's snapshot taken just before teardown.
	Schedulers map[string]reveal.Snapshot
	Timeline   []Event
	Problems   []string
	Dropped    uint64

	counterIdx map[viewport.ElementID]int
	revealIdx  map[viewport.ElementID]int
	imageIdx   map[viewport.ElementID]int
}

func newReport(title string, start time.Time) *Report {
	return &Report{
		Title:      title,
		Start:      start,
		Toggles:    map[string]bool{},
		Schedulers: map[string]reveal.Snapshot{},
		counterIdx: map[viewport.ElementID]int{},
		revealIdx:  map[viewport.ElementID]int{},
		imageIdx:   map[viewport.ElementID]int{},
	}
}

func (r *Report) addCounter(id viewport.ElementID, target int) {
	r.counterIdx[id] = len(r.Counters)
	r.Counters = append(r.Counters, CounterResult{ID: id, Target: target})
}

func (r *Report) addReveal(id viewport.ElementID) {
	r.revealIdx[id] = len(r.Reveals)
	r.Reveals = append(r.Reveals, RevealResult{ID: id})
}

func (r *Report) addImage(id viewport.ElementID, src string) {
	r.imageIdx[id] = len(r.Images)
	r.Images = append(r.Images, ImageResult{ID: id, Src: src})
}

func (r *Report) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Counter returns the result for a registered counter.
func (r *Report) Counter(id viewport.ElementID) (CounterResult, bool) {
	i, ok := r.counterIdx[id]
	if !ok {
		return CounterResult{}, false
	}
	return r.Counters[i], true
}

func (r *Report) Reveal(id viewport.ElementID) (RevealResult, bool) {
	i, ok := r.revealIdx[id]
	if !ok {
		return RevealResult{}, false
	}
	return r.Reveals[i], true
}

func (r *Report) Image(id viewport.ElementID) (ImageResult, bool) {
	i, ok := r.imageIdx[id]
	if !ok {
		return ImageResult{}, false
	}
	return r.Images[i], true
}

// apply folds one bus event into the report.
func (r *Report) apply(e eventbus.Event) {
	at := e.Time.Sub(r.Start)
	id := viewport.ElementID(e.Element)
	ev := Event{At: at, Type: e.Type, Element: id}

	switch e.Type {
	case eventbus.TopicTriggered:
		idx, _ := e.Data.(int)
		ev.Detail = fmt.Sprintf("index=%d", idx)
		if i, ok := r.revealIdx[id]; ok {
			r.Reveals[i].Triggered = true
			r.Reveals[i].TriggeredAt = at
			r.Reveals[i].Index = idx
		}
	case eventbus.TopicShown:
		if i, ok := r.revealIdx[id]; ok {
			r.Reveals[i].Shown = true
			r.Reveals[i].ShownAt = at
		}
	case eventbus.TopicCounterDone:
		v, _ := e.Data.(int)
		ev.Detail = fmt.Sprintf("value=%d", v)
		if i, ok := r.counterIdx[id]; ok {
			r.Counters[i].Final = v
			r.Counters[i].Done = true
			r.Counters[i].DoneAt = at
		}
	case eventbus.TopicImageLoaded:
		src, _ := e.Data.(string)
		ev.Detail = src
		if i, ok := r.imageIdx[id]; ok {
			r.Images[i].Loaded = true
			r.Images[i].LoadedAt = at
		}
	case eventbus.TopicToggle:
		if t, ok := e.Data.(widgets.Toggle); ok {
			ev.Detail = fmt.Sprintf("%s=%t", t.Class, t.On)
			r.Toggles[e.Element+"."+t.Class] = t.On
		}
	case eventbus.TopicNotify:
		if n, ok := e.Data.(widgets.Notice); ok {
			ev.Detail = n.Kind + ": " + n.Message
			r.Notices = append(r.Notices, n.Message)
		}
	case eventbus.TopicForm:
		if res, ok := e.Data.(widgets.SubmitResult); ok {
			ev.Detail = string(res.Status)
		}
	case eventbus.TopicTeardown:
		n, _ := e.Data.(int)
		ev.Detail = fmt.Sprintf("remaining=%d", n)
	}
	r.Timeline = append(r.Timeline, ev)
}

// finish orders the timeline. Events from different publishers can reach
// the collector slightly out of order.
func (r *Report) finish() {
	sort.SliceStable(r.Timeline, func(i, j int) bool { return r.Timeline[i].At < r.Timeline[j].At })
}

// Format writes a human readable summary.
func (r *Report) Format(w io.Writer) error {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "page: %s\n", title)
	fmt.Fprintf(&b, "elapsed: %s  observer: %t  idle: %t\n", r.Elapsed, r.ObserverEnabled, r.Idle)

	if len(r.Counters) > 0 {
		b.WriteString("\ncounters:\n")
		for _, c := range r.Counters {
			state := "pending"
			if c.Done {
				state = "done at " + c.DoneAt.String()
			}
			fmt.Fprintf(&b, "  %-24s %6d / %-6d %s\n", c.ID, c.Final, c.Target, state)
		}
	}
	if len(r.Reveals) > 0 {
		b.WriteString("\nreveals:\n")
		for _, rv := range r.Reveals {
			switch {
			case rv.Shown:
				fmt.Fprintf(&b, "  %-24s index %-3d triggered %-8s shown %s\n", rv.ID, rv.Index, rv.TriggeredAt, rv.ShownAt)
			case rv.Triggered:
				fmt.Fprintf(&b, "  %-24s index %-3d triggered %s\n", rv.ID, rv.Index, rv.TriggeredAt)
			default:
				fmt.Fprintf(&b, "  %-24s never seen\n", rv.ID)
			}
		}
	}
	if len(r.Images) > 0 {
		b.WriteString("\nimages:\n")
		for _, im := range r.Images {
			state := "not loaded"
			if im.Loaded {
				state = "loaded at " + im.LoadedAt.String()
			}
			fmt.Fprintf(&b, "  %-24s %-32s %s\n", im.ID, im.Src, state)
		}
	}
	if len(r.Forms) > 0 {
		b.WriteString("\nforms:\n")
		for _, f := range r.Forms {
			fmt.Fprintf(&b, "  %-24s %s\n", f.Form, f.Status)
			for _, fe := range f.Errors {
				fmt.Fprintf(&b, "    %s\n", fe.Error())
			}
		}
	}
	if len(r.Notices) > 0 {
		b.WriteString("\nnotices:\n")
		for _, n := range r.Notices {
			fmt.Fprintf(&b, "  %s\n", n)
		}
	}
	if len(r.Toggles) > 0 {
		keys := make([]string, 0, len(r.Toggles))
		for k := range r.Toggles {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\ntoggles:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %-32s %t\n", k, r.Toggles[k])
		}
	}
	if len(r.Schedulers) > 0 {
		names := make([]string, 0, len(r.Schedulers))
		for k := range r.Schedulers {
			names = append(names, k)
		}
		sort.Strings(names)
		b.WriteString("\nschedulers:\n")
		for _, n := range names {
			s := r.Schedulers[n]
			fmt.Fprintf(&b, "  %-10s watching %-3d triggered %-3d ignored %d\n", n, s.Watching, s.Triggered, s.Ignored)
		}
	}
	if len(r.Problems) > 0 {
		b.WriteString("\nproblems:\n")
		for _, p := range r.Problems {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	if r.Dropped > 0 {
		fmt.Fprintf(&b, "\n%d events dropped\n", r.Dropped)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
