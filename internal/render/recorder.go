package render

import (
	"sync"
	"time"

	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
)

// Call is one recorded output operation.
type Call struct {
	At    time.Time
	Op    string
	ID    viewport.ElementID
	Value any
}

const (
	OpPrepare  = "prepare"
	OpReveal   = "reveal"
	OpValue    = "value"
	OpLoad     = "load"
	OpClass    = "class"
	OpVisible  = "visible"
	OpText     = "text"
	OpDisabled = "disabled"
	OpReset    = "reset"
	OpFieldErr = "field_error"
	OpNotice   = "notice"
	OpSlideOut = "notice.slide_out"
	OpRemove   = "notice.remove"
)

// FieldMark is the value of an OpFieldErr call. An empty Message is a clear.
type FieldMark struct {
	Field   string
	Message string
}

// State is the last known rendering of one element.
type State struct {
	Hidden     bool
	Revealed   bool
	RevealedAt time.Time
	Values     []int
	Src        string
	Classes    map[string]bool
	Display    *bool
	Text       string
	Disabled   bool
	// FieldErrors maps a form's field name to its error message.
	FieldErrors map[string]string
}

// Value returns the last displayed counter value.
func (s State) Value() (int, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Recorder keeps a timestamped log of every output call and the resulting
// element state.
type Recorder struct {
	mu     sync.Mutex
	now    func() time.Time
	calls  []Call
	states map[viewport.ElementID]*State
	notice *widgets.Notice
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now, states: map[viewport.ElementID]*State{}}
}

func (r *Recorder) record(op string, id viewport.ElementID, v any) *State {
	r.calls = append(r.calls, Call{At: r.now(), Op: op, ID: id, Value: v})
	if id == "" {
		return nil
	}
	st, ok := r.states[id]
	if !ok {
		st = &State{Classes: map[string]bool{}}
		r.states[id] = st
	}
	return st
}

func (r *Recorder) Prepare(id viewport.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpPrepare, id, nil).Hidden = true
}

func (r *Recorder) Reveal(id viewport.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.record(OpReveal, id, nil)
	st.Hidden = false
	st.Revealed = true
	st.RevealedAt = r.now()
}

func (r *Recorder) SetValue(id viewport.ElementID, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.record(OpValue, id, v)
	st.Values = append(st.Values, v)
}

func (r *Recorder) Load(id viewport.ElementID, src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpLoad, id, src).Src = src
}

func (r *Recorder) SetClass(id viewport.ElementID, class string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.record(OpClass, id, widgets.Toggle{Class: class, On: on})
	if on {
		st.Classes[class] = true
	} else {
		delete(st.Classes, class)
	}
}

func (r *Recorder) SetVisible(id viewport.ElementID, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpVisible, id, visible).Display = &visible
}

func (r *Recorder) SetText(id viewport.ElementID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpText, id, text).Text = text
}

func (r *Recorder) SetDisabled(id viewport.ElementID, disabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpDisabled, id, disabled).Disabled = disabled
}

func (r *Recorder) ResetForm(id viewport.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpReset, id, nil)
}

func (r *Recorder) SetFieldError(form viewport.ElementID, field, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.record(OpFieldErr, form, FieldMark{Field: field, Message: message})
	if message == "" {
		delete(st.FieldErrors, field)
		return
	}
	if st.FieldErrors == nil {
		st.FieldErrors = map[string]string{}
	}
	st.FieldErrors[field] = message
}

func (r *Recorder) ShowNotice(n widgets.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpNotice, "", n)
	r.notice = &n
}

func (r *Recorder) SlideOutNotice(n widgets.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpSlideOut, "", n)
}

func (r *Recorder) RemoveNotice(n widgets.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(OpRemove, "", n)
	if r.notice != nil && r.notice.Seq == n.Seq {
		r.notice = nil
	}
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the calls with op, in order.
func (r *Recorder) CallsOf(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// State returns a copy of the element's state.
func (r *Recorder) State(id viewport.ElementID) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[id]
	if !ok {
		return State{}, false
	}
	cp := *st
	cp.Values = append([]int(nil), st.Values...)
	cp.Classes = make(map[string]bool, len(st.Classes))
	for k, v := range st.Classes {
		cp.Classes[k] = v
	}
	if st.FieldErrors != nil {
		cp.FieldErrors = make(map[string]string, len(st.FieldErrors))
		for k, v := range st.FieldErrors {
			cp.FieldErrors[k] = v
		}
	}
	return cp, true
}

// Notice returns the notice currently on screen.
func (r *Recorder) Notice() (widgets.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notice == nil {
		return widgets.Notice{}, false
	}
	return *r.notice, true
}
