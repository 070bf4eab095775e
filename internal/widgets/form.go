package widgets

import (
	"strings"
	"sync"
	"time"

	"pagefx/internal/eventbus"
	"pagefx/internal/eventloop"
	"pagefx/internal/page"
	"pagefx/internal/viewport"
	logx "pagefx/pkg/logx"
)

const (
	SendingText    = "Sending..."
	SuccessMessage = "Thank you! We will contact you soon."
	InvalidMessage = "Please correct the highlighted fields."

	// externalFormHost marks forms posted to a third-party endpoint; those
	// submit natively and get no simulated completion.
	externalFormHost = "formspree.io"
)

type FormOptions struct {
	CompleteAfter time.Duration
	RestoreAfter  time.Duration
	// Validated lists the forms whose email/phone fields are checked before submit.
	Validated []viewport.ElementID
	Logger    logx.Logger
	Bus       eventbus.Bus
}

type SubmitStatus string

const (
	SubmitSent     SubmitStatus = "sent"
	SubmitExternal SubmitStatus = "external"
	SubmitInvalid  SubmitStatus = "invalid"
	SubmitBusy     SubmitStatus = "busy"
)

type SubmitResult struct {
	Form   viewport.ElementID
	Status SubmitStatus
	Errors []FieldError
}

// FormSubmitter drives the submit button state and the simulated completion
// of site forms.
type FormSubmitter struct {
	mu       sync.Mutex
	inflight map[viewport.ElementID]bool
	marked   map[viewport.ElementID][]string // fields currently showing an error

	host      eventloop.Host
	out       Surface
	notices   *Notifications
	complete  time.Duration
	restore   time.Duration
	validated map[viewport.ElementID]bool
	log       logx.Logger
	bus       eventbus.Bus
}

func NewFormSubmitter(host eventloop.Host, out Surface, notices *Notifications, opts FormOptions) *FormSubmitter {
	f := &FormSubmitter{
		inflight:  map[viewport.ElementID]bool{},
		marked:    map[viewport.ElementID][]string{},
		host:      host,
		out:       out,
		notices:   notices,
		complete:  opts.CompleteAfter,
		restore:   opts.RestoreAfter,
		validated: map[viewport.ElementID]bool{},
		log:       opts.Logger,
		bus:       opts.Bus,
	}
	if f.complete <= 0 {
		f.complete = 1500 * time.Millisecond
	}
	if f.restore <= 0 {
		f.restore = 2000 * time.Millisecond
	}
	if len(opts.Validated) == 0 {
		opts.Validated = []viewport.ElementID{"enrollment-form"}
	}
	for _, id := range opts.Validated {
		f.validated[id] = true
	}
	if f.log.IsZero() {
		f.log = logx.Nop()
	}
	return f
}

// Submit starts a submission. Validated forms with bad fields are not
// submitted: each bad field is marked and an error notice is shown. Marks
// left by an earlier attempt are cleared first. A form whose button is
// still disabled is busy.
//
// Non-external forms complete after CompleteAfter with a success notice and
// a reset, and the button is restored RestoreAfter later. External forms only
// get the button restore, RestoreAfter from now.
func (f *FormSubmitter) Submit(form page.Form, values map[string]string) SubmitResult {
	res := SubmitResult{Form: form.ID}
	now := f.host.Now()

	if f.validated[form.ID] {
		f.clearMarks(form.ID)
		if errs := ValidateForm(values); len(errs) > 0 {
			res.Status, res.Errors = SubmitInvalid, errs
			f.markFields(form.ID, errs)
			if f.notices != nil {
				f.notices.Show(InvalidMessage, NoticeError)
			}
			f.emit(now, res)
			return res
		}
	}

	f.mu.Lock()
	if f.inflight[form.ID] {
		f.mu.Unlock()
		res.Status = SubmitBusy
		return res
	}
	f.inflight[form.ID] = true
	f.mu.Unlock()

	if form.Submit != "" {
		f.out.SetDisabled(form.Submit, true)
		f.out.SetText(form.Submit, SendingText)
	}

	restore := func() {
		f.mu.Lock()
		delete(f.inflight, form.ID)
		f.mu.Unlock()
		if form.Submit != "" {
			f.out.SetDisabled(form.Submit, false)
			f.out.SetText(form.Submit, form.SubmitText)
		}
	}

	if strings.Contains(form.Action, externalFormHost) {
		res.Status = SubmitExternal
		f.host.SetTimeout(f.restore, restore)
		f.emit(now, res)
		return res
	}

	res.Status = SubmitSent
	f.host.SetTimeout(f.complete, func() {
		if f.notices != nil {
			f.notices.Show(SuccessMessage, NoticeSuccess)
		}
		f.out.ResetForm(form.ID)
		f.host.SetTimeout(f.restore, restore)
	})
	f.emit(now, res)
	return res
}

func (f *FormSubmitter) clearMarks(form viewport.ElementID) {
	f.mu.Lock()
	fields := f.marked[form]
	delete(f.marked, form)
	f.mu.Unlock()
	for _, field := range fields {
		f.out.SetFieldError(form, field, "")
	}
}

func (f *FormSubmitter) markFields(form viewport.ElementID, errs []FieldError) {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		f.log.Debug("form field invalid", logx.String("form", string(form)), logx.String("field", e.Field))
		f.out.SetFieldError(form, e.Field, e.Message)
		fields = append(fields, e.Field)
	}
	f.mu.Lock()
	f.marked[form] = fields
	f.mu.Unlock()
}

func (f *FormSubmitter) emit(now time.Time, res SubmitResult) {
	f.log.Info("form submitted", logx.String("form", string(res.Form)), logx.String("status", string(res.Status)))
	publish(f.bus, eventbus.Event{Type: eventbus.TopicForm, Time: now, Element: string(res.Form), Data: res})
}
