package reveal

import (
	"time"

	"pagefx/internal/eventbus"
	"pagefx/internal/eventloop"
	"pagefx/internal/viewport"
	logx "pagefx/pkg/logx"
)

// Trigger describes one element's first qualifying visibility notification.
type Trigger struct {
	ID viewport.ElementID
	// Index is the stagger multiplier for this trigger within its batch.
	Index int
	// BatchTime is when the batch was dispatched; stagger offsets are relative to it.
	BatchTime time.Time
	Entry     viewport.Entry
}

// TriggerFunc is the one-shot side effect of a watched element.
type TriggerFunc func(Trigger)

// Styler transitions reveal elements. Prepare puts an element in its hidden
// initial state; Reveal moves it to the visible state.
type Styler interface {
	Prepare(id viewport.ElementID)
	Reveal(id viewport.ElementID)
}

// TextRenderer sets an element's displayed text to an integer.
type TextRenderer interface {
	SetValue(id viewport.ElementID, value int)
}

// ImageLoader swaps a lazy image's real source in.
type ImageLoader interface {
	Load(id viewport.ElementID, src string)
}

// CounterConfig is the counter-specific part of a registration.
type CounterConfig struct {
	Target   int
	Duration time.Duration
}

// StaggerMode selects the index used as stagger multiplier.
type StaggerMode int

const (
	// StaggerBatchIndex uses the entry's position in the delivered batch,
	// counting entries that did not trigger.
	StaggerBatchIndex StaggerMode = iota
	// StaggerTriggerOrder uses the position among entries that trigger in the batch.
	StaggerTriggerOrder
)

func (m StaggerMode) String() string {
	if m == StaggerTriggerOrder {
		return "trigger_order"
	}
	return "batch_index"
}

// ParseStaggerMode accepts "batch_index" (default for "") and "trigger_order".
func ParseStaggerMode(s string) (StaggerMode, bool) {
	switch s {
	case "", "batch_index":
		return StaggerBatchIndex, true
	case "trigger_order":
		return StaggerTriggerOrder, true
	default:
		return StaggerBatchIndex, false
	}
}

const (
	DefaultStaggerUnit   = 100 * time.Millisecond
	DefaultFrameInterval = eventloop.DefaultFrameInterval
)

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithName labels the scheduler; the teardown event carries it as Element.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// WithBus publishes trigger and counter events to bus.
func WithBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

func WithStaggerUnit(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.staggerUnit = d
		}
	}
}

func WithStaggerMode(m StaggerMode) Option {
	return func(s *Scheduler) { s.staggerMode = m }
}

// WithFrameInterval sets the nominal frame period used to size counter steps.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// watchState is the registry record of one watched element.
type watchState struct {
	id        viewport.ElementID
	opts      viewport.Options
	kind      string
	triggered bool
	onTrigger TriggerFunc
}

// Snapshot is a point-in-time view of the scheduler for reports.
type Snapshot struct {
	Enabled   bool
	Closed    bool
	Watching  int
	Triggered uint64
	Ignored   uint64
}
