package widgets

import (
	"time"

	"pagefx/internal/eventbus"
	"pagefx/internal/viewport"
)

// ScrollToggle is on while the scroll offset is strictly above Threshold.
type ScrollToggle struct {
	Threshold float64
	on        bool
}

// Update feeds a scroll offset and reports the new state and whether it flipped.
func (t *ScrollToggle) Update(y float64) (on, changed bool) {
	next := y > t.Threshold
	changed = next != t.on
	t.on = next
	return next, changed
}

func (t *ScrollToggle) On() bool { return t.on }

// ClassToggle binds a ScrollToggle to a class on one element, e.g. the
// navbar's "scrolled" class or the back-to-top button's "visible" class.
type ClassToggle struct {
	ID     viewport.ElementID
	Class  string
	toggle ScrollToggle
	out    Surface
	bus    eventbus.Bus
}

func NewClassToggle(out Surface, bus eventbus.Bus, id viewport.ElementID, class string, threshold float64) *ClassToggle {
	return &ClassToggle{ID: id, Class: class, toggle: ScrollToggle{Threshold: threshold}, out: out, bus: bus}
}

// OnScroll applies the class when the toggle flips. It reports the flip.
func (c *ClassToggle) OnScroll(now time.Time, y float64) bool {
	on, changed := c.toggle.Update(y)
	if !changed {
		return false
	}
	c.out.SetClass(c.ID, c.Class, on)
	publish(c.bus, eventbus.Event{Type: eventbus.TopicToggle, Time: now, Element: string(c.ID), Data: Toggle{Class: c.Class, On: on}})
	return true
}

func (c *ClassToggle) On() bool { return c.toggle.On() }

// AnchorGap is the space left above an anchor target below the navbar.
const AnchorGap = 20.0

// AnchorOffset returns the scroll offset that brings a target whose
// viewport-relative top is targetTop just below a navbar of navHeight.
func AnchorOffset(targetTop, scrollY, navHeight float64) float64 {
	return targetTop + scrollY - navHeight - AnchorGap
}
