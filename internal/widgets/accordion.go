package widgets

import (
	"fmt"

	"pagefx/internal/viewport"
)

// Accordion keeps at most one item open.
type Accordion struct {
	items  []viewport.ElementID
	active int
	out    Surface
}

func NewAccordion(out Surface, items []viewport.ElementID) *Accordion {
	return &Accordion{items: append([]viewport.ElementID(nil), items...), active: -1, out: out}
}

// Toggle closes every item, then opens i unless it was the open one.
func (a *Accordion) Toggle(i int) error {
	if i < 0 || i >= len(a.items) {
		return fmt.Errorf("faq item %d out of range [0,%d)", i, len(a.items))
	}
	wasActive := a.active == i
	for _, id := range a.items {
		a.out.SetClass(id, "active", false)
	}
	a.active = -1
	if !wasActive {
		a.out.SetClass(a.items[i], "active", true)
		a.active = i
	}
	return nil
}

// Active returns the open item, if any.
func (a *Accordion) Active() (int, bool) { return a.active, a.active >= 0 }

func (a *Accordion) Len() int { return len(a.items) }
