package widgets

import (
	"pagefx/internal/page"
	"pagefx/internal/viewport"
)

const FilterAll = "all"

// CourseFilter shows the course cards of one category.
type CourseFilter struct {
	cards   []page.CourseCard
	buttons []page.FilterButton
	out     Surface
	active  string
}

func NewCourseFilter(out Surface, cards []page.CourseCard, buttons []page.FilterButton) *CourseFilter {
	return &CourseFilter{cards: cards, buttons: buttons, out: out, active: FilterAll}
}

// Apply marks the matching button active and returns the cards left visible.
// Category "all" shows every card.
func (f *CourseFilter) Apply(category string) []viewport.ElementID {
	for _, b := range f.buttons {
		f.out.SetClass(b.ID, "active", b.Filter == category)
	}
	visible := make([]viewport.ElementID, 0, len(f.cards))
	for _, c := range f.cards {
		show := category == FilterAll || c.Category == category
		f.out.SetVisible(c.ID, show)
		if show {
			visible = append(visible, c.ID)
		}
	}
	f.active = category
	return visible
}

func (f *CourseFilter) Active() string { return f.active }
