package page

import (
	"pagefx/internal/viewport"
)

// Element is a discovered node. Order is its position among discovered
// nodes in document order.
type Element struct {
	ID      viewport.ElementID
	Tag     string
	Order   int
	Classes []string
	Text    string
}

func (e *Element) HasClass(c string) bool {
	for _, x := range e.Classes {
		if x == c {
			return true
		}
	}
	return false
}

// Counter is a `.stat-number[data-count]` element. Target follows parseInt
// semantics on the attribute; Err is set when no integer prefix exists.
type Counter struct {
	ID     viewport.ElementID
	Raw    string
	Target int
	Err    error
}

type Image struct {
	ID  viewport.ElementID
	Src string
}

type FAQItem struct {
	ID       viewport.ElementID
	Question string
}

type CourseCard struct {
	ID       viewport.ElementID
	Category string
}

type FilterButton struct {
	ID     viewport.ElementID
	Filter string
}

type Field struct {
	Name     string
	Type     string
	Required bool
}

type Form struct {
	ID         viewport.ElementID
	Action     string
	Submit     viewport.ElementID // empty when the form has no submit button
	SubmitText string
	Fields     []Field
}

// Anchor is an in-page link (`a[href^="#"]`, except the bare "#").
type Anchor struct {
	ID     viewport.ElementID
	Target viewport.ElementID
}

type Document struct {
	Title string

	// Elements lists every discovered node in document order.
	Elements []*Element

	Counters []Counter
	Reveals  []viewport.ElementID
	Images   []Image
	FAQ      []FAQItem
	Courses  []CourseCard
	Filters  []FilterButton
	Forms    []Form
	Anchors  []Anchor

	// Sections are anchor targets, kept so in-page navigation can be laid out.
	Sections []viewport.ElementID

	Navbar     viewport.ElementID
	BackToTop  viewport.ElementID
	MenuButton viewport.ElementID
	NavMenu    viewport.ElementID

	byID map[viewport.ElementID]*Element
}

// Lookup returns the discovered element with id.
func (d *Document) Lookup(id viewport.ElementID) (*Element, bool) {
	e, ok := d.byID[id]
	return e, ok
}

func (d *Document) Form(id viewport.ElementID) (Form, bool) {
	for _, f := range d.Forms {
		if f.ID == id {
			return f, true
		}
	}
	return Form{}, false
}
