package widgets

import (
	"pagefx/internal/eventbus"
	"pagefx/internal/viewport"
)

// Surface applies widget state to page elements.
type Surface interface {
	SetClass(id viewport.ElementID, class string, on bool)
	SetVisible(id viewport.ElementID, visible bool)
	SetText(id viewport.ElementID, text string)
	SetDisabled(id viewport.ElementID, disabled bool)
	ResetForm(id viewport.ElementID)
	// SetFieldError marks a named field of form with message; an empty
	// message clears the mark.
	SetFieldError(form viewport.ElementID, field, message string)
}

// Toggle is the payload of eventbus.TopicToggle.
type Toggle struct {
	Class string
	On    bool
}

func publish(bus eventbus.Bus, e eventbus.Event) {
	if bus != nil {
		bus.Publish(e)
	}
}
