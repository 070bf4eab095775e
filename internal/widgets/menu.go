package widgets

import "pagefx/internal/viewport"

// MobileMenu is the collapsible navigation of narrow layouts.
type MobileMenu struct {
	button, menu viewport.ElementID
	open         bool
	out          Surface
}

func NewMobileMenu(out Surface, button, menu viewport.ElementID) *MobileMenu {
	return &MobileMenu{button: button, menu: menu, out: out}
}

// Toggle flips the menu and reports whether it is now open.
func (m *MobileMenu) Toggle() bool {
	m.set(!m.open)
	return m.open
}

// Close is used for link clicks and clicks outside the menu.
func (m *MobileMenu) Close() { m.set(false) }

func (m *MobileMenu) Open() bool { return m.open }

func (m *MobileMenu) set(open bool) {
	m.open = open
	m.out.SetClass(m.button, "active", open)
	m.out.SetClass(m.menu, "active", open)
}
