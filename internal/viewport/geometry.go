package viewport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidMargin = errors.New("invalid root margin")

// Rect is an axis-aligned box in document pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Area() float64   { return r.Width * r.Height }

// Offset returns r translated by dx, dy.
func (r Rect) Offset(dx, dy float64) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// Margin grows (positive) or shrinks (negative) the root box before
// intersection testing, like CSS rootMargin.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Apply expands r by m. A box shrunk past zero collapses to zero size.
func (m Margin) Apply(r Rect) Rect {
	out := Rect{
		Left:   r.Left - m.Left,
		Top:    r.Top - m.Top,
		Width:  r.Width + m.Left + m.Right,
		Height: r.Height + m.Top + m.Bottom,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

func (m Margin) String() string {
	return fmt.Sprintf("%gpx %gpx %gpx %gpx", m.Top, m.Right, m.Bottom, m.Left)
}

// ParseMargin parses the CSS margin shorthand (1 to 4 values, px or unitless).
func ParseMargin(s string) (Margin, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return Margin{}, nil
	}
	if len(fields) > 4 {
		return Margin{}, fmt.Errorf("%w: %q has more than 4 values", ErrInvalidMargin, s)
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parsePx(f)
		if err != nil {
			return Margin{}, fmt.Errorf("%w: %q: %v", ErrInvalidMargin, s, err)
		}
		vals[i] = v
	}
	switch len(vals) {
	case 1:
		return Margin{vals[0], vals[0], vals[0], vals[0]}, nil
	case 2:
		return Margin{vals[0], vals[1], vals[0], vals[1]}, nil
	case 3:
		return Margin{vals[0], vals[1], vals[2], vals[1]}, nil
	default:
		return Margin{vals[0], vals[1], vals[2], vals[3]}, nil
	}
}

func parsePx(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("percentages are not supported (%s)", s)
	}
	num := strings.TrimSuffix(s, "px")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("bad length %q", s)
	}
	return v, nil
}

// intersect returns the overlap of a and b. Edge-adjacent boxes intersect
// with a zero-area result.
func intersect(a, b Rect) (Rect, bool) {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right(), b.Right())
	bottom := min(a.Bottom(), b.Bottom())
	if right < left || bottom < top {
		return Rect{}, false
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}, true
}

// IntersectionRatio returns the fraction of target's area that lies inside
// root after root is expanded by m, and whether they intersect at all.
// A zero-area target that intersects has ratio 1.
func IntersectionRatio(target, root Rect, m Margin) (float64, bool) {
	box, ok := intersect(target, m.Apply(root))
	if !ok {
		return 0, false
	}
	area := target.Area()
	if area <= 0 {
		return 1, true
	}
	return box.Area() / area, true
}

// Visible applies the threshold rule. Threshold 0 accepts any intersection,
// including a box that only touches the root's edge with ratio 0. Otherwise
// the ratio must reach the threshold.
func Visible(ratio float64, intersecting bool, threshold float64) bool {
	if !intersecting {
		return false
	}
	if threshold <= 0 {
		return true
	}
	return ratio >= threshold
}
