package viewport

import (
	"sync"
	"time"

	logx "pagefx/pkg/logx"
)

// Poster is the slice of the event loop the geometry platform needs.
type Poster interface {
	Now() time.Time
	Post(fn func())
}

// Geometry is a Platform computed from element layout and the scroll
// position of a single viewport. Every change to layout, scroll or size
// queues one evaluation on the host; each observer receives at most one
// batch per evaluation, listing entries in observation order.
type Geometry struct {
	mu   sync.Mutex
	host Poster
	log  logx.Logger

	width, height float64
	scrollY       float64
	layout        map[ElementID]Rect

	observers []*geometryObserver
	pending   bool
}

func NewGeometry(host Poster, width, height float64, log logx.Logger) *Geometry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Geometry{
		host:   host,
		log:    log,
		width:  width,
		height: height,
		layout: map[ElementID]Rect{},
	}
}

// Root returns the viewport box in document coordinates.
func (g *Geometry) Root() Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rootLocked()
}

func (g *Geometry) rootLocked() Rect {
	return Rect{Left: 0, Top: g.scrollY, Width: g.width, Height: g.height}
}

func (g *Geometry) ScrollY() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scrollY
}

func (g *Geometry) SetLayout(id ElementID, r Rect) {
	g.mu.Lock()
	g.layout[id] = r
	g.mu.Unlock()
	g.schedule()
}

// Layout returns the box of id, if known.
func (g *Geometry) Layout(id ElementID) (Rect, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.layout[id]
	return r, ok
}

func (g *Geometry) ScrollTo(y float64) {
	if y < 0 {
		y = 0
	}
	g.mu.Lock()
	g.scrollY = y
	g.mu.Unlock()
	g.schedule()
}

func (g *Geometry) Resize(width, height float64) {
	g.mu.Lock()
	g.width, g.height = width, height
	g.mu.Unlock()
	g.schedule()
}

func (g *Geometry) NewObserver(callback func([]Entry)) (Observer, error) {
	o := &geometryObserver{g: g, callback: callback, index: map[ElementID]int{}}
	g.mu.Lock()
	g.observers = append(g.observers, o)
	g.mu.Unlock()
	return o, nil
}

func (g *Geometry) schedule() {
	g.mu.Lock()
	if g.pending {
		g.mu.Unlock()
		return
	}
	g.pending = true
	g.mu.Unlock()
	g.host.Post(g.evaluate)
}

type delivery struct {
	callback func([]Entry)
	entries  []Entry
}

func (g *Geometry) evaluate() {
	now := g.host.Now()

	g.mu.Lock()
	g.pending = false
	root := g.rootLocked()
	var out []delivery
	live := g.observers[:0]
	for _, o := range g.observers {
		if o.disconnected {
			continue
		}
		live = append(live, o)
		if batch := o.collectLocked(root, now); len(batch) > 0 {
			out = append(out, delivery{callback: o.callback, entries: batch})
		}
	}
	g.observers = live
	g.mu.Unlock()

	for _, d := range out {
		d.callback(d.entries)
	}
}

type watch struct {
	id      ElementID
	opts    Options
	known   bool
	visible bool
}

type geometryObserver struct {
	g            *Geometry
	callback     func([]Entry)
	watches      []*watch
	index        map[ElementID]int
	disconnected bool
}

func (o *geometryObserver) Observe(id ElementID, opts Options) {
	o.g.mu.Lock()
	if o.disconnected {
		o.g.mu.Unlock()
		return
	}
	if _, ok := o.index[id]; ok {
		o.g.mu.Unlock()
		return
	}
	o.index[id] = len(o.watches)
	o.watches = append(o.watches, &watch{id: id, opts: opts})
	o.g.mu.Unlock()
	o.g.schedule()
}

func (o *geometryObserver) Unobserve(id ElementID) {
	o.g.mu.Lock()
	defer o.g.mu.Unlock()
	i, ok := o.index[id]
	if !ok {
		return
	}
	o.watches = append(o.watches[:i], o.watches[i+1:]...)
	delete(o.index, id)
	for j := i; j < len(o.watches); j++ {
		o.index[o.watches[j].id] = j
	}
}

func (o *geometryObserver) Disconnect() {
	o.g.mu.Lock()
	defer o.g.mu.Unlock()
	o.disconnected = true
	o.watches = nil
	o.index = map[ElementID]int{}
}

// collectLocked returns entries for newly observed elements and for
// elements whose visibility flipped since the last evaluation.
func (o *geometryObserver) collectLocked(root Rect, now time.Time) []Entry {
	var batch []Entry
	for _, w := range o.watches {
		box, laidOut := o.g.layout[w.id]
		ratio, hit := 0.0, false
		if laidOut {
			ratio, hit = IntersectionRatio(box, root, w.opts.RootMargin)
		}
		vis := Visible(ratio, hit, w.opts.Threshold)
		if w.known && w.visible == vis {
			continue
		}
		w.known = true
		w.visible = vis
		batch = append(batch, Entry{Target: w.id, Visible: vis, Ratio: ratio, Time: now})
	}
	return batch
}
