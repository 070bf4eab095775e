package render

import (
	"context"
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"pagefx/internal/viewport"
)

// Terminal draws counter ramps as progress bars.
type Terminal struct {
	mu      sync.Mutex
	p       *mpb.Progress
	bars    map[viewport.ElementID]*mpb.Bar
	targets map[viewport.ElementID]int
}

func NewTerminal(ctx context.Context, w io.Writer) *Terminal {
	return &Terminal{
		p:       mpb.NewWithContext(ctx, mpb.WithOutput(w), mpb.WithWidth(48)),
		bars:    map[viewport.ElementID]*mpb.Bar{},
		targets: map[viewport.ElementID]int{},
	}
}

// Track adds a bar for a counter ramping to target.
func (t *Terminal) Track(id viewport.ElementID, target int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.bars[id]; ok {
		return
	}
	name := string(id)
	bar := t.p.New(int64(target),
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d"),
		),
	)
	t.bars[id] = bar
	t.targets[id] = target
}

func (t *Terminal) SetValue(id viewport.ElementID, v int) {
	t.mu.Lock()
	bar, ok := t.bars[id]
	target := t.targets[id]
	t.mu.Unlock()
	if !ok {
		return
	}
	bar.SetCurrent(int64(v))
	if v >= target {
		bar.SetTotal(int64(target), true)
	}
}

// Wait aborts bars that never completed and flushes the display.
func (t *Terminal) Wait() {
	t.mu.Lock()
	for _, bar := range t.bars {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}
	t.mu.Unlock()
	t.p.Wait()
}
