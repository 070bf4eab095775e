package render

import (
	"pagefx/internal/reveal"
	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
)

// Sink is every output collaborator the runtime draws through.
type Sink interface {
	reveal.Styler
	reveal.TextRenderer
	reveal.ImageLoader
	widgets.Surface
	widgets.NoticeView
}

type counterTee struct {
	Sink
	extra []reveal.TextRenderer
}

// WithCounters returns base with counter values also sent to extra.
func WithCounters(base Sink, extra ...reveal.TextRenderer) Sink {
	if len(extra) == 0 {
		return base
	}
	return &counterTee{Sink: base, extra: extra}
}

func (t *counterTee) SetValue(id viewport.ElementID, v int) {
	t.Sink.SetValue(id, v)
	for _, e := range t.extra {
		e.SetValue(id, v)
	}
}
