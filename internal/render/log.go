package render

import (
	"pagefx/internal/viewport"
	"pagefx/internal/widgets"
	logx "pagefx/pkg/logx"
)

// Log renders every output call as a structured log line. Counter ticks are
// logged at trace level.
type Log struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{log: log.With(logx.String("comp", "render"))}
}

func id(v viewport.ElementID) logx.Field { return logx.String("id", string(v)) }

func (l *Log) Prepare(e viewport.ElementID) { l.log.Trace("element hidden", id(e)) }
func (l *Log) Reveal(e viewport.ElementID)  { l.log.Info("element revealed", id(e)) }

func (l *Log) SetValue(e viewport.ElementID, v int) {
	l.log.Trace("counter value", id(e), logx.Int("value", v))
}

func (l *Log) Load(e viewport.ElementID, src string) {
	l.log.Info("image loaded", id(e), logx.String("src", src))
}

func (l *Log) SetClass(e viewport.ElementID, class string, on bool) {
	l.log.Debug("class toggled", id(e), logx.String("class", class), logx.Bool("on", on))
}

func (l *Log) SetVisible(e viewport.ElementID, visible bool) {
	l.log.Debug("display changed", id(e), logx.Bool("visible", visible))
}

func (l *Log) SetText(e viewport.ElementID, text string) {
	l.log.Debug("text changed", id(e), logx.String("text", text))
}

func (l *Log) SetDisabled(e viewport.ElementID, disabled bool) {
	l.log.Debug("disabled changed", id(e), logx.Bool("disabled", disabled))
}

func (l *Log) ResetForm(e viewport.ElementID) { l.log.Debug("form reset", id(e)) }

func (l *Log) SetFieldError(form viewport.ElementID, field, message string) {
	if message == "" {
		l.log.Debug("field error cleared", id(form), logx.String("field", field))
		return
	}
	l.log.Info("field error", id(form), logx.String("field", field), logx.String("message", message))
}

func (l *Log) ShowNotice(n widgets.Notice) {
	l.log.Info("notification", logx.String("kind", n.Kind), logx.String("message", n.Message))
}

func (l *Log) SlideOutNotice(n widgets.Notice) {
	l.log.Debug("notification sliding out", logx.Uint64("seq", n.Seq))
}

func (l *Log) RemoveNotice(n widgets.Notice) {
	l.log.Debug("notification removed", logx.Uint64("seq", n.Seq))
}
