package config

import (
	"reflect"
	"strings"

	logx "pagefx/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) structured attrs describing the new values for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.frame_interval", strings.TrimSpace(newCfg.Scheduler.FrameInterval)),
			logx.String("scheduler.stagger_unit", strings.TrimSpace(newCfg.Scheduler.StaggerUnit)),
			logx.String("scheduler.stagger_mode", strings.TrimSpace(newCfg.Scheduler.StaggerMode)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Observer, newCfg.Observer) {
		changed = append(changed, "observer")
		attrs = append(attrs,
			logx.Bool("observer.enabled", newCfg.Observer.Enabled == nil || *newCfg.Observer.Enabled),
			logx.Float64("observer.viewport_width", newCfg.Observer.ViewportWidth),
			logx.Float64("observer.viewport_height", newCfg.Observer.ViewportHeight),
		)
	}

	// Element effect sections only log which section moved.
	if !reflect.DeepEqual(oldCfg.Counters, newCfg.Counters) {
		changed = append(changed, "counters")
	}
	if !reflect.DeepEqual(oldCfg.Reveals, newCfg.Reveals) {
		changed = append(changed, "reveals")
		attrs = append(attrs, logx.Int("reveals.class_count", len(newCfg.Reveals.Classes)))
	}
	if !reflect.DeepEqual(oldCfg.Images, newCfg.Images) {
		changed = append(changed, "images")
	}
	if oldCfg.Toggles != newCfg.Toggles {
		changed = append(changed, "toggles")
	}
	if oldCfg.Notifications != newCfg.Notifications {
		changed = append(changed, "notifications")
	}
	if oldCfg.Forms != newCfg.Forms {
		changed = append(changed, "forms")
	}
	if !reflect.DeepEqual(oldCfg.Layout, newCfg.Layout) {
		changed = append(changed, "layout")
		attrs = append(attrs, logx.Int("layout.element_count", len(newCfg.Layout.Elements)))
	}
	if !reflect.DeepEqual(oldCfg.Script, newCfg.Script) {
		changed = append(changed, "script")
		attrs = append(attrs, logx.Int("script.steps", len(newCfg.Script)))
	}
	if oldCfg.Pprof != newCfg.Pprof {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.address", newCfg.Pprof.Address),
		)
	}

	return changed, attrs
}
