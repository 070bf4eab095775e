package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"pagefx/internal/observability/pprof"
	"pagefx/internal/reveal"
	"pagefx/internal/viewport"
	logx "pagefx/pkg/logx"
)

var ErrInvalid = errors.New("invalid config")

const (
	DefaultCounterDuration      = 2 * time.Second
	DefaultCounterThreshold     = 0.5
	DefaultRevealThreshold      = 0.1
	DefaultRevealRootMargin     = "0px 0px -50px 0px"
	DefaultImageThreshold       = 0.0
	DefaultNavbarThreshold      = 50.0
	DefaultBackToTopThreshold   = 500.0
	DefaultNotificationLifetime = 5 * time.Second
	DefaultFormCompleteAfter    = 1500 * time.Millisecond
	DefaultFormRestoreAfter     = 2000 * time.Millisecond
	DefaultViewportWidth        = 1280.0
	DefaultViewportHeight       = 800.0
	DefaultBlockHeight          = 400.0
)

// DefaultRevealClasses are the classes whose elements fade in on first view.
var DefaultRevealClasses = []string{
	"course-card", "feature-card", "testimonial-card",
	"section-header", "hero-content", "hero-visual",
}

// Settings is the typed, defaulted view of a Config.
type Settings struct {
	Log logx.Config

	FrameInterval time.Duration
	StaggerUnit   time.Duration
	StaggerMode   reveal.StaggerMode

	ObserverEnabled bool
	ViewportWidth   float64
	ViewportHeight  float64

	CounterDuration time.Duration
	Counter         viewport.Options
	Reveal          viewport.Options
	RevealClasses   []string
	Image           viewport.Options

	NavbarThreshold    float64
	BackToTopThreshold float64

	NotificationLifetime time.Duration
	NotificationRate     float64
	NotificationBurst    int

	FormCompleteAfter time.Duration
	FormRestoreAfter  time.Duration

	BlockHeight float64
	Elements    map[viewport.ElementID]viewport.Rect

	Script []Step

	Pprof pprof.Config
}

// Step is a resolved ScriptStep.
type Step struct {
	At       time.Duration
	Action   string
	Y        float64
	Width    float64
	Height   float64
	Index    int
	Category string
	Form     string
	Target   string
	Fields   map[string]string
}

var scriptActions = map[string]bool{
	"scroll": true, "resize": true, "faq": true, "filter": true, "submit": true,
	"anchor": true, "top": true, "menu": true,
}

// Resolve validates cfg and applies defaults. Errors wrap ErrInvalid and name
// the offending field.
func Resolve(cfg *Config) (*Settings, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalid, path, fmt.Sprintf(format, args...)))
	}
	dur := func(path, raw string, def time.Duration) time.Duration {
		d, err := ParseDurationOrDefault(path, raw, def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
			return def
		}
		return d
	}
	opts := func(section string, th *float64, defTh float64, margin, defMargin string) viewport.Options {
		o := viewport.Options{Threshold: defTh}
		if th != nil {
			if math.IsNaN(*th) || *th < 0 || *th > 1 {
				fail(section+".threshold", "must be within [0,1], got %v", *th)
			} else {
				o.Threshold = *th
			}
		}
		if strings.TrimSpace(margin) == "" {
			margin = defMargin
		}
		m, err := viewport.ParseMargin(margin)
		if err != nil {
			fail(section+".root_margin", "%v", err)
		}
		o.RootMargin = m
		return o
	}

	s := &Settings{
		Log: logx.Config{
			Level:   cfg.Logging.Level,
			Console: cfg.Logging.Console,
			File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
		},
		FrameInterval:   dur("scheduler.frame_interval", cfg.Scheduler.FrameInterval, reveal.DefaultFrameInterval),
		StaggerUnit:     dur("scheduler.stagger_unit", cfg.Scheduler.StaggerUnit, reveal.DefaultStaggerUnit),
		ObserverEnabled: cfg.Observer.Enabled == nil || *cfg.Observer.Enabled,
		ViewportWidth:   positiveOr(cfg.Observer.ViewportWidth, DefaultViewportWidth),
		ViewportHeight:  positiveOr(cfg.Observer.ViewportHeight, DefaultViewportHeight),

		CounterDuration: dur("counters.duration", cfg.Counters.Duration, DefaultCounterDuration),
		Counter:         opts("counters", cfg.Counters.Threshold, DefaultCounterThreshold, cfg.Counters.RootMargin, ""),
		Reveal:          opts("reveals", cfg.Reveals.Threshold, DefaultRevealThreshold, cfg.Reveals.RootMargin, DefaultRevealRootMargin),
		RevealClasses:   DefaultRevealClasses,
		Image:           opts("images", cfg.Images.Threshold, DefaultImageThreshold, cfg.Images.RootMargin, ""),

		NavbarThreshold:    positiveOr(cfg.Toggles.Navbar, DefaultNavbarThreshold),
		BackToTopThreshold: positiveOr(cfg.Toggles.BackToTop, DefaultBackToTopThreshold),

		NotificationLifetime: dur("notifications.lifetime", cfg.Notifications.Lifetime, DefaultNotificationLifetime),
		NotificationRate:     cfg.Notifications.RatePerSec,
		NotificationBurst:    cfg.Notifications.Burst,

		FormCompleteAfter: dur("forms.complete_after", cfg.Forms.CompleteAfter, DefaultFormCompleteAfter),
		FormRestoreAfter:  dur("forms.restore_after", cfg.Forms.RestoreAfter, DefaultFormRestoreAfter),

		BlockHeight: positiveOr(cfg.Layout.DefaultHeight, DefaultBlockHeight),
		Elements:    map[viewport.ElementID]viewport.Rect{},

		Pprof: pprof.Config{
			Enabled:              cfg.Pprof.Enabled,
			Addr:                 strings.TrimSpace(cfg.Pprof.Address),
			BlockProfileRate:     cfg.Pprof.BlockProfileRate,
			MutexProfileFraction: cfg.Pprof.MutexProfileFraction,
		},
	}

	mode, ok := reveal.ParseStaggerMode(strings.TrimSpace(cfg.Scheduler.StaggerMode))
	if !ok {
		fail("scheduler.stagger_mode", "unknown mode %q", cfg.Scheduler.StaggerMode)
	}
	s.StaggerMode = mode

	if len(cfg.Reveals.Classes) > 0 {
		classes := make([]string, 0, len(cfg.Reveals.Classes))
		for _, c := range cfg.Reveals.Classes {
			if c = strings.TrimSpace(c); c != "" {
				classes = append(classes, c)
			}
		}
		s.RevealClasses = classes
	}
	if s.NotificationRate < 0 {
		fail("notifications.rate_per_sec", "must be >= 0")
	}
	if s.Pprof.Addr == "" {
		s.Pprof.Addr = pprof.DefaultAddr
	}
	if s.NotificationBurst <= 0 {
		s.NotificationBurst = 1
	}

	ids := make([]string, 0, len(cfg.Layout.Elements))
	for id := range cfg.Layout.Elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := cfg.Layout.Elements[id]
		if r.Width < 0 || r.Height < 0 {
			fail("layout.elements."+id, "width and height must be >= 0")
			continue
		}
		s.Elements[viewport.ElementID(id)] = viewport.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}
	}

	var last time.Duration
	for i, st := range cfg.Script {
		path := fmt.Sprintf("script[%d]", i)
		at, err := ParseDurationField(path+".at", st.At)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
			continue
		}
		if at < last {
			fail(path+".at", "steps must be in time order (%s < %s)", at, last)
		}
		last = at
		action := strings.ToLower(strings.TrimSpace(st.Action))
		if !scriptActions[action] {
			fail(path+".action", "unknown action %q", st.Action)
			continue
		}
		if action == "resize" && (st.Width <= 0 || st.Height <= 0) {
			fail(path, "resize needs width and height > 0")
		}
		if action == "submit" && strings.TrimSpace(st.Form) == "" {
			fail(path+".form", "submit needs a form id")
		}
		if action == "anchor" && strings.TrimSpace(st.Target) == "" {
			fail(path+".target", "anchor needs a target id")
		}
		s.Script = append(s.Script, Step{
			At: at, Action: action, Y: st.Y, Width: st.Width, Height: st.Height,
			Index: st.Index, Category: st.Category, Form: st.Form, Target: st.Target, Fields: st.Fields,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func positiveOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
