package config

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Observer  ObserverConfig  `json:"observer"`

	Counters CountersConfig `json:"counters"`
	Reveals  RevealsConfig  `json:"reveals"`
	Images   ImagesConfig   `json:"images"`

	Toggles       TogglesConfig       `json:"toggles"`
	Notifications NotificationsConfig `json:"notifications"`
	Forms         FormsConfig         `json:"forms"`

	// Layout places scanned elements for simulation. Elements without an
	// explicit rect are stacked in document order.
	Layout LayoutConfig `json:"layout"`

	// Script is the scroll session replayed by `pagefx simulate`.
	Script []ScriptStep `json:"script,omitempty"`

	// Pprof is only served by `pagefx watch`.
	Pprof PprofConfig `json:"pprof"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the reveal scheduler and its host loop.
//
// All durations are Go duration strings (e.g. "16ms", "100ms").
//
// Defaults (when fields are omitted/zero):
//   - frame_interval: "16ms"
//   - stagger_unit: "100ms"
//   - stagger_mode: "batch_index"
type SchedulerConfig struct {
	FrameInterval string `json:"frame_interval,omitempty"`
	StaggerUnit   string `json:"stagger_unit,omitempty"`
	// StaggerMode is "batch_index" or "trigger_order".
	StaggerMode string `json:"stagger_mode,omitempty"`
}

// ObserverConfig describes the viewport the geometry observer measures against.
//
// Enabled is a pointer so we can distinguish "omitted" (default true) from an
// explicit false, which simulates a platform without visibility observation.
type ObserverConfig struct {
	Enabled        *bool   `json:"enabled,omitempty"`
	ViewportWidth  float64 `json:"viewport_width,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`
}

type CountersConfig struct {
	Duration   string   `json:"duration,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	RootMargin string   `json:"root_margin,omitempty"`
}

type RevealsConfig struct {
	// Classes overrides the class list that marks reveal targets.
	Classes    []string `json:"classes,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	RootMargin string   `json:"root_margin,omitempty"`
}

type ImagesConfig struct {
	Threshold  *float64 `json:"threshold,omitempty"`
	RootMargin string   `json:"root_margin,omitempty"`
}

type TogglesConfig struct {
	Navbar    float64 `json:"navbar,omitempty"`
	BackToTop float64 `json:"back_to_top,omitempty"`
}

type NotificationsConfig struct {
	Lifetime string `json:"lifetime,omitempty"`
	// RatePerSec limits how often notifications may be shown; 0 disables limiting.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`
}

// FormsConfig tunes the submit UX of non-external forms.
//
// Defaults: complete_after "1500ms", restore_after "2000ms".
type FormsConfig struct {
	CompleteAfter string `json:"complete_after,omitempty"`
	RestoreAfter  string `json:"restore_after,omitempty"`
}

// PprofConfig controls the debug listener.
//
// Defaults: address "127.0.0.1:6060".
type PprofConfig struct {
	Enabled              bool   `json:"enabled"`
	Address              string `json:"address,omitempty"`
	BlockProfileRate     int    `json:"block_profile_rate,omitempty"`
	MutexProfileFraction int    `json:"mutex_profile_fraction,omitempty"`
}

type LayoutConfig struct {
	DefaultHeight float64               `json:"default_height,omitempty"`
	Elements      map[string]RectConfig `json:"elements,omitempty"`
}

type RectConfig struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScriptStep is one action of a simulated session.
//
// Actions:
//   - scroll: y
//   - resize: width, height
//   - faq: index
//   - filter: category
//   - submit: form (element id), fields
//   - anchor: target (element id), scrolls below the navbar
//   - top: back-to-top click
//   - menu: toggles the mobile menu
type ScriptStep struct {
	At       string            `json:"at"`
	Action   string            `json:"action"`
	Y        float64           `json:"y,omitempty"`
	Width    float64           `json:"width,omitempty"`
	Height   float64           `json:"height,omitempty"`
	Index    int               `json:"index,omitempty"`
	Category string            `json:"category,omitempty"`
	Form     string            `json:"form,omitempty"`
	Target   string            `json:"target,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}
