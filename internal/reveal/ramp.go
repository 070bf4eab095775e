package reveal

import (
	"fmt"
	"math"
	"time"
)

// RampState is the lifecycle of a counter ramp.
type RampState int

const (
	RampIdle RampState = iota
	RampRamping
	RampDone
)

func (s RampState) String() string {
	switch s {
	case RampIdle:
		return "idle"
	case RampRamping:
		return "ramping"
	case RampDone:
		return "done"
	default:
		return fmt.Sprintf("RampState(%d)", int(s))
	}
}

// Ramp drives a displayed integer from 0 to a target in fixed per-frame steps.
//
// Each Tick adds step to an internal float accumulator. While the accumulator
// is below target the floor of it is displayed; once it reaches target the
// target itself is displayed and the ramp is done. The display never exceeds
// target and always ends exactly on it.
type Ramp struct {
	target   int
	step     float64
	current  float64
	state    RampState
	display  int
	ticks    int
	maxTicks int
	render   func(int)
}

// NewRamp validates the configuration and returns an idle ramp.
// render is called with every displayed value; it may be nil.
func NewRamp(target int, duration, frameInterval time.Duration, render func(int)) (*Ramp, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: target %d is negative", ErrInvalidTarget, target)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %s must be positive", ErrInvalidTarget, duration)
	}
	if frameInterval <= 0 {
		return nil, fmt.Errorf("%w: frame interval %s must be positive", ErrInvalidTarget, frameInterval)
	}
	frames := float64(duration) / float64(frameInterval)
	r := &Ramp{
		target: target,
		step:   float64(target) / frames,
		render: render,
		// Floating point can leave the accumulator a hair below target after the
		// nominal frame count; one extra tick pins the value.
		maxTicks: int(math.Ceil(frames)) + 1,
	}
	return r, nil
}

func (r *Ramp) State() RampState { return r.state }
func (r *Ramp) Value() int       { return r.display }
func (r *Ramp) Target() int      { return r.target }
func (r *Ramp) Step() float64    { return r.step }

// Ticks reports how many ticks have run, including the one performed by Start.
func (r *Ramp) Ticks() int { return r.ticks }

// Start moves Idle to Ramping and performs the first tick immediately.
// It reports whether another tick must be scheduled. Calling Start on a
// ramp that already started is a no-op returning false.
func (r *Ramp) Start() bool {
	if r.state != RampIdle {
		return false
	}
	r.state = RampRamping
	return r.Tick()
}

// Tick advances one frame and reports whether another tick must be scheduled.
// Ticks on an idle or finished ramp do nothing.
func (r *Ramp) Tick() bool {
	if r.state != RampRamping {
		return false
	}
	r.ticks++
	r.current += r.step
	if r.current < float64(r.target) && r.ticks < r.maxTicks {
		v := int(math.Floor(r.current))
		if v > r.display {
			r.display = v
		}
		r.emit(r.display)
		return true
	}
	r.display = r.target
	r.state = RampDone
	r.emit(r.display)
	return false
}

func (r *Ramp) emit(v int) {
	if r.render != nil {
		r.render(v)
	}
}
