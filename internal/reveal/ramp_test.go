package reveal

import (
	"errors"
	"testing"
	"time"
)

func TestRampReachesTargetMonotonically(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		target   int
		duration time.Duration
		frame    time.Duration
	}{
		{name: "stats counter", target: 250, duration: 2 * time.Second, frame: 16 * time.Millisecond},
		{name: "non divisible", target: 97, duration: 1500 * time.Millisecond, frame: 16 * time.Millisecond},
		{name: "tiny target long ramp", target: 1, duration: time.Hour, frame: 16 * time.Millisecond},
		{name: "huge step", target: 1_000_000, duration: 10 * time.Millisecond, frame: 16 * time.Millisecond},
		{name: "odd fractions", target: 3, duration: 100 * time.Millisecond, frame: 7 * time.Millisecond},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var shown []int
			r, err := NewRamp(tt.target, tt.duration, tt.frame, func(v int) { shown = append(shown, v) })
			if err != nil {
				t.Fatalf("NewRamp: %v", err)
			}
			more := r.Start()
			for more {
				more = r.Tick()
				if r.Ticks() > 1_000_000 {
					t.Fatal("ramp did not terminate")
				}
			}
			if r.State() != RampDone {
				t.Fatalf("state = %v, want done", r.State())
			}
			if len(shown) == 0 || shown[len(shown)-1] != tt.target {
				t.Fatalf("final value = %v, want %d", shown, tt.target)
			}
			prev := 0
			for i, v := range shown {
				if v < prev {
					t.Fatalf("value %d at tick %d decreased from %d", v, i, prev)
				}
				if v > tt.target {
					t.Fatalf("value %d at tick %d exceeds target %d", v, i, tt.target)
				}
				prev = v
			}
		})
	}
}

func TestRampTickCountMatchesDuration(t *testing.T) {
	t.Parallel()
	r, err := NewRamp(250, 2*time.Second, 16*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Step() != 2 {
		t.Fatalf("step = %v, want 2", r.Step())
	}
	for more := r.Start(); more; more = r.Tick() {
	}
	if r.Ticks() != 125 {
		t.Fatalf("ticks = %d, want 125", r.Ticks())
	}
}

func TestRampZeroTargetFinishesOnStart(t *testing.T) {
	t.Parallel()
	var shown []int
	r, err := NewRamp(0, 2*time.Second, 16*time.Millisecond, func(v int) { shown = append(shown, v) })
	if err != nil {
		t.Fatal(err)
	}
	if r.Start() {
		t.Fatal("zero target must not request another tick")
	}
	if r.State() != RampDone || len(shown) != 1 || shown[0] != 0 {
		t.Fatalf("state=%v shown=%v", r.State(), shown)
	}
}

func TestRampTransitionsAreIdempotent(t *testing.T) {
	t.Parallel()
	r, err := NewRamp(10, 32*time.Millisecond, 16*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Tick() {
		t.Fatal("tick on idle ramp should do nothing")
	}
	if r.State() != RampIdle || r.Ticks() != 0 {
		t.Fatalf("idle ramp changed: %v %d", r.State(), r.Ticks())
	}
	if !r.Start() {
		t.Fatal("first tick of 10/2 frames should request more")
	}
	if r.Start() {
		t.Fatal("second Start should be a no-op")
	}
	if r.Tick() {
		t.Fatal("ramp should finish on the second tick")
	}
	if r.Tick() || r.Value() != 10 || r.Ticks() != 2 {
		t.Fatalf("done ramp changed: value=%d ticks=%d", r.Value(), r.Ticks())
	}
}

func TestNewRampRejectsInvalidTargets(t *testing.T) {
	t.Parallel()
	cases := []struct {
		target   int
		duration time.Duration
		frame    time.Duration
	}{
		{-1, time.Second, 16 * time.Millisecond},
		{10, 0, 16 * time.Millisecond},
		{10, -time.Second, 16 * time.Millisecond},
		{10, time.Second, 0},
	}
	for _, c := range cases {
		if _, err := NewRamp(c.target, c.duration, c.frame, nil); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("NewRamp(%d, %v, %v) err = %v, want ErrInvalidTarget", c.target, c.duration, c.frame, err)
		}
	}
}
