package stain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// testStep is one action of a test script.
type testStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	X      float32 `json:"x,omitempty"`
	Y      float32 `json:"y,omitempty"`
	FromX  float32 `json:"fromX,omitempty"`
	FromY  float32 `json:"fromY,omitempty"`
	ToX    float32 `json:"toX,omitempty"`
	ToY    float32 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`

	// Expect steps check the presented frame's hit-test at (X, Y). Surface
	// names the required topmost surface; Hit alone only checks that
	// something is or is not there.
	Surface SurfaceID `json:"surface,omitempty"`
	Hit     *bool     `json:"hit,omitempty"`
}

func (st testStep) validate() error {
	switch st.Action {
	case "screenshot", "click", "move", "wait":
	case "drag":
		if st.Frames < 1 {
			return fmt.Errorf("drag needs frames >= 1")
		}
	case "expect":
		if st.Surface == 0 && st.Hit == nil {
			return fmt.Errorf("expect needs surface or hit")
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

// check compares the backend's hit-test with an expect step and describes
// any mismatch.
func (st testStep) check(b *EbitenBackend) (string, bool) {
	id, ok := b.HitTest(st.X, st.Y)
	switch {
	case st.Surface != 0 && (!ok || id != st.Surface):
		return fmt.Sprintf("at (%v, %v): hit %d (%v), want surface %d", st.X, st.Y, id, ok, st.Surface), false
	case st.Surface == 0 && ok != *st.Hit:
		return fmt.Sprintf("at (%v, %v): hit = %v, want %v", st.X, st.Y, ok, *st.Hit), false
	}
	return "", true
}

// TestRunner plays a scripted sequence of pointer input, screenshots and
// hit-test expectations against an EbitenBackend, one step per frame.
// Attach it with EbitenBackend.SetTestRunner.
type TestRunner struct {
	steps    []testStep
	cursor   int
	idle     int
	done     bool
	failures []string
}

// LoadTestScript parses a JSON test script of the form {"steps": [...]}.
// Actions are "screenshot" (label), "click" and "move" (x, y), "drag"
// (fromX, fromY, toX, toY, frames), "wait" (frames) and "expect" (x, y
// with surface or hit).
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script struct {
		Steps []testStep `json:"steps"`
	}
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("stain: parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("stain: parse test script: no steps")
	}
	for i, st := range script.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("stain: parse test script: step %d: %w", i, err)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// LoadTestScriptFile reads and parses a JSON test script file.
func LoadTestScriptFile(path string) (*TestRunner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stain: read test script: %w", err)
	}
	return LoadTestScript(data)
}

// Done reports whether every step has run and its input has been delivered.
func (r *TestRunner) Done() bool {
	return r.done
}

// Failures returns the messages of expect steps that did not hold.
func (r *TestRunner) Failures() []string {
	return r.failures
}

// Err returns an error summarizing Failures, or nil if every expectation
// held.
func (r *TestRunner) Err() error {
	if len(r.failures) == 0 {
		return nil
	}
	return fmt.Errorf("stain: test script: %d expectation(s) failed: %s",
		len(r.failures), strings.Join(r.failures, "; "))
}

// step runs at most one script step. Called once per frame from Update.
// Synthetic input queued by a previous step must drain first.
func (r *TestRunner) step(b *EbitenBackend) {
	if r.done || b.pendingInjections() > 0 {
		return
	}
	if r.idle > 0 {
		r.idle--
		return
	}
	if r.cursor == len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++
	switch st.Action {
	case "screenshot":
		b.Screenshot(st.Label)
	case "click":
		b.InjectClick(st.X, st.Y)
	case "move":
		// Hover: the button stays up.
		b.inject(syntheticPointerEvent{x: st.X, y: st.Y})
	case "drag":
		b.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		// The current frame is the first one waited.
		r.idle = max(st.Frames-1, 0)
	case "expect":
		if msg, ok := st.check(b); !ok {
			r.failures = append(r.failures, fmt.Sprintf("step %d: %s", r.cursor-1, msg))
			Logger().Warn("test script expectation failed", "step", r.cursor-1, "detail", msg)
		}
	}

	if r.cursor == len(r.steps) && r.idle == 0 && b.pendingInjections() == 0 {
		r.done = true
	}
}
