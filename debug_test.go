package stain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogs routes stain's logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })
	return &buf
}

func setDebug(t *testing.T, on bool) {
	t.Helper()
	prev := globalDebug.Load()
	globalDebug.Store(on)
	t.Cleanup(func() { globalDebug.Store(prev) })
}

func TestDebugMode_TreeDepthWarning(t *testing.T) {
	buf := captureLogs(t)
	setDebug(t, true)

	current := NewSurface("root")
	for i := 0; i < debugMaxTreeDepth+5; i++ {
		child := NewSurface(fmt.Sprintf("depth_%d", i))
		current.AppendChild(child)
		current = child
	}

	if !strings.Contains(buf.String(), "surface tree is deep") {
		t.Errorf("expected tree depth warning, got: %q", buf.String())
	}
}

func TestDebugMode_ChildCountWarning(t *testing.T) {
	buf := captureLogs(t)
	setDebug(t, true)

	parent := NewSurface("many_children")
	for i := 0; i < debugMaxChildCount+1; i++ {
		parent.AppendChild(NewSurface(fmt.Sprintf("c_%d", i)))
	}

	out := buf.String()
	if !strings.Contains(out, "surface has many children") || !strings.Contains(out, "surface=many_children") {
		t.Errorf("expected child count warning, got: %q", out)
	}
}

func TestReleaseMode_NoTreeWarnings(t *testing.T) {
	buf := captureLogs(t)
	setDebug(t, false)

	current := NewSurface("root")
	for i := 0; i < debugMaxTreeDepth+5; i++ {
		child := NewSurface("")
		current.AppendChild(child)
		current = child
	}

	if buf.Len() != 0 {
		t.Errorf("release mode logged: %q", buf.String())
	}
}

func TestDebugLog_AllFields(t *testing.T) {
	buf := captureLogs(t)

	debugLog(debugStats{
		compileTime:    2 * time.Millisecond,
		waitTime:       3 * time.Millisecond,
		primitiveCount: 7,
		clipCount:      2,
		glyphCount:     11,
		resourceCount:  4,
	})

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=frame",
		"compile=2ms", "wait=3ms", "total=5ms",
		"primitives=7", "clips=2", "glyphs=11", "resources=4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	buf := captureLogs(t)
	SetLogger(nil)

	Logger().Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("nop logger wrote %q", buf.String())
	}
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger should report every level disabled")
	}
}
