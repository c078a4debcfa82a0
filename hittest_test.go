package stain

import "testing"

// hitScene builds root(0,0,200,100) with a red child at (10,10,50,50) and a
// blue grandchild at (20,20,10,10) inside it.
func hitScene(t *testing.T) (*Frame, *Surface, *Surface, *Surface) {
	t.Helper()
	root := NewSurface("root")
	root.SetBackgroundColor(ColorWhite)
	child := NewSurface("child")
	child.SetBackgroundColor(Color{R: 1, A: 1})
	grand := NewSurface("grand")
	grand.SetBackgroundColor(Color{B: 1, A: 1})
	root.AppendChild(child)
	child.AppendChild(grand)

	layout := LayoutTable{
		root.ID:  {0, 0, 200, 100},
		child.ID: {10, 10, 50, 50},
		grand.ID: {20, 20, 10, 10},
	}
	return mustCompile(t, newTestCompiler(), root, layout), root, child, grand
}

func TestHitTestTopmostWins(t *testing.T) {
	f, root, child, grand := hitScene(t)
	tests := []struct {
		name string
		x, y float32
		want SurfaceID
	}{
		{"root only", 150, 50, root.ID},
		{"child", 15, 15, child.ID},
		{"grandchild", 35, 35, grand.ID},
		{"grandchild edge", 30, 30, grand.ID},
		{"child edge", 60, 60, child.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HitTestFrame(f, tt.x, tt.y)
			if !ok {
				t.Fatalf("HitTestFrame(%v, %v) missed", tt.x, tt.y)
			}
			if got != tt.want {
				t.Errorf("HitTestFrame(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestHitTestMiss(t *testing.T) {
	f, _, _, _ := hitScene(t)
	for _, pt := range [][2]float32{{-1, 5}, {201, 50}, {50, 101}} {
		if id, ok := HitTestFrame(f, pt[0], pt[1]); ok {
			t.Errorf("HitTestFrame(%v) = %d, want miss", pt, id)
		}
	}
}

func TestHitTestEmptyFrame(t *testing.T) {
	root := NewSurface("root")
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 10, 10}})
	if _, ok := HitTestFrame(f, 5, 5); ok {
		t.Error("frame without primitives should not hit")
	}
}

func TestHitTestClippedByRoundedAncestor(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(4))
	overflow := NewSurface("overflow")
	overflow.SetBackgroundColor(ColorWhite)
	root.AppendChild(overflow)

	layout := LayoutTable{root.ID: {0, 0, 50, 50}, overflow.ID: {40, 40, 40, 40}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if id, ok := HitTestFrame(f, 45, 45); !ok || id != overflow.ID {
		t.Errorf("inside clip: got (%d, %v), want (%d, true)", id, ok, overflow.ID)
	}
	if id, ok := HitTestFrame(f, 70, 70); ok {
		t.Errorf("outside clip: got %d, want miss", id)
	}
}

func TestHitTestRoundedCornerStillHits(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(20))
	root.SetBackgroundColor(ColorWhite)
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 100, 100}})

	// (1, 1) is outside the painted corner but inside the bounding box.
	if _, ok := HitTestFrame(f, 1, 1); !ok {
		t.Error("corner point should hit the bounding box")
	}
}

func TestHitTestIgnoresShadow(t *testing.T) {
	root := NewSurface("root")
	box := NewSurface("box")
	box.SetBoxShadow(BoxShadow{Offset: Vec2{20, 20}, Blur: 5, Color: Color{A: 1}})
	box.SetBackgroundColor(ColorWhite)
	root.AppendChild(box)
	layout := LayoutTable{root.ID: {0, 0, 200, 200}, box.ID: {10, 10, 20, 20}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if id, ok := HitTestFrame(f, 45, 45); ok {
		t.Errorf("point in shadow only hit %d, want miss", id)
	}
}

func TestHitTestBorderBandOnly(t *testing.T) {
	root := NewSurface("root")
	root.SetBorder(UniformBorder(4, Color{A: 1}, BorderStyleSolid))
	child := NewSurface("child")
	child.SetBackgroundColor(ColorWhite)
	root.AppendChild(child)
	layout := LayoutTable{root.ID: {0, 0, 100, 100}, child.ID: {10, 10, 20, 20}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if id, ok := HitTestFrame(f, 15, 15); !ok || id != child.ID {
		t.Errorf("inside border: got (%d, %v), want child %d", id, ok, child.ID)
	}
	if id, ok := HitTestFrame(f, 2, 50); !ok || id != root.ID {
		t.Errorf("on border band: got (%d, %v), want root %d", id, ok, root.ID)
	}
	if _, ok := HitTestFrame(f, 50, 50); ok {
		t.Error("interior of a border with no background should miss")
	}
}

func TestHitTestOutsideViewport(t *testing.T) {
	root := NewSurface("root")
	big := NewSurface("big")
	big.SetBackgroundColor(ColorWhite)
	root.AppendChild(big)
	layout := LayoutTable{root.ID: {0, 0, 100, 100}, big.ID: {0, 0, 500, 500}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if _, ok := HitTestFrame(f, 300, 300); ok {
		t.Error("point outside the viewport should miss")
	}
}

func TestHitIndexNilSafe(t *testing.T) {
	var h *hitIndex
	if _, ok := h.query(1, 1); ok {
		t.Error("nil index should miss")
	}
}

func TestHitTestOffsetRoot(t *testing.T) {
	root := NewSurface("root").SetBackgroundColor(ColorWhite)
	outside := NewSurface("outside").SetBackgroundColor(ColorWhite)
	root.AppendChild(outside)
	layout := LayoutTable{
		root.ID:    {20, 20, 100, 100},
		outside.ID: {-20, -20, 10, 10},
	}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if f.Bounds != (Rect{20, 20, 100, 100}) {
		t.Errorf("Bounds = %v, want the root's rect", f.Bounds)
	}
	for _, pt := range [][2]float32{{5, 5}, {15, 60}, {121, 60}} {
		if id, ok := HitTestFrame(f, pt[0], pt[1]); ok {
			t.Errorf("HitTestFrame%v = %d, want miss outside the root", pt, id)
		}
	}
	for _, pt := range [][2]float32{{20, 20}, {60, 60}, {110, 110}, {120, 120}} {
		if id, ok := HitTestFrame(f, pt[0], pt[1]); !ok || id != root.ID {
			t.Errorf("HitTestFrame%v = (%d, %v), want root %d", pt, id, ok, root.ID)
		}
	}
}
