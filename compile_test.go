package stain

import (
	"errors"
	"image"
	"reflect"
	"strings"
	"testing"
)

// fakeShaper lays out one glyph per non-space rune, FontSize/2 apart, on a
// single line. Glyph indices are the rune values.
type fakeShaper struct{}

func (fakeShaper) Shape(t Text, width, height float32) []LaidGlyph {
	var out []LaidGlyph
	for i, r := range []rune(t.Content) {
		if r == ' ' {
			continue
		}
		out = append(out, LaidGlyph{Index: GlyphIndex(r), X: float32(i) * t.FontSize / 2})
	}
	return out
}

func (fakeShaper) Measure(t Text, width float32) Size {
	return Size{float32(len([]rune(t.Content))) * t.FontSize / 2, t.lineHeight()}
}

func (fakeShaper) Advances(content string, fontSize float32) ([]GlyphIndex, []float32) {
	var idx []GlyphIndex
	var adv []float32
	for _, r := range content {
		idx = append(idx, GlyphIndex(r))
		adv = append(adv, fontSize/2)
	}
	return idx, adv
}

func (fakeShaper) FontData() []byte { return []byte("fake-font") }

func newTestCompiler() *Compiler {
	return NewCompiler(fakeShaper{}, nil)
}

func mustCompile(t *testing.T, c *Compiler, root *Surface, layout LayoutTable) *Frame {
	t.Helper()
	f, err := c.Compile(root, layout)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return f
}

func kinds(f *Frame) []PrimitiveKind {
	out := make([]PrimitiveKind, len(f.Primitives))
	for i, p := range f.Primitives {
		out[i] = p.Kind
	}
	return out
}

func assertKinds(t *testing.T, f *Frame, want ...PrimitiveKind) {
	t.Helper()
	got := kinds(f)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
}

// --- Scenarios ---

func TestCompileRoundedChildWithBorder(t *testing.T) {
	root := NewSurface("root")
	child := NewSurface("child")
	child.SetBackgroundColor(Color{R: 1, A: 1})
	child.SetBorderRadius(UniformRadius(5))
	child.SetBorder(UniformBorder(1, Color{A: 1}, BorderStyleSolid))
	root.AppendChild(child)

	layout := LayoutTable{
		root.ID:  {0, 0, 200, 100},
		child.ID: {10, 10, 50, 50},
	}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if f.Size != (Size{200, 100}) {
		t.Errorf("frame Size = %v, want {200 100}", f.Size)
	}
	assertKinds(t, f, PrimitiveRect, PrimitiveBorder)
	if len(f.Clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(f.Clips))
	}
	clip := f.Clips[0]
	if clip.Rect != (Rect{10, 10, 50, 50}) || clip.Radius != UniformRadius(5) {
		t.Errorf("clip = %+v, want rect {10 10 50 50} radius 5", clip)
	}
	for i, p := range f.Primitives {
		if p.Rect != (Rect{10, 10, 50, 50}) {
			t.Errorf("primitive %d Rect = %v, want {10 10 50 50}", i, p.Rect)
		}
		if p.Clip != clip.ID {
			t.Errorf("primitive %d Clip = %d, want %d", i, p.Clip, clip.ID)
		}
		if p.Tag != child.ID {
			t.Errorf("primitive %d Tag = %d, want %d", i, p.Tag, child.ID)
		}
		if p.Radius != UniformRadius(5) {
			t.Errorf("primitive %d Radius = %v, want 5", i, p.Radius)
		}
	}
	if f.Primitives[0].Color != (Color{R: 1, A: 1}) {
		t.Errorf("background color = %v, want red", f.Primitives[0].Color)
	}
}

func TestCompileEmptyTree(t *testing.T) {
	root := NewSurface("root")
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 10, 10}})
	if len(f.Primitives) != 0 || len(f.Clips) != 0 {
		t.Errorf("empty tree produced %d primitives and %d clips", len(f.Primitives), len(f.Clips))
	}
}

// --- Paint order ---

func TestCompilePaintOrder(t *testing.T) {
	c := newTestCompiler()
	c.Resources.RegisterImageData("logo", image.NewRGBA(image.Rect(0, 0, 4, 4)))

	root := NewSurface("root")
	root.SetBoxShadow(BoxShadow{Blur: 4, Color: Color{A: 0.5}})
	root.SetBackgroundColor(ColorWhite)
	root.SetImage("logo")
	root.SetText(Text{Content: "hi", FontSize: 12, Color: Color{A: 1}})
	root.SetBorder(UniformBorder(2, Color{A: 1}, BorderStyleSolid))

	child := NewSurface("child")
	child.SetBackgroundColor(Color{B: 1, A: 1})
	root.AppendChild(child)

	layout := LayoutTable{root.ID: {0, 0, 100, 100}, child.ID: {10, 10, 20, 20}}
	f := mustCompile(t, c, root, layout)

	assertKinds(t, f,
		PrimitiveBoxShadow,
		PrimitiveRect,
		PrimitiveImage,
		PrimitiveText,
		PrimitiveRect, // child
		PrimitiveBorder,
	)
	if f.Primitives[4].Tag != child.ID {
		t.Errorf("primitive 4 Tag = %d, want child %d", f.Primitives[4].Tag, child.ID)
	}
	if f.Primitives[5].Tag != root.ID {
		t.Errorf("border Tag = %d, want root %d", f.Primitives[5].Tag, root.ID)
	}
}

func TestCompileBorderAfterAllDescendants(t *testing.T) {
	root := NewSurface("root")
	root.SetBorder(UniformBorder(1, Color{A: 1}, BorderStyleSolid))
	a := NewSurface("a")
	a.SetBackgroundColor(ColorWhite)
	a1 := NewSurface("a1")
	a1.SetBackgroundColor(ColorWhite)
	a1.SetBorder(UniformBorder(1, Color{A: 1}, BorderStyleSolid))
	root.AppendChild(a)
	a.AppendChild(a1)

	layout := LayoutTable{root.ID: {0, 0, 50, 50}, a.ID: {0, 0, 40, 40}, a1.ID: {0, 0, 30, 30}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	assertKinds(t, f, PrimitiveRect, PrimitiveRect, PrimitiveBorder, PrimitiveBorder)
	tags := []SurfaceID{a.ID, a1.ID, a1.ID, root.ID}
	for i, want := range tags {
		if f.Primitives[i].Tag != want {
			t.Errorf("primitive %d Tag = %d, want %d", i, f.Primitives[i].Tag, want)
		}
	}
}

func TestCompileChildOrderFollowsAppendOrder(t *testing.T) {
	root := NewSurface("root")
	a := NewSurface("a")
	b := NewSurface("b")
	a.SetBackgroundColor(ColorWhite)
	b.SetBackgroundColor(ColorWhite)
	root.AppendChild(a)
	root.AppendChild(b)
	root.AppendChild(a) // moves a to the end

	layout := LayoutTable{root.ID: {0, 0, 10, 10}, a.ID: {}, b.ID: {}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if len(f.Primitives) != 2 {
		t.Fatalf("primitives = %d, want 2", len(f.Primitives))
	}
	if f.Primitives[0].Tag != b.ID || f.Primitives[1].Tag != a.ID {
		t.Error("re-appended child should paint last")
	}
}

// --- Coordinates ---

func TestCompileAbsoluteRects(t *testing.T) {
	root := NewSurface("root")
	mid := NewSurface("mid")
	leaf := NewSurface("leaf")
	leaf.SetBackgroundColor(ColorWhite)
	root.AppendChild(mid)
	mid.AppendChild(leaf)

	layout := LayoutTable{
		root.ID: {5, 5, 300, 300},
		mid.ID:  {20, 30, 100, 100},
		leaf.ID: {1, 2, 10, 10},
	}
	f := mustCompile(t, newTestCompiler(), root, layout)

	want := Rect{26, 37, 10, 10}
	if got := f.Primitives[0].Rect; got != want {
		t.Errorf("leaf Rect = %v, want %v", got, want)
	}
	if got := f.Primitives[0].Bounds; got != want {
		t.Errorf("leaf Bounds = %v, want %v", got, want)
	}
}

func TestCompileShadowBounds(t *testing.T) {
	root := NewSurface("root")
	root.SetBoxShadow(BoxShadow{Offset: Vec2{2, 3}, Blur: 4, Spread: 1})
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {10, 10, 20, 20}})

	p := f.Primitives[0]
	if p.Rect != (Rect{10, 10, 20, 20}) {
		t.Errorf("shadow Rect = %v, want the box", p.Rect)
	}
	if want := (Rect{7, 8, 30, 30}); p.Bounds != want {
		t.Errorf("shadow Bounds = %v, want %v", p.Bounds, want)
	}
}

// --- Clipping ---

func TestCompileClipInheritance(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(8))
	plain := NewSurface("plain")
	plain.SetBackgroundColor(ColorWhite)
	grand := NewSurface("grand")
	grand.SetBackgroundColor(ColorWhite)
	root.AppendChild(plain)
	plain.AppendChild(grand)

	layout := LayoutTable{root.ID: {0, 0, 100, 100}, plain.ID: {10, 10, 50, 50}, grand.ID: {5, 5, 10, 10}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if len(f.Clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(f.Clips))
	}
	for i, p := range f.Primitives {
		if p.Clip != f.Clips[0].ID {
			t.Errorf("primitive %d Clip = %d, want inherited %d", i, p.Clip, f.Clips[0].ID)
		}
		if !p.Radius.IsZero() {
			t.Errorf("primitive %d Radius = %v, want zero for a surface without its own radius", i, p.Radius)
		}
	}
}

func TestCompileNestedRadiusReplacesClip(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(10))
	inner := NewSurface("inner")
	inner.SetBorderRadius(UniformRadius(3))
	inner.SetBackgroundColor(ColorWhite)
	root.AppendChild(inner)

	// inner sticks out of root; its clip is its own rect, not the overlap.
	layout := LayoutTable{root.ID: {0, 0, 50, 50}, inner.ID: {40, 40, 30, 30}}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if len(f.Clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(f.Clips))
	}
	p := f.Primitives[0]
	clip, ok := f.Clip(p.Clip)
	if !ok {
		t.Fatalf("primitive clip %d not defined", p.Clip)
	}
	if clip.Rect != (Rect{40, 40, 30, 30}) {
		t.Errorf("inner clip Rect = %v, want its own rect {40 40 30 30}", clip.Rect)
	}
	if clip.Radius != UniformRadius(3) {
		t.Errorf("inner clip Radius = %v, want 3", clip.Radius)
	}
}

func TestCompileClipScopeEndsWithSubtree(t *testing.T) {
	root := NewSurface("root")
	rounded := NewSurface("rounded")
	rounded.SetBorderRadius(UniformRadius(4))
	inside := NewSurface("inside")
	inside.SetBackgroundColor(ColorWhite)
	after := NewSurface("after")
	after.SetBackgroundColor(ColorWhite)
	root.AppendChild(rounded)
	rounded.AppendChild(inside)
	root.AppendChild(after)

	layout := LayoutTable{
		root.ID: {0, 0, 100, 100}, rounded.ID: {0, 0, 50, 50},
		inside.ID: {0, 0, 10, 10}, after.ID: {60, 60, 10, 10},
	}
	f := mustCompile(t, newTestCompiler(), root, layout)

	if f.Primitives[0].Clip == NoClip {
		t.Error("descendant of a rounded surface should be clipped")
	}
	if f.Primitives[1].Clip != NoClip {
		t.Errorf("sibling after the rounded subtree has Clip %d, want NoClip", f.Primitives[1].Clip)
	}
}

func TestCompileZeroRadiusStillDefinesClip(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(BorderRadius{})
	root.SetBackgroundColor(ColorWhite)
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 10, 10}})

	if len(f.Clips) != 1 {
		t.Fatalf("clips = %d, want 1 for a declared zero radius", len(f.Clips))
	}
	if f.Primitives[0].Clip != f.Clips[0].ID {
		t.Error("background should use the declared clip")
	}
}

func TestCompileOwnPrimitivesUseOwnClip(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(6))
	root.SetBoxShadow(BoxShadow{Blur: 2})
	root.SetBorder(UniformBorder(1, Color{A: 1}, BorderStyleSolid))
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 40, 40}})

	for i, p := range f.Primitives {
		if p.Clip != 1 {
			t.Errorf("primitive %d (%v) Clip = %d, want 1", i, p.Kind, p.Clip)
		}
	}
}

// --- Text ---

func TestCompileTextGlyphPlacement(t *testing.T) {
	root := NewSurface("root")
	root.SetText(Text{Content: "ab", FontSize: 27, LineHeight: 40, Color: Color{A: 1}})
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {100, 200, 300, 50}})

	assertKinds(t, f, PrimitiveText)
	p := f.Primitives[0]
	if len(p.Glyphs) != 2 {
		t.Fatalf("glyphs = %d, want 2", len(p.Glyphs))
	}
	baseline := float32(40)/2 + float32(27)/baselineFontDivisor
	want := []GlyphInstance{
		{Index: 'a', Point: Vec2{100, 200 + baseline}},
		{Index: 'b', Point: Vec2{100 + 13.5, 200 + baseline}},
	}
	if !reflect.DeepEqual(p.Glyphs, want) {
		t.Errorf("glyphs = %v, want %v", p.Glyphs, want)
	}
	if p.Color != (Color{A: 1}) {
		t.Errorf("text Color = %v, want black", p.Color)
	}
	if p.Font == 0 {
		t.Error("text primitive has no font instance")
	}
}

func TestCompileTextWithoutGlyphsEmitsNothing(t *testing.T) {
	root := NewSurface("root")
	root.SetText(Text{Content: "   ", FontSize: 12})
	f := mustCompile(t, newTestCompiler(), root, LayoutTable{root.ID: {0, 0, 10, 10}})
	if len(f.Primitives) != 0 {
		t.Errorf("primitives = %v, want none", kinds(f))
	}
}

func TestCompileFontRegistrationTravelsOnce(t *testing.T) {
	c := newTestCompiler()
	root := NewSurface("root")
	root.SetText(Text{Content: "x", FontSize: 12})
	layout := LayoutTable{root.ID: {0, 0, 10, 10}}

	f1 := mustCompile(t, c, root, layout)
	var addFont, addInstance int
	for _, u := range f1.Resources {
		switch u.Kind {
		case ResourceAddFont:
			addFont++
		case ResourceAddFontInstance:
			addInstance++
		}
	}
	if addFont != 1 || addInstance != 1 {
		t.Errorf("first frame registrations: fonts=%d instances=%d, want 1 and 1", addFont, addInstance)
	}

	f2 := mustCompile(t, c, root, layout)
	if len(f2.Resources) != 0 {
		t.Errorf("second frame carries %d registrations, want 0", len(f2.Resources))
	}
	if f1.Primitives[0].Font != f2.Primitives[0].Font {
		t.Error("font instance key changed between frames")
	}
}

// --- Images ---

func TestCompileImageLoadFailure(t *testing.T) {
	root := NewSurface("root")
	root.SetImage("/no/such/image.png")
	_, err := newTestCompiler().Compile(root, LayoutTable{root.ID: {0, 0, 10, 10}})
	if !errors.Is(err, ErrImageLoad) {
		t.Fatalf("err = %v, want ErrImageLoad", err)
	}
	if !strings.Contains(err.Error(), "root") {
		t.Errorf("error %q should name the surface", err)
	}
}

func TestCompileImagePlaceholder(t *testing.T) {
	c := newTestCompiler()
	c.PlaceholderImages = true
	root := NewSurface("root")
	root.SetImage("/no/such/image.png")
	f := mustCompile(t, c, root, LayoutTable{root.ID: {0, 0, 16, 16}})

	assertKinds(t, f, PrimitiveImage)
	var uploaded bool
	for _, u := range f.Resources {
		if u.Kind == ResourceAddImage && u.Image == f.Primitives[0].Image {
			uploaded = true
			if u.Descriptor.Width != 16 || u.Descriptor.Height != 16 {
				t.Errorf("placeholder size = %dx%d, want 16x16", u.Descriptor.Width, u.Descriptor.Height)
			}
		}
	}
	if !uploaded {
		t.Error("placeholder image was not registered in the frame")
	}
}

func TestCompileNamedImage(t *testing.T) {
	c := newTestCompiler()
	c.Resources.RegisterImageData("icon", image.NewRGBA(image.Rect(0, 0, 2, 3)))
	root := NewSurface("root")
	root.SetImage("icon")
	f := mustCompile(t, c, root, LayoutTable{root.ID: {0, 0, 10, 10}})

	if f.Primitives[0].Image == 0 {
		t.Fatal("image primitive has no key")
	}
	if len(f.Resources) != 1 || f.Resources[0].Kind != ResourceAddImage {
		t.Fatalf("resources = %+v, want one image upload", f.Resources)
	}
	if got := len(f.Resources[0].Pixels); got != 2*3*4 {
		t.Errorf("pixel bytes = %d, want 24", got)
	}
}

// --- Invariants ---

func TestCompileIsDeterministic(t *testing.T) {
	c := newTestCompiler()
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(4)).SetBackgroundColor(ColorWhite)
	child := NewSurface("child")
	child.SetText(Text{Content: "same", FontSize: 14})
	child.SetBorderRadius(BorderRadius{1, 2, 3, 4})
	root.AppendChild(child)
	layout := LayoutTable{root.ID: {0, 0, 100, 100}, child.ID: {10, 10, 80, 20}}

	f1 := mustCompile(t, c, root, layout)
	f2 := mustCompile(t, c, root, layout)
	if !reflect.DeepEqual(f1.Primitives, f2.Primitives) {
		t.Error("primitives differ between identical compiles")
	}
	if !reflect.DeepEqual(f1.Clips, f2.Clips) {
		t.Error("clips differ between identical compiles")
	}
}

func TestCompileDoesNotMutateTree(t *testing.T) {
	root := NewSurface("root")
	root.SetBorderRadius(UniformRadius(4))
	child := NewSurface("child")
	root.AppendChild(child)
	layout := LayoutTable{root.ID: {0, 0, 10, 10}, child.ID: {1, 1, 5, 5}}
	snapshot := layout.Clone()

	mustCompile(t, newTestCompiler(), root, layout)

	if !reflect.DeepEqual(layout, snapshot) {
		t.Error("Compile modified the layout table")
	}
	if child.BorderRadius != nil {
		t.Error("Compile gave the child a radius")
	}
}

func TestCompileMissingLayoutPanics(t *testing.T) {
	root := NewSurface("root")
	child := NewSurface("orphan-layout")
	root.AppendChild(child)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for missing layout entry")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "orphan-layout") {
			t.Errorf("panic %v should name the surface", r)
		}
	}()
	newTestCompiler().Compile(root, LayoutTable{root.ID: {0, 0, 10, 10}})
}

func TestCompileNilRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	newTestCompiler().Compile(nil, LayoutTable{})
}

func TestFrameGlyphCount(t *testing.T) {
	root := NewSurface("root")
	a := NewSurface("a")
	a.SetText(Text{Content: "abc", FontSize: 10})
	b := NewSurface("b")
	b.SetText(Text{Content: "de", FontSize: 10})
	root.AppendChild(a)
	root.AppendChild(b)
	layout := LayoutTable{root.ID: {}, a.ID: {}, b.ID: {}}
	f := mustCompile(t, newTestCompiler(), root, layout)
	if got := f.GlyphCount(); got != 5 {
		t.Errorf("GlyphCount = %d, want 5", got)
	}
}

func TestCompilerDiscardRequeuesRegistrations(t *testing.T) {
	c := newTestCompiler()
	root := NewSurface("root").SetText(Text{Content: "x", FontSize: 18})
	f := mustCompile(t, c, root, LayoutTable{root.ID: {0, 0, 50, 20}})
	n := len(f.Resources)
	if n == 0 {
		t.Fatal("first frame carries no registrations")
	}

	c.Discard(f)
	if f.Resources != nil {
		t.Error("Discard should clear the frame's registrations")
	}
	if got := c.Resources.Pending(); got != n {
		t.Errorf("Pending = %d, want %d", got, n)
	}
	next := mustCompile(t, c, root, LayoutTable{root.ID: {0, 0, 50, 20}})
	if len(next.Resources) != n {
		t.Errorf("next frame carries %d registrations, want %d", len(next.Resources), n)
	}
	c.Discard(nil)
}
