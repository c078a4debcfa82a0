package stain

import "fmt"

// baselineFontDivisor tunes the vertical glyph offset: glyphs are pushed down
// by half the line height plus the font size divided by this value. It is an
// empirical fit, not a metrics-exact baseline.
const baselineFontDivisor = 2.7

// Compiler turns a surface tree and its layout table into a Frame.
type Compiler struct {
	// Shaper positions glyphs for text runs.
	Shaper TextShaper
	// Resources registers images and font instances with the backend.
	Resources *ResourceCache
	// PlaceholderImages substitutes a checkerboard for images that fail to
	// load instead of failing the frame.
	PlaceholderImages bool
}

// NewCompiler creates a compiler. A nil shaper selects DefaultShaper and a
// nil cache creates one for the shaper's font.
func NewCompiler(shaper TextShaper, resources *ResourceCache) *Compiler {
	if shaper == nil {
		shaper = DefaultShaper()
	}
	if resources == nil {
		resources = NewResourceCache(shaper.FontData())
	}
	return &Compiler{Shaper: shaper, Resources: resources}
}

// compileState is the inherited traversal state. It is passed by value, so
// each recursive call sees its parent's values and changes made for a
// subtree vanish when the call returns.
type compileState struct {
	origin Vec2
	clip   ClipID
}

// Compile walks root depth-first and emits its primitives in paint order.
//
// Every surface reachable from root must have an entry in layout; a missing
// entry is a caller bug and panics. An image that cannot be loaded fails the
// whole frame with an error wrapping ErrImageLoad, unless PlaceholderImages
// is set.
//
// On success the frame carries every resource registration queued since the
// last successful compile, or handed back since by Discard.
func (c *Compiler) Compile(root *Surface, layout LayoutTable) (*Frame, error) {
	if root == nil {
		panic("stain: cannot compile a nil surface")
	}
	if c.Shaper == nil || c.Resources == nil {
		panic("stain: compiler has no shaper or resource cache; use NewCompiler")
	}
	c.Resources.BeginFrame()

	bounds := lookupLayout(layout, root)
	f := &Frame{Size: bounds.Size(), Bounds: bounds}
	if err := c.compileSurface(f, root, layout, compileState{}); err != nil {
		return nil, err
	}
	f.Resources = c.Resources.Drain()
	return f, nil
}

// Discard returns the registrations of a frame that was never delivered to
// the backend to the resource cache, so the next compiled frame carries
// them. Call it for a frame that is dropped instead of submitted, or whose
// SubmitAndWait ended without a completion signal.
func (c *Compiler) Discard(f *Frame) {
	if f == nil {
		return
	}
	c.Resources.Requeue(f.Resources)
	f.Resources = nil
}

func lookupLayout(layout LayoutTable, s *Surface) Rect {
	r, ok := layout[s.ID]
	if !ok {
		panic(fmt.Sprintf("stain: surface %d (%q) has no layout entry", s.ID, s.Name))
	}
	return r
}

// compileSurface emits s and its subtree. Own visuals paint in the order
// shadow, background, image, text; children follow; the border paints last
// so it sits on top of every descendant.
func (c *Compiler) compileSurface(f *Frame, s *Surface, layout LayoutTable, st compileState) error {
	rect := lookupLayout(layout, s).Translate(st.origin)

	// A declared radius replaces the inherited clip for this subtree.
	// Without one the clip passes through and the surface's own radius is zero.
	var radius BorderRadius
	if s.BorderRadius != nil {
		radius = *s.BorderRadius
		st.clip = f.defineClip(rect, radius)
	}

	base := Primitive{
		Rect:   rect,
		Bounds: rect,
		Clip:   st.clip,
		Radius: radius,
		Tag:    s.ID,
	}

	if s.BoxShadow != nil {
		p := base
		p.Kind = PrimitiveBoxShadow
		p.Shadow = *s.BoxShadow
		p.Bounds = s.BoxShadow.bounds(rect)
		f.Primitives = append(f.Primitives, p)
	}

	if s.BackgroundColor != nil {
		p := base
		p.Kind = PrimitiveRect
		p.Color = *s.BackgroundColor
		f.Primitives = append(f.Primitives, p)
	}

	if s.Image != nil {
		key, err := c.resolveImage(s, rect)
		if err != nil {
			return err
		}
		p := base
		p.Kind = PrimitiveImage
		p.Image = key
		f.Primitives = append(f.Primitives, p)
	}

	if s.Text != nil {
		if glyphs := c.placeGlyphs(*s.Text, rect); len(glyphs) > 0 {
			p := base
			p.Kind = PrimitiveText
			p.Color = s.Text.Color
			p.Font = c.Resources.FontInstance(s.Text.FontSize)
			p.Glyphs = glyphs
			f.Primitives = append(f.Primitives, p)
		}
	}

	st.origin = rect.Origin()
	for _, child := range s.children {
		if err := c.compileSurface(f, child, layout, st); err != nil {
			return err
		}
	}

	if s.Border != nil {
		p := base
		p.Kind = PrimitiveBorder
		p.Border = *s.Border
		f.Primitives = append(f.Primitives, p)
	}
	return nil
}

// resolveImage registers the surface's image, falling back to a placeholder
// sized to rect when that is enabled.
func (c *Compiler) resolveImage(s *Surface, rect Rect) (ImageKey, error) {
	key, _, err := c.Resources.Image(s.Image.Source)
	if err == nil {
		return key, nil
	}
	if !c.PlaceholderImages {
		return 0, fmt.Errorf("stain: surface %d (%q): %w", s.ID, s.Name, err)
	}
	Logger().Warn("image replaced by placeholder",
		"surface", s.Name, "id", s.ID, "source", s.Image.Source, "error", err)
	return c.Resources.Placeholder(int(rect.Width), int(rect.Height)), nil
}

// placeGlyphs shapes t inside rect and moves every glyph into absolute
// layout space on its baseline.
func (c *Compiler) placeGlyphs(t Text, rect Rect) []GlyphInstance {
	laid := c.Shaper.Shape(t, rect.Width, rect.Height)
	if len(laid) == 0 {
		return nil
	}
	baseline := t.lineHeight()/2 + t.FontSize/baselineFontDivisor
	out := make([]GlyphInstance, len(laid))
	for i, g := range laid {
		out[i] = GlyphInstance{
			Index: g.Index,
			Point: Vec2{rect.X + g.X, rect.Y + g.Y + baseline},
		}
	}
	return out
}
