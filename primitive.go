package stain

// PrimitiveKind identifies the kind of draw primitive.
type PrimitiveKind uint8

const (
	PrimitiveBoxShadow PrimitiveKind = iota // outset shadow of the surface box
	PrimitiveRect                           // solid background fill
	PrimitiveImage                          // image stretched over Rect
	PrimitiveText                           // positioned glyph run
	PrimitiveBorder                         // four-sided border, painted after descendants
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveBoxShadow:
		return "box-shadow"
	case PrimitiveRect:
		return "rect"
	case PrimitiveImage:
		return "image"
	case PrimitiveText:
		return "text"
	case PrimitiveBorder:
		return "border"
	default:
		return "unknown"
	}
}

// ClipID refers to a ClipRegion defined in the same frame. The zero value
// means "no clip".
type ClipID uint32

// NoClip is the ClipID of an unclipped primitive.
const NoClip ClipID = 0

// ClipRegion is a rounded-rectangle clip registered during compilation.
type ClipRegion struct {
	ID     ClipID
	Rect   Rect
	Radius BorderRadius
}

// GlyphIndex is a glyph id in the font used by the text shaper.
type GlyphIndex uint32

// GlyphInstance is a glyph placed in absolute layout space. Point is the
// glyph origin on the baseline.
type GlyphInstance struct {
	Index GlyphIndex
	Point Vec2
}

// Primitive is a single draw instruction emitted during compilation.
type Primitive struct {
	Kind PrimitiveKind

	// Rect is the owning surface's absolute layout rectangle.
	Rect Rect
	// Bounds is the area the primitive may paint. It equals Rect except for
	// box shadows, which extend by offset, blur and spread.
	Bounds Rect
	Clip   ClipID
	// Radius is the owning surface's own radius, zero when it declares none.
	Radius BorderRadius
	Tag    SurfaceID

	Color  Color     // PrimitiveRect, PrimitiveText
	Shadow BoxShadow // PrimitiveBoxShadow
	Border Border    // PrimitiveBorder

	Image ImageKey // PrimitiveImage

	Font   FontInstanceKey // PrimitiveText
	Glyphs []GlyphInstance // PrimitiveText
}

// Frame is the compiled output of one pass over a surface tree. It is built
// fresh by every Compile call and is not retained across frames.
type Frame struct {
	// Size is the root surface size.
	Size Size
	// Bounds is the root surface's rectangle in frame space. Hit-testing
	// ignores everything outside it.
	Bounds     Rect
	Primitives []Primitive
	Clips      []ClipRegion
	// Resources are the registrations that must reach the backend before
	// the primitives can be drawn.
	Resources []ResourceUpdate
}

// Clip returns the clip region for id.
func (f *Frame) Clip(id ClipID) (ClipRegion, bool) {
	return lookupClip(f.Clips, id)
}

// defineClip registers a new rounded clip and returns its id.
func (f *Frame) defineClip(r Rect, radius BorderRadius) ClipID {
	id := ClipID(len(f.Clips) + 1)
	f.Clips = append(f.Clips, ClipRegion{ID: id, Rect: r, Radius: radius})
	return id
}

// GlyphCount returns the total number of glyphs across all text primitives.
func (f *Frame) GlyphCount() int {
	n := 0
	for i := range f.Primitives {
		n += len(f.Primitives[i].Glyphs)
	}
	return n
}

func lookupClip(clips []ClipRegion, id ClipID) (ClipRegion, bool) {
	if id == NoClip || int(id) > len(clips) {
		return ClipRegion{}, false
	}
	return clips[id-1], true
}
