package stain

// BorderStyle selects how a border side is stroked.
type BorderStyle uint8

const (
	BorderStyleNone  BorderStyle = iota // side is not drawn
	BorderStyleSolid                    // solid fill of the side's width
)

// BorderSide describes one edge of a border.
type BorderSide struct {
	Width float32
	Color Color
	Style BorderStyle
}

// visible reports whether the side paints anything.
func (s BorderSide) visible() bool {
	return s.Style != BorderStyleNone && s.Width > 0 && s.Color.A > 0
}

// Border holds the four sides of a surface border.
type Border struct {
	Top, Right, Bottom, Left BorderSide
}

// UniformBorder returns a border with the same side on all four edges.
func UniformBorder(width float32, c Color, style BorderStyle) Border {
	side := BorderSide{Width: width, Color: c, Style: style}
	return Border{Top: side, Right: side, Bottom: side, Left: side}
}

// uniform reports whether all four sides are identical.
func (b Border) uniform() bool {
	return b.Top == b.Right && b.Top == b.Bottom && b.Top == b.Left
}

// BorderRadius holds the four corner radii, clockwise from the top-left.
type BorderRadius struct {
	TopLeft, TopRight, BottomRight, BottomLeft float32
}

// UniformRadius returns a radius with the same value on every corner.
func UniformRadius(r float32) BorderRadius {
	return BorderRadius{r, r, r, r}
}

// IsZero reports whether every corner is square.
func (r BorderRadius) IsZero() bool {
	return r == BorderRadius{}
}

// BoxShadow is an outset shadow cast by a surface's rectangle.
type BoxShadow struct {
	Offset Vec2
	Blur   float32
	Spread float32
	Color  Color
}

// bounds returns the area the shadow may paint for a box at rect.
func (bs BoxShadow) bounds(rect Rect) Rect {
	grow := bs.Spread + bs.Blur
	return rect.Translate(bs.Offset).Inflate(grow, grow)
}

// ImageRef names an image payload. Source is either a name registered with
// RegisterImageData or a path on disk.
type ImageRef struct {
	Source string
}

// Text is a single run of text painted inside a surface.
type Text struct {
	Content    string
	FontSize   float32
	LineHeight float32
	Color      Color
}

// lineHeight returns the effective line height, falling back to the font size.
func (t Text) lineHeight() float32 {
	if t.LineHeight > 0 {
		return t.LineHeight
	}
	return t.FontSize
}
