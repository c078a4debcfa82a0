package stain

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// SurfaceID identifies a surface for its whole lifetime. It doubles as the
// picking tag on every primitive the surface emits and as the key into a
// LayoutTable.
type SurfaceID uint32

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is opaque white.
var ColorWhite = Color{1, 1, 1, 1}

// ColorTransparent is fully transparent black.
var ColorTransparent = Color{}

// RGBA8 builds a Color from 8-bit channels.
func RGBA8(r, g, b, a uint8) Color {
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255, float64(a) / 255}
}

// premultiplied returns the color with alpha applied to RGB, as float32
// channels ready for vertex colors and color scales.
func (c Color) premultiplied() (r, g, b, a float32) {
	a = float32(clamp01(c.A))
	return float32(clamp01(c.R)) * a, float32(clamp01(c.G)) * a, float32(clamp01(c.B)) * a, a
}

// toRGBA converts a Color to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa" hex notation, or one
// of the names "white", "black" and "transparent".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return ColorWhite, nil
	case "black":
		return Color{0, 0, 0, 1}, nil
	case "transparent":
		return ColorTransparent, nil
	}
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return Color{}, fmt.Errorf("stain: color %q: missing '#'", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("stain: color %q: want 3, 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("stain: color %q: %w", s, err)
	}
	return RGBA8(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseColor.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler as "#rrggbbaa".
func (c Color) MarshalText() ([]byte, error) {
	to8 := func(v float64) uint8 { return uint8(clamp01(v)*255 + 0.5) }
	return []byte(fmt.Sprintf("#%02x%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B), to8(c.A))), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Vec2 is a 2D vector used for offsets and points in layout space.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Size is a width/height pair in layout units.
type Size struct {
	Width, Height float32
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float32
}

// Origin returns the top-left corner.
func (r Rect) Origin() Vec2 {
	return Vec2{r.X, r.Y}
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{r.Width, r.Height}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Translate returns r moved by v.
func (r Rect) Translate(v Vec2) Rect {
	return Rect{r.X + v.X, r.Y + v.Y, r.Width, r.Height}
}

// Inflate grows r by dx on the left and right and by dy on the top and bottom.
// Negative values shrink it; the size never goes below zero.
func (r Rect) Inflate(dx, dy float32) Rect {
	return Rect{
		X:      r.X - dx,
		Y:      r.Y - dy,
		Width:  math32.Max(0, r.Width+2*dx),
		Height: math32.Max(0, r.Height+2*dy),
	}
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// containsOpen is Contains with the edges excluded.
func (r Rect) containsOpen(x, y float32) bool {
	return x > r.X && x < r.X+r.Width &&
		y > r.Y && y < r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Intersect returns the overlap of r and other. The result is empty when the
// rectangles do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x0 := math32.Max(r.X, other.X)
	y0 := math32.Max(r.Y, other.Y)
	x1 := math32.Min(r.X+r.Width, other.X+other.Width)
	y1 := math32.Min(r.Y+r.Height, other.Y+other.Height)
	if x1 < x0 || y1 < y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}
