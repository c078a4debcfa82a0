package stain

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// tweenApply writes interpolated values into a surface attribute. It
// returns false when the attribute no longer exists.
type tweenApply func(s *Surface, v *[4]float32) bool

// TweenGroup animates up to 4 components of one paint attribute of a
// Surface simultaneously. Create one via the convenience constructors
// (TweenBackgroundColor, TweenBorderRadius, ...) and call Update(dt) each
// frame before compiling. If the animated attribute is cleared from the
// surface, the group stops immediately.
//
// There is no global animation manager; users call Update themselves.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	values [4]float32
	apply  tweenApply
	target *Surface
	Done   bool
}

func newTweenGroup(s *Surface, from, to []float32, duration float32, fn ease.TweenFunc, apply tweenApply) *TweenGroup {
	if s == nil {
		panic("stain: cannot tween a nil surface")
	}
	g := &TweenGroup{count: len(from), target: s, apply: apply}
	for i := range from {
		g.tweens[i] = gween.New(from[i], to[i], duration, fn)
		g.values[i] = from[i]
	}
	return g
}

// Update advances all tweens by dt seconds and writes the values to the
// target attribute. If the attribute has been cleared, Done is set to true
// and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		g.values[i] = val
		if !finished {
			allDone = false
		}
	}
	if !g.apply(g.target, &g.values) {
		g.Done = true
		return
	}
	g.Done = allDone
}

// Target returns the animated surface.
func (g *TweenGroup) Target() *Surface {
	return g.target
}

// TweenBackgroundColor animates the background color to the given color.
// A surface without a background starts from transparent.
func TweenBackgroundColor(s *Surface, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	if s.BackgroundColor == nil {
		s.SetBackgroundColor(Color{to.R, to.G, to.B, 0})
	}
	from := *s.BackgroundColor
	return newTweenGroup(s, colorComponents(from), colorComponents(to), duration, fn,
		func(s *Surface, v *[4]float32) bool {
			if s.BackgroundColor == nil {
				return false
			}
			*s.BackgroundColor = colorFromComponents(v)
			return true
		})
}

// TweenTextColor animates the text color. Panics if the surface has no text.
func TweenTextColor(s *Surface, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	if s.Text == nil {
		panic("stain: cannot tween text color of a surface without text")
	}
	return newTweenGroup(s, colorComponents(s.Text.Color), colorComponents(to), duration, fn,
		func(s *Surface, v *[4]float32) bool {
			if s.Text == nil {
				return false
			}
			s.Text.Color = colorFromComponents(v)
			return true
		})
}

// TweenBorderRadius animates all four corner radii. A surface without a
// radius starts from square corners, and gains a rounded clip at once.
func TweenBorderRadius(s *Surface, to BorderRadius, duration float32, fn ease.TweenFunc) *TweenGroup {
	if s.BorderRadius == nil {
		s.SetBorderRadius(BorderRadius{})
	}
	from := *s.BorderRadius
	return newTweenGroup(s,
		[]float32{from.TopLeft, from.TopRight, from.BottomRight, from.BottomLeft},
		[]float32{to.TopLeft, to.TopRight, to.BottomRight, to.BottomLeft},
		duration, fn,
		func(s *Surface, v *[4]float32) bool {
			if s.BorderRadius == nil {
				return false
			}
			*s.BorderRadius = BorderRadius{v[0], v[1], v[2], v[3]}
			return true
		})
}

// TweenShadowOffset animates the box shadow offset. Panics if the surface
// has no box shadow.
func TweenShadowOffset(s *Surface, to Vec2, duration float32, fn ease.TweenFunc) *TweenGroup {
	if s.BoxShadow == nil {
		panic("stain: cannot tween shadow offset of a surface without a box shadow")
	}
	from := s.BoxShadow.Offset
	return newTweenGroup(s, []float32{from.X, from.Y}, []float32{to.X, to.Y}, duration, fn,
		func(s *Surface, v *[4]float32) bool {
			if s.BoxShadow == nil {
				return false
			}
			s.BoxShadow.Offset = Vec2{v[0], v[1]}
			return true
		})
}

func colorComponents(c Color) []float32 {
	return []float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

func colorFromComponents(v *[4]float32) Color {
	return Color{float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])}
}
