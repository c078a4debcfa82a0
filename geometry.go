package stain

import "github.com/chewxy/math32"

// clampRadius scales the corner radii down so that adjacent corners never
// overlap, the way CSS resolves oversized radii. Negative radii become zero.
func clampRadius(r Rect, radius BorderRadius) BorderRadius {
	radius.TopLeft = math32.Max(0, radius.TopLeft)
	radius.TopRight = math32.Max(0, radius.TopRight)
	radius.BottomRight = math32.Max(0, radius.BottomRight)
	radius.BottomLeft = math32.Max(0, radius.BottomLeft)

	f := float32(1)
	fit := func(length, a, b float32) {
		if sum := a + b; sum > length && sum > 0 {
			f = math32.Min(f, length/sum)
		}
	}
	fit(r.Width, radius.TopLeft, radius.TopRight)
	fit(r.Width, radius.BottomLeft, radius.BottomRight)
	fit(r.Height, radius.TopLeft, radius.BottomLeft)
	fit(r.Height, radius.TopRight, radius.BottomRight)
	if f < 1 {
		radius.TopLeft *= f
		radius.TopRight *= f
		radius.BottomRight *= f
		radius.BottomLeft *= f
	}
	return radius
}

// shrinkRadius returns the radii of a box inset by d on every side.
func shrinkRadius(radius BorderRadius, d float32) BorderRadius {
	return BorderRadius{
		TopLeft:     math32.Max(0, radius.TopLeft-d),
		TopRight:    math32.Max(0, radius.TopRight-d),
		BottomRight: math32.Max(0, radius.BottomRight-d),
		BottomLeft:  math32.Max(0, radius.BottomLeft-d),
	}
}

// roundedRectContains reports whether (x, y) lies inside r with its corners
// rounded by radius. Edges are inclusive.
func roundedRectContains(r Rect, radius BorderRadius, x, y float32) bool {
	if !r.Contains(x, y) {
		return false
	}
	radius = clampRadius(r, radius)
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height

	inCorner := func(cx, cy, rad float32) bool {
		return math32.Hypot(x-cx, y-cy) <= rad
	}
	switch {
	case x < x0+radius.TopLeft && y < y0+radius.TopLeft:
		return inCorner(x0+radius.TopLeft, y0+radius.TopLeft, radius.TopLeft)
	case x > x1-radius.TopRight && y < y0+radius.TopRight:
		return inCorner(x1-radius.TopRight, y0+radius.TopRight, radius.TopRight)
	case x > x1-radius.BottomRight && y > y1-radius.BottomRight:
		return inCorner(x1-radius.BottomRight, y1-radius.BottomRight, radius.BottomRight)
	case x < x0+radius.BottomLeft && y > y1-radius.BottomLeft:
		return inCorner(x0+radius.BottomLeft, y1-radius.BottomLeft, radius.BottomLeft)
	}
	return true
}
