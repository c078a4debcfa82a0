package stain

// hitRegion is the pickable area of one primitive.
type hitRegion struct {
	rect Rect
	// hole is the area inside a border's band, which the border does not
	// paint and therefore does not hit.
	hole Rect
	tag  SurfaceID
}

func (r *hitRegion) contains(x, y float32) bool {
	if !r.rect.Contains(x, y) {
		return false
	}
	return r.hole.Empty() || !r.hole.containsOpen(x, y)
}

// hitIndex answers point queries over one frame's primitives. Regions are
// stored in paint order, so the last match is the topmost.
//
// A region is the primitive's rectangle cut to its clip's bounding box and
// to the root surface's rectangle. Rounded corners are not excluded: a point inside the
// bounding box but outside a rounded corner still hits. A border only hits
// on its band, so the surfaces it encloses stay pickable.
type hitIndex struct {
	regions []hitRegion
}

func buildHitIndex(tx *Transaction) *hitIndex {
	// Transactions built by hand may leave Bounds unset.
	viewport := tx.Bounds
	if viewport == (Rect{}) {
		viewport = Rect{Width: tx.Viewport.Width, Height: tx.Viewport.Height}
	}
	idx := &hitIndex{regions: make([]hitRegion, 0, len(tx.DisplayList))}
	for i := range tx.DisplayList {
		p := &tx.DisplayList[i]
		if p.Kind == PrimitiveBoxShadow {
			continue
		}
		r := p.Rect.Intersect(viewport)
		if clip, ok := lookupClip(tx.Clips, p.Clip); ok {
			r = r.Intersect(clip.Rect)
		}
		if r.Empty() {
			continue
		}
		region := hitRegion{rect: r, tag: p.Tag}
		if p.Kind == PrimitiveBorder {
			region.hole = borderHole(p.Rect, p.Border)
		}
		idx.regions = append(idx.regions, region)
	}
	return idx
}

// query returns the tag of the topmost region containing (x, y).
func (h *hitIndex) query(x, y float32) (SurfaceID, bool) {
	if h == nil {
		return 0, false
	}
	for i := len(h.regions) - 1; i >= 0; i-- {
		if h.regions[i].contains(x, y) {
			return h.regions[i].tag, true
		}
	}
	return 0, false
}

// borderHole returns r inset by the visible border widths.
func borderHole(r Rect, b Border) Rect {
	width := func(s BorderSide) float32 {
		if s.visible() {
			return s.Width
		}
		return 0
	}
	top, right, bottom, left := width(b.Top), width(b.Right), width(b.Bottom), width(b.Left)
	return Rect{
		X:      r.X + left,
		Y:      r.Y + top,
		Width:  r.Width - left - right,
		Height: r.Height - top - bottom,
	}
}

// HitTestFrame answers a hit-test query directly against a compiled frame,
// without a backend.
func HitTestFrame(f *Frame, x, y float32) (SurfaceID, bool) {
	return buildHitIndex(newTransaction(0, f)).query(x, y)
}
