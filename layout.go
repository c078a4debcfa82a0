package stain

import "maps"

// LayoutTable maps a surface id to its rectangle relative to the parent
// surface. It is produced by the layout engine before compilation and is
// read-only while a frame is compiled.
type LayoutTable map[SurfaceID]Rect

// Set records the parent-relative rectangle for a surface.
func (t LayoutTable) Set(id SurfaceID, r Rect) {
	t[id] = r
}

// Lookup returns the rectangle for id.
func (t LayoutTable) Lookup(id SurfaceID) (Rect, bool) {
	r, ok := t[id]
	return r, ok
}

// Clone returns an independent copy of the table.
func (t LayoutTable) Clone() LayoutTable {
	return maps.Clone(t)
}

// Layouter is the layout engine boundary: given a tree and the space
// available to the root, it produces a complete LayoutTable for every
// surface reachable from root.
type Layouter interface {
	Layout(root *Surface, availableWidth, availableHeight float32) LayoutTable
}

// LayouterFunc adapts a plain function to the Layouter interface.
type LayouterFunc func(root *Surface, availableWidth, availableHeight float32) LayoutTable

// Layout calls f.
func (f LayouterFunc) Layout(root *Surface, availableWidth, availableHeight float32) LayoutTable {
	return f(root, availableWidth, availableHeight)
}
