package stain

import "sync/atomic"

// --- ID counter ---

// surfaceIDCounter is shared by every goroutine that builds surfaces,
// including a SceneWatcher reloading in the background.
var surfaceIDCounter atomic.Uint32

func nextSurfaceID() SurfaceID {
	return SurfaceID(surfaceIDCounter.Add(1))
}

// --- Surface ---

// Surface is the fundamental element of the retained tree. Paint attributes
// are optional and independent: a nil field means "not set" and emits nothing.
//
// A surface owns its children exclusively. Parent is kept for tree
// maintenance and event bubbling; the compiler never reads it.
type Surface struct {
	// Identity
	ID   SurfaceID
	Name string

	// Hierarchy
	parent   *Surface
	children []*Surface

	// Paint attributes
	BackgroundColor *Color
	Border          *Border
	BorderRadius    *BorderRadius
	BoxShadow       *BoxShadow
	Image           *ImageRef
	Text            *Text

	// Layout collaboration
	measure Measure
	dirty   bool
}

// NewSurface creates a surface with a fresh ID and no paint attributes.
func NewSurface(name string) *Surface {
	return &Surface{
		ID:    nextSurfaceID(),
		Name:  name,
		dirty: true,
	}
}

// --- Paint attributes ---

// SetBackgroundColor sets the background fill.
func (s *Surface) SetBackgroundColor(c Color) *Surface {
	s.BackgroundColor = &c
	return s
}

// SetBorder sets the border drawn on top of all descendants.
func (s *Surface) SetBorder(b Border) *Surface {
	s.Border = &b
	return s
}

// SetBorderRadius sets the corner radii. A radius also makes the surface a
// rounded clip for itself and its descendants.
func (s *Surface) SetBorderRadius(r BorderRadius) *Surface {
	s.BorderRadius = &r
	return s
}

// SetBoxShadow sets the outset shadow.
func (s *Surface) SetBoxShadow(bs BoxShadow) *Surface {
	s.BoxShadow = &bs
	return s
}

// SetImage sets the image stretched over the surface rectangle.
func (s *Surface) SetImage(source string) *Surface {
	s.Image = &ImageRef{Source: source}
	s.MarkDirty()
	return s
}

// SetText sets the text run. Text changes the intrinsic size, so the
// surface is marked dirty.
func (s *Surface) SetText(t Text) *Surface {
	s.Text = &t
	s.MarkDirty()
	return s
}

// ClearPaint removes every paint attribute.
func (s *Surface) ClearPaint() {
	s.BackgroundColor = nil
	s.Border = nil
	s.BorderRadius = nil
	s.BoxShadow = nil
	s.Image = nil
	s.Text = nil
	s.MarkDirty()
}

// --- Tree manipulation ---

// AppendChild appends child to this surface's children.
// If child already has a parent, it is removed from that parent first, so
// appending a child that is already here moves it to the end.
// Panics if child is nil or child is an ancestor of this surface (cycle).
func (s *Surface) AppendChild(child *Surface) {
	if child == nil {
		panic("stain: cannot append nil child")
	}
	if isAncestor(child, s) {
		panic("stain: appending child would create a cycle")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = s
	s.children = append(s.children, child)
	s.MarkDirty()
	if debugEnabled() {
		debugCheckTreeDepth(child)
		debugCheckChildCount(s)
	}
}

// InsertBefore inserts child directly before the existing child before.
// Same reparenting and cycle-check behavior as AppendChild. Inserting a
// surface before itself is a no-op.
// Panics if before is not a child of this surface.
func (s *Surface) InsertBefore(child, before *Surface) {
	if child == nil {
		panic("stain: cannot insert nil child")
	}
	if before == nil || before.parent != s {
		panic("stain: insert reference is not a child of this surface")
	}
	if child == before {
		return
	}
	if isAncestor(child, s) {
		panic("stain: inserting child would create a cycle")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	index := s.indexOf(before)
	child.parent = s
	s.children = append(s.children, nil)
	copy(s.children[index+1:], s.children[index:])
	s.children[index] = child
	s.MarkDirty()
	if debugEnabled() {
		debugCheckTreeDepth(child)
		debugCheckChildCount(s)
	}
}

// RemoveChild detaches child from this surface, releasing the subtree.
// Panics if child is not a child of this surface.
func (s *Surface) RemoveChild(child *Surface) {
	if child == nil || child.parent != s {
		panic("stain: child's parent is not this surface")
	}
	s.removeChildByPtr(child)
	child.parent = nil
	s.MarkDirty()
}

// RemoveFromParent detaches this surface from its parent.
// No-op if this surface has no parent.
func (s *Surface) RemoveFromParent() {
	if s.parent == nil {
		return
	}
	s.parent.RemoveChild(s)
}

// Parent returns the parent surface, or nil for a root.
func (s *Surface) Parent() *Surface {
	return s.parent
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (s *Surface) Children() []*Surface {
	return s.children
}

// NumChildren returns the number of children.
func (s *Surface) NumChildren() int {
	return len(s.children)
}

// ChildAt returns the child at the given index.
func (s *Surface) ChildAt(index int) *Surface {
	return s.children[index]
}

// Walk calls fn for s and every descendant in paint order. Returning false
// from fn skips that surface's children.
func (s *Surface) Walk(fn func(*Surface) bool) {
	if !fn(s) {
		return
	}
	for _, child := range s.children {
		child.Walk(fn)
	}
}

// Find returns the surface with the given id in this subtree, or nil.
func (s *Surface) Find(id SurfaceID) *Surface {
	var found *Surface
	s.Walk(func(c *Surface) bool {
		if found != nil {
			return false
		}
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// --- Layout collaboration ---

// SetMeasure installs the callback the layout engine uses to ask for this
// surface's intrinsic size. Pass nil to remove it.
func (s *Surface) SetMeasure(m Measure) {
	s.measure = m
	s.MarkDirty()
}

// HasMeasure reports whether a measure callback is installed.
func (s *Surface) HasMeasure() bool {
	return s.measure != nil
}

// Measure asks the installed callback for the intrinsic size. Returns the
// zero Size when no callback is installed.
func (s *Surface) Measure(width float32, widthMode MeasureMode, height float32, heightMode MeasureMode) Size {
	if s.measure == nil {
		return Size{}
	}
	return s.measure.Measure(width, widthMode, height, heightMode)
}

// MarkDirty invalidates cached layout for this surface and its ancestors.
func (s *Surface) MarkDirty() {
	for p := s; p != nil; p = p.parent {
		p.dirty = true
	}
}

// IsDirty reports whether layout must be recomputed for this surface.
func (s *Surface) IsDirty() bool {
	return s.dirty
}

// ClearDirty marks this surface and its whole subtree as laid out.
// Called by a Layouter after it has produced a LayoutTable.
func (s *Surface) ClearDirty() {
	s.Walk(func(c *Surface) bool {
		c.dirty = false
		return true
	})
}

// --- Helpers ---

// isAncestor reports whether candidate is node or an ancestor of node.
func isAncestor(candidate, node *Surface) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

func (s *Surface) indexOf(child *Surface) int {
	for i, c := range s.children {
		if c == child {
			return i
		}
	}
	return -1
}

// removeChildByPtr removes child from s.children without clearing child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (s *Surface) removeChildByPtr(child *Surface) {
	for i, c := range s.children {
		if c == child {
			copy(s.children[i:], s.children[i+1:])
			s.children[len(s.children)-1] = nil
			s.children = s.children[:len(s.children)-1]
			return
		}
	}
}
