package stain

// MeasureMode tells a Measure callback how to interpret an available size.
type MeasureMode uint8

const (
	MeasureUndefined MeasureMode = iota // no constraint; return the natural size
	MeasureExactly                      // the size is fixed by the layout engine
	MeasureAtMost                       // the size is an upper bound
)

// Measure computes the intrinsic size of a surface whose content is not
// known to the layout engine (embedded images, text).
type Measure interface {
	Measure(width float32, widthMode MeasureMode, height float32, heightMode MeasureMode) Size
}

// MeasureFunc adapts a plain function to the Measure interface.
type MeasureFunc func(width float32, widthMode MeasureMode, height float32, heightMode MeasureMode) Size

// Measure calls f.
func (f MeasureFunc) Measure(width float32, widthMode MeasureMode, height float32, heightMode MeasureMode) Size {
	return f(width, widthMode, height, heightMode)
}

// TextMeasure returns a Measure that sizes a surface to its text run, shaped
// with shaper at the available width.
func TextMeasure(shaper TextShaper, t Text) Measure {
	return MeasureFunc(func(width float32, widthMode MeasureMode, height float32, heightMode MeasureMode) Size {
		if widthMode == MeasureUndefined {
			width = 0
		}
		return shaper.Measure(t, width)
	})
}
