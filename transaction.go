package stain

// Epoch numbers transactions submitted through one synchronizer.
type Epoch uint64

// ImageKey is the backend handle of a registered image.
type ImageKey uint32

// FontKey is the backend handle of a registered font file.
type FontKey uint32

// FontInstanceKey is the backend handle of a font at one pixel size.
type FontInstanceKey uint32

// ResourceKind identifies a resource registration.
type ResourceKind uint8

const (
	ResourceAddImage        ResourceKind = iota // upload Pixels under Image
	ResourceDeleteImage                         // release Image
	ResourceAddFont                             // register FontData under Font
	ResourceAddFontInstance                     // register Font at Size under FontInstance
)

// ImageFormat is the pixel layout of uploaded image data.
type ImageFormat uint8

const (
	// ImageFormatRGBA8 is 8-bit premultiplied RGBA, row-major, no padding.
	ImageFormatRGBA8 ImageFormat = iota
)

// ImageDescriptor describes uploaded pixel data.
type ImageDescriptor struct {
	Width, Height int
	Format        ImageFormat
	Opaque        bool
}

// ResourceUpdate is one registration carried by a transaction.
type ResourceUpdate struct {
	Kind ResourceKind

	Image      ImageKey
	Descriptor ImageDescriptor
	Pixels     []byte

	Font     FontKey
	FontData []byte

	FontInstance FontInstanceKey
	Size         float32
}

// Transaction is one backend submission unit: resource registrations plus
// the ordered primitive list of a frame, addressed to the window's single
// pipeline.
type Transaction struct {
	Epoch       Epoch
	Viewport    Size
	Bounds      Rect
	Resources   []ResourceUpdate
	Clips       []ClipRegion
	DisplayList []Primitive
}

// newTransaction wraps a compiled frame. The frame's slices are shared, not
// copied; frames are not reused after submission.
func newTransaction(epoch Epoch, f *Frame) *Transaction {
	return &Transaction{
		Epoch:       epoch,
		Viewport:    f.Size,
		Bounds:      f.Bounds,
		Resources:   f.Resources,
		Clips:       f.Clips,
		DisplayList: f.Primitives,
	}
}
