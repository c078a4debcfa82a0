package stain

import (
	"image"
	"math/bits"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxIdleLayers is how many idle images the pool keeps per size. A clip
// group holds a layer and a mask at once, and a shadow one more layer.
const maxIdleLayers = 3

// layerSize is a power-of-two image size used as a pool bucket key.
type layerSize struct {
	w, h int
}

// renderTexturePool recycles the offscreen images the rasterizer needs for
// clip layers, clip masks and shadow layers. Sizes are rounded up to powers
// of two so a window that resizes by a few pixels keeps hitting the same
// buckets. Used only from the ebiten game loop.
type renderTexturePool struct {
	idle map[layerSize][]*ebiten.Image
}

// Acquire returns a cleared image of at least w x h pixels.
func (p *renderTexturePool) Acquire(w, h int) *ebiten.Image {
	size := layerSize{nextPowerOfTwo(w), nextPowerOfTwo(h)}
	if stack := p.idle[size]; len(stack) > 0 {
		img := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		p.idle[size] = stack[:len(stack)-1]
		img.Clear()
		return img
	}
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, size.w, size.h),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release hands img back for reuse. Images beyond maxIdleLayers of one size
// are deallocated.
func (p *renderTexturePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	size := layerSize{b.Dx(), b.Dy()}
	if p.idle == nil {
		p.idle = make(map[layerSize][]*ebiten.Image)
	}
	if len(p.idle[size]) >= maxIdleLayers {
		img.Deallocate()
		return
	}
	p.idle[size] = append(p.idle[size], img)
}

// Len returns the number of idle images.
func (p *renderTexturePool) Len() int {
	n := 0
	for _, stack := range p.idle {
		n += len(stack)
	}
	return n
}

// Purge deallocates every idle image. The backend calls it after a resize.
func (p *renderTexturePool) Purge() {
	for size, stack := range p.idle {
		for _, img := range stack {
			img.Deallocate()
		}
		delete(p.idle, size)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n, at least 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
