package stain

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// readImageSource reads the raw bytes of an image file.
func readImageSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrImageLoad, path, err)
	}
	return data, nil
}

// decodeImage sniffs and decodes an encoded image into premultiplied RGBA
// with an explicit alpha channel.
func decodeImage(name string, data []byte) (*image.RGBA, error) {
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("%w: %s is not an image (detected %q)", ErrImageLoad, name, kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrImageLoad, name, err)
	}
	return toRGBA(img), nil
}

// toRGBA returns img as a tightly packed *image.RGBA anchored at the
// origin, converting when necessary.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// isOpaque reports whether every pixel of img has full alpha.
func isOpaque(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// checkerboardCell is the edge length of one checkerboard square in pixels.
const checkerboardCell = 8

// makeCheckerboard builds the placeholder substituted for images that fail
// to load: alternating light and dark grey squares.
func makeCheckerboard(w, h int) *image.RGBA {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	light := color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	dark := color.RGBA{0x66, 0x66, 0x66, 0xff}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := light
			if (x/checkerboardCell+y/checkerboardCell)%2 == 1 {
				c = dark
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
