package stain

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	xdraw "golang.org/x/image/draw"
)

// defaultScreenshotDir is where screenshots go unless ScreenshotDir is set.
const defaultScreenshotDir = "screenshots"

// Screenshot asks for the next presented frame to be saved as a PNG in
// ScreenshotDir. The file name is a timestamp followed by label. Safe to
// call from any goroutine.
func (b *EbitenBackend) Screenshot(label string) {
	b.mu.Lock()
	b.screenshot = append(b.screenshot, label)
	b.mu.Unlock()
}

// flushScreenshots writes frame once per queued label. frame is the front
// image, so debug overlays drawn onto the screen are not captured.
func (b *EbitenBackend) flushScreenshots(frame *ebiten.Image, labels []string) {
	dir := b.ScreenshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		Logger().Warn("screenshot skipped", "dir", dir, "error", err)
		return
	}

	bounds := frame.Bounds()
	premul := image.NewRGBA(bounds)
	frame.ReadPixels(premul.Pix)
	img := straightAlpha(premul)

	stamp := time.Now().Format("20060102_150405")
	for _, name := range screenshotNames(stamp, labels) {
		path := filepath.Join(dir, name)
		if err := writePNG(path, img); err != nil {
			Logger().Warn("screenshot failed", "path", path, "error", err)
			continue
		}
		Logger().Info("screenshot written", "path", path)
	}
}

// straightAlpha converts ebiten's premultiplied pixels to NRGBA, which is
// what PNG stores.
func straightAlpha(src *image.RGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst
}

// screenshotNames builds one file name per label. Repeated labels within
// a flush get a numeric suffix so they do not overwrite each other.
func screenshotNames(stamp string, labels []string) []string {
	names := make([]string, len(labels))
	seen := make(map[string]int, len(labels))
	for i, label := range labels {
		base := stamp + "_" + sanitizeLabel(label)
		seen[base]++
		if n := seen[base]; n > 1 {
			base = fmt.Sprintf("%s-%d", base, n)
		}
		names[i] = base + ".png"
	}
	return names
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stain: write screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("stain: encode screenshot %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel keeps letters, digits, '-' and '.', maps everything else
// to '_', and names blank labels "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
