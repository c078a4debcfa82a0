package stain

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Renderer bundles the compiler, its resource cache, and a frame
// synchronizer for one backend. It is the usual entry point: build a tree,
// lay it out, and call Render once per frame.
type Renderer struct {
	compiler *Compiler
	sync     *FrameSynchronizer
	backend  Backend
	debug    bool
}

// NewRenderer creates a renderer for backend configured by cfg. Zero fields
// of cfg take their defaults.
func NewRenderer(backend Backend, cfg RunConfig) *Renderer {
	cfg = cfg.withDefaults()

	compiler := NewCompiler(nil, nil)
	compiler.PlaceholderImages = cfg.PlaceholderImages
	compiler.Resources.MaxIdleFrames = cfg.ImageCacheFrames
	compiler.Resources.SeedFontSizes(cfg.FontSizes)

	sync := NewFrameSynchronizer(backend)
	sync.Timeout = time.Duration(cfg.FrameTimeout)

	r := &Renderer{compiler: compiler, sync: sync, backend: backend}
	r.SetDebugMode(cfg.Debug)
	return r
}

// Render compiles root with layout and blocks until the backend has
// rasterized and presented the frame.
func (r *Renderer) Render(ctx context.Context, root *Surface, layout LayoutTable) error {
	var stats debugStats
	var t0 time.Time
	if r.debug {
		t0 = time.Now()
	}

	f, err := r.compiler.Compile(root, layout)
	if err != nil {
		return err
	}

	if r.debug {
		t1 := time.Now()
		stats.compileTime = t1.Sub(t0)
		stats.primitiveCount = len(f.Primitives)
		stats.clipCount = len(f.Clips)
		stats.glyphCount = f.GlyphCount()
		stats.resourceCount = len(f.Resources)
		t0 = t1
	}

	err = r.sync.SubmitAndWait(ctx, f)
	if Undelivered(err) {
		r.compiler.Discard(f)
	}

	if r.debug {
		stats.waitTime = time.Since(t0)
		debugLog(stats)
	}
	return err
}

// HitTest returns the surface painted topmost at (x, y) in the most
// recently rasterized frame.
func (r *Renderer) HitTest(x, y float32) (SurfaceID, bool) {
	return r.backend.HitTest(x, y)
}

// SetDebugMode enables or disables per-frame statistics logging and tree
// sanity checks.
func (r *Renderer) SetDebugMode(enabled bool) {
	r.debug = enabled
	globalDebug.Store(enabled)
}

// RegisterImage registers a checkerboard image of w x h pixels under name,
// for use as an ImageRef source before real content is available.
func (r *Renderer) RegisterImage(name string, w, h int) {
	r.compiler.Resources.RegisterImageData(name, makeCheckerboard(w, h))
}

// RegisterImageData registers img under name.
func (r *Renderer) RegisterImageData(name string, img image.Image) {
	r.compiler.Resources.RegisterImageData(name, img)
}

// Events returns the backend's window events, or nil when the backend does
// not produce any.
func (r *Renderer) Events() <-chan WindowEvent {
	if src, ok := r.backend.(interface{ Events() <-chan WindowEvent }); ok {
		return src.Events()
	}
	return nil
}

// Compiler returns the renderer's compiler.
func (r *Renderer) Compiler() *Compiler { return r.compiler }

// Synchronizer returns the renderer's frame synchronizer.
func (r *Renderer) Synchronizer() *FrameSynchronizer { return r.sync }

// Resources returns the renderer's resource cache.
func (r *Renderer) Resources() *ResourceCache { return r.compiler.Resources }

// Backend returns the backend frames are rendered to.
func (r *Renderer) Backend() Backend { return r.backend }

// FrameFunc produces one frame, normally by laying out a tree and calling
// r.Render once. Returning ebiten.Termination ends Run without an error;
// any other error ends Run with that error.
type FrameFunc func(ctx context.Context, r *Renderer) error

// Run opens a window configured by cfg and calls frame repeatedly on a
// worker goroutine until the window is closed or frame returns an error.
// ebiten's game loop runs on the calling goroutine, which must be the main
// goroutine. Render blocks until the frame is drawn, so frames are paced by
// the display. With cfg.TestScript set, Run plays the script, closes the
// window when it ends and returns its failed expectations as an error.
func Run(cfg RunConfig, frame FrameFunc) error {
	if frame == nil {
		panic("stain: Run needs a frame function")
	}
	cfg = cfg.withDefaults()

	backend := NewEbitenBackend(cfg.Width, cfg.Height)
	backend.ClearColor = *cfg.ClearColor
	backend.ShowFPS = cfg.ShowFPS
	backend.ScreenshotDir = cfg.ScreenshotDir
	var script *TestRunner
	if cfg.TestScript != "" {
		var err error
		if script, err = LoadTestScriptFile(cfg.TestScript); err != nil {
			return err
		}
		backend.SetTestRunner(script)
	}
	r := NewRenderer(backend, cfg)

	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frameErr := make(chan error, 1)
	go func() {
		err := runFrames(ctx, r, frame)
		_ = backend.Close()
		frameErr <- err
	}()

	Logger().Info("backend started", "width", cfg.Width, "height", cfg.Height)
	gameErr := ebiten.RunGame(backend)
	cancel()
	_ = backend.Close()
	err := <-frameErr

	if gameErr != nil {
		return fmt.Errorf("stain: run: %w", gameErr)
	}
	if err != nil {
		return err
	}
	if script != nil {
		return script.Err()
	}
	return nil
}

// runFrames calls frame until ctx is done or frame fails. Shutdown errors
// caused by the window closing are not reported.
func runFrames(ctx context.Context, r *Renderer, frame FrameFunc) error {
	for ctx.Err() == nil {
		err := frame(ctx, r)
		switch {
		case err == nil:
		case errors.Is(err, ebiten.Termination),
			errors.Is(err, ErrBackendClosed),
			errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	}
	return nil
}
