package stain

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// eventBufferSize is the capacity of the Events channel.
const eventBufferSize = 256

// EbitenBackend is the GPU display-list backend. It implements ebiten.Game:
// transactions are rasterized inside Draw on ebiten's game loop, which is
// the backend's own pipeline, into an offscreen back image. Present swaps
// the back image to the front, and every Draw blits the front image to the
// screen.
//
// SendTransaction, Present and HitTest may be called from any goroutine.
type EbitenBackend struct {
	// ClearColor fills the frame before primitives are drawn.
	ClearColor Color
	// ShowFPS overlays the measured frame rate.
	ShowFPS bool
	// ScreenshotDir is where Screenshot writes PNG files.
	ScreenshotDir string

	mu         sync.Mutex
	queue      []queuedTx
	closed     bool
	back       *ebiten.Image
	front      *ebiten.Image
	backReady  bool
	backHits   *hitIndex
	width      int
	height     int
	screenshot []string

	hits   atomic.Pointer[hitIndex]
	raster *rasterizer

	inputMu     sync.Mutex
	injectQueue []syntheticPointerEvent
	pointer     pointerTracker
	eventBuf    []WindowEvent
	events      chan WindowEvent
	testRunner  *TestRunner
}

// NewEbitenBackend creates a backend whose frame starts at width x height
// pixels. The frame follows the window size afterwards.
func NewEbitenBackend(width, height int) *EbitenBackend {
	return &EbitenBackend{
		ClearColor:    ColorWhite,
		ScreenshotDir: defaultScreenshotDir,
		width:         max(width, 1),
		height:        max(height, 1),
		raster:        newRasterizer(),
		events:        make(chan WindowEvent, eventBufferSize),
	}
}

// Events delivers pointer and resize events polled on the game loop.
func (b *EbitenBackend) Events() <-chan WindowEvent {
	return b.events
}

// Size returns the current frame size in pixels.
func (b *EbitenBackend) Size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SendTransaction implements Backend.
func (b *EbitenBackend) SendTransaction(tx *Transaction, notify FrameNotifier) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		notify(FrameResult{Epoch: tx.Epoch, Err: ErrBackendClosed})
		return
	}
	b.queue = append(b.queue, queuedTx{tx: tx, notify: notify})
	b.mu.Unlock()
}

// Present implements Backend.
func (b *EbitenBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	if b.backReady {
		b.back, b.front = b.front, b.back
		b.hits.Store(b.backHits)
		b.backReady = false
		b.backHits = nil
	}
	return nil
}

// HitTest implements Backend.
func (b *EbitenBackend) HitTest(x, y float32) (SurfaceID, bool) {
	return b.hits.Load().query(x, y)
}

// SetTestRunner attaches a scripted input and screenshot sequence. Its
// steps run from Update, one per frame.
func (b *EbitenBackend) SetTestRunner(r *TestRunner) {
	b.inputMu.Lock()
	b.testRunner = r
	b.inputMu.Unlock()
}

// Close stops the game loop at the next Update and fails queued
// transactions with ErrBackendClosed.
func (b *EbitenBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, q := range queue {
		q.notify(FrameResult{Epoch: q.tx.Epoch, Err: ErrBackendClosed})
	}
	return nil
}

func (b *EbitenBackend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// --- ebiten.Game ---

// Update polls input and advances the test runner. The game ends once an
// attached runner is done.
func (b *EbitenBackend) Update() error {
	if b.isClosed() {
		b.raster.dispose()
		return ebiten.Termination
	}
	b.inputMu.Lock()
	runner := b.testRunner
	b.inputMu.Unlock()
	if runner != nil {
		// Stop one frame after the last step so its screenshot is drawn.
		if runner.Done() {
			Logger().Info("test script finished", "failures", len(runner.Failures()))
			_ = b.Close()
			b.raster.dispose()
			return ebiten.Termination
		}
		runner.step(b)
	}
	b.processInput(readModifiers(), readMouse)
	return nil
}

// Draw rasterizes queued transactions into the back image, signals their
// completion, then shows the front image.
func (b *EbitenBackend) Draw(screen *ebiten.Image) {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.ensureTargetsLocked()
	back := b.back
	bg := b.ClearColor
	b.mu.Unlock()

	for _, q := range queue {
		err := b.raster.draw(back, q.tx, bg)
		if err == nil {
			hits := buildHitIndex(q.tx)
			b.mu.Lock()
			b.backReady = true
			b.backHits = hits
			b.mu.Unlock()
		} else {
			err = fmt.Errorf("epoch %d: %w", q.tx.Epoch, err)
		}
		q.notify(FrameResult{Epoch: q.tx.Epoch, Err: err})
	}

	b.mu.Lock()
	front := b.front
	shots := b.screenshot
	b.screenshot = nil
	b.mu.Unlock()

	if front != nil {
		screen.DrawImage(front, nil)
	} else {
		screen.Fill(bg.toRGBA())
	}
	if len(shots) > 0 && front != nil {
		b.flushScreenshots(front, shots)
	}
	if b.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

// Layout keeps one frame pixel per window pixel and reports size changes.
func (b *EbitenBackend) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := max(outsideWidth, 1), max(outsideHeight, 1)
	b.mu.Lock()
	changed := w != b.width || h != b.height
	b.width, b.height = w, h
	b.mu.Unlock()
	if changed {
		b.emit(WindowEvent{Type: EventResize, Width: w, Height: h})
	}
	return w, h
}

// ensureTargetsLocked (re)allocates the back and front images at the
// current frame size. Callers hold b.mu.
func (b *EbitenBackend) ensureTargetsLocked() {
	want := image.Rect(0, 0, b.width, b.height)
	if b.back != nil && b.back.Bounds() == want {
		return
	}
	if b.back != nil {
		b.back.Deallocate()
		b.front.Deallocate()
		b.raster.pool.Purge()
	}
	b.back = ebiten.NewImage(b.width, b.height)
	b.front = ebiten.NewImage(b.width, b.height)
	b.front.Fill(b.ClearColor.toRGBA())
	b.backReady = false
}
