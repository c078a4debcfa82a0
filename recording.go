package stain

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RecordingBackend is a Backend that validates and records transactions
// instead of drawing them. It runs its own pipeline goroutine, so the
// asynchronous completion contract is the same as a GPU backend's.
// It is used by tests and headless tools.
type RecordingBackend struct {
	queue     chan queuedTx
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	unresponsive atomic.Bool
	failNext     atomic.Pointer[error]
	hits         atomic.Pointer[hitIndex]

	mu           sync.Mutex
	images       map[ImageKey]ImageDescriptor
	fonts        map[FontKey]int
	instances    map[FontInstanceKey]FontKey
	rasterized   []*Transaction
	pending      *Transaction
	presented    *Transaction
	presentCount int
}

type queuedTx struct {
	tx     *Transaction
	notify FrameNotifier
}

// NewRecordingBackend starts a recording backend's pipeline.
func NewRecordingBackend() *RecordingBackend {
	b := &RecordingBackend{
		queue:     make(chan queuedTx, 8),
		done:      make(chan struct{}),
		images:    make(map[ImageKey]ImageDescriptor),
		fonts:     make(map[FontKey]int),
		instances: make(map[FontInstanceKey]FontKey),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// SendTransaction implements Backend.
func (b *RecordingBackend) SendTransaction(tx *Transaction, notify FrameNotifier) {
	if b.closed() {
		notify(FrameResult{Epoch: tx.Epoch, Err: ErrBackendClosed})
		return
	}
	select {
	case <-b.done:
		notify(FrameResult{Epoch: tx.Epoch, Err: ErrBackendClosed})
	case b.queue <- queuedTx{tx: tx, notify: notify}:
	}
}

func (b *RecordingBackend) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case q := <-b.queue:
			b.process(q)
		}
	}
}

func (b *RecordingBackend) process(q queuedTx) {
	if b.unresponsive.Load() {
		return
	}
	err := b.rasterize(q.tx)
	q.notify(FrameResult{Epoch: q.tx.Epoch, Err: err})
}

// rasterize applies the transaction's registrations and checks that every
// primitive refers to resources the backend knows about.
func (b *RecordingBackend) rasterize(tx *Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range tx.Resources {
		switch u.Kind {
		case ResourceAddImage:
			if want := u.Descriptor.Width * u.Descriptor.Height * 4; len(u.Pixels) != want {
				return fmt.Errorf("stain: image %d has %d bytes of pixels, want %d", u.Image, len(u.Pixels), want)
			}
			b.images[u.Image] = u.Descriptor
		case ResourceDeleteImage:
			delete(b.images, u.Image)
		case ResourceAddFont:
			b.fonts[u.Font] = len(u.FontData)
		case ResourceAddFontInstance:
			if _, ok := b.fonts[u.Font]; !ok {
				return fmt.Errorf("stain: font instance %d refers to unknown font %d", u.FontInstance, u.Font)
			}
			b.instances[u.FontInstance] = u.Font
		}
	}

	// Registrations survive a failed frame; only drawing is lost.
	if p := b.failNext.Swap(nil); p != nil {
		return *p
	}

	for i := range tx.DisplayList {
		p := &tx.DisplayList[i]
		if p.Clip != NoClip {
			if _, ok := lookupClip(tx.Clips, p.Clip); !ok {
				return fmt.Errorf("stain: primitive %d uses undefined clip %d", i, p.Clip)
			}
		}
		switch p.Kind {
		case PrimitiveImage:
			if _, ok := b.images[p.Image]; !ok {
				return fmt.Errorf("stain: primitive %d uses unknown image %d", i, p.Image)
			}
		case PrimitiveText:
			if _, ok := b.instances[p.Font]; !ok {
				return fmt.Errorf("stain: primitive %d uses unknown font instance %d", i, p.Font)
			}
		}
	}

	b.rasterized = append(b.rasterized, tx)
	b.pending = tx
	b.hits.Store(buildHitIndex(tx))
	return nil
}

// Present implements Backend.
func (b *RecordingBackend) Present() error {
	if b.closed() {
		return ErrBackendClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.presented = b.pending
		b.pending = nil
	}
	b.presentCount++
	return nil
}

// HitTest implements Backend.
func (b *RecordingBackend) HitTest(x, y float32) (SurfaceID, bool) {
	return b.hits.Load().query(x, y)
}

// SetUnresponsive makes the pipeline swallow transactions without ever
// signaling completion, simulating a hung GPU.
func (b *RecordingBackend) SetUnresponsive(v bool) {
	b.unresponsive.Store(v)
}

// FailNext makes the next transaction fail with err.
func (b *RecordingBackend) FailNext(err error) {
	b.failNext.Store(&err)
}

// Transactions returns every transaction rasterized so far, oldest first.
func (b *RecordingBackend) Transactions() []*Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Transaction, len(b.rasterized))
	copy(out, b.rasterized)
	return out
}

// Presented returns the transaction currently on screen, or nil.
func (b *RecordingBackend) Presented() *Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presented
}

// PresentCount returns how many times Present was called.
func (b *RecordingBackend) PresentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presentCount
}

// ImageCount returns the number of images currently registered.
func (b *RecordingBackend) ImageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.images)
}

// HasImage reports whether key is registered.
func (b *RecordingBackend) HasImage(key ImageKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.images[key]
	return ok
}

// FontInstanceCount returns the number of registered font instances.
func (b *RecordingBackend) FontInstanceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.instances)
}

func (b *RecordingBackend) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Close stops the pipeline. Later transactions fail with ErrBackendClosed.
func (b *RecordingBackend) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	return nil
}
