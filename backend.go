package stain

// FrameResult is the completion signal a backend sends once per transaction.
type FrameResult struct {
	Epoch Epoch
	// Err is non-nil when the backend could not rasterize the transaction.
	Err error
}

// FrameNotifier receives the completion signal of one transaction. Backends
// call it exactly once, from their own pipeline goroutine.
type FrameNotifier func(FrameResult)

// Backend is the GPU-facing display-list renderer. It accepts transactions,
// rasterizes them on its own pipeline, and answers hit-test queries over the
// most recently rasterized frame.
type Backend interface {
	// SendTransaction queues tx and returns immediately. notify is called
	// once the frame has been rasterized or has failed.
	SendTransaction(tx *Transaction, notify FrameNotifier)
	// Present makes the most recently rasterized frame visible.
	Present() error
	// HitTest returns the tag of the topmost primitive containing (x, y).
	HitTest(x, y float32) (SurfaceID, bool)
}
