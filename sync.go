package stain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultFrameTimeout bounds how long SubmitAndWait waits for a backend.
const DefaultFrameTimeout = 5 * time.Second

// FrameSynchronizer submits compiled frames to a backend and blocks until
// the backend has rasterized them. One synchronizer drives one window's
// pipeline, and at most one frame may be in flight at a time.
type FrameSynchronizer struct {
	// Timeout bounds the wait for the backend's completion signal.
	// Zero selects DefaultFrameTimeout.
	Timeout time.Duration

	backend  Backend
	inFlight atomic.Bool
	epoch    atomic.Uint64
	failed   atomic.Uint64
}

// NewFrameSynchronizer creates a synchronizer for backend.
func NewFrameSynchronizer(backend Backend) *FrameSynchronizer {
	if backend == nil {
		panic("stain: frame synchronizer needs a backend")
	}
	return &FrameSynchronizer{Timeout: DefaultFrameTimeout, backend: backend}
}

// SubmitAndWait sends f to the backend as one transaction, waits for the
// completion signal, then presents the frame.
//
// A frame the backend reports as failed is logged and not presented; the
// call still returns nil so the next frame proceeds normally. The wait ends
// early with ErrBackendUnresponsive when Timeout expires, or with ctx.Err()
// when ctx is done. Calling SubmitAndWait while another call on the same
// synchronizer is waiting returns ErrFrameInFlight.
//
// When Undelivered reports true for the returned error, the frame's
// resource registrations may not have reached the backend and should be
// handed back with Compiler.Discard.
func (s *FrameSynchronizer) SubmitAndWait(ctx context.Context, f *Frame) error {
	if f == nil {
		panic("stain: cannot submit a nil frame")
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrFrameInFlight
	}
	defer s.inFlight.Store(false)

	epoch := Epoch(s.epoch.Add(1))
	done := make(chan FrameResult, 1)
	s.backend.SendTransaction(newTransaction(epoch, f), func(r FrameResult) {
		select {
		case done <- r:
		default:
		}
	})

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.Err != nil {
			if errors.Is(r.Err, ErrBackendClosed) {
				return r.Err
			}
			s.failed.Add(1)
			Logger().Warn("frame not presented", "epoch", r.Epoch, "error", r.Err)
			return nil
		}
		if err := s.backend.Present(); err != nil {
			return fmt.Errorf("stain: present epoch %d: %w", epoch, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: epoch %d not rasterized within %s", ErrBackendUnresponsive, epoch, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Undelivered reports whether err from SubmitAndWait means the backend never
// confirmed the frame: it was rejected as in flight, the wait timed out or
// the context ended.
func Undelivered(err error) bool {
	return errors.Is(err, ErrFrameInFlight) ||
		errors.Is(err, ErrBackendUnresponsive) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Epoch returns the epoch of the most recently submitted transaction.
func (s *FrameSynchronizer) Epoch() Epoch {
	return Epoch(s.epoch.Load())
}

// FailedFrames returns how many frames the backend reported as failed.
func (s *FrameSynchronizer) FailedFrames() uint64 {
	return s.failed.Load()
}

// Backend returns the backend frames are submitted to.
func (s *FrameSynchronizer) Backend() Backend {
	return s.backend
}
