package stain

import "errors"

var (
	// ErrImageLoad is returned when an image source cannot be read or decoded.
	ErrImageLoad = errors.New("stain: image load failed")

	// ErrBackendUnresponsive is returned by SubmitAndWait when the backend
	// does not signal completion within the synchronizer's timeout.
	ErrBackendUnresponsive = errors.New("stain: backend unresponsive")

	// ErrFrameInFlight is returned when SubmitAndWait is called while a
	// previous call on the same synchronizer has not returned.
	ErrFrameInFlight = errors.New("stain: frame already in flight")

	// ErrBackendClosed is returned after a backend has been shut down.
	ErrBackendClosed = errors.New("stain: backend closed")

	// ErrInvalidScene is returned when a scene document cannot be used.
	ErrInvalidScene = errors.New("stain: invalid scene document")
)
