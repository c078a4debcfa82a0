// Package stain compiles a retained tree of styled surfaces into display
// lists for [Ebitengine].
//
// The application owns a tree of [Surface] values and a [LayoutTable] that
// gives every surface its rectangle relative to its parent. Each frame the
// [Compiler] walks the tree once and emits a flat, ordered list of
// [Primitive] values in absolute coordinates. The [FrameSynchronizer] hands
// the list to a [Backend] as one transaction and blocks until the backend
// has rasterized it. Hit testing is answered by the backend against the
// last rasterized frame.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window, a
// [Renderer] and a frame loop for you:
//
//	root := stain.NewSurface("root")
//	root.SetBackgroundColor(stain.ColorWhite)
//	layout := stain.LayoutTable{root.ID: {Width: 640, Height: 480}}
//
//	stain.Run(stain.RunConfig{Title: "Demo", Width: 640, Height: 480},
//		func(ctx context.Context, r *stain.Renderer) error {
//			return r.Render(ctx, root, layout)
//		})
//
// # Paint order
//
// A surface paints its box shadow, background, image and text, then its
// children in order, and finally its border, so a border always sits on top
// of the surface's descendants.
//
// # Clipping
//
// A surface that declares a [BorderRadius] becomes a rounded clip for
// itself and its whole subtree. A nested surface that declares its own
// radius replaces the inherited clip rather than intersecting with it.
// Surfaces without a radius inherit their parent's clip unchanged.
//
// # Resources
//
// Images and font instances are registered with the backend through the
// [ResourceCache]. Images are deduplicated by content hash and evicted
// after a configurable number of idle frames. Registrations travel in the
// same transaction as the primitives that use them.
//
// # Backends
//
// [EbitenBackend] rasterizes transactions on ebiten's game loop with the
// vector package, and delivers window events and screenshots.
// [RecordingBackend] validates and records transactions on its own
// goroutine and is used for tests and headless tools.
//
// # Scene documents
//
// [LoadScene] builds a tree and its layout from a YAML document, and
// [WatchScene] reloads a document whenever it changes on disk.
//
// # Logging
//
// stain logs through [log/slog]. Output is discarded until [SetLogger] is
// called. Enable [Renderer.SetDebugMode] for per-frame statistics.
//
// [Ebitengine]: https://ebitengine.org
package stain
