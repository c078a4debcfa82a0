package stain

import "github.com/hajimehoshi/ebiten/v2"

// EventType identifies a window event.
type EventType uint8

const (
	EventPointerDown EventType = iota // a button went down
	EventPointerUp                    // a button was released
	EventPointerMove                  // the pointer moved
	EventResize                       // the window changed size
)

func (t EventType) String() string {
	switch t {
	case EventPointerDown:
		return "pointer-down"
	case EventPointerUp:
		return "pointer-up"
	case EventPointerMove:
		return "pointer-move"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// KeyModifiers is a bitmask of held modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// WindowEvent is an input or window event delivered by the ebiten backend.
// Coordinates are in frame space, the same space HitTest takes.
type WindowEvent struct {
	Type      EventType
	X, Y      float32
	Button    MouseButton
	Modifiers KeyModifiers
	// Width and Height are set for EventResize.
	Width, Height int
}

// pointerTracker turns sampled pointer state into edge events.
type pointerTracker struct {
	seen   bool
	down   bool
	button MouseButton
	x, y   float32
}

// sample compares the pointer with the previous sample and appends the
// resulting events to out. While a button is held, the button that started
// the press is reported until release.
func (p *pointerTracker) sample(out []WindowEvent, x, y float32, pressed bool, button MouseButton, mods KeyModifiers) []WindowEvent {
	if p.seen && (x != p.x || y != p.y) {
		out = append(out, WindowEvent{Type: EventPointerMove, X: x, Y: y, Button: p.button, Modifiers: mods})
	}
	p.seen = true
	p.x, p.y = x, y

	switch {
	case pressed && !p.down:
		p.down = true
		p.button = button
		out = append(out, WindowEvent{Type: EventPointerDown, X: x, Y: y, Button: button, Modifiers: mods})
	case !pressed && p.down:
		p.down = false
		out = append(out, WindowEvent{Type: EventPointerUp, X: x, Y: y, Button: p.button, Modifiers: mods})
	}
	return out
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// readMouse samples the mouse. Left wins over right, right over middle.
func readMouse() (x, y float32, pressed bool, button MouseButton) {
	mx, my := ebiten.CursorPosition()
	x, y = float32(mx), float32(my)
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		return x, y, true, MouseButtonLeft
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		return x, y, true, MouseButtonRight
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle):
		return x, y, true, MouseButtonMiddle
	}
	return x, y, false, MouseButtonLeft
}

// --- Synthetic input ---

// syntheticPointerEvent is one injected pointer sample. Injected samples
// replace real mouse input for the frame that consumes them.
type syntheticPointerEvent struct {
	x, y    float32
	pressed bool
	button  MouseButton
}

// InjectPress queues a left-button press at (x, y). Each injected event is
// consumed by one Update.
func (b *EbitenBackend) InjectPress(x, y float32) {
	b.inject(syntheticPointerEvent{x: x, y: y, pressed: true, button: MouseButtonLeft})
}

// InjectMove queues a pointer move with the left button held.
func (b *EbitenBackend) InjectMove(x, y float32) {
	b.inject(syntheticPointerEvent{x: x, y: y, pressed: true, button: MouseButtonLeft})
}

// InjectRelease queues a left-button release at (x, y).
func (b *EbitenBackend) InjectRelease(x, y float32) {
	b.inject(syntheticPointerEvent{x: x, y: y, pressed: false, button: MouseButtonLeft})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (b *EbitenBackend) InjectClick(x, y float32) {
	b.InjectPress(x, y)
	b.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 interpolated moves
// and a release at (toX, toY). The minimum is 2 frames.
func (b *EbitenBackend) InjectDrag(fromX, fromY, toX, toY float32, frames int) {
	if frames < 2 {
		frames = 2
	}
	b.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float32(i) / float32(steps+1)
		b.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	b.InjectRelease(toX, toY)
}

func (b *EbitenBackend) inject(e syntheticPointerEvent) {
	b.inputMu.Lock()
	b.injectQueue = append(b.injectQueue, e)
	b.inputMu.Unlock()
}

// pendingInjections returns the number of queued synthetic events.
func (b *EbitenBackend) pendingInjections() int {
	b.inputMu.Lock()
	defer b.inputMu.Unlock()
	return len(b.injectQueue)
}

// popInjected removes the oldest synthetic event.
func (b *EbitenBackend) popInjected() (syntheticPointerEvent, bool) {
	b.inputMu.Lock()
	defer b.inputMu.Unlock()
	if len(b.injectQueue) == 0 {
		return syntheticPointerEvent{}, false
	}
	e := b.injectQueue[0]
	copy(b.injectQueue, b.injectQueue[1:])
	b.injectQueue = b.injectQueue[:len(b.injectQueue)-1]
	return e, true
}

// processInput samples one pointer state, injected if any is queued, and
// publishes the resulting events.
func (b *EbitenBackend) processInput(mods KeyModifiers, readReal func() (float32, float32, bool, MouseButton)) {
	var x, y float32
	var pressed bool
	var button MouseButton
	if e, ok := b.popInjected(); ok {
		x, y, pressed, button = e.x, e.y, e.pressed, e.button
	} else if readReal != nil {
		x, y, pressed, button = readReal()
	} else {
		return
	}
	b.eventBuf = b.pointer.sample(b.eventBuf[:0], x, y, pressed, button, mods)
	for _, e := range b.eventBuf {
		b.emit(e)
	}
}

// emit publishes e without blocking. Events are dropped when the embedder
// does not drain Events fast enough.
func (b *EbitenBackend) emit(e WindowEvent) {
	select {
	case b.events <- e:
	default:
		Logger().Debug("window event dropped", "type", e.Type)
	}
}
