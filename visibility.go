package trendwatch

import "sync"

// Visibility reports whether anyone is currently looking at the data
// the service polls for.
//
// In a desktop or web host this maps to window focus or tab visibility;
// a headless host can leave the default (always visible). The service
// slows all polling sixfold while hidden and restores normal cadence on
// the next change notification.
type Visibility interface {
	// Visible reports the current visibility state.
	Visible() bool

	// OnChange registers a listener invoked on every state change with
	// the new state. The returned function cancels the registration and
	// is safe to call multiple times.
	OnChange(fn func(visible bool)) (cancel func())
}

// alwaysVisible is the default Visibility: permanently visible, never
// notifies.
type alwaysVisible struct{}

func (alwaysVisible) Visible() bool { return true }

func (alwaysVisible) OnChange(func(bool)) func() { return func() {} }

// AlwaysVisible returns a [Visibility] that is permanently visible.
// This is the default for services constructed without [WithVisibility].
func AlwaysVisible() Visibility {
	return alwaysVisible{}
}

// VisibilitySwitch is a host-driven [Visibility] implementation.
//
// The host application flips it with [VisibilitySwitch.Set] when its
// window gains or loses focus. It also serves as a controllable fake in
// tests. All methods are safe for concurrent use.
type VisibilitySwitch struct {
	mu        sync.Mutex
	visible   bool
	nextID    int
	listeners map[int]func(bool)
}

// NewVisibilitySwitch creates a [VisibilitySwitch] in the given state.
func NewVisibilitySwitch(visible bool) *VisibilitySwitch {
	return &VisibilitySwitch{
		visible:   visible,
		listeners: make(map[int]func(bool)),
	}
}

// Visible reports the current state.
func (v *VisibilitySwitch) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Set updates the state. Listeners are notified only when the state
// actually changes, synchronously and in unspecified order.
func (v *VisibilitySwitch) Set(visible bool) {
	v.mu.Lock()
	if v.visible == visible {
		v.mu.Unlock()
		return
	}
	v.visible = visible
	listeners := make([]func(bool), 0, len(v.listeners))
	for _, fn := range v.listeners {
		listeners = append(listeners, fn)
	}
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(visible)
	}
}

// OnChange registers a listener for state changes.
func (v *VisibilitySwitch) OnChange(fn func(visible bool)) (cancel func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}
