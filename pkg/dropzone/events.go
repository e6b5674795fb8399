package dropzone

import "sync"

// DropEffect is the cursor affordance shown while dragging over the zone.
type DropEffect string

const (
	DropEffectNone DropEffect = "none"
	DropEffectCopy DropEffect = "copy"
	DropEffectMove DropEffect = "move"
	DropEffectLink DropEffect = "link"
)

// DragEvent is a drag-and-drop event delivered by the platform.
type DragEvent interface {
	// PreventDefault stops the platform's default handling (e.g. navigating to the file).
	PreventDefault()
	// StopPropagation keeps the event from reaching enclosing elements.
	StopPropagation()
	// SetDropEffect sets the data transfer's drop effect.
	SetDropEffect(effect DropEffect)
	// Files lists the dropped files in platform order. Empty for enter/over/leave.
	Files() []File
}

// Event is a plain DragEvent used by hosts that synthesize drops,
// such as the CLI, and by tests.
type Event struct {
	mu                 sync.Mutex
	files              []File
	defaultPrevented   bool
	propagationStopped bool
	effect             DropEffect
}

// NewEvent creates an event carrying the given files.
func NewEvent(files ...File) *Event {
	return &Event{files: files, effect: DropEffectNone}
}

func (e *Event) PreventDefault() {
	e.mu.Lock()
	e.defaultPrevented = true
	e.mu.Unlock()
}

func (e *Event) StopPropagation() {
	e.mu.Lock()
	e.propagationStopped = true
	e.mu.Unlock()
}

func (e *Event) SetDropEffect(effect DropEffect) {
	e.mu.Lock()
	e.effect = effect
	e.mu.Unlock()
}

func (e *Event) Files() []File {
	return e.files
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaultPrevented
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.propagationStopped
}

// Effect returns the last drop effect set on the event.
func (e *Event) Effect() DropEffect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effect
}
