package common

import "errors"

var (
	// ErrModulePaused is returned when an operation targets a paused module.
	ErrModulePaused = errors.New("module paused")
	// ErrReentrantCall is returned when a mutating operation is entered while
	// another mutating operation is still in flight.
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView exposes the administrative pause switches for native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects calls into paused modules.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// CallGuard is a non-reentrant execution flag shared by all mutating entry
// points that may hand control to an external asset implementation. It is not
// a mutex: execution is serialized per call, so a second acquisition can only
// mean the in-flight transfer re-entered the core, and the correct response
// is an immediate failure rather than blocking.
type CallGuard struct {
	entered bool
}

// Enter acquires the guard for the scope of one mutating operation.
func (g *CallGuard) Enter() error {
	if g == nil {
		return nil
	}
	if g.entered {
		return ErrReentrantCall
	}
	g.entered = true
	return nil
}

// Exit releases the guard. It must run on every exit path of an operation
// that acquired it, success or failure.
func (g *CallGuard) Exit() {
	if g == nil {
		return
	}
	g.entered = false
}
