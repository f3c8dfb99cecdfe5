package internal

import (
	"fmt"
	"unsafe"
)

// Ownership records who is responsible for releasing a foreign handle
type Ownership uint8

const (
	// Borrowed handles belong to someone else and are never freed here
	Borrowed Ownership = iota
	// Owned handles must be freed by the holder
	Owned
	// Transferred handles were handed over to the engine
	Transferred
	// Released handles were freed by the holder
	Released
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	case Transferred:
		return "transferred"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("ownership(%d)", uint8(o))
	}
}

// Handle wraps a raw engine pointer together with its ownership tag
type Handle struct {
	ptr unsafe.Pointer
	own Ownership
}

// NewOwned wraps a pointer the caller has to free
func NewOwned(ptr unsafe.Pointer) *Handle {
	return &Handle{ptr: ptr, own: Owned}
}

// NewBorrowed wraps a pointer owned elsewhere
func NewBorrowed(ptr unsafe.Pointer) *Handle {
	return &Handle{ptr: ptr, own: Borrowed}
}

// Ptr returns the underlying pointer, nil once transferred or released
func (h *Handle) Ptr() unsafe.Pointer {
	if h == nil {
		return nil
	}
	return h.ptr
}

// Ownership returns the current ownership tag
func (h *Handle) Ownership() Ownership {
	return h.own
}

// Live reports whether the handle still refers to something usable
func (h *Handle) Live() bool {
	return h != nil && h.ptr != nil && (h.own == Owned || h.own == Borrowed)
}

// Transfer submits an owned pointer to the engine. Ownership moves only
// when submit succeeds, otherwise the handle stays owned by the caller.
func (h *Handle) Transfer(submit func(unsafe.Pointer) error) error {
	if h == nil || h.own != Owned || h.ptr == nil {
		return fmt.Errorf("can't transfer %s handle", h.state())
	}
	if err := submit(h.ptr); err != nil {
		return err
	}
	h.ptr = nil
	h.own = Transferred
	return nil
}

// Free releases an owned handle with the given release function.
// Borrowed, transferred and released handles are left alone.
func (h *Handle) Free(release func(unsafe.Pointer)) {
	if h == nil || h.own != Owned || h.ptr == nil {
		return
	}
	release(h.ptr)
	h.ptr = nil
	h.own = Released
}

// Expire detaches a borrowed handle, used for per-call views
func (h *Handle) Expire() {
	if h == nil || h.own != Borrowed {
		return
	}
	h.ptr = nil
	h.own = Released
}

func (h *Handle) state() string {
	if h == nil {
		return "nil"
	}
	return h.own.String()
}
