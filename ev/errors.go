package ev

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect means the compositor could not be reached.
	ErrConnect = errors.New("cannot connect to wayland display")
	// ErrMissingGlobal means a required global is not advertised.
	ErrMissingGlobal = errors.New("required global not advertised")
	// ErrDispatch wraps transport and protocol failures in the run loop.
	ErrDispatch = errors.New("wayland dispatch failed")
	// ErrTempFile means a buffer backing file could not be created.
	ErrTempFile = errors.New("failed to create buffer backing file")
	// ErrBufferSize means a buffer does not fit a wl_shm pool.
	ErrBufferSize = errors.New("buffer too large for a shm pool")
)

// BindError reports a global that could not be bound.
type BindError struct {
	Interface string
	Version   uint32
	Err       error
}

func (e *BindError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("bind %s v%d: %v", e.Interface, e.Version, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Interface, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
