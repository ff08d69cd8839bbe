// Package extlock binds ext-session-lock-v1.
package extlock

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	ManagerInterface = "ext_session_lock_manager_v1"
	ManagerVersion   = 1
)

// Manager is ext_session_lock_manager_v1.
type Manager struct {
	wire.Proxy
}

func (m *Manager) Dispatch(*wire.Event) {}

func (m *Manager) Destroy() error {
	err := m.Send(0, nil)
	m.Conn().Forget(m)
	return err
}

// Lock requests that the session be locked.
func (m *Manager) Lock() (*Lock, error) {
	l := &Lock{}
	id := m.Conn().Register(l)
	if err := m.Send(1, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		m.Conn().Forget(l)
		return nil, err
	}
	return l, nil
}

// Lock is ext_session_lock_v1.
type Lock struct {
	wire.Proxy

	lockedHandler   func(LockLockedEvent)
	finishedHandler func(LockFinishedEvent)
}

type LockLockedEvent struct{}

type LockFinishedEvent struct{}

func (l *Lock) Destroy() error {
	err := l.Send(0, nil)
	l.Conn().Forget(l)
	return err
}

// GetLockSurface creates the lock surface for output.
func (l *Lock) GetLockSurface(surface *wl.Surface, output *wl.Output) (*LockSurface, error) {
	s := &LockSurface{}
	id := l.Conn().Register(s)
	err := l.Send(1, func(r *wire.Request) {
		r.PutUint32(id).PutObject(surface).PutObject(output)
	})
	if err != nil {
		l.Conn().Forget(s)
		return nil, err
	}
	return s, nil
}

// UnlockAndDestroy unlocks the session. Only valid after locked.
func (l *Lock) UnlockAndDestroy() error {
	err := l.Send(2, nil)
	l.Conn().Forget(l)
	return err
}

func (l *Lock) SetLockedHandler(f func(LockLockedEvent))     { l.lockedHandler = f }
func (l *Lock) SetFinishedHandler(f func(LockFinishedEvent)) { l.finishedHandler = f }

func (l *Lock) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		if l.lockedHandler != nil {
			l.lockedHandler(LockLockedEvent{})
		}
	case 1:
		if l.finishedHandler != nil {
			l.finishedHandler(LockFinishedEvent{})
		}
	}
}

// LockSurface is ext_session_lock_surface_v1.
type LockSurface struct {
	wire.Proxy
	configureHandler func(LockSurfaceConfigureEvent)
}

type LockSurfaceConfigureEvent struct {
	Serial        uint32
	Width, Height uint32
}

func (s *LockSurface) Destroy() error {
	err := s.Send(0, nil)
	s.Conn().Forget(s)
	return err
}

func (s *LockSurface) AckConfigure(serial uint32) error {
	return s.Send(1, func(r *wire.Request) { r.PutUint32(serial) })
}

func (s *LockSurface) SetConfigureHandler(f func(LockSurfaceConfigureEvent)) { s.configureHandler = f }

func (s *LockSurface) Dispatch(e *wire.Event) {
	if e.Opcode != 0 {
		return
	}
	ev := LockSurfaceConfigureEvent{Serial: e.Uint32(), Width: e.Uint32(), Height: e.Uint32()}
	if e.Err() == nil && s.configureHandler != nil {
		s.configureHandler(ev)
	}
}
