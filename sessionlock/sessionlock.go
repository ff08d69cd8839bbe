// Package sessionlock runs ev units as ext-session-lock surfaces, one per
// output, for screen lockers.
package sessionlock

import (
	"fmt"
	"time"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/extlock"
	"github.com/bnema/wlshellev/wire"
)

// Settings configure a session lock WindowState.
type Settings struct {
	// Display overrides WAYLAND_DISPLAY.
	Display string

	UseDisplayHandle bool
	IdleTicks        int
	UserEventPoll    time.Duration
	UserEventBuffer  int
	CursorTheme      string
	CursorSize       uint32
}

func (s Settings) evOptions() ev.Options {
	return ev.Options{
		UseDisplayHandle: s.UseDisplayHandle,
		IdleTicks:        s.IdleTicks,
		UserEventPoll:    s.UserEventPoll,
		UserEventBuffer:  s.UserEventBuffer,
		CursorTheme:      s.CursorTheme,
		CursorSize:       s.CursorSize,
	}
}

// New connects, locks the session and creates one lock surface per output.
// The session stays locked until the handler answers RequestUnlockAndExit
// or RequestExit.
func New[T any](s Settings) (*ev.WindowState[T], error) {
	conn, err := ev.Connect(s.Display)
	if err != nil {
		return nil, err
	}
	return NewWithConn[T](conn, s)
}

// NewWithConn is New on an existing connection, which is closed on error.
func NewWithConn[T any](conn *wire.Conn, s Settings) (*ev.WindowState[T], error) {
	return ev.Build[T](conn, &shell{}, s.evOptions())
}

type lockState int

const (
	pending lockState = iota
	locked
	finished
	released
)

type shell struct {
	manager *extlock.Manager
	lock    *extlock.Lock
	state   lockState
}

func (s *shell) Bind(g *ev.Globals, post func(ev.DispatchMessage)) error {
	s.manager = &extlock.Manager{}
	if _, err := g.Bind(extlock.ManagerInterface, extlock.ManagerVersion, s.manager); err != nil {
		return err
	}
	lock, err := s.manager.Lock()
	if err != nil {
		return fmt.Errorf("%w: lock: %w", ev.ErrDispatch, err)
	}
	s.lock = lock
	lock.SetLockedHandler(func(extlock.LockLockedEvent) {
		s.state = locked
		logger.Debug("Session locked")
		post(ev.SessionLocked{})
	})
	lock.SetFinishedHandler(func(extlock.LockFinishedEvent) {
		s.state = finished
		logger.Warn("Compositor refused or ended the session lock")
		post(ev.SessionFinished{})
	})
	return nil
}

func (s *shell) Placement() ev.Placement {
	return ev.PlacePerOutput
}

func (s *shell) Features() ev.Features {
	return ev.Features{Viewporter: true}
}

func (s *shell) DefaultOptions() any {
	return nil
}

func (s *shell) NewRole(req ev.RoleRequest) (ev.Role, error) {
	if req.Output == nil {
		panic("sessionlock: lock surfaces need an output")
	}
	ls, err := s.lock.GetLockSurface(req.Surface, req.Output.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: get lock surface: %w", ev.ErrDispatch, err)
	}
	sink := req.Sink
	ls.SetConfigureHandler(func(e extlock.LockSurfaceConfigureEvent) {
		sink.Configure(e.Serial, e.Width, e.Height)
	})
	return &Surface{lock: ls}, nil
}

// Exit unlocks when the compositor confirmed the lock, otherwise just drops
// the lock object, then waits for the compositor to process it.
func (s *shell) Exit(g *ev.Globals) error {
	var err error
	switch s.state {
	case locked:
		err = s.lock.UnlockAndDestroy()
	case pending, finished:
		err = s.lock.Destroy()
	}
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	s.state = released
	logger.Debug("Session unlocked")
	return g.Conn.Roundtrip()
}

// Surface is the lock surface role of a unit.
type Surface struct {
	lock *extlock.LockSurface
}

// Of returns the lock surface behind a unit role.
func Of(role ev.Role) (*Surface, bool) {
	s, ok := role.(*Surface)
	return s, ok
}

func (s *Surface) AckConfigure(serial uint32) error {
	return s.lock.AckConfigure(serial)
}

func (s *Surface) Destroy() error {
	return s.lock.Destroy()
}
