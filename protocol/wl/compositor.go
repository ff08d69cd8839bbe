package wl

import "github.com/bnema/wlshellev/wire"

const (
	CompositorInterface = "wl_compositor"
	CompositorVersion   = 6
)

// Compositor is wl_compositor.
type Compositor struct {
	wire.Proxy
	version uint32
}

// SetVersion records the bound version; surfaces inherit it.
func (c *Compositor) SetVersion(v uint32) { c.version = v }

func (c *Compositor) Dispatch(*wire.Event) {}

// CreateSurface creates a new wl_surface.
func (c *Compositor) CreateSurface() (*Surface, error) {
	s := &Surface{version: c.version}
	id := c.Conn().Register(s)
	if err := c.Send(0, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		c.Conn().Forget(s)
		return nil, err
	}
	return s, nil
}

// Surface is wl_surface.
type Surface struct {
	wire.Proxy
	version uint32

	enterHandler func(SurfaceEnterEvent)
	leaveHandler func(SurfaceLeaveEvent)
	scaleHandler func(SurfacePreferredBufferScaleEvent)
}

type SurfaceEnterEvent struct {
	Output uint32
}

type SurfaceLeaveEvent struct {
	Output uint32
}

type SurfacePreferredBufferScaleEvent struct {
	Factor int32
}

func (s *Surface) Destroy() error {
	err := s.Send(0, nil)
	s.Conn().Forget(s)
	return err
}

// Attach attaches buffer at (x, y). A nil buffer detaches.
func (s *Surface) Attach(buffer *Buffer, x, y int32) error {
	return s.Send(1, func(r *wire.Request) {
		if buffer == nil {
			r.PutUint32(0)
		} else {
			r.PutObject(buffer)
		}
		r.PutInt32(x).PutInt32(y)
	})
}

func (s *Surface) Damage(x, y, width, height int32) error {
	return s.Send(2, func(r *wire.Request) {
		r.PutInt32(x).PutInt32(y).PutInt32(width).PutInt32(height)
	})
}

// Frame requests a frame callback.
func (s *Surface) Frame() (*Callback, error) {
	cb := &Callback{}
	id := s.Conn().Register(cb)
	if err := s.Send(3, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		s.Conn().Forget(cb)
		return nil, err
	}
	return cb, nil
}

func (s *Surface) Commit() error {
	return s.Send(6, nil)
}

func (s *Surface) SetBufferScale(scale int32) error {
	return s.Send(8, func(r *wire.Request) { r.PutInt32(scale) })
}

// DamageBuffer damages in buffer coordinates, falling back to surface
// damage on compositors older than version 4.
func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	if s.version < 4 {
		return s.Damage(x, y, width, height)
	}
	return s.Send(9, func(r *wire.Request) {
		r.PutInt32(x).PutInt32(y).PutInt32(width).PutInt32(height)
	})
}

func (s *Surface) SetEnterHandler(f func(SurfaceEnterEvent)) { s.enterHandler = f }
func (s *Surface) SetLeaveHandler(f func(SurfaceLeaveEvent)) { s.leaveHandler = f }
func (s *Surface) SetPreferredBufferScaleHandler(f func(SurfacePreferredBufferScaleEvent)) {
	s.scaleHandler = f
}

func (s *Surface) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := SurfaceEnterEvent{Output: e.Object()}
		if e.Err() == nil && s.enterHandler != nil {
			s.enterHandler(ev)
		}
	case 1:
		ev := SurfaceLeaveEvent{Output: e.Object()}
		if e.Err() == nil && s.leaveHandler != nil {
			s.leaveHandler(ev)
		}
	case 2:
		ev := SurfacePreferredBufferScaleEvent{Factor: e.Int32()}
		if e.Err() == nil && s.scaleHandler != nil {
			s.scaleHandler(ev)
		}
	}
}
