// Package xdgshell binds the parts of xdg-shell needed for popups.
package xdgshell

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	WmBaseInterface = "xdg_wm_base"
	WmBaseVersion   = 3
)

// Positioner anchors and gravities
const (
	AnchorNone        = 0
	AnchorTop         = 1
	AnchorBottom      = 2
	AnchorLeft        = 3
	AnchorRight       = 4
	AnchorTopLeft     = 5
	AnchorBottomLeft  = 6
	AnchorTopRight    = 7
	AnchorBottomRight = 8
)

// WmBase is xdg_wm_base. It answers pings on its own.
type WmBase struct {
	wire.Proxy
}

func (w *WmBase) Destroy() error {
	err := w.Send(0, nil)
	w.Conn().Forget(w)
	return err
}

func (w *WmBase) CreatePositioner() (*Positioner, error) {
	p := &Positioner{}
	id := w.Conn().Register(p)
	if err := w.Send(1, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		w.Conn().Forget(p)
		return nil, err
	}
	return p, nil
}

func (w *WmBase) GetXdgSurface(surface *wl.Surface) (*Surface, error) {
	s := &Surface{}
	id := w.Conn().Register(s)
	if err := w.Send(2, func(r *wire.Request) { r.PutUint32(id).PutObject(surface) }); err != nil {
		w.Conn().Forget(s)
		return nil, err
	}
	return s, nil
}

func (w *WmBase) Pong(serial uint32) error {
	return w.Send(3, func(r *wire.Request) { r.PutUint32(serial) })
}

func (w *WmBase) Dispatch(e *wire.Event) {
	if e.Opcode == 0 {
		serial := e.Uint32()
		if e.Err() == nil {
			_ = w.Pong(serial)
		}
	}
}

// Positioner is xdg_positioner.
type Positioner struct {
	wire.Proxy
}

func (p *Positioner) Dispatch(*wire.Event) {}

func (p *Positioner) Destroy() error {
	err := p.Send(0, nil)
	p.Conn().Forget(p)
	return err
}

func (p *Positioner) SetSize(width, height int32) error {
	return p.Send(1, func(r *wire.Request) { r.PutInt32(width).PutInt32(height) })
}

func (p *Positioner) SetAnchorRect(x, y, width, height int32) error {
	return p.Send(2, func(r *wire.Request) {
		r.PutInt32(x).PutInt32(y).PutInt32(width).PutInt32(height)
	})
}

func (p *Positioner) SetAnchor(anchor uint32) error {
	return p.Send(3, func(r *wire.Request) { r.PutUint32(anchor) })
}

func (p *Positioner) SetGravity(gravity uint32) error {
	return p.Send(4, func(r *wire.Request) { r.PutUint32(gravity) })
}

func (p *Positioner) SetOffset(x, y int32) error {
	return p.Send(6, func(r *wire.Request) { r.PutInt32(x).PutInt32(y) })
}

// Surface is xdg_surface.
type Surface struct {
	wire.Proxy
	configureHandler func(SurfaceConfigureEvent)
}

type SurfaceConfigureEvent struct {
	Serial uint32
}

func (s *Surface) Destroy() error {
	err := s.Send(0, nil)
	s.Conn().Forget(s)
	return err
}

// GetPopup creates a popup. Layer-shell popups pass a nil parent and are
// parented through zwlr_layer_surface_v1.get_popup.
func (s *Surface) GetPopup(parent *Surface, positioner *Positioner) (*Popup, error) {
	p := &Popup{}
	id := s.Conn().Register(p)
	err := s.Send(2, func(r *wire.Request) {
		r.PutUint32(id)
		if parent == nil {
			r.PutUint32(0)
		} else {
			r.PutObject(parent)
		}
		r.PutObject(positioner)
	})
	if err != nil {
		s.Conn().Forget(p)
		return nil, err
	}
	return p, nil
}

func (s *Surface) AckConfigure(serial uint32) error {
	return s.Send(4, func(r *wire.Request) { r.PutUint32(serial) })
}

func (s *Surface) SetConfigureHandler(f func(SurfaceConfigureEvent)) { s.configureHandler = f }

func (s *Surface) Dispatch(e *wire.Event) {
	if e.Opcode != 0 {
		return
	}
	ev := SurfaceConfigureEvent{Serial: e.Uint32()}
	if e.Err() == nil && s.configureHandler != nil {
		s.configureHandler(ev)
	}
}

// Popup is xdg_popup.
type Popup struct {
	wire.Proxy

	configureHandler func(PopupConfigureEvent)
	popupDoneHandler func(PopupDoneEvent)
}

type PopupConfigureEvent struct {
	X, Y          int32
	Width, Height int32
}

type PopupDoneEvent struct{}

func (p *Popup) Destroy() error {
	err := p.Send(0, nil)
	p.Conn().Forget(p)
	return err
}

func (p *Popup) Grab(seat *wl.Seat, serial uint32) error {
	return p.Send(1, func(r *wire.Request) { r.PutObject(seat).PutUint32(serial) })
}

func (p *Popup) SetConfigureHandler(f func(PopupConfigureEvent)) { p.configureHandler = f }
func (p *Popup) SetPopupDoneHandler(f func(PopupDoneEvent))      { p.popupDoneHandler = f }

func (p *Popup) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := PopupConfigureEvent{X: e.Int32(), Y: e.Int32(), Width: e.Int32(), Height: e.Int32()}
		if e.Err() == nil && p.configureHandler != nil {
			p.configureHandler(ev)
		}
	case 1:
		if p.popupDoneHandler != nil {
			p.popupDoneHandler(PopupDoneEvent{})
		}
	}
}
