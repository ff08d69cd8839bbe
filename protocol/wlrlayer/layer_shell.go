// Package wlrlayer binds wlr-layer-shell-unstable-v1.
package wlrlayer

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	LayerShellInterface = "zwlr_layer_shell_v1"
	LayerShellVersion   = 4
)

// Layers
const (
	LayerBackground = 0
	LayerBottom     = 1
	LayerTop        = 2
	LayerOverlay    = 3
)

// Anchor edges
const (
	AnchorTop    = 1
	AnchorBottom = 2
	AnchorLeft   = 4
	AnchorRight  = 8
)

// Keyboard interactivity
const (
	KeyboardInteractivityNone      = 0
	KeyboardInteractivityExclusive = 1
	KeyboardInteractivityOnDemand  = 2
)

// LayerShell is zwlr_layer_shell_v1.
type LayerShell struct {
	wire.Proxy
	version uint32
}

func NewLayerShell(version uint32) *LayerShell {
	return &LayerShell{version: version}
}

func (l *LayerShell) Dispatch(*wire.Event) {}

// GetLayerSurface assigns the layer role to surface. A nil output lets the
// compositor choose.
func (l *LayerShell) GetLayerSurface(surface *wl.Surface, output *wl.Output, layer uint32, namespace string) (*LayerSurface, error) {
	ls := &LayerSurface{version: l.version}
	id := l.Conn().Register(ls)
	err := l.Send(0, func(r *wire.Request) {
		r.PutUint32(id).PutObject(surface)
		if output == nil {
			r.PutUint32(0)
		} else {
			r.PutObject(output)
		}
		r.PutUint32(layer).PutString(namespace)
	})
	if err != nil {
		l.Conn().Forget(ls)
		return nil, err
	}
	return ls, nil
}

func (l *LayerShell) Destroy() error {
	var err error
	if l.version >= 3 {
		err = l.Send(1, nil)
	}
	l.Conn().Forget(l)
	return err
}

// LayerSurface is zwlr_layer_surface_v1.
type LayerSurface struct {
	wire.Proxy
	version uint32

	configureHandler func(LayerSurfaceConfigureEvent)
	closedHandler    func(LayerSurfaceClosedEvent)
}

type LayerSurfaceConfigureEvent struct {
	Serial        uint32
	Width, Height uint32
}

type LayerSurfaceClosedEvent struct{}

func (s *LayerSurface) SetSize(width, height uint32) error {
	return s.Send(0, func(r *wire.Request) { r.PutUint32(width).PutUint32(height) })
}

func (s *LayerSurface) SetAnchor(anchor uint32) error {
	return s.Send(1, func(r *wire.Request) { r.PutUint32(anchor) })
}

func (s *LayerSurface) SetExclusiveZone(zone int32) error {
	return s.Send(2, func(r *wire.Request) { r.PutInt32(zone) })
}

func (s *LayerSurface) SetMargin(top, right, bottom, left int32) error {
	return s.Send(3, func(r *wire.Request) {
		r.PutInt32(top).PutInt32(right).PutInt32(bottom).PutInt32(left)
	})
}

func (s *LayerSurface) SetKeyboardInteractivity(mode uint32) error {
	return s.Send(4, func(r *wire.Request) { r.PutUint32(mode) })
}

// GetPopup parents an xdg_popup (passed by object) to this layer surface.
func (s *LayerSurface) GetPopup(popup wire.Object) error {
	return s.Send(5, func(r *wire.Request) { r.PutObject(popup) })
}

func (s *LayerSurface) AckConfigure(serial uint32) error {
	return s.Send(6, func(r *wire.Request) { r.PutUint32(serial) })
}

func (s *LayerSurface) Destroy() error {
	err := s.Send(7, nil)
	s.Conn().Forget(s)
	return err
}

// SetLayer needs version 2; it is a no-op on older compositors.
func (s *LayerSurface) SetLayer(layer uint32) error {
	if s.version < 2 {
		return nil
	}
	return s.Send(8, func(r *wire.Request) { r.PutUint32(layer) })
}

func (s *LayerSurface) SetConfigureHandler(f func(LayerSurfaceConfigureEvent)) { s.configureHandler = f }
func (s *LayerSurface) SetClosedHandler(f func(LayerSurfaceClosedEvent))       { s.closedHandler = f }

func (s *LayerSurface) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := LayerSurfaceConfigureEvent{Serial: e.Uint32(), Width: e.Uint32(), Height: e.Uint32()}
		if e.Err() == nil && s.configureHandler != nil {
			s.configureHandler(ev)
		}
	case 1:
		if s.closedHandler != nil {
			s.closedHandler(LayerSurfaceClosedEvent{})
		}
	}
}
