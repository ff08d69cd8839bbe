// Package viewporter binds viewporter.
package viewporter

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	Interface = "wp_viewporter"
	Version   = 1
)

// Viewporter is wp_viewporter.
type Viewporter struct {
	wire.Proxy
}

func (v *Viewporter) Dispatch(*wire.Event) {}

func (v *Viewporter) Destroy() error {
	err := v.Send(0, nil)
	v.Conn().Forget(v)
	return err
}

func (v *Viewporter) GetViewport(surface *wl.Surface) (*Viewport, error) {
	vp := &Viewport{}
	id := v.Conn().Register(vp)
	if err := v.Send(1, func(r *wire.Request) { r.PutUint32(id).PutObject(surface) }); err != nil {
		v.Conn().Forget(vp)
		return nil, err
	}
	return vp, nil
}

// Viewport is wp_viewport.
type Viewport struct {
	wire.Proxy
}

func (v *Viewport) Dispatch(*wire.Event) {}

func (v *Viewport) Destroy() error {
	err := v.Send(0, nil)
	v.Conn().Forget(v)
	return err
}

func (v *Viewport) SetSource(x, y, width, height float64) error {
	return v.Send(1, func(r *wire.Request) {
		r.PutFixed(wire.FixedFrom(x)).PutFixed(wire.FixedFrom(y)).
			PutFixed(wire.FixedFrom(width)).PutFixed(wire.FixedFrom(height))
	})
}

func (v *Viewport) SetDestination(width, height int32) error {
	return v.Send(2, func(r *wire.Request) { r.PutInt32(width).PutInt32(height) })
}
