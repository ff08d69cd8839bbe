// Package cursorshape binds cursor-shape-v1.
package cursorshape

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	ManagerInterface = "wp_cursor_shape_manager_v1"
	ManagerVersion   = 1
)

// Shape is a wp_cursor_shape_device_v1.shape value.
type Shape uint32

const (
	ShapeDefault Shape = iota + 1
	ShapeContextMenu
	ShapeHelp
	ShapePointer
	ShapeProgress
	ShapeWait
	ShapeCell
	ShapeCrosshair
	ShapeText
	ShapeVerticalText
	ShapeAlias
	ShapeCopy
	ShapeMove
	ShapeNoDrop
	ShapeNotAllowed
	ShapeGrab
	ShapeGrabbing
	ShapeEResize
	ShapeNResize
	ShapeNeResize
	ShapeNwResize
	ShapeSResize
	ShapeSeResize
	ShapeSwResize
	ShapeWResize
	ShapeEwResize
	ShapeNsResize
	ShapeNeswResize
	ShapeNwseResize
	ShapeColResize
	ShapeRowResize
	ShapeAllScroll
	ShapeZoomIn
	ShapeZoomOut
)

var shapeNames = map[string]Shape{
	"default":       ShapeDefault,
	"context-menu":  ShapeContextMenu,
	"help":          ShapeHelp,
	"pointer":       ShapePointer,
	"progress":      ShapeProgress,
	"wait":          ShapeWait,
	"cell":          ShapeCell,
	"crosshair":     ShapeCrosshair,
	"text":          ShapeText,
	"vertical-text": ShapeVerticalText,
	"alias":         ShapeAlias,
	"copy":          ShapeCopy,
	"move":          ShapeMove,
	"no-drop":       ShapeNoDrop,
	"not-allowed":   ShapeNotAllowed,
	"grab":          ShapeGrab,
	"grabbing":      ShapeGrabbing,
	"e-resize":      ShapeEResize,
	"n-resize":      ShapeNResize,
	"ne-resize":     ShapeNeResize,
	"nw-resize":     ShapeNwResize,
	"s-resize":      ShapeSResize,
	"se-resize":     ShapeSeResize,
	"sw-resize":     ShapeSwResize,
	"w-resize":      ShapeWResize,
	"ew-resize":     ShapeEwResize,
	"ns-resize":     ShapeNsResize,
	"nesw-resize":   ShapeNeswResize,
	"nwse-resize":   ShapeNwseResize,
	"col-resize":    ShapeColResize,
	"row-resize":    ShapeRowResize,
	"all-scroll":    ShapeAllScroll,
	"zoom-in":       ShapeZoomIn,
	"zoom-out":      ShapeZoomOut,
}

// ShapeFromName maps a CSS cursor name to a shape.
func ShapeFromName(name string) (Shape, bool) {
	s, ok := shapeNames[name]
	return s, ok
}

// Manager is wp_cursor_shape_manager_v1.
type Manager struct {
	wire.Proxy
}

func (m *Manager) Dispatch(*wire.Event) {}

func (m *Manager) Destroy() error {
	err := m.Send(0, nil)
	m.Conn().Forget(m)
	return err
}

func (m *Manager) GetPointer(pointer *wl.Pointer) (*Device, error) {
	d := &Device{}
	id := m.Conn().Register(d)
	if err := m.Send(1, func(r *wire.Request) { r.PutUint32(id).PutObject(pointer) }); err != nil {
		m.Conn().Forget(d)
		return nil, err
	}
	return d, nil
}

// Device is wp_cursor_shape_device_v1.
type Device struct {
	wire.Proxy
}

func (d *Device) Dispatch(*wire.Event) {}

func (d *Device) Destroy() error {
	err := d.Send(0, nil)
	d.Conn().Forget(d)
	return err
}

func (d *Device) SetShape(serial uint32, shape Shape) error {
	return d.Send(1, func(r *wire.Request) { r.PutUint32(serial).PutUint32(uint32(shape)) })
}
