// Package xdgoutput binds xdg-output-unstable-v1.
package xdgoutput

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	ManagerInterface = "zxdg_output_manager_v1"
	ManagerVersion   = 3
)

// Manager is zxdg_output_manager_v1.
type Manager struct {
	wire.Proxy
}

func (m *Manager) Dispatch(*wire.Event) {}

func (m *Manager) Destroy() error {
	err := m.Send(0, nil)
	m.Conn().Forget(m)
	return err
}

func (m *Manager) GetXdgOutput(output *wl.Output) (*Output, error) {
	o := &Output{}
	id := m.Conn().Register(o)
	if err := m.Send(1, func(r *wire.Request) { r.PutUint32(id).PutObject(output) }); err != nil {
		m.Conn().Forget(o)
		return nil, err
	}
	return o, nil
}

// Output is zxdg_output_v1.
type Output struct {
	wire.Proxy

	logicalPositionHandler func(LogicalPositionEvent)
	logicalSizeHandler     func(LogicalSizeEvent)
	doneHandler            func(DoneEvent)
	nameHandler            func(NameEvent)
	descriptionHandler     func(DescriptionEvent)
}

type LogicalPositionEvent struct {
	X, Y int32
}

type LogicalSizeEvent struct {
	Width, Height int32
}

type DoneEvent struct{}

type NameEvent struct {
	Name string
}

type DescriptionEvent struct {
	Description string
}

func (o *Output) Destroy() error {
	err := o.Send(0, nil)
	o.Conn().Forget(o)
	return err
}

func (o *Output) SetLogicalPositionHandler(f func(LogicalPositionEvent)) { o.logicalPositionHandler = f }
func (o *Output) SetLogicalSizeHandler(f func(LogicalSizeEvent))         { o.logicalSizeHandler = f }
func (o *Output) SetDoneHandler(f func(DoneEvent))                       { o.doneHandler = f }
func (o *Output) SetNameHandler(f func(NameEvent))                       { o.nameHandler = f }
func (o *Output) SetDescriptionHandler(f func(DescriptionEvent))         { o.descriptionHandler = f }

func (o *Output) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := LogicalPositionEvent{X: e.Int32(), Y: e.Int32()}
		if e.Err() == nil && o.logicalPositionHandler != nil {
			o.logicalPositionHandler(ev)
		}
	case 1:
		ev := LogicalSizeEvent{Width: e.Int32(), Height: e.Int32()}
		if e.Err() == nil && o.logicalSizeHandler != nil {
			o.logicalSizeHandler(ev)
		}
	case 2:
		if o.doneHandler != nil {
			o.doneHandler(DoneEvent{})
		}
	case 3:
		ev := NameEvent{Name: e.String()}
		if e.Err() == nil && o.nameHandler != nil {
			o.nameHandler(ev)
		}
	case 4:
		ev := DescriptionEvent{Description: e.String()}
		if e.Err() == nil && o.descriptionHandler != nil {
			o.descriptionHandler(ev)
		}
	}
}
