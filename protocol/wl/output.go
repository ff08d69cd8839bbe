package wl

import "github.com/bnema/wlshellev/wire"

const (
	OutputInterface = "wl_output"
	OutputVersion   = 4
)

// OutputModeCurrent flags the mode currently in use.
const OutputModeCurrent = 0x1

// Output is wl_output.
type Output struct {
	wire.Proxy
	version uint32

	geometryHandler    func(OutputGeometryEvent)
	modeHandler        func(OutputModeEvent)
	doneHandler        func(OutputDoneEvent)
	scaleHandler       func(OutputScaleEvent)
	nameHandler        func(OutputNameEvent)
	descriptionHandler func(OutputDescriptionEvent)
}

type OutputGeometryEvent struct {
	X, Y           int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Subpixel       int32
	Make, Model    string
	Transform      int32
}

type OutputModeEvent struct {
	Flags         uint32
	Width, Height int32
	Refresh       int32
}

type OutputDoneEvent struct{}

type OutputScaleEvent struct {
	Factor int32
}

type OutputNameEvent struct {
	Name string
}

type OutputDescriptionEvent struct {
	Description string
}

// NewOutput returns an unbound output of the given version, ready for
// Registry.Bind.
func NewOutput(version uint32) *Output {
	return &Output{version: version}
}

func (o *Output) Version() uint32 { return o.version }

// Release is a destructor from version 3 on; older outputs are only
// dropped locally.
func (o *Output) Release() error {
	var err error
	if o.version >= 3 {
		err = o.Send(0, nil)
	}
	o.Conn().Forget(o)
	return err
}

func (o *Output) SetGeometryHandler(f func(OutputGeometryEvent))       { o.geometryHandler = f }
func (o *Output) SetModeHandler(f func(OutputModeEvent))               { o.modeHandler = f }
func (o *Output) SetDoneHandler(f func(OutputDoneEvent))               { o.doneHandler = f }
func (o *Output) SetScaleHandler(f func(OutputScaleEvent))             { o.scaleHandler = f }
func (o *Output) SetNameHandler(f func(OutputNameEvent))               { o.nameHandler = f }
func (o *Output) SetDescriptionHandler(f func(OutputDescriptionEvent)) { o.descriptionHandler = f }

func (o *Output) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := OutputGeometryEvent{
			X: e.Int32(), Y: e.Int32(),
			PhysicalWidth: e.Int32(), PhysicalHeight: e.Int32(),
			Subpixel: e.Int32(),
			Make:     e.String(), Model: e.String(),
			Transform: e.Int32(),
		}
		if e.Err() == nil && o.geometryHandler != nil {
			o.geometryHandler(ev)
		}
	case 1:
		ev := OutputModeEvent{Flags: e.Uint32(), Width: e.Int32(), Height: e.Int32(), Refresh: e.Int32()}
		if e.Err() == nil && o.modeHandler != nil {
			o.modeHandler(ev)
		}
	case 2:
		if o.doneHandler != nil {
			o.doneHandler(OutputDoneEvent{})
		}
	case 3:
		ev := OutputScaleEvent{Factor: e.Int32()}
		if e.Err() == nil && o.scaleHandler != nil {
			o.scaleHandler(ev)
		}
	case 4:
		ev := OutputNameEvent{Name: e.String()}
		if e.Err() == nil && o.nameHandler != nil {
			o.nameHandler(ev)
		}
	case 5:
		ev := OutputDescriptionEvent{Description: e.String()}
		if e.Err() == nil && o.descriptionHandler != nil {
			o.descriptionHandler(ev)
		}
	}
}
