package ev

import (
	"fmt"
	"math"
	"os"

	"github.com/bnema/wlshellev/protocol/cursorshape"
	"github.com/bnema/wlshellev/protocol/wl"
)

// Event is what the run loop hands to the handler.
type Event interface {
	isEvent()
}

// InitRequest is always the first event. Answer RequestBind to receive
// BindProvide, or nil to start running.
type InitRequest struct{}

// BindProvide gives the handler the bound globals and the connection so it
// can bind extra protocol objects. Answer nil.
type BindProvide struct {
	Globals *Globals
}

// RequestBuffer asks for the first buffer of a configured unit. File is a
// writable shared file of Stride*Height bytes; write premultiplied
// ARGB8888 into it and answer WlBuffer. The loop closes File afterwards.
type RequestBuffer struct {
	File   *os.File
	Shm    *wl.Shm
	Width  uint32
	Height uint32
	Stride uint32
}

// NewBuffer wraps File in a wl_buffer of the requested geometry.
func (r RequestBuffer) NewBuffer(format uint32) (*wl.Buffer, error) {
	size := int64(r.Stride) * int64(r.Height)
	if size > math.MaxInt32 || r.Width > math.MaxInt32 || r.Height > math.MaxInt32 || r.Stride > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %dx%d stride %d", ErrBufferSize, r.Width, r.Height, r.Stride)
	}
	pool, err := r.Shm.CreatePool(r.File, int32(size))
	if err != nil {
		return nil, err
	}
	defer func() { _ = pool.Destroy() }()
	return pool.CreateBuffer(0, int32(r.Width), int32(r.Height), int32(r.Stride), format)
}

// RequestMessages carries a protocol-originated message.
type RequestMessages struct {
	Message DispatchMessage
}

// XdgInfoKind names which part of the xdg-output info changed.
type XdgInfoKind int

const (
	XdgInfoPosition XdgInfoKind = iota
	XdgInfoSize
	XdgInfoName
	XdgInfoDescription
)

// XdgInfoChanged reports an xdg-output update for the tagged unit.
type XdgInfoChanged struct {
	Kind XdgInfoKind
}

// NormalDispatch is synthesized after the configured number of idle ticks.
type NormalDispatch struct{}

// UserEvent carries a value received on the user event channel.
type UserEvent struct {
	Message any
}

func (InitRequest) isEvent()     {}
func (BindProvide) isEvent()     {}
func (RequestBuffer) isEvent()   {}
func (RequestMessages) isEvent() {}
func (XdgInfoChanged) isEvent()  {}
func (NormalDispatch) isEvent()  {}
func (UserEvent) isEvent()       {}

// DispatchMessage is a raw protocol event translated for the handler.
type DispatchMessage interface {
	isDispatchMessage()
}

// RequestRefresh asks the handler to redraw a unit at its current size.
type RequestRefresh struct {
	Width      uint32
	Height     uint32
	ScaleFloat float64
}

type MouseEnter struct {
	Pointer  *wl.Pointer
	Serial   uint32
	SurfaceX float64
	SurfaceY float64
}

type MouseLeave struct {
	Serial uint32
}

type MouseMotion struct {
	Time     uint32
	SurfaceX float64
	SurfaceY float64
}

type MouseButton struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  uint32
}

type Axis struct {
	Time  uint32
	Axis  uint32
	Value float64
}

type AxisSource struct {
	Source uint32
}

type AxisStop struct {
	Time uint32
	Axis uint32
}

type AxisDiscrete struct {
	Axis     uint32
	Discrete int32
}

type AxisValue120 struct {
	Axis     uint32
	Value120 int32
}

type PointerFrame struct{}

type TouchDown struct {
	Serial uint32
	Time   uint32
	ID     int32
	X, Y   float64
}

type TouchUp struct {
	Serial uint32
	Time   uint32
	ID     int32
}

type TouchMotion struct {
	Time uint32
	ID   int32
	X, Y float64
}

type TouchCancel struct{}

type TouchFrame struct{}

// KeyboardKeymap forwards the seat keymap. The handler owns File.
type KeyboardKeymap struct {
	Format uint32
	File   *os.File
	Size   uint32
}

type KeyboardEnter struct {
	Serial uint32
	Keys   []uint32
}

type KeyboardLeave struct {
	Serial uint32
}

// KeyboardKey carries a raw evdev key code.
type KeyboardKey struct {
	Serial uint32
	Time   uint32
	Key    uint32
	State  uint32
}

type ModifiersChanged struct {
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

type RepeatInfo struct {
	Rate  int32
	Delay int32
}

// PreferredScale reports a fractional scale numerator over 120.
type PreferredScale struct {
	Scale      uint32
	ScaleFloat float64
}

// Closed reports that a unit's role was closed or its output went away.
// The unit is removed at the end of the tick.
type Closed struct{}

type SessionLocked struct{}

// SessionFinished reports that the compositor refused or ended the lock.
type SessionFinished struct{}

func (RequestRefresh) isDispatchMessage()   {}
func (MouseEnter) isDispatchMessage()       {}
func (MouseLeave) isDispatchMessage()       {}
func (MouseMotion) isDispatchMessage()      {}
func (MouseButton) isDispatchMessage()      {}
func (Axis) isDispatchMessage()             {}
func (AxisSource) isDispatchMessage()       {}
func (AxisStop) isDispatchMessage()         {}
func (AxisDiscrete) isDispatchMessage()     {}
func (AxisValue120) isDispatchMessage()     {}
func (PointerFrame) isDispatchMessage()     {}
func (TouchDown) isDispatchMessage()        {}
func (TouchUp) isDispatchMessage()          {}
func (TouchMotion) isDispatchMessage()      {}
func (TouchCancel) isDispatchMessage()      {}
func (TouchFrame) isDispatchMessage()       {}
func (KeyboardKeymap) isDispatchMessage()   {}
func (KeyboardEnter) isDispatchMessage()    {}
func (KeyboardLeave) isDispatchMessage()    {}
func (KeyboardKey) isDispatchMessage()      {}
func (ModifiersChanged) isDispatchMessage() {}
func (RepeatInfo) isDispatchMessage()       {}
func (PreferredScale) isDispatchMessage()   {}
func (Closed) isDispatchMessage()           {}
func (SessionLocked) isDispatchMessage()    {}
func (SessionFinished) isDispatchMessage()  {}

// ReturnData is the handler's answer to an event. nil means nothing to do.
type ReturnData interface {
	isReturnData()
}

// WlBuffer answers RequestBuffer.
type WlBuffer struct {
	Buffer *wl.Buffer
}

// RequestBind answers InitRequest.
type RequestBind struct{}

type RequestExit struct{}

// RequestUnlockAndExit unlocks the session before exiting. In layer-shell
// mode it behaves like RequestExit.
type RequestUnlockAndExit struct{}

// RequestSetCursorShape sets the pointer image by CSS cursor name.
type RequestSetCursorShape struct {
	Shape   string
	Pointer *wl.Pointer
	Serial  uint32
}

// RedrawAllRequest delivers a RequestRefresh to every configured unit.
type RedrawAllRequest struct{}

// RedrawIndexRequest delivers a RequestRefresh to one unit.
type RedrawIndexRequest struct {
	ID UnitID
}

// NewUnit creates a shell surface at runtime. Options is shell specific.
type NewUnit[T any] struct {
	Options    any
	Output     *Output
	Binding    T
	HasBinding bool
}

// PopUpSettings places a popup relative to its parent surface.
type PopUpSettings struct {
	X, Y   int32
	Width  int32
	Height int32
}

// NewPopUp creates an xdg popup parented to a layer-shell unit.
type NewPopUp[T any] struct {
	Parent     UnitID
	Settings   PopUpSettings
	Binding    T
	HasBinding bool
}

// RemoveUnit destroys a unit.
type RemoveUnit struct {
	ID UnitID
}

// VirtualKeyboardPressed sends a press and release of an evdev key code
// through the virtual keyboard.
type VirtualKeyboardPressed struct {
	Time uint32
	Key  uint32
}

func (WlBuffer) isReturnData()               {}
func (RequestBind) isReturnData()            {}
func (RequestExit) isReturnData()            {}
func (RequestUnlockAndExit) isReturnData()   {}
func (RequestSetCursorShape) isReturnData()  {}
func (RedrawAllRequest) isReturnData()       {}
func (RedrawIndexRequest) isReturnData()     {}
func (NewUnit[T]) isReturnData()             {}
func (NewPopUp[T]) isReturnData()            {}
func (RemoveUnit) isReturnData()             {}
func (VirtualKeyboardPressed) isReturnData() {}

// cursorShape resolves a CSS name, defaulting to the arrow.
func cursorShape(name string) cursorshape.Shape {
	if s, ok := cursorshape.ShapeFromName(name); ok {
		return s
	}
	return cursorshape.ShapeDefault
}
