package ev

import (
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/wl"
)

// inputState tracks seat devices and which unit has focus. Devices are
// created when the seat first reports the capability and are kept when the
// capability goes away.
type inputState struct {
	pointer  *wl.Pointer
	keyboard *wl.Keyboard
	touch    *wl.Touch

	pointerFocus  UnitID
	keyboardFocus UnitID
	// enterSerial is the serial of the last pointer enter, needed by
	// set_cursor.
	enterSerial uint32
}

func (in *inputState) forget(id UnitID) {
	if in.pointerFocus == id {
		in.pointerFocus = 0
	}
	if in.keyboardFocus == id {
		in.keyboardFocus = 0
	}
}

// Pointer returns the seat pointer, or nil before the seat reported one.
func (ws *WindowState[T]) Pointer() *wl.Pointer { return ws.input.pointer }

// Keyboard returns the seat keyboard, or nil.
func (ws *WindowState[T]) Keyboard() *wl.Keyboard { return ws.input.keyboard }

// Touch returns the seat touch device, or nil.
func (ws *WindowState[T]) Touch() *wl.Touch { return ws.input.touch }

func (ws *WindowState[T]) watchSeat() {
	ws.globals.Seat.SetCapabilitiesHandler(func(e wl.SeatCapabilitiesEvent) {
		ws.seatCapabilities(e.Capabilities)
	})
}

func (ws *WindowState[T]) seatCapabilities(caps uint32) {
	seat := ws.globals.Seat
	if caps&wl.SeatCapabilityPointer != 0 && ws.input.pointer == nil {
		p, err := seat.GetPointer()
		if err != nil {
			logger.Warn("Failed to get pointer", "error", err)
		} else {
			ws.input.pointer = p
			ws.watchPointer(p)
			logger.Debug("Pointer created")
		}
	}
	if caps&wl.SeatCapabilityKeyboard != 0 && ws.input.keyboard == nil {
		k, err := seat.GetKeyboard()
		if err != nil {
			logger.Warn("Failed to get keyboard", "error", err)
		} else {
			ws.input.keyboard = k
			ws.watchKeyboard(k)
			logger.Debug("Keyboard created")
		}
	}
	if caps&wl.SeatCapabilityTouch != 0 && ws.input.touch == nil {
		t, err := seat.GetTouch()
		if err != nil {
			logger.Warn("Failed to get touch", "error", err)
		} else {
			ws.input.touch = t
			ws.watchTouch(t)
			logger.Debug("Touch created")
		}
	}
}

// post queues a protocol message for id, 0 meaning untagged.
func (ws *WindowState[T]) post(id UnitID, msg DispatchMessage) {
	ws.queue.push(id, protocolMessage{msg: msg})
}

// focusOf resolves a surface id to a live unit id, 0 when unknown.
func (ws *WindowState[T]) focusOf(surface uint32) UnitID {
	if u := ws.unitBySurfaceID(surface); u != nil {
		return u.id
	}
	return 0
}

func (ws *WindowState[T]) watchPointer(p *wl.Pointer) {
	in := &ws.input
	p.SetEnterHandler(func(e wl.PointerEnterEvent) {
		in.pointerFocus = ws.focusOf(e.Surface)
		in.enterSerial = e.Serial
		ws.post(in.pointerFocus, MouseEnter{Pointer: p, Serial: e.Serial, SurfaceX: e.SurfaceX, SurfaceY: e.SurfaceY})
	})
	p.SetLeaveHandler(func(e wl.PointerLeaveEvent) {
		ws.post(ws.focusOf(e.Surface), MouseLeave{Serial: e.Serial})
		in.pointerFocus = 0
	})
	p.SetMotionHandler(func(e wl.PointerMotionEvent) {
		ws.post(in.pointerFocus, MouseMotion{Time: e.Time, SurfaceX: e.SurfaceX, SurfaceY: e.SurfaceY})
	})
	p.SetButtonHandler(func(e wl.PointerButtonEvent) {
		ws.post(in.pointerFocus, MouseButton{Serial: e.Serial, Time: e.Time, Button: e.Button, State: e.State})
	})
	p.SetAxisHandler(func(e wl.PointerAxisEvent) {
		ws.post(in.pointerFocus, Axis{Time: e.Time, Axis: e.Axis, Value: e.Value})
	})
	p.SetAxisSourceHandler(func(e wl.PointerAxisSourceEvent) {
		ws.post(in.pointerFocus, AxisSource{Source: e.AxisSource})
	})
	p.SetAxisStopHandler(func(e wl.PointerAxisStopEvent) {
		ws.post(in.pointerFocus, AxisStop{Time: e.Time, Axis: e.Axis})
	})
	p.SetAxisDiscreteHandler(func(e wl.PointerAxisDiscreteEvent) {
		ws.post(in.pointerFocus, AxisDiscrete{Axis: e.Axis, Discrete: e.Discrete})
	})
	p.SetAxisValue120Handler(func(e wl.PointerAxisValue120Event) {
		ws.post(in.pointerFocus, AxisValue120{Axis: e.Axis, Value120: e.Value120})
	})
	p.SetFrameHandler(func(wl.PointerFrameEvent) {
		ws.post(in.pointerFocus, PointerFrame{})
	})
}

func (ws *WindowState[T]) watchKeyboard(k *wl.Keyboard) {
	in := &ws.input
	k.SetKeymapHandler(func(e wl.KeyboardKeymapEvent) {
		ws.post(in.keyboardFocus, KeyboardKeymap{Format: e.Format, File: e.File, Size: e.Size})
	})
	k.SetEnterHandler(func(e wl.KeyboardEnterEvent) {
		in.keyboardFocus = ws.focusOf(e.Surface)
		ws.post(in.keyboardFocus, KeyboardEnter{Serial: e.Serial, Keys: e.Keys})
	})
	k.SetLeaveHandler(func(e wl.KeyboardLeaveEvent) {
		ws.post(ws.focusOf(e.Surface), KeyboardLeave{Serial: e.Serial})
		in.keyboardFocus = 0
	})
	k.SetKeyHandler(func(e wl.KeyboardKeyEvent) {
		ws.post(in.keyboardFocus, KeyboardKey{Serial: e.Serial, Time: e.Time, Key: e.Key, State: e.State})
	})
	k.SetModifiersHandler(func(e wl.KeyboardModifiersEvent) {
		ws.post(in.keyboardFocus, ModifiersChanged{
			Serial:    e.Serial,
			Depressed: e.ModsDepressed,
			Latched:   e.ModsLatched,
			Locked:    e.ModsLocked,
			Group:     e.Group,
		})
	})
	k.SetRepeatInfoHandler(func(e wl.KeyboardRepeatInfoEvent) {
		ws.post(in.keyboardFocus, RepeatInfo{Rate: e.Rate, Delay: e.Delay})
	})
}

// Only touch down carries a surface; the rest are keyed by touch id and
// delivered untagged.
func (ws *WindowState[T]) watchTouch(t *wl.Touch) {
	t.SetDownHandler(func(e wl.TouchDownEvent) {
		ws.post(ws.focusOf(e.Surface), TouchDown{Serial: e.Serial, Time: e.Time, ID: e.ID, X: e.X, Y: e.Y})
	})
	t.SetUpHandler(func(e wl.TouchUpEvent) {
		ws.post(0, TouchUp{Serial: e.Serial, Time: e.Time, ID: e.ID})
	})
	t.SetMotionHandler(func(e wl.TouchMotionEvent) {
		ws.post(0, TouchMotion{Time: e.Time, ID: e.ID, X: e.X, Y: e.Y})
	})
	t.SetCancelHandler(func(wl.TouchCancelEvent) {
		ws.post(0, TouchCancel{})
	})
	t.SetFrameHandler(func(wl.TouchFrameEvent) {
		ws.post(0, TouchFrame{})
	})
}
