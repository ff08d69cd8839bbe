package wl

import (
	"os"

	"github.com/bnema/wlshellev/wire"
)

const (
	SeatInterface = "wl_seat"
	SeatVersion   = 7
)

// Seat capabilities
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// Pointer button and key states
const (
	StateReleased = 0
	StatePressed  = 1
)

// Seat is wl_seat.
type Seat struct {
	wire.Proxy
	version uint32

	capabilitiesHandler func(SeatCapabilitiesEvent)
	nameHandler         func(SeatNameEvent)
}

type SeatCapabilitiesEvent struct {
	Capabilities uint32
}

type SeatNameEvent struct {
	Name string
}

func NewSeat(version uint32) *Seat {
	return &Seat{version: version}
}

func (s *Seat) GetPointer() (*Pointer, error) {
	p := &Pointer{}
	id := s.Conn().Register(p)
	if err := s.Send(0, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		s.Conn().Forget(p)
		return nil, err
	}
	return p, nil
}

func (s *Seat) GetKeyboard() (*Keyboard, error) {
	k := &Keyboard{}
	id := s.Conn().Register(k)
	if err := s.Send(1, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		s.Conn().Forget(k)
		return nil, err
	}
	return k, nil
}

func (s *Seat) GetTouch() (*Touch, error) {
	t := &Touch{}
	id := s.Conn().Register(t)
	if err := s.Send(2, func(r *wire.Request) { r.PutUint32(id) }); err != nil {
		s.Conn().Forget(t)
		return nil, err
	}
	return t, nil
}

func (s *Seat) Release() error {
	var err error
	if s.version >= 5 {
		err = s.Send(3, nil)
	}
	s.Conn().Forget(s)
	return err
}

func (s *Seat) SetCapabilitiesHandler(f func(SeatCapabilitiesEvent)) { s.capabilitiesHandler = f }
func (s *Seat) SetNameHandler(f func(SeatNameEvent))                 { s.nameHandler = f }

func (s *Seat) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := SeatCapabilitiesEvent{Capabilities: e.Uint32()}
		if e.Err() == nil && s.capabilitiesHandler != nil {
			s.capabilitiesHandler(ev)
		}
	case 1:
		ev := SeatNameEvent{Name: e.String()}
		if e.Err() == nil && s.nameHandler != nil {
			s.nameHandler(ev)
		}
	}
}

// Pointer is wl_pointer.
type Pointer struct {
	wire.Proxy

	enterHandler        func(PointerEnterEvent)
	leaveHandler        func(PointerLeaveEvent)
	motionHandler       func(PointerMotionEvent)
	buttonHandler       func(PointerButtonEvent)
	axisHandler         func(PointerAxisEvent)
	frameHandler        func(PointerFrameEvent)
	axisSourceHandler   func(PointerAxisSourceEvent)
	axisStopHandler     func(PointerAxisStopEvent)
	axisDiscreteHandler func(PointerAxisDiscreteEvent)
	axisValue120Handler func(PointerAxisValue120Event)
}

type PointerEnterEvent struct {
	Serial   uint32
	Surface  uint32
	SurfaceX float64
	SurfaceY float64
}

type PointerLeaveEvent struct {
	Serial  uint32
	Surface uint32
}

type PointerMotionEvent struct {
	Time     uint32
	SurfaceX float64
	SurfaceY float64
}

type PointerButtonEvent struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  uint32
}

type PointerAxisEvent struct {
	Time  uint32
	Axis  uint32
	Value float64
}

type PointerFrameEvent struct{}

type PointerAxisSourceEvent struct {
	AxisSource uint32
}

type PointerAxisStopEvent struct {
	Time uint32
	Axis uint32
}

type PointerAxisDiscreteEvent struct {
	Axis     uint32
	Discrete int32
}

type PointerAxisValue120Event struct {
	Axis     uint32
	Value120 int32
}

// SetCursor sets the pointer image. A nil surface hides the cursor.
func (p *Pointer) SetCursor(serial uint32, surface *Surface, hotspotX, hotspotY int32) error {
	return p.Send(0, func(r *wire.Request) {
		r.PutUint32(serial)
		if surface == nil {
			r.PutUint32(0)
		} else {
			r.PutObject(surface)
		}
		r.PutInt32(hotspotX).PutInt32(hotspotY)
	})
}

func (p *Pointer) Release() error {
	err := p.Send(1, nil)
	p.Conn().Forget(p)
	return err
}

func (p *Pointer) SetEnterHandler(f func(PointerEnterEvent))               { p.enterHandler = f }
func (p *Pointer) SetLeaveHandler(f func(PointerLeaveEvent))               { p.leaveHandler = f }
func (p *Pointer) SetMotionHandler(f func(PointerMotionEvent))             { p.motionHandler = f }
func (p *Pointer) SetButtonHandler(f func(PointerButtonEvent))             { p.buttonHandler = f }
func (p *Pointer) SetAxisHandler(f func(PointerAxisEvent))                 { p.axisHandler = f }
func (p *Pointer) SetFrameHandler(f func(PointerFrameEvent))               { p.frameHandler = f }
func (p *Pointer) SetAxisSourceHandler(f func(PointerAxisSourceEvent))     { p.axisSourceHandler = f }
func (p *Pointer) SetAxisStopHandler(f func(PointerAxisStopEvent))         { p.axisStopHandler = f }
func (p *Pointer) SetAxisDiscreteHandler(f func(PointerAxisDiscreteEvent)) { p.axisDiscreteHandler = f }
func (p *Pointer) SetAxisValue120Handler(f func(PointerAxisValue120Event)) { p.axisValue120Handler = f }

func (p *Pointer) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := PointerEnterEvent{Serial: e.Uint32(), Surface: e.Object(), SurfaceX: e.Fixed().Float64(), SurfaceY: e.Fixed().Float64()}
		if e.Err() == nil && p.enterHandler != nil {
			p.enterHandler(ev)
		}
	case 1:
		ev := PointerLeaveEvent{Serial: e.Uint32(), Surface: e.Object()}
		if e.Err() == nil && p.leaveHandler != nil {
			p.leaveHandler(ev)
		}
	case 2:
		ev := PointerMotionEvent{Time: e.Uint32(), SurfaceX: e.Fixed().Float64(), SurfaceY: e.Fixed().Float64()}
		if e.Err() == nil && p.motionHandler != nil {
			p.motionHandler(ev)
		}
	case 3:
		ev := PointerButtonEvent{Serial: e.Uint32(), Time: e.Uint32(), Button: e.Uint32(), State: e.Uint32()}
		if e.Err() == nil && p.buttonHandler != nil {
			p.buttonHandler(ev)
		}
	case 4:
		ev := PointerAxisEvent{Time: e.Uint32(), Axis: e.Uint32(), Value: e.Fixed().Float64()}
		if e.Err() == nil && p.axisHandler != nil {
			p.axisHandler(ev)
		}
	case 5:
		if p.frameHandler != nil {
			p.frameHandler(PointerFrameEvent{})
		}
	case 6:
		ev := PointerAxisSourceEvent{AxisSource: e.Uint32()}
		if e.Err() == nil && p.axisSourceHandler != nil {
			p.axisSourceHandler(ev)
		}
	case 7:
		ev := PointerAxisStopEvent{Time: e.Uint32(), Axis: e.Uint32()}
		if e.Err() == nil && p.axisStopHandler != nil {
			p.axisStopHandler(ev)
		}
	case 8:
		ev := PointerAxisDiscreteEvent{Axis: e.Uint32(), Discrete: e.Int32()}
		if e.Err() == nil && p.axisDiscreteHandler != nil {
			p.axisDiscreteHandler(ev)
		}
	case 9:
		ev := PointerAxisValue120Event{Axis: e.Uint32(), Value120: e.Int32()}
		if e.Err() == nil && p.axisValue120Handler != nil {
			p.axisValue120Handler(ev)
		}
	}
}

// Keyboard is wl_keyboard.
type Keyboard struct {
	wire.Proxy

	keymapHandler     func(KeyboardKeymapEvent)
	enterHandler      func(KeyboardEnterEvent)
	leaveHandler      func(KeyboardLeaveEvent)
	keyHandler        func(KeyboardKeyEvent)
	modifiersHandler  func(KeyboardModifiersEvent)
	repeatInfoHandler func(KeyboardRepeatInfoEvent)
}

// KeyboardKeymapFormatXkbV1 is the only keymap format in use.
const KeyboardKeymapFormatXkbV1 = 1

// KeyboardKeymapEvent carries the keymap file. The receiver owns File and
// must close it; it is closed for you when no handler is set.
type KeyboardKeymapEvent struct {
	Format uint32
	File   *os.File
	Size   uint32
}

type KeyboardEnterEvent struct {
	Serial  uint32
	Surface uint32
	Keys    []uint32
}

type KeyboardLeaveEvent struct {
	Serial  uint32
	Surface uint32
}

type KeyboardKeyEvent struct {
	Serial uint32
	Time   uint32
	Key    uint32
	State  uint32
}

type KeyboardModifiersEvent struct {
	Serial        uint32
	ModsDepressed uint32
	ModsLatched   uint32
	ModsLocked    uint32
	Group         uint32
}

type KeyboardRepeatInfoEvent struct {
	Rate  int32
	Delay int32
}

func (k *Keyboard) Release() error {
	err := k.Send(0, nil)
	k.Conn().Forget(k)
	return err
}

func (k *Keyboard) SetKeymapHandler(f func(KeyboardKeymapEvent))         { k.keymapHandler = f }
func (k *Keyboard) SetEnterHandler(f func(KeyboardEnterEvent))           { k.enterHandler = f }
func (k *Keyboard) SetLeaveHandler(f func(KeyboardLeaveEvent))           { k.leaveHandler = f }
func (k *Keyboard) SetKeyHandler(f func(KeyboardKeyEvent))               { k.keyHandler = f }
func (k *Keyboard) SetModifiersHandler(f func(KeyboardModifiersEvent))   { k.modifiersHandler = f }
func (k *Keyboard) SetRepeatInfoHandler(f func(KeyboardRepeatInfoEvent)) { k.repeatInfoHandler = f }

func (k *Keyboard) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := KeyboardKeymapEvent{Format: e.Uint32(), File: e.FD(), Size: e.Uint32()}
		if e.Err() != nil {
			if ev.File != nil {
				_ = ev.File.Close()
			}
			return
		}
		if k.keymapHandler == nil {
			_ = ev.File.Close()
			return
		}
		k.keymapHandler(ev)
	case 1:
		ev := KeyboardEnterEvent{Serial: e.Uint32(), Surface: e.Object(), Keys: keysFromArray(e.Array())}
		if e.Err() == nil && k.enterHandler != nil {
			k.enterHandler(ev)
		}
	case 2:
		ev := KeyboardLeaveEvent{Serial: e.Uint32(), Surface: e.Object()}
		if e.Err() == nil && k.leaveHandler != nil {
			k.leaveHandler(ev)
		}
	case 3:
		ev := KeyboardKeyEvent{Serial: e.Uint32(), Time: e.Uint32(), Key: e.Uint32(), State: e.Uint32()}
		if e.Err() == nil && k.keyHandler != nil {
			k.keyHandler(ev)
		}
	case 4:
		ev := KeyboardModifiersEvent{
			Serial:        e.Uint32(),
			ModsDepressed: e.Uint32(),
			ModsLatched:   e.Uint32(),
			ModsLocked:    e.Uint32(),
			Group:         e.Uint32(),
		}
		if e.Err() == nil && k.modifiersHandler != nil {
			k.modifiersHandler(ev)
		}
	case 5:
		ev := KeyboardRepeatInfoEvent{Rate: e.Int32(), Delay: e.Int32()}
		if e.Err() == nil && k.repeatInfoHandler != nil {
			k.repeatInfoHandler(ev)
		}
	}
}

func keysFromArray(b []byte) []uint32 {
	keys := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		keys = append(keys, uint32(b[i])|uint32(b[i+1])<<8|uint32(b[i+2])<<16|uint32(b[i+3])<<24)
	}
	return keys
}

// Touch is wl_touch.
type Touch struct {
	wire.Proxy

	downHandler   func(TouchDownEvent)
	upHandler     func(TouchUpEvent)
	motionHandler func(TouchMotionEvent)
	frameHandler  func(TouchFrameEvent)
	cancelHandler func(TouchCancelEvent)
}

type TouchDownEvent struct {
	Serial  uint32
	Time    uint32
	Surface uint32
	ID      int32
	X, Y    float64
}

type TouchUpEvent struct {
	Serial uint32
	Time   uint32
	ID     int32
}

type TouchMotionEvent struct {
	Time uint32
	ID   int32
	X, Y float64
}

type TouchFrameEvent struct{}

type TouchCancelEvent struct{}

func (t *Touch) Release() error {
	err := t.Send(0, nil)
	t.Conn().Forget(t)
	return err
}

func (t *Touch) SetDownHandler(f func(TouchDownEvent))     { t.downHandler = f }
func (t *Touch) SetUpHandler(f func(TouchUpEvent))         { t.upHandler = f }
func (t *Touch) SetMotionHandler(f func(TouchMotionEvent)) { t.motionHandler = f }
func (t *Touch) SetFrameHandler(f func(TouchFrameEvent))   { t.frameHandler = f }
func (t *Touch) SetCancelHandler(f func(TouchCancelEvent)) { t.cancelHandler = f }

func (t *Touch) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := TouchDownEvent{
			Serial: e.Uint32(), Time: e.Uint32(), Surface: e.Object(), ID: e.Int32(),
			X: e.Fixed().Float64(), Y: e.Fixed().Float64(),
		}
		if e.Err() == nil && t.downHandler != nil {
			t.downHandler(ev)
		}
	case 1:
		ev := TouchUpEvent{Serial: e.Uint32(), Time: e.Uint32(), ID: e.Int32()}
		if e.Err() == nil && t.upHandler != nil {
			t.upHandler(ev)
		}
	case 2:
		ev := TouchMotionEvent{Time: e.Uint32(), ID: e.Int32(), X: e.Fixed().Float64(), Y: e.Fixed().Float64()}
		if e.Err() == nil && t.motionHandler != nil {
			t.motionHandler(ev)
		}
	case 3:
		if t.frameHandler != nil {
			t.frameHandler(TouchFrameEvent{})
		}
	case 4:
		if t.cancelHandler != nil {
			t.cancelHandler(TouchCancelEvent{})
		}
	}
}
