package ev

import (
	"errors"
	"fmt"

	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

// MaxReturnIterations bounds the return data processed per tick. Handlers
// that keep answering with more work are a bug; the loop panics instead of
// spinning.
const MaxReturnIterations = 1024

// Handler receives every event. id is nil for events not tied to a unit.
type Handler[T any] func(ev Event, ws *WindowState[T], id *UnitID) ReturnData

// ErrLoopFinished is returned when Run is called on a state whose loop
// already returned.
var ErrLoopFinished = errors.New("run loop already finished")

type loopState int

const (
	awaitInit loopState = iota
	awaitBind
	running
	exited
)

type work struct {
	data ReturnData
	unit UnitID
}

type loop[T any] struct {
	ws      *WindowState[T]
	handler Handler[T]
	relay   *relay
	idle    int
	state   loopState
}

// Run drives the event loop until the handler asks to exit or the
// connection fails. Every unit is destroyed and the connection closed
// before it returns.
func (ws *WindowState[T]) Run(handler Handler[T]) error {
	return ws.run(handler, nil)
}

// RunWithUserEvents is Run plus a channel of caller events. Values are
// delivered as UserEvent after the protocol messages of the same tick.
func (ws *WindowState[T]) RunWithUserEvents(handler Handler[T], events <-chan any) error {
	return ws.run(handler, events)
}

func (ws *WindowState[T]) run(handler Handler[T], events <-chan any) error {
	if ws.closing {
		return ErrLoopFinished
	}
	l := &loop[T]{ws: ws, handler: handler}
	if events != nil {
		l.relay = startRelay(events, ws.opts.UserEventBuffer)
	}
	defer func() {
		if l.relay != nil {
			l.relay.stop()
		}
		ws.closing = true
		ws.destroy()
	}()

	l.startup()
	for l.state == running {
		if err := l.tick(); err != nil {
			return err
		}
	}
	return nil
}

// startup delivers InitRequest and, when asked for, BindProvide.
func (l *loop[T]) startup() {
	l.state = awaitInit
	switch rd := l.handler(InitRequest{}, l.ws, nil); rd.(type) {
	case nil:
		l.state = running
	case RequestBind:
		l.state = awaitBind
	default:
		panic(fmt.Sprintf("ev: InitRequest answered with %T, want RequestBind or nil", rd))
	}
	if l.state != awaitBind {
		return
	}
	if rd := l.handler(BindProvide{Globals: l.ws.globals}, l.ws, nil); rd != nil {
		panic(fmt.Sprintf("ev: BindProvide answered with %T, want nil", rd))
	}
	l.state = running
}

func (l *loop[T]) tick() error {
	ws := l.ws
	if err := l.dispatch(); err != nil {
		return err
	}

	batch := ws.queue.swap()
	delivered := 0
	for i, m := range batch {
		if l.state != running {
			break
		}
		n, err := l.deliver(m)
		if err != nil {
			ws.queue.recycle(batch[i:])
			return err
		}
		delivered += n
	}
	ws.queue.recycle(batch)

	if l.relay != nil && l.state == running {
		for _, v := range l.relay.drain() {
			delivered++
			if err := l.process(l.handler(UserEvent{Message: v}, ws, nil), 0); err != nil {
				return err
			}
			if l.state != running {
				break
			}
		}
	}

	if l.state == running {
		if delivered == 0 {
			l.idle++
			if l.idle >= ws.opts.IdleTicks {
				l.idle = 0
				if err := l.process(l.handler(NormalDispatch{}, ws, nil), 0); err != nil {
					return err
				}
			}
		} else {
			l.idle = 0
		}
	}

	ws.sweep()
	return nil
}

// dispatch reads protocol events. Queued messages are drained without
// blocking; a relay bounds the wait so user events keep flowing.
func (l *loop[T]) dispatch() error {
	conn := l.ws.conn
	var err error
	switch {
	case l.ws.queue.len() > 0:
		_, err = conn.DispatchPending()
	case l.relay != nil:
		_, err = conn.DispatchTimeout(l.ws.opts.UserEventPoll)
	default:
		_, err = conn.Dispatch()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return nil
}

// deliver hands one queued message to the handler and processes what it
// returns. It reports how many handler calls were made.
func (l *loop[T]) deliver(m tagged) (int, error) {
	ws := l.ws
	switch msg := m.msg.(type) {
	case refreshSurface:
		u := ws.Unit(m.unit)
		if u == nil || !u.configured {
			return 0, nil
		}
		return 1, l.refresh(u)
	case newDisplay:
		// The output may already be gone when announce and retract
		// arrive in the same read.
		if msg.output.removed {
			return 0, nil
		}
		if ws.shell.Placement() == PlacePerOutput && ws.started && !ws.hasUnitOn(msg.output) {
			if _, err := ws.newUnit(ws.shell.DefaultOptions(), msg.output); err != nil {
				return 0, err
			}
		}
		return 0, nil
	case outputRemoved:
		logger.Debug("Output removed", "global", msg.name)
		return 0, nil
	case xdgInfoChanged:
		if !l.known(m.unit) {
			return 0, nil
		}
		rd := l.handler(XdgInfoChanged{Kind: msg.kind}, ws, unitRef(m.unit))
		return 1, l.process(rd, m.unit)
	case protocolMessage:
		if !l.known(m.unit) {
			return 0, nil
		}
		rd := l.handler(RequestMessages{Message: msg.msg}, ws, unitRef(m.unit))
		return 1, l.process(rd, m.unit)
	}
	return 0, nil
}

// known reports whether a tag still names a unit. Untagged messages
// always pass; units removed earlier in the batch drop theirs.
func (l *loop[T]) known(id UnitID) bool {
	return id == 0 || l.ws.Unit(id) != nil
}

// refresh asks for a first buffer or a redraw. Units without a positive
// size, or states rendering through the display handle, only get
// RequestRefresh.
func (l *loop[T]) refresh(u *Unit[T]) error {
	ws := l.ws
	w, h := u.size[0], u.size[1]
	if u.buffer != nil || ws.opts.UseDisplayHandle || w == 0 || h == 0 {
		rd := l.handler(RequestMessages{Message: RequestRefresh{
			Width:      w,
			Height:     h,
			ScaleFloat: u.ScaleFloat(),
		}}, ws, unitRef(u.id))
		return l.process(rd, u.id)
	}

	stride := w * 4
	file, err := wire.CreateAnonymousFile("wlshellev-buffer", int64(stride)*int64(h))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTempFile, err)
	}
	defer file.Close()

	rd := l.handler(RequestBuffer{File: file, Shm: ws.globals.Shm, Width: w, Height: h, Stride: stride}, ws, unitRef(u.id))
	buf, ok := rd.(WlBuffer)
	if !ok {
		panic(fmt.Sprintf("ev: RequestBuffer answered with %T, want WlBuffer", rd))
	}
	return l.attach(u, buf.Buffer)
}

// attach puts the first buffer on a unit's surface.
func (l *loop[T]) attach(u *Unit[T], buf *wl.Buffer) error {
	if buf == nil {
		panic("ev: WlBuffer without a buffer")
	}
	s := u.surface
	if err := s.Attach(buf, 0, 0); err != nil {
		return fmt.Errorf("%w: attach: %w", ErrDispatch, err)
	}
	if err := s.DamageBuffer(0, 0, int32(u.size[0]), int32(u.size[1])); err != nil {
		return fmt.Errorf("%w: damage: %w", ErrDispatch, err)
	}
	if err := s.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrDispatch, err)
	}
	u.buffer = buf
	return nil
}

// process runs return data to a fixed point. Redraw requests fan out into
// handler calls whose answers join the same worklist.
func (l *loop[T]) process(first ReturnData, unit UnitID) error {
	if first == nil {
		return nil
	}
	pending := []work{{data: first, unit: unit}}
	for n := 0; len(pending) > 0; n++ {
		if n >= MaxReturnIterations {
			panic(fmt.Sprintf("ev: return data did not settle after %d iterations", MaxReturnIterations))
		}
		w := pending[0]
		pending = pending[1:]

		more, err := l.apply(w)
		if err != nil {
			return err
		}
		if l.state != running {
			return nil
		}
		pending = append(pending, more...)
	}
	return nil
}

func (l *loop[T]) apply(w work) ([]work, error) {
	ws := l.ws
	switch rd := w.data.(type) {
	case nil:
		return nil, nil
	case RequestExit, RequestUnlockAndExit:
		if err := ws.shell.Exit(ws.globals); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
		}
		l.state = exited
		logger.Debug("Run loop exiting")
		return nil, nil
	case RedrawAllRequest:
		var more []work
		// Handlers may add or remove units while this walks.
		for _, id := range ws.unitIDs() {
			u := ws.Unit(id)
			if u == nil || !u.configured || u.dead {
				continue
			}
			out, err := l.redraw(u)
			if err != nil {
				return nil, err
			}
			more = append(more, out...)
		}
		return more, nil
	case RedrawIndexRequest:
		u := ws.Unit(rd.ID)
		if u == nil || !u.configured {
			return nil, nil
		}
		return l.redraw(u)
	case RequestSetCursorShape:
		ws.setCursor(rd)
		return nil, nil
	case NewUnit[T]:
		u, err := ws.newUnit(rd.Options, rd.Output)
		if err != nil {
			return nil, err
		}
		if rd.HasBinding {
			u.SetBinding(rd.Binding)
		}
		return nil, nil
	case NewPopUp[T]:
		u, err := ws.newPopup(rd.Parent, rd.Settings)
		if err != nil {
			return nil, err
		}
		if u != nil && rd.HasBinding {
			u.SetBinding(rd.Binding)
		}
		return nil, nil
	case RemoveUnit:
		ws.RemoveUnit(rd.ID)
		return nil, nil
	case VirtualKeyboardPressed:
		ws.pressKey(rd)
		return nil, nil
	case WlBuffer:
		panic("ev: WlBuffer is only valid as the answer to RequestBuffer")
	default:
		panic(fmt.Sprintf("ev: unexpected return data %T for unit %d", rd, w.unit))
	}
}

// redraw delivers one RequestRefresh-equivalent and returns the answer as
// further work.
func (l *loop[T]) redraw(u *Unit[T]) ([]work, error) {
	ws := l.ws
	if u.buffer == nil && !ws.opts.UseDisplayHandle && u.size[0] > 0 && u.size[1] > 0 {
		// The buffer request answers itself.
		return nil, l.refresh(u)
	}
	rd := l.handler(RequestMessages{Message: RequestRefresh{
		Width:      u.size[0],
		Height:     u.size[1],
		ScaleFloat: u.ScaleFloat(),
	}}, ws, unitRef(u.id))
	if rd == nil {
		return nil, nil
	}
	return []work{{data: rd, unit: u.id}}, nil
}

func (ws *WindowState[T]) pressKey(rd VirtualKeyboardPressed) {
	if ws.vkbd == nil {
		logger.Warn("Virtual keyboard not available, dropping key", "key", rd.Key)
		return
	}
	if err := ws.vkbd.Key(rd.Time, rd.Key, wl.StatePressed); err != nil {
		logger.Warn("Virtual key press failed", "key", rd.Key, "error", err)
		return
	}
	if err := ws.vkbd.Key(rd.Time, rd.Key, wl.StateReleased); err != nil {
		logger.Warn("Virtual key release failed", "key", rd.Key, "error", err)
	}
}
