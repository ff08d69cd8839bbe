package ev

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/keymap"
	"github.com/bnema/wlshellev/protocol/fractional"
	"github.com/bnema/wlshellev/protocol/vkeyboard"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	DefaultIdleTicks       = 1
	DefaultUserEventPoll   = 50 * time.Millisecond
	DefaultUserEventBuffer = 64
)

// Options are the shell independent knobs of a WindowState.
type Options struct {
	// UseDisplayHandle means the caller renders with its own stack; no
	// RequestBuffer is ever sent.
	UseDisplayHandle bool
	// IdleTicks is how many quiet ticks produce one NormalDispatch.
	IdleTicks int
	// UserEventPoll bounds each dispatch while a user event channel is set.
	UserEventPoll time.Duration
	// UserEventBuffer is the relay channel capacity.
	UserEventBuffer int
	// VirtualKeyboard, when set, creates a virtual keyboard with this keymap.
	VirtualKeyboard *keymap.Keymap
	// CursorTheme and CursorSize override XCURSOR_THEME and XCURSOR_SIZE for
	// the software cursor fallback.
	CursorTheme string
	CursorSize  uint32
}

func (o *Options) setDefaults() {
	if o.IdleTicks <= 0 {
		o.IdleTicks = DefaultIdleTicks
	}
	if o.UserEventPoll <= 0 {
		o.UserEventPoll = DefaultUserEventPoll
	}
	if o.UserEventBuffer <= 0 {
		o.UserEventBuffer = DefaultUserEventBuffer
	}
}

// WindowState owns the connection, every unit and the message queue. It
// is not safe for concurrent use; the run loop and its handler share one
// goroutine.
type WindowState[T any] struct {
	conn    *wire.Conn
	globals *Globals
	shell   Shell
	opts    Options

	units     []*Unit[T]
	bySurface map[uint32]UnitID
	outputs   []*Output

	queue   queue
	started bool

	input   inputState
	cursor  *cursorState
	vkbd    *vkeyboard.Keyboard
	popups  map[UnitID]UnitID
	closing bool
}

// Connect dials the compositor. An empty name uses WAYLAND_SOCKET or
// WAYLAND_DISPLAY.
func Connect(name string) (*wire.Conn, error) {
	conn, err := wire.Dial(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return conn, nil
}

// Build binds the globals on conn, lets shell bind its own, and creates
// the initial units. conn is closed when Build fails.
func Build[T any](conn *wire.Conn, shell Shell, opts Options) (*WindowState[T], error) {
	opts.setDefaults()
	ws := &WindowState[T]{
		conn:      conn,
		shell:     shell,
		opts:      opts,
		bySurface: make(map[uint32]UnitID),
		popups:    make(map[UnitID]UnitID),
	}
	if err := ws.build(); err != nil {
		ws.destroy()
		return nil, err
	}
	return ws, nil
}

func (ws *WindowState[T]) build() error {
	g, err := collectGlobals(ws.conn)
	if err != nil {
		return err
	}
	ws.globals = g

	if err := g.bindCore(); err != nil {
		return err
	}
	g.bindOptional(ws.shell.Features())
	if err := ws.shell.Bind(g, func(m DispatchMessage) { ws.queue.push(0, protocolMessage{msg: m}) }); err != nil {
		return err
	}

	for _, gl := range g.List.All(wl.OutputInterface) {
		if _, err := ws.addOutput(gl); err != nil {
			return err
		}
	}
	ws.watchSeat()
	g.Registry.SetGlobalHandler(ws.handleGlobal)
	g.Registry.SetGlobalRemoveHandler(ws.handleGlobalRemove)

	if err := ws.conn.Roundtrip(); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}

	if ws.opts.VirtualKeyboard != nil {
		if err := ws.createVirtualKeyboard(); err != nil {
			logger.Warn("Virtual keyboard unavailable", "error", err)
		}
	}

	switch ws.shell.Placement() {
	case PlaceSingle:
		if _, err := ws.newUnit(ws.shell.DefaultOptions(), nil); err != nil {
			return err
		}
	case PlacePerOutput:
		for _, o := range ws.outputs {
			if _, err := ws.newUnit(ws.shell.DefaultOptions(), o); err != nil {
				return err
			}
		}
	}
	ws.started = true
	logger.Debug("Window state built", "units", len(ws.units), "outputs", len(ws.outputs))
	return nil
}

// collectGlobals runs the first registry round-trip. The handler only
// records announcements; nothing is bound yet.
func collectGlobals(conn *wire.Conn) (*Globals, error) {
	reg, err := wl.GetRegistry(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	g := &Globals{Registry: reg, Conn: conn}
	reg.SetGlobalHandler(func(e wl.RegistryGlobalEvent) {
		g.List.add(Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	})
	if err := conn.Roundtrip(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	reg.SetGlobalHandler(nil)
	return g, nil
}

func (ws *WindowState[T]) addOutput(gl Global) (*Output, error) {
	o, err := newOutput(ws.globals, gl)
	if err != nil {
		return nil, err
	}
	ws.outputs = append(ws.outputs, o)
	o.watchXdg(ws.globals.XdgOutput, func(kind XdgInfoKind) { ws.xdgChanged(o, kind) })
	logger.Debug("Output bound", "global", gl.Name, "version", o.Handle.Version())
	return o, nil
}

// handleGlobal is the live registry handler installed after startup.
func (ws *WindowState[T]) handleGlobal(e wl.RegistryGlobalEvent) {
	gl := Global{Name: e.Name, Interface: e.Interface, Version: e.Version}
	ws.globals.List.add(gl)
	if e.Interface != wl.OutputInterface {
		return
	}
	o, err := ws.addOutput(gl)
	if err != nil {
		logger.Warn("Failed to bind new output", "global", e.Name, "error", err)
		return
	}
	ws.queue.push(0, newDisplay{output: o})
}

func (ws *WindowState[T]) handleGlobalRemove(e wl.RegistryGlobalRemoveEvent) {
	gl, ok := ws.globals.List.remove(e.Name)
	if !ok || gl.Interface != wl.OutputInterface {
		return
	}
	for i, o := range ws.outputs {
		if o.GlobalName != e.Name {
			continue
		}
		ws.outputs = append(ws.outputs[:i], ws.outputs[i+1:]...)
		for _, u := range ws.units {
			if u.output == o && !u.dead {
				u.dead = true
				ws.queue.push(u.id, protocolMessage{msg: Closed{}})
			}
		}
		o.release()
		break
	}
	ws.queue.push(0, outputRemoved{name: e.Name})
}

func (ws *WindowState[T]) xdgChanged(o *Output, kind XdgInfoKind) {
	for _, u := range ws.units {
		if u.output != o {
			continue
		}
		info := o.Info.Logical
		u.xdgInfo = &info
		ws.queue.push(u.id, xdgInfoChanged{kind: kind})
	}
}

// newUnit creates a surface, gives it the shell role and commits it so
// the compositor sends the first configure.
func (ws *WindowState[T]) newUnit(options any, output *Output) (*Unit[T], error) {
	surface, err := ws.globals.Compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("%w: create surface: %w", ErrDispatch, err)
	}
	u := &Unit[T]{id: nextUnitID(), surface: surface, output: output, scale: fractional.ScaleDenominator}
	if output != nil && output.Info.HasLogical {
		info := output.Info.Logical
		u.xdgInfo = &info
	}

	role, err := ws.shell.NewRole(RoleRequest{
		Surface: surface,
		Output:  output,
		Options: options,
		Sink:    RoleSink{sink: ws, id: u.id},
	})
	if err != nil {
		_ = surface.Destroy()
		return nil, err
	}
	u.role = role
	ws.attachHelpers(u)

	ws.units = append(ws.units, u)
	ws.bySurface[surface.ID()] = u.id

	if err := surface.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrDispatch, err)
	}
	logger.Debug("Unit created", "id", u.id, "surface", surface.ID())
	return u, nil
}

// attachHelpers adds the per-surface fractional scale and viewport objects.
func (ws *WindowState[T]) attachHelpers(u *Unit[T]) {
	if m := ws.globals.FractionalScale; m != nil {
		fs, err := m.GetFractionalScale(u.surface)
		if err != nil {
			logger.Warn("Failed to get fractional scale", "unit", u.id, "error", err)
		} else {
			u.fractional = fs
			id := u.id
			fs.SetPreferredScaleHandler(func(e fractional.PreferredScaleEvent) {
				ws.preferredScale(id, e.Scale)
			})
		}
	}
	if v := ws.globals.Viewporter; v != nil {
		vp, err := v.GetViewport(u.surface)
		if err != nil {
			logger.Warn("Failed to get viewport", "unit", u.id, "error", err)
		} else {
			u.viewport = vp
		}
	}
}

func (ws *WindowState[T]) preferredScale(id UnitID, scale uint32) {
	u := ws.Unit(id)
	if u == nil {
		return
	}
	u.scale = scale
	ws.queue.push(id, protocolMessage{msg: PreferredScale{
		Scale:      scale,
		ScaleFloat: float64(scale) / fractional.ScaleDenominator,
	}})
}

// configure implements configureSink.
func (ws *WindowState[T]) configure(id UnitID, serial, width, height uint32) {
	u := ws.Unit(id)
	if u == nil || u.role == nil {
		return
	}
	if err := u.role.AckConfigure(serial); err != nil {
		logger.Warn("Failed to ack configure", "unit", id, "error", err)
		return
	}
	u.size = [2]uint32{width, height}
	u.configured = true
	if u.viewport != nil && width > 0 && height > 0 {
		if err := u.viewport.SetDestination(int32(width), int32(height)); err != nil {
			logger.Warn("Failed to set viewport destination", "unit", id, "error", err)
		}
	}
	ws.queue.push(id, refreshSurface{width: width, height: height})
}

// closed implements configureSink.
func (ws *WindowState[T]) closed(id UnitID) {
	u := ws.Unit(id)
	if u == nil || u.dead {
		return
	}
	u.dead = true
	ws.queue.push(id, protocolMessage{msg: Closed{}})
}

func (ws *WindowState[T]) createVirtualKeyboard() error {
	if err := ws.globals.bindVirtualKeyboard(); err != nil {
		return err
	}
	kb, err := ws.globals.VirtualKeyboard.CreateVirtualKeyboard(ws.globals.Seat)
	if err != nil {
		return err
	}
	km := ws.opts.VirtualKeyboard
	if err := kb.Keymap(km.Format, km.File, km.Size); err != nil {
		_ = kb.Destroy()
		return err
	}
	ws.vkbd = kb
	return nil
}

// Conn returns the underlying connection.
func (ws *WindowState[T]) Conn() *wire.Conn { return ws.conn }

// Globals returns the bound globals.
func (ws *WindowState[T]) Globals() *Globals { return ws.globals }

// Outputs returns the outputs currently known, in announcement order.
func (ws *WindowState[T]) Outputs() []*Output {
	return append([]*Output(nil), ws.outputs...)
}

// Units returns every unit, including ones scheduled for removal.
func (ws *WindowState[T]) Units() []*Unit[T] {
	return append([]*Unit[T](nil), ws.units...)
}

func (ws *WindowState[T]) unitIDs() []UnitID {
	ids := make([]UnitID, len(ws.units))
	for i, u := range ws.units {
		ids[i] = u.id
	}
	return ids
}

// Unit returns the unit with id, or nil.
func (ws *WindowState[T]) Unit(id UnitID) *Unit[T] {
	for _, u := range ws.units {
		if u.id == id {
			return u
		}
	}
	return nil
}

// UnitBySurface returns the unit owning surface, or nil.
func (ws *WindowState[T]) UnitBySurface(surface *wl.Surface) *Unit[T] {
	if surface == nil {
		return nil
	}
	return ws.unitBySurfaceID(surface.ID())
}

func (ws *WindowState[T]) unitBySurfaceID(id uint32) *Unit[T] {
	uid, ok := ws.bySurface[id]
	if !ok {
		return nil
	}
	return ws.Unit(uid)
}

// MainUnit returns the first unit, or nil when there is none.
func (ws *WindowState[T]) MainUnit() *Unit[T] {
	if len(ws.units) == 0 {
		return nil
	}
	return ws.units[0]
}

// RemoveUnit destroys a unit and its popups. It reports whether the unit
// existed.
func (ws *WindowState[T]) RemoveUnit(id UnitID) bool {
	for child, parent := range ws.popups {
		if parent == id {
			ws.RemoveUnit(child)
		}
	}
	for i, u := range ws.units {
		if u.id != id {
			continue
		}
		ws.units = append(ws.units[:i], ws.units[i+1:]...)
		if u.surface != nil {
			delete(ws.bySurface, u.surface.ID())
		}
		delete(ws.popups, id)
		ws.input.forget(id)
		u.destroy()
		logger.Debug("Unit removed", "id", id)
		return true
	}
	return false
}

// sweep removes units marked dead once nothing queued still targets them.
func (ws *WindowState[T]) sweep() {
	var dead []UnitID
	for _, u := range ws.units {
		if u.dead && !ws.queue.targets(u.id) {
			dead = append(dead, u.id)
		}
	}
	for _, id := range dead {
		ws.RemoveUnit(id)
	}
}

func (ws *WindowState[T]) hasUnitOn(o *Output) bool {
	for _, u := range ws.units {
		if u.output == o && !u.dead {
			return true
		}
	}
	return false
}

// destroy tears everything down, units first.
func (ws *WindowState[T]) destroy() {
	for len(ws.units) > 0 {
		ws.RemoveUnit(ws.units[len(ws.units)-1].id)
	}
	if ws.cursor != nil {
		ws.cursor.destroy()
		ws.cursor = nil
	}
	if ws.vkbd != nil {
		_ = ws.vkbd.Destroy()
		ws.vkbd = nil
	}
	if err := ws.conn.Close(); err != nil && !errors.Is(err, wire.ErrClosed) {
		logger.Debug("Closing connection failed", "error", err)
	}
}
