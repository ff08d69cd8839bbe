package ev

import (
	"fmt"

	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/cursorshape"
	"github.com/bnema/wlshellev/protocol/fractional"
	"github.com/bnema/wlshellev/protocol/viewporter"
	"github.com/bnema/wlshellev/protocol/vkeyboard"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/protocol/xdgoutput"
	"github.com/bnema/wlshellev/protocol/xdgshell"
	"github.com/bnema/wlshellev/wire"
)

// Global is one registry announcement.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// GlobalList is the set of globals the compositor advertises.
type GlobalList struct {
	globals []Global
}

func (l *GlobalList) add(g Global) {
	l.globals = append(l.globals, g)
}

func (l *GlobalList) remove(name uint32) (Global, bool) {
	for i, g := range l.globals {
		if g.Name == name {
			l.globals = append(l.globals[:i], l.globals[i+1:]...)
			return g, true
		}
	}
	return Global{}, false
}

// Find returns the first global implementing iface.
func (l *GlobalList) Find(iface string) (Global, bool) {
	for _, g := range l.globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// All returns every global implementing iface, in announcement order.
func (l *GlobalList) All(iface string) []Global {
	var out []Global
	for _, g := range l.globals {
		if g.Interface == iface {
			out = append(out, g)
		}
	}
	return out
}

// Contents returns a copy of the list.
func (l *GlobalList) Contents() []Global {
	return append([]Global(nil), l.globals...)
}

// Globals holds the connection and every bound manager. Optional managers
// are nil when the compositor does not offer them.
type Globals struct {
	List     GlobalList
	Registry *wl.Registry
	Conn     *wire.Conn

	Compositor *wl.Compositor
	Shm        *wl.Shm
	Seat       *wl.Seat

	CursorShape     *cursorshape.Manager
	FractionalScale *fractional.Manager
	XdgOutput       *xdgoutput.Manager
	Viewporter      *viewporter.Viewporter
	WmBase          *xdgshell.WmBase
	VirtualKeyboard *vkeyboard.Manager
}

// Bind binds the first global implementing iface at min(advertised, max)
// and returns the bound version. A missing global yields a *BindError
// wrapping ErrMissingGlobal.
func (g *Globals) Bind(iface string, maxVersion uint32, obj wire.Object) (uint32, error) {
	gl, ok := g.List.Find(iface)
	if !ok {
		return 0, &BindError{Interface: iface, Err: ErrMissingGlobal}
	}
	return g.bindGlobal(gl, maxVersion, obj)
}

func (g *Globals) bindGlobal(gl Global, maxVersion uint32, obj wire.Object) (uint32, error) {
	version := min(gl.Version, maxVersion)
	if err := g.Registry.Bind(gl.Name, gl.Interface, version, obj); err != nil {
		return 0, &BindError{Interface: gl.Interface, Version: version, Err: err}
	}
	return version, nil
}

// bindCore binds the three globals every client needs.
func (g *Globals) bindCore() error {
	g.Compositor = &wl.Compositor{}
	v, err := g.Bind(wl.CompositorInterface, wl.CompositorVersion, g.Compositor)
	if err != nil {
		return err
	}
	g.Compositor.SetVersion(v)

	g.Shm = &wl.Shm{}
	if _, err := g.Bind(wl.ShmInterface, wl.ShmVersion, g.Shm); err != nil {
		return err
	}

	gl, ok := g.List.Find(wl.SeatInterface)
	if !ok {
		return &BindError{Interface: wl.SeatInterface, Err: ErrMissingGlobal}
	}
	g.Seat = wl.NewSeat(min(gl.Version, wl.SeatVersion))
	if _, err := g.bindGlobal(gl, wl.SeatVersion, g.Seat); err != nil {
		return err
	}
	return nil
}

// bindOptional binds the helper managers that only widen functionality.
func (g *Globals) bindOptional(features Features) {
	if _, ok := g.List.Find(cursorshape.ManagerInterface); ok {
		g.CursorShape = &cursorshape.Manager{}
		g.optional(cursorshape.ManagerInterface, cursorshape.ManagerVersion, g.CursorShape, func() { g.CursorShape = nil })
	} else {
		logger.Debug("Cursor shape protocol not available, using cursor theme")
	}
	if _, ok := g.List.Find(fractional.ManagerInterface); ok {
		g.FractionalScale = &fractional.Manager{}
		g.optional(fractional.ManagerInterface, fractional.ManagerVersion, g.FractionalScale, func() { g.FractionalScale = nil })
	}
	if _, ok := g.List.Find(xdgshell.WmBaseInterface); ok {
		g.WmBase = &xdgshell.WmBase{}
		g.optional(xdgshell.WmBaseInterface, xdgshell.WmBaseVersion, g.WmBase, func() { g.WmBase = nil })
	}
	if features.XdgOutput {
		if _, ok := g.List.Find(xdgoutput.ManagerInterface); ok {
			g.XdgOutput = &xdgoutput.Manager{}
			g.optional(xdgoutput.ManagerInterface, xdgoutput.ManagerVersion, g.XdgOutput, func() { g.XdgOutput = nil })
		} else {
			logger.Debug("xdg-output not available, logical geometry unknown")
		}
	}
	if features.Viewporter {
		if _, ok := g.List.Find(viewporter.Interface); ok {
			g.Viewporter = &viewporter.Viewporter{}
			g.optional(viewporter.Interface, viewporter.Version, g.Viewporter, func() { g.Viewporter = nil })
		}
	}
}

func (g *Globals) optional(iface string, version uint32, obj wire.Object, reset func()) {
	if _, err := g.Bind(iface, version, obj); err != nil {
		logger.Warn("Failed to bind optional global", "interface", iface, "error", err)
		reset()
		return
	}
	logger.Debug("Bound optional global", "interface", iface)
}

// bindVirtualKeyboard binds the virtual keyboard manager on first use.
func (g *Globals) bindVirtualKeyboard() error {
	if g.VirtualKeyboard != nil {
		return nil
	}
	m := &vkeyboard.Manager{}
	if _, err := g.Bind(vkeyboard.ManagerInterface, vkeyboard.ManagerVersion, m); err != nil {
		return fmt.Errorf("virtual keyboard: %w", err)
	}
	g.VirtualKeyboard = m
	return nil
}
