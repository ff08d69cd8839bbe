package ev

import (
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/protocol/xdgoutput"
)

// OutputInfo is the metadata a compositor reports for a monitor.
type OutputInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	X           int32  `json:"x"`
	Y           int32  `json:"y"`
	Width       int32  `json:"width"`
	Height      int32  `json:"height"`
	// Refresh is in mHz.
	Refresh int32 `json:"refresh"`
	Scale   int32 `json:"scale"`

	Logical    XdgInfo `json:"logical"`
	HasLogical bool    `json:"has_logical"`
}

// Output is one wl_output global the client has bound.
type Output struct {
	GlobalName uint32
	Handle     *wl.Output
	Info       OutputInfo

	xdg     *xdgoutput.Output
	removed bool
}

// newOutput binds the wl_output global and starts collecting its metadata.
func newOutput(g *Globals, gl Global) (*Output, error) {
	handle := wl.NewOutput(min(gl.Version, wl.OutputVersion))
	if _, err := g.bindGlobal(gl, wl.OutputVersion, handle); err != nil {
		return nil, err
	}
	o := &Output{GlobalName: gl.Name, Handle: handle, Info: OutputInfo{Scale: 1}}

	handle.SetGeometryHandler(func(e wl.OutputGeometryEvent) {
		o.Info.X, o.Info.Y = e.X, e.Y
		o.Info.Make, o.Info.Model = e.Make, e.Model
	})
	handle.SetModeHandler(func(e wl.OutputModeEvent) {
		if e.Flags&wl.OutputModeCurrent == 0 {
			return
		}
		o.Info.Width, o.Info.Height, o.Info.Refresh = e.Width, e.Height, e.Refresh
	})
	handle.SetScaleHandler(func(e wl.OutputScaleEvent) {
		o.Info.Scale = e.Factor
	})
	handle.SetNameHandler(func(e wl.OutputNameEvent) {
		o.Info.Name = e.Name
	})
	handle.SetDescriptionHandler(func(e wl.OutputDescriptionEvent) {
		o.Info.Description = e.Description
	})
	return o, nil
}

// watchXdg requests xdg-output info; notify runs after every update.
func (o *Output) watchXdg(m *xdgoutput.Manager, notify func(XdgInfoKind)) {
	if m == nil || o.xdg != nil {
		return
	}
	xo, err := m.GetXdgOutput(o.Handle)
	if err != nil {
		logger.Warn("Failed to get xdg output", "output", o.GlobalName, "error", err)
		return
	}
	o.xdg = xo

	xo.SetLogicalPositionHandler(func(e xdgoutput.LogicalPositionEvent) {
		o.Info.Logical.LogicalPosition = [2]int32{e.X, e.Y}
		o.Info.HasLogical = true
		notify(XdgInfoPosition)
	})
	xo.SetLogicalSizeHandler(func(e xdgoutput.LogicalSizeEvent) {
		o.Info.Logical.LogicalSize = [2]int32{e.Width, e.Height}
		o.Info.HasLogical = true
		notify(XdgInfoSize)
	})
	xo.SetNameHandler(func(e xdgoutput.NameEvent) {
		o.Info.Logical.Name = e.Name
		notify(XdgInfoName)
	})
	xo.SetDescriptionHandler(func(e xdgoutput.DescriptionEvent) {
		o.Info.Logical.Description = e.Description
		notify(XdgInfoDescription)
	})
}

// release destroys the protocol objects of a removed output.
func (o *Output) release() {
	o.removed = true
	if o.xdg != nil {
		_ = o.xdg.Destroy()
		o.xdg = nil
	}
	if o.Handle.Version() >= 3 {
		_ = o.Handle.Release()
	} else {
		o.Handle.Conn().Forget(o.Handle)
	}
}

// DisplayName prefers the compositor connector name, then the xdg name.
func (o *Output) DisplayName() string {
	if o.Info.Name != "" {
		return o.Info.Name
	}
	return o.Info.Logical.Name
}
