package ev

import (
	"fmt"

	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/protocol/fractional"
	"github.com/bnema/wlshellev/protocol/xdgshell"
)

// PopupRole is an xdg_popup parented to a layer surface.
type PopupRole struct {
	xdgSurface *xdgshell.Surface
	popup      *xdgshell.Popup

	width, height uint32
}

func (r *PopupRole) AckConfigure(serial uint32) error {
	return r.xdgSurface.AckConfigure(serial)
}

func (r *PopupRole) Destroy() error {
	err := r.popup.Destroy()
	if xerr := r.xdgSurface.Destroy(); err == nil {
		err = xerr
	}
	return err
}

// Popup returns the xdg_popup so callers can grab input.
func (r *PopupRole) Popup() *xdgshell.Popup { return r.popup }

// newPopup creates a popup unit. It returns nil without error when popups
// are unavailable.
func (ws *WindowState[T]) newPopup(parentID UnitID, settings PopUpSettings) (*Unit[T], error) {
	wm := ws.globals.WmBase
	if wm == nil {
		logger.Warn("xdg_wm_base not available, popup dropped", "parent", parentID)
		return nil, nil
	}
	parent := ws.Unit(parentID)
	if parent == nil || parent.dead {
		logger.Warn("Popup parent does not exist", "parent", parentID)
		return nil, nil
	}
	pp, ok := parent.role.(PopupParent)
	if !ok {
		panic(fmt.Sprintf("ev: unit %d has role %T which cannot parent popups", parentID, parent.role))
	}
	if settings.Width <= 0 || settings.Height <= 0 {
		panic(fmt.Sprintf("ev: popup size %dx%d must be positive", settings.Width, settings.Height))
	}

	surface, err := ws.globals.Compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("%w: create popup surface: %w", ErrDispatch, err)
	}
	positioner, err := wm.CreatePositioner()
	if err != nil {
		return nil, fmt.Errorf("%w: create positioner: %w", ErrDispatch, err)
	}
	defer func() { _ = positioner.Destroy() }()
	if err := positioner.SetSize(settings.Width, settings.Height); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	if err := positioner.SetAnchorRect(settings.X, settings.Y, 1, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	_ = positioner.SetAnchor(xdgshell.AnchorTopLeft)
	_ = positioner.SetGravity(xdgshell.AnchorBottomRight)

	xs, err := wm.GetXdgSurface(surface)
	if err != nil {
		return nil, fmt.Errorf("%w: get xdg surface: %w", ErrDispatch, err)
	}
	popup, err := xs.GetPopup(nil, positioner)
	if err != nil {
		return nil, fmt.Errorf("%w: get popup: %w", ErrDispatch, err)
	}
	if err := pp.GetPopup(popup); err != nil {
		return nil, fmt.Errorf("%w: parent popup: %w", ErrDispatch, err)
	}

	u := &Unit[T]{id: nextUnitID(), surface: surface, output: parent.output, scale: fractional.ScaleDenominator}
	role := &PopupRole{xdgSurface: xs, popup: popup}
	u.role = role
	sink := RoleSink{sink: ws, id: u.id}

	popup.SetConfigureHandler(func(e xdgshell.PopupConfigureEvent) {
		role.width, role.height = uint32(e.Width), uint32(e.Height)
	})
	xs.SetConfigureHandler(func(e xdgshell.SurfaceConfigureEvent) {
		sink.Configure(e.Serial, role.width, role.height)
	})
	popup.SetPopupDoneHandler(func(xdgshell.PopupDoneEvent) {
		sink.Closed()
	})

	ws.attachHelpers(u)
	ws.units = append(ws.units, u)
	ws.bySurface[surface.ID()] = u.id
	ws.popups[u.id] = parentID

	if err := surface.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrDispatch, err)
	}
	logger.Debug("Popup created", "id", u.id, "parent", parentID)
	return u, nil
}

// PopupParentOf returns the parent of a popup unit.
func (ws *WindowState[T]) PopupParentOf(id UnitID) (UnitID, bool) {
	p, ok := ws.popups[id]
	return p, ok
}
