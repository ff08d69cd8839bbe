package layershell

import (
	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/protocol/wlrlayer"
	"github.com/bnema/wlshellev/protocol/xdgshell"
)

// Surface is the layer role of a unit. Every setter sends its request and
// commits; the compositor answers later with a configure.
type Surface struct {
	layer     *wlrlayer.LayerSurface
	surface   *wl.Surface
	requested [2]uint32
}

// Of returns the layer surface behind a unit role.
func Of(role ev.Role) (*Surface, bool) {
	s, ok := role.(*Surface)
	return s, ok
}

func outputHandle(o *ev.Output) *wl.Output {
	if o == nil {
		return nil
	}
	return o.Handle
}

// apply sends the initial state without committing; the unit commit
// follows.
func (s *Surface) apply(o Options) error {
	if o.Size != ([2]uint32{}) {
		if err := s.layer.SetSize(o.Size[0], o.Size[1]); err != nil {
			return err
		}
	}
	if o.Anchor != 0 {
		if err := s.layer.SetAnchor(uint32(o.Anchor)); err != nil {
			return err
		}
	}
	if o.Margin != (Margin{}) {
		if err := s.layer.SetMargin(o.Margin.Top, o.Margin.Right, o.Margin.Bottom, o.Margin.Left); err != nil {
			return err
		}
	}
	if o.ExclusiveZone != 0 {
		if err := s.layer.SetExclusiveZone(o.ExclusiveZone); err != nil {
			return err
		}
	}
	if o.Keyboard != KeyboardNone {
		if err := s.layer.SetKeyboardInteractivity(uint32(o.Keyboard)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Surface) AckConfigure(serial uint32) error {
	return s.layer.AckConfigure(serial)
}

func (s *Surface) Destroy() error {
	return s.layer.Destroy()
}

// GetPopup parents an xdg popup to this surface.
func (s *Surface) GetPopup(popup *xdgshell.Popup) error {
	return s.layer.GetPopup(popup)
}

// LayerSurface exposes the protocol object.
func (s *Surface) LayerSurface() *wlrlayer.LayerSurface { return s.layer }

func (s *Surface) commit(err error) error {
	if err != nil {
		return err
	}
	return s.surface.Commit()
}

func (s *Surface) SetAnchor(a Anchor) error {
	return s.commit(s.layer.SetAnchor(uint32(a)))
}

func (s *Surface) SetMargin(m Margin) error {
	return s.commit(s.layer.SetMargin(m.Top, m.Right, m.Bottom, m.Left))
}

// SetSize also becomes the fallback for zero dimensions in later
// configures.
func (s *Surface) SetSize(width, height uint32) error {
	s.requested = [2]uint32{width, height}
	return s.commit(s.layer.SetSize(width, height))
}

func (s *Surface) SetExclusiveZone(zone int32) error {
	return s.commit(s.layer.SetExclusiveZone(zone))
}

// SetLayer needs layer shell version 2.
func (s *Surface) SetLayer(l Layer) error {
	return s.commit(s.layer.SetLayer(uint32(l)))
}

func (s *Surface) SetKeyboardInteractivity(k KeyboardInteractivity) error {
	return s.commit(s.layer.SetKeyboardInteractivity(uint32(k)))
}
