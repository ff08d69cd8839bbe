// Package fractional binds fractional-scale-v1.
package fractional

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	ManagerInterface = "wp_fractional_scale_manager_v1"
	ManagerVersion   = 1
)

// ScaleDenominator is the fixed denominator of preferred_scale.
const ScaleDenominator = 120

// Manager is wp_fractional_scale_manager_v1.
type Manager struct {
	wire.Proxy
}

func (m *Manager) Dispatch(*wire.Event) {}

func (m *Manager) Destroy() error {
	err := m.Send(0, nil)
	m.Conn().Forget(m)
	return err
}

func (m *Manager) GetFractionalScale(surface *wl.Surface) (*Scale, error) {
	s := &Scale{}
	id := m.Conn().Register(s)
	if err := m.Send(1, func(r *wire.Request) { r.PutUint32(id).PutObject(surface) }); err != nil {
		m.Conn().Forget(s)
		return nil, err
	}
	return s, nil
}

// Scale is wp_fractional_scale_v1.
type Scale struct {
	wire.Proxy
	preferredScaleHandler func(PreferredScaleEvent)
}

// PreferredScaleEvent reports the scale numerator over 120.
type PreferredScaleEvent struct {
	Scale uint32
}

func (s *Scale) Destroy() error {
	err := s.Send(0, nil)
	s.Conn().Forget(s)
	return err
}

func (s *Scale) SetPreferredScaleHandler(f func(PreferredScaleEvent)) { s.preferredScaleHandler = f }

func (s *Scale) Dispatch(e *wire.Event) {
	if e.Opcode != 0 {
		return
	}
	ev := PreferredScaleEvent{Scale: e.Uint32()}
	if e.Err() == nil && s.preferredScaleHandler != nil {
		s.preferredScaleHandler(ev)
	}
}
