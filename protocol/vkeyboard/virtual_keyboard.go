// Package vkeyboard binds virtual-keyboard-unstable-v1.
package vkeyboard

import (
	"fmt"
	"os"

	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const (
	ManagerInterface = "zwp_virtual_keyboard_manager_v1"
	ManagerVersion   = 1
)

// Manager is zwp_virtual_keyboard_manager_v1.
type Manager struct {
	wire.Proxy
}

func (m *Manager) Dispatch(*wire.Event) {}

// CreateVirtualKeyboard creates a virtual keyboard on seat.
func (m *Manager) CreateVirtualKeyboard(seat *wl.Seat) (*Keyboard, error) {
	k := &Keyboard{}
	id := m.Conn().Register(k)
	if err := m.Send(0, func(r *wire.Request) { r.PutObject(seat).PutUint32(id) }); err != nil {
		m.Conn().Forget(k)
		return nil, err
	}
	return k, nil
}

// Keyboard is zwp_virtual_keyboard_v1.
type Keyboard struct {
	wire.Proxy
}

func (k *Keyboard) Dispatch(*wire.Event) {}

// Keymap uploads a keymap. size includes the trailing NUL.
func (k *Keyboard) Keymap(format uint32, file *os.File, size uint32) error {
	if file == nil {
		return fmt.Errorf("keymap file is nil")
	}
	return k.Send(0, func(r *wire.Request) {
		r.PutUint32(format).PutFD(int(file.Fd())).PutUint32(size)
	})
}

// Key sends a raw evdev key code; no +8 offset.
func (k *Keyboard) Key(time, key, state uint32) error {
	return k.Send(1, func(r *wire.Request) { r.PutUint32(time).PutUint32(key).PutUint32(state) })
}

func (k *Keyboard) Modifiers(depressed, latched, locked, group uint32) error {
	return k.Send(2, func(r *wire.Request) {
		r.PutUint32(depressed).PutUint32(latched).PutUint32(locked).PutUint32(group)
	})
}

func (k *Keyboard) Destroy() error {
	err := k.Send(3, nil)
	k.Conn().Forget(k)
	return err
}
