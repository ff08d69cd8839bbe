package ev

import (
	"sync/atomic"

	"github.com/bnema/wlshellev/protocol/fractional"
	"github.com/bnema/wlshellev/protocol/viewporter"
	"github.com/bnema/wlshellev/protocol/wl"
)

// UnitID identifies a unit for the life of the process.
type UnitID uint64

var lastUnitID atomic.Uint64

func nextUnitID() UnitID {
	return UnitID(lastUnitID.Add(1))
}

// XdgInfo is the logical geometry of the output a unit is placed on.
type XdgInfo struct {
	LogicalPosition [2]int32 `json:"logical_position"`
	LogicalSize     [2]int32 `json:"logical_size"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
}

// Unit is one managed surface: the wl_surface, its shell role, its buffer,
// scale and output metadata, plus a caller binding.
type Unit[T any] struct {
	id      UnitID
	surface *wl.Surface
	role    Role
	output  *Output

	size       [2]uint32
	configured bool
	buffer     *wl.Buffer

	xdgInfo    *XdgInfo
	fractional *fractional.Scale
	scale      uint32
	viewport   *viewporter.Viewport

	binding    T
	hasBinding bool

	dead bool
}

func (u *Unit[T]) ID() UnitID           { return u.id }
func (u *Unit[T]) Surface() *wl.Surface { return u.surface }
func (u *Unit[T]) Role() Role           { return u.role }

// Output is nil when the compositor chose the placement.
func (u *Unit[T]) Output() *Output { return u.output }

// Size is (0, 0) until the first configure.
func (u *Unit[T]) Size() (uint32, uint32) { return u.size[0], u.size[1] }

func (u *Unit[T]) Configured() bool   { return u.configured }
func (u *Unit[T]) Buffer() *wl.Buffer { return u.buffer }

// Alive is false once the unit is scheduled for removal.
func (u *Unit[T]) Alive() bool { return !u.dead }

func (u *Unit[T]) XdgInfo() (XdgInfo, bool) {
	if u.xdgInfo == nil {
		return XdgInfo{}, false
	}
	return *u.xdgInfo, true
}

// Scale returns the preferred fractional scale numerator (120 == 1.0).
func (u *Unit[T]) Scale() uint32 { return u.scale }

func (u *Unit[T]) ScaleFloat() float64 {
	return float64(u.scale) / fractional.ScaleDenominator
}

func (u *Unit[T]) Binding() (T, bool) {
	return u.binding, u.hasBinding
}

func (u *Unit[T]) SetBinding(v T) {
	u.binding = v
	u.hasBinding = true
}

// BindingPtr returns a pointer to the binding, or nil when unset.
func (u *Unit[T]) BindingPtr() *T {
	if !u.hasBinding {
		return nil
	}
	return &u.binding
}

func (u *Unit[T]) ClearBinding() {
	var zero T
	u.binding = zero
	u.hasBinding = false
}

// destroy releases protocol objects, role first and surface last.
func (u *Unit[T]) destroy() {
	if u.role != nil {
		_ = u.role.Destroy()
		u.role = nil
	}
	if u.viewport != nil {
		_ = u.viewport.Destroy()
		u.viewport = nil
	}
	if u.fractional != nil {
		_ = u.fractional.Destroy()
		u.fractional = nil
	}
	if u.buffer != nil {
		_ = u.buffer.Destroy()
		u.buffer = nil
	}
	if u.surface != nil {
		_ = u.surface.Destroy()
		u.surface = nil
	}
}
