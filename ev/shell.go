package ev

import (
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/protocol/xdgshell"
)

// Placement decides which units exist at startup and on output hot-plug.
type Placement int

const (
	// PlaceSingle creates one unit the compositor places.
	PlaceSingle Placement = iota
	// PlacePerOutput creates one unit per output, including hot-plugged ones.
	PlacePerOutput
)

// Features lists the optional globals a shell wants bound.
type Features struct {
	XdgOutput  bool
	Viewporter bool
}

// Shell is the protocol-specific half of a WindowState: layer shell or
// session lock.
type Shell interface {
	// Bind binds the shell's own globals. Missing required globals must be
	// reported as *BindError. post queues an untagged message.
	Bind(g *Globals, post func(DispatchMessage)) error
	// NewRole assigns the shell role to a fresh surface.
	NewRole(req RoleRequest) (Role, error)
	// DefaultOptions are the role options for units created by placement.
	DefaultOptions() any
	Placement() Placement
	Features() Features
	// Exit runs before the loop returns after an exit request.
	Exit(g *Globals) error
}

// Role is the shell role object attached to a unit's surface.
type Role interface {
	AckConfigure(serial uint32) error
	Destroy() error
}

// PopupParent is implemented by roles that can parent xdg popups.
type PopupParent interface {
	GetPopup(popup *xdgshell.Popup) error
}

// RoleRequest carries what a shell needs to create a role.
type RoleRequest struct {
	Surface *wl.Surface
	// Output is nil for compositor-placed units.
	Output  *Output
	Options any
	Sink    RoleSink
}

// configureSink is implemented by WindowState.
type configureSink interface {
	configure(id UnitID, serial, width, height uint32)
	closed(id UnitID)
}

// RoleSink routes role events back to the owning unit.
type RoleSink struct {
	sink configureSink
	id   UnitID
}

// Configure acks serial through the role, then records the size. Roles
// must call it from their configure handler instead of acking themselves.
func (s RoleSink) Configure(serial, width, height uint32) {
	s.sink.configure(s.id, serial, width, height)
}

// Closed marks the unit for removal.
func (s RoleSink) Closed() {
	s.sink.closed(s.id)
}

// Unit returns the id of the unit this sink belongs to.
func (s RoleSink) Unit() UnitID {
	return s.id
}
