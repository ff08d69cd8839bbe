// Package wl contains client bindings for the core Wayland protocol objects
// used by layer-shell and session-lock clients.
package wl

import "github.com/bnema/wlshellev/wire"

// Registry is wl_registry.
type Registry struct {
	wire.Proxy
	globalHandler       func(RegistryGlobalEvent)
	globalRemoveHandler func(RegistryGlobalRemoveEvent)
}

type RegistryGlobalEvent struct {
	Name      uint32
	Interface string
	Version   uint32
}

type RegistryGlobalRemoveEvent struct {
	Name uint32
}

// GetRegistry creates the registry object for c.
func GetRegistry(c *wire.Conn) (*Registry, error) {
	r := &Registry{}
	if err := c.GetRegistry(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Bind binds the global name to obj, registering obj on the connection.
func (r *Registry) Bind(name uint32, iface string, version uint32, obj wire.Object) error {
	id := r.Conn().Register(obj)
	return r.Send(0, func(req *wire.Request) {
		req.PutUint32(name).PutString(iface).PutUint32(version).PutUint32(id)
	})
}

func (r *Registry) SetGlobalHandler(f func(RegistryGlobalEvent)) {
	r.globalHandler = f
}

func (r *Registry) SetGlobalRemoveHandler(f func(RegistryGlobalRemoveEvent)) {
	r.globalRemoveHandler = f
}

func (r *Registry) Dispatch(e *wire.Event) {
	switch e.Opcode {
	case 0:
		ev := RegistryGlobalEvent{Name: e.Uint32(), Interface: e.String(), Version: e.Uint32()}
		if e.Err() == nil && r.globalHandler != nil {
			r.globalHandler(ev)
		}
	case 1:
		ev := RegistryGlobalRemoveEvent{Name: e.Uint32()}
		if e.Err() == nil && r.globalRemoveHandler != nil {
			r.globalRemoveHandler(ev)
		}
	}
}

// Callback is wl_callback.
type Callback struct {
	wire.Proxy
	doneHandler func(CallbackDoneEvent)
}

type CallbackDoneEvent struct {
	CallbackData uint32
}

func (c *Callback) SetDoneHandler(f func(CallbackDoneEvent)) {
	c.doneHandler = f
}

func (c *Callback) Dispatch(e *wire.Event) {
	if e.Opcode != 0 {
		return
	}
	ev := CallbackDoneEvent{CallbackData: e.Uint32()}
	// The compositor destroys callbacks after done.
	c.Conn().Forget(c)
	if e.Err() == nil && c.doneHandler != nil {
		c.doneHandler(ev)
	}
}
