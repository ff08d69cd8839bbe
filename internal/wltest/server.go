// Package wltest provides an in-process fake compositor speaking the
// Wayland wire protocol over a socketpair. It understands enough of the
// core, layer-shell, session-lock and helper protocols to drive client
// state machines, and records every request for ordering assertions.
package wltest

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bnema/wlshellev/wire"
)

// OutputSpec describes a fake monitor.
type OutputSpec struct {
	Name        string
	Description string
	X, Y        int32
	Width       int32
	Height      int32
	Scale       int32
}

// Options configures the fake compositor.
type Options struct {
	Outputs          []OutputSpec
	SeatCapabilities uint32
	// Without lists global interfaces that are not advertised.
	Without []string
	// RefuseLock answers ext_session_lock_manager_v1.lock with finished.
	RefuseLock bool
}

// Request is one decoded client request.
type Request struct {
	Object    uint32
	Interface string
	Name      string
	Args      []any
}

// Is matches "interface.request".
func (r Request) Is(name string) bool {
	return r.Interface+"."+r.Name == name
}

func (r Request) String() string {
	return fmt.Sprintf("%s#%d.%s%v", r.Interface, r.Object, r.Name, r.Args)
}

type global struct {
	name    uint32
	iface   string
	version uint32
	output  *output
}

type output struct {
	spec   OutputSpec
	global uint32
}

type object struct {
	iface   string
	version uint32
	output  *output
	surface uint32
	// inert objects were bound from a global retracted in flight.
	inert bool
}

type role struct {
	kind       string
	obj        uint32
	xdgSurface uint32
	output     *output
	width      uint32
	height     uint32
	configured bool
}

// Server is the fake compositor.
type Server struct {
	t    testing.TB
	sock *net.UnixConn

	mu          sync.Mutex
	objects     map[uint32]*object
	globals     []*global
	retracted   map[uint32]*global
	nextName    uint32
	registries  []uint32
	roles       map[uint32]*role
	positioners map[uint32][2]int32
	xdgSurfaces map[uint32]uint32
	serial      uint32
	log         []Request
	errs        []string
	locked      bool
	opts        Options

	rbuf []byte
	fds  []int
	done chan struct{}
}

var defaultGlobals = []struct {
	iface   string
	version uint32
}{
	{"wl_compositor", 6},
	{"wl_shm", 1},
	{"wl_seat", 7},
	{"zwlr_layer_shell_v1", 4},
	{"ext_session_lock_manager_v1", 1},
	{"zxdg_output_manager_v1", 3},
	{"wp_fractional_scale_manager_v1", 1},
	{"wp_cursor_shape_manager_v1", 1},
	{"wp_viewporter", 1},
	{"xdg_wm_base", 3},
	{"zwp_virtual_keyboard_manager_v1", 1},
}

// New starts a fake compositor and returns it with a connected client.
// Both ends are closed when the test finishes.
func New(t testing.TB, opts Options) (*Server, *wire.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	client := fileConn(t, fds[0], "wltest-client")
	server := fileConn(t, fds[1], "wltest-server")

	s := &Server{
		t:           t,
		sock:        server,
		objects:     map[uint32]*object{wire.DisplayID: {iface: "wl_display", version: 1}},
		nextName:    1,
		retracted:   make(map[uint32]*global),
		roles:       make(map[uint32]*role),
		positioners: make(map[uint32][2]int32),
		xdgSurfaces: make(map[uint32]uint32),
		opts:        opts,
		done:        make(chan struct{}),
	}
	without := make(map[string]bool)
	for _, iface := range opts.Without {
		without[iface] = true
	}
	for _, g := range defaultGlobals {
		if !without[g.iface] {
			s.addGlobal(g.iface, g.version, nil)
		}
	}
	for _, spec := range opts.Outputs {
		s.addOutput(spec)
	}

	go s.serve()

	conn := wire.NewConn(client)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = server.Close()
		<-s.done
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range s.errs {
			t.Errorf("wltest: %s", e)
		}
		for _, fd := range s.fds {
			_ = unix.Close(fd)
		}
	})
	return s, conn
}

func fileConn(t testing.TB, fd int, name string) *net.UnixConn {
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		t.Fatalf("file conn: %v", err)
	}
	return c.(*net.UnixConn)
}

// Wait blocks until the client has closed its end and every request it
// sent has been processed.
func (s *Server) Wait() {
	s.t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		s.t.Fatal("wltest: client did not disconnect")
	}
}

func (s *Server) serve() {
	defer close(s.done)
	buf := make([]byte, 4096)
	oob := make([]byte, unix.CmsgSpace(28*4))
	for {
		n, oobn, _, _, err := s.sock.ReadMsgUnix(buf, oob)
		if err != nil || (n == 0 && oobn == 0) {
			return
		}
		if oobn > 0 {
			if scms, err := unix.ParseSocketControlMessage(oob[:oobn]); err == nil {
				for i := range scms {
					if fds, err := unix.ParseUnixRights(&scms[i]); err == nil {
						s.fds = append(s.fds, fds...)
					}
				}
			}
		}
		s.rbuf = append(s.rbuf, buf[:n]...)
		for len(s.rbuf) >= 8 {
			id := binary.LittleEndian.Uint32(s.rbuf[0:])
			word := binary.LittleEndian.Uint32(s.rbuf[4:])
			size := int(word >> 16)
			if size < 8 || len(s.rbuf) < size {
				break
			}
			body := make([]byte, size-8)
			copy(body, s.rbuf[8:size])
			s.rbuf = s.rbuf[size:]

			s.mu.Lock()
			s.handle(id, uint16(word&0xffff), body)
			s.mu.Unlock()
		}
	}
}

func (s *Server) failf(format string, args ...any) {
	s.errs = append(s.errs, fmt.Sprintf(format, args...))
}

func (s *Server) handle(id uint32, opcode uint16, body []byte) {
	obj, ok := s.objects[id]
	if !ok {
		s.failf("request on unknown object %d (opcode %d)", id, opcode)
		return
	}
	sigs := requests[obj.iface]
	if int(opcode) >= len(sigs) {
		s.failf("unknown opcode %d on %s", opcode, obj.iface)
		return
	}
	sig := sigs[opcode]
	args, err := s.decode(sig, body)
	if err != nil {
		s.failf("%s.%s: %v", obj.iface, sig.name, err)
		return
	}
	req := Request{Object: id, Interface: obj.iface, Name: sig.name, Args: args}
	s.log = append(s.log, req)
	s.apply(obj, req)
	if destructors[sig.name] {
		delete(s.objects, id)
		s.send(wire.DisplayID, 1, id)
	}
}

func (s *Server) decode(sig signature, body []byte) ([]any, error) {
	var args []any
	off := 0
	u32 := func() (uint32, error) {
		if len(body)-off < 4 {
			return 0, io.ErrUnexpectedEOF
		}
		v := binary.LittleEndian.Uint32(body[off:])
		off += 4
		return v, nil
	}
	lastString := ""
	for _, code := range sig.args {
		switch code {
		case 'u', 'o':
			v, err := u32()
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		case 'i':
			v, err := u32()
			if err != nil {
				return nil, err
			}
			args = append(args, int32(v))
		case 'f':
			v, err := u32()
			if err != nil {
				return nil, err
			}
			args = append(args, wire.Fixed(v).Float64())
		case 's', 'a':
			n, err := u32()
			if err != nil {
				return nil, err
			}
			padded := int(n) + (4-int(n)%4)%4
			if len(body)-off < padded {
				return nil, io.ErrUnexpectedEOF
			}
			if code == 's' {
				str := ""
				if n > 0 {
					str = string(body[off : off+int(n)-1])
				}
				lastString = str
				args = append(args, str)
			} else {
				args = append(args, append([]byte(nil), body[off:off+int(n)]...))
			}
			off += padded
		case 'n':
			v, err := u32()
			if err != nil {
				return nil, err
			}
			iface := sig.newIface
			if iface == "" {
				iface = lastString
			}
			if _, exists := s.objects[v]; exists {
				return nil, fmt.Errorf("new id %d already in use", v)
			}
			s.objects[v] = &object{iface: iface, version: 1}
			args = append(args, v)
		case 'h':
			if len(s.fds) == 0 {
				return nil, fmt.Errorf("missing file descriptor")
			}
			fd := s.fds[0]
			s.fds = s.fds[1:]
			args = append(args, readFD(fd))
		}
	}
	return args, nil
}

// readFD returns up to 64KiB of the file's contents and closes it.
func readFD(fd int) []byte {
	f := os.NewFile(uintptr(fd), "wltest-fd")
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.Size() > 64<<10 {
		return nil
	}
	buf := make([]byte, st.Size())
	n, _ := f.ReadAt(buf, 0)
	return buf[:n]
}

func (s *Server) send(obj uint32, opcode uint16, args ...any) {
	body := make([]byte, 0, 32)
	for _, a := range args {
		switch v := a.(type) {
		case uint32:
			body = binary.LittleEndian.AppendUint32(body, v)
		case int32:
			body = binary.LittleEndian.AppendUint32(body, uint32(v))
		case float64:
			body = binary.LittleEndian.AppendUint32(body, uint32(wire.FixedFrom(v)))
		case string:
			n := len(v) + 1
			body = binary.LittleEndian.AppendUint32(body, uint32(n))
			body = append(body, v...)
			body = append(body, 0)
			body = append(body, make([]byte, (4-n%4)%4)...)
		case []byte:
			body = binary.LittleEndian.AppendUint32(body, uint32(len(v)))
			body = append(body, v...)
			body = append(body, make([]byte, (4-len(v)%4)%4)...)
		default:
			s.failf("cannot encode %T", a)
			return
		}
	}
	msg := make([]byte, 8, 8+len(body))
	binary.LittleEndian.PutUint32(msg[0:], obj)
	binary.LittleEndian.PutUint32(msg[4:], uint32(8+len(body))<<16|uint32(opcode))
	msg = append(msg, body...)
	// The client may already be gone; that is not a failure.
	_, _ = s.sock.Write(msg)
}

func (s *Server) nextSerial() uint32 {
	s.serial++
	return s.serial
}

func (s *Server) addGlobal(iface string, version uint32, out *output) *global {
	g := &global{name: s.nextName, iface: iface, version: version, output: out}
	s.nextName++
	s.globals = append(s.globals, g)
	return g
}

func (s *Server) addOutput(spec OutputSpec) *global {
	if spec.Scale == 0 {
		spec.Scale = 1
	}
	out := &output{spec: spec}
	g := s.addGlobal("wl_output", 4, out)
	out.global = g.name
	return g
}

func (s *Server) globalByName(name uint32) *global {
	for _, g := range s.globals {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (s *Server) firstOutput() *output {
	for _, g := range s.globals {
		if g.output != nil {
			return g.output
		}
	}
	return nil
}

func (s *Server) outputOf(obj uint32) *output {
	if o, ok := s.objects[obj]; ok && o.output != nil {
		return o.output
	}
	return nil
}

func (s *Server) apply(obj *object, req Request) {
	a := req.Args
	switch req.Interface + "." + req.Name {
	case "wl_display.sync":
		cb := a[0].(uint32)
		s.send(cb, 0, s.nextSerial())
		delete(s.objects, cb)
		s.send(wire.DisplayID, 1, cb)

	case "wl_display.get_registry":
		reg := a[0].(uint32)
		s.registries = append(s.registries, reg)
		for _, g := range s.globals {
			s.send(reg, 0, g.name, g.iface, g.version)
		}

	case "wl_registry.bind":
		name, iface, version, id := a[0].(uint32), a[1].(string), a[2].(uint32), a[3].(uint32)
		g := s.globalByName(name)
		if g == nil && s.retracted[name] != nil && s.retracted[name].iface == iface {
			// Compositors ignore binds racing a global_remove.
			o := s.objects[id]
			o.version = version
			o.inert = true
			return
		}
		if g == nil || g.iface != iface {
			s.failf("bind of unknown global %d (%s)", name, iface)
			return
		}
		if version > g.version {
			s.failf("bind of %s at version %d above advertised %d", iface, version, g.version)
		}
		o := s.objects[id]
		o.version = version
		switch iface {
		case "wl_shm":
			s.send(id, 0, uint32(0))
			s.send(id, 0, uint32(1))
		case "wl_seat":
			s.send(id, 0, s.opts.SeatCapabilities)
			if version >= 2 {
				s.send(id, 1, "seat0")
			}
		case "wl_output":
			o.output = g.output
			s.sendOutputInfo(id, version, g.output)
		}

	case "wl_surface.commit":
		s.commit(req.Object)

	case "zwlr_layer_shell_v1.get_layer_surface":
		id, surface, out := a[0].(uint32), a[1].(uint32), a[2].(uint32)
		r := &role{kind: "layer", obj: id, output: s.outputOf(out)}
		if r.output == nil {
			r.output = s.firstOutput()
		}
		s.roles[surface] = r
		s.objects[id].surface = surface

	case "zwlr_layer_surface_v1.set_size":
		if r := s.roles[obj.surface]; r != nil {
			r.width, r.height = a[0].(uint32), a[1].(uint32)
		}

	case "ext_session_lock_manager_v1.lock":
		id := a[0].(uint32)
		if s.opts.RefuseLock {
			s.send(id, 1)
			return
		}
		s.locked = true
		s.send(id, 0)

	case "ext_session_lock_v1.get_lock_surface":
		id, surface, out := a[0].(uint32), a[1].(uint32), a[2].(uint32)
		r := &role{kind: "lock", obj: id, output: s.outputOf(out), configured: true}
		s.roles[surface] = r
		s.objects[id].surface = surface
		w, h := s.outputSize(r.output)
		s.send(id, 0, s.nextSerial(), w, h)

	case "ext_session_lock_v1.unlock_and_destroy":
		s.locked = false

	case "zxdg_output_manager_v1.get_xdg_output":
		id, outObj := a[0].(uint32), a[1].(uint32)
		out := s.outputOf(outObj)
		if out == nil && s.objects[outObj] != nil && s.objects[outObj].inert {
			return
		}
		if out == nil {
			s.failf("get_xdg_output for unknown output %d", outObj)
			return
		}
		sp := out.spec
		s.send(id, 0, sp.X, sp.Y)
		s.send(id, 1, sp.Width/sp.Scale, sp.Height/sp.Scale)
		if obj.version >= 2 {
			s.send(id, 3, sp.Name)
			s.send(id, 4, sp.Description)
		}
		if obj.version < 3 {
			s.send(id, 2)
		}

	case "xdg_wm_base.get_xdg_surface":
		s.xdgSurfaces[a[0].(uint32)] = a[1].(uint32)

	case "xdg_positioner.set_size":
		s.positioners[req.Object] = [2]int32{a[0].(int32), a[1].(int32)}

	case "xdg_surface.get_popup":
		id, positioner := a[0].(uint32), a[2].(uint32)
		surface := s.xdgSurfaces[req.Object]
		size := s.positioners[positioner]
		s.roles[surface] = &role{
			kind:       "popup",
			obj:        id,
			xdgSurface: req.Object,
			width:      uint32(size[0]),
			height:     uint32(size[1]),
		}
		s.objects[id].surface = surface

	case "wp_fractional_scale_manager_v1.get_fractional_scale",
		"wp_viewporter.get_viewport":
		s.objects[a[0].(uint32)].surface = a[1].(uint32)
	}
}

func (s *Server) outputSize(out *output) (uint32, uint32) {
	if out == nil {
		return 1920, 1080
	}
	return uint32(out.spec.Width), uint32(out.spec.Height)
}

func (s *Server) sendOutputInfo(id, version uint32, out *output) {
	sp := out.spec
	s.send(id, 0, sp.X, sp.Y, int32(0), int32(0), int32(0), "wltest", "virtual", int32(0))
	s.send(id, 1, uint32(1), sp.Width, sp.Height, int32(60000))
	if version >= 2 {
		s.send(id, 3, sp.Scale)
	}
	if version >= 4 {
		s.send(id, 4, sp.Name)
		s.send(id, 5, sp.Description)
	}
	if version >= 2 {
		s.send(id, 2)
	}
}

// commit sends the initial configure for roles that wait for a first
// commit.
func (s *Server) commit(surface uint32) {
	r := s.roles[surface]
	if r == nil || r.configured {
		return
	}
	r.configured = true
	switch r.kind {
	case "layer":
		w, h := r.width, r.height
		ow, oh := s.outputSize(r.output)
		if w == 0 {
			w = ow
		}
		if h == 0 {
			h = oh
		}
		s.send(r.obj, 0, s.nextSerial(), w, h)
	case "popup":
		s.send(r.obj, 0, int32(0), int32(0), int32(r.width), int32(r.height))
		s.send(r.xdgSurface, 0, s.nextSerial())
	}
}

func (s *Server) objectsOf(iface string) []uint32 {
	var ids []uint32
	for id, o := range s.objects {
		if o.iface == iface {
			ids = append(ids, id)
		}
	}
	return ids
}

// Requests returns a copy of every request processed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.log...)
}

// Find returns the requests matching "interface.request".
func (s *Server) Find(name string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Is(name) {
			out = append(out, r)
		}
	}
	return out
}

// Names renders the request log as "interface.request" strings.
func (s *Server) Names() []string {
	reqs := s.Requests()
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Interface + "." + r.Name
	}
	return names
}

// Dump is a debugging aid for failed assertions.
func (s *Server) Dump() string {
	var b strings.Builder
	for _, r := range s.Requests() {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Locked reports whether the session is currently locked.
func (s *Server) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Objects returns the live object ids of an interface.
func (s *Server) Objects(iface string) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objectsOf(iface)
}

// AddOutput hot-plugs a monitor and returns its global name.
func (s *Server) AddOutput(spec OutputSpec) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.addOutput(spec)
	for _, reg := range s.registries {
		s.send(reg, 0, g.name, g.iface, g.version)
	}
	return g.name
}

// OutputGlobals returns the global names of all current outputs.
func (s *Server) OutputGlobals() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []uint32
	for _, g := range s.globals {
		if g.output != nil {
			names = append(names, g.name)
		}
	}
	return names
}

// RemoveGlobal retracts a global.
func (s *Server) RemoveGlobal(name uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.globals {
		if g.name == name {
			s.retracted[name] = g
			s.globals = append(s.globals[:i], s.globals[i+1:]...)
			break
		}
	}
	for _, reg := range s.registries {
		s.send(reg, 1, name)
	}
}

// SetSeatCapabilities announces new capabilities on every bound seat.
func (s *Server) SetSeatCapabilities(caps uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.SeatCapabilities = caps
	for _, id := range s.objectsOf("wl_seat") {
		s.send(id, 0, caps)
	}
}

// PointerEnter sends wl_pointer.enter on surface to every pointer.
func (s *Server) PointerEnter(surface uint32, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_pointer") {
		s.send(id, 0, serial, surface, x, y)
	}
}

func (s *Server) PointerLeave(surface uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_pointer") {
		s.send(id, 1, serial, surface)
	}
}

func (s *Server) PointerMotion(time uint32, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.objectsOf("wl_pointer") {
		s.send(id, 2, time, x, y)
	}
}

func (s *Server) PointerButton(time, button, state uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_pointer") {
		s.send(id, 3, serial, time, button, state)
	}
}

func (s *Server) TouchDown(surface uint32, touchID int32, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_touch") {
		s.send(id, 0, serial, uint32(0), surface, touchID, x, y)
	}
}

func (s *Server) TouchUp(touchID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_touch") {
		s.send(id, 1, serial, uint32(0), touchID)
	}
}

func (s *Server) KeyboardEnter(surface uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_keyboard") {
		s.send(id, 1, serial, surface, []byte{})
	}
}

func (s *Server) Key(time, key, state uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	serial := s.nextSerial()
	for _, id := range s.objectsOf("wl_keyboard") {
		s.send(id, 3, serial, time, key, state)
	}
}

// PreferredScale sends wp_fractional_scale_v1.preferred_scale for surface.
func (s *Server) PreferredScale(surface, scale uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.objects {
		if o.iface == "wp_fractional_scale_v1" && o.surface == surface {
			s.send(id, 0, scale)
		}
	}
}

// Configure sends a fresh configure for the role on surface.
func (s *Server) Configure(surface, width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roles[surface]
	if r == nil {
		s.failf("configure for surface %d without role", surface)
		return
	}
	switch r.kind {
	case "layer", "lock":
		s.send(r.obj, 0, s.nextSerial(), width, height)
	case "popup":
		s.send(r.obj, 0, int32(0), int32(0), int32(width), int32(height))
		s.send(r.xdgSurface, 0, s.nextSerial())
	}
}

// Close sends closed (layer surface) or popup_done (popup) for surface.
func (s *Server) Close(surface uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roles[surface]
	if r == nil {
		s.failf("close for surface %d without role", surface)
		return
	}
	s.send(r.obj, 1)
}

// FinishLock sends ext_session_lock_v1.finished on every lock object.
func (s *Server) FinishLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.objectsOf("ext_session_lock_v1") {
		s.send(id, 1)
	}
}
