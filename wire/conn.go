// Package wire implements the Wayland wire protocol for clients: the socket,
// the object table, request encoding, event decoding and file descriptor
// passing.
//
// A Conn is not safe for concurrent use. One goroutine owns it and performs
// all sends and dispatches.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"
)

// DisplayID is the object id of wl_display.
const DisplayID = 1

const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1
)

// Object is a protocol object living in a connection's object table.
// Protocol bindings embed Proxy and implement Dispatch.
type Object interface {
	ID() uint32
	Dispatch(e *Event)
	proxy() *Proxy
}

// Proxy carries the identity of a client-side protocol object.
type Proxy struct {
	conn *Conn
	id   uint32
}

func (p *Proxy) ID() uint32 {
	if p == nil {
		return 0
	}
	return p.id
}

// Conn returns the connection the object was registered on.
func (p *Proxy) Conn() *Conn {
	return p.conn
}

func (p *Proxy) proxy() *Proxy { return p }

// Send encodes and writes a request built by fn against this object.
func (p *Proxy) Send(opcode uint16, fn func(r *Request)) error {
	if p.conn == nil {
		return ErrNotRegistered
	}
	r := NewRequest(p.id, opcode)
	if fn != nil {
		fn(r)
	}
	return p.conn.Send(r)
}

// ProtocolError is a fatal error reported by the compositor through
// wl_display.error.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: object %d, code %d: %s", e.Object, e.Code, e.Message)
}

var (
	ErrNotRegistered = errors.New("wire: object is not registered on a connection")
	ErrClosed        = errors.New("wire: connection closed")
)

// Conn is a client connection to a Wayland compositor.
type Conn struct {
	sock    *net.UnixConn
	objects map[uint32]Object
	// zombies are ids destroyed by the client and awaiting delete_id.
	zombies map[uint32]struct{}
	nextID  uint32

	rbuf []byte
	fds  []int
	oob  []byte

	err    error
	closed bool
}

// NewConn wraps an already connected socket.
func NewConn(sock *net.UnixConn) *Conn {
	return &Conn{
		sock:    sock,
		objects: make(map[uint32]Object),
		zombies: make(map[uint32]struct{}),
		nextID:  DisplayID + 1,
		oob:     make([]byte, oobSpace),
	}
}

// Dial connects to the compositor. A non-empty WAYLAND_SOCKET takes
// precedence; otherwise name, WAYLAND_DISPLAY or "wayland-0" is resolved
// relative to XDG_RUNTIME_DIR unless absolute.
func Dial(name string) (*Conn, error) {
	if s := os.Getenv("WAYLAND_SOCKET"); s != "" && name == "" {
		fd, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid WAYLAND_SOCKET %q: %w", s, err)
		}
		f := os.NewFile(uintptr(fd), "wayland-socket")
		c, err := net.FileConn(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to use WAYLAND_SOCKET: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			_ = c.Close()
			return nil, errors.New("WAYLAND_SOCKET is not a unix socket")
		}
		return NewConn(uc), nil
	}

	path, err := SocketPath(name)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland: %w", err)
	}
	return NewConn(c), nil
}

// SocketPath resolves the compositor socket path for name.
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
		if name == "" {
			name = "wayland-0"
		}
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runDir, name), nil
}

// Close closes the socket and any received file descriptors nobody claimed.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, fd := range c.fds {
		closeFD(fd)
	}
	c.fds = nil
	return c.sock.Close()
}

// Register allocates an id for o and adds it to the object table.
func (c *Conn) Register(o Object) uint32 {
	p := o.proxy()
	id := c.nextID
	c.nextID++
	p.conn = c
	p.id = id
	c.objects[id] = o
	return id
}

// Lookup returns the live object with the given id.
func (c *Conn) Lookup(id uint32) (Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Forget removes an object after a destructor request. Events still in
// flight for it are dropped until the compositor confirms with delete_id.
func (c *Conn) Forget(o Object) {
	id := o.ID()
	if id == 0 {
		return
	}
	delete(c.objects, id)
	c.zombies[id] = struct{}{}
}

// Send writes a request to the socket.
func (c *Conn) Send(r *Request) error {
	if c.closed {
		return ErrClosed
	}
	if c.err != nil {
		return c.err
	}
	b, err := r.bytes()
	if err != nil {
		return err
	}
	return c.write(b, r.fds)
}

// GetRegistry sends wl_display.get_registry for an already constructed
// registry object.
func (c *Conn) GetRegistry(registry Object) error {
	id := c.Register(registry)
	return c.Send(NewRequest(DisplayID, displayGetRegistry).PutUint32(id))
}

// Sync sends wl_display.sync; done runs when the compositor has processed
// every request sent before it.
func (c *Conn) Sync(done func(serial uint32)) error {
	cb := &syncCallback{done: done}
	id := c.Register(cb)
	return c.Send(NewRequest(DisplayID, displaySync).PutUint32(id))
}

// Roundtrip blocks until the compositor has processed all requests sent so
// far, dispatching every event that arrives meanwhile.
func (c *Conn) Roundtrip() error {
	finished := false
	if err := c.Sync(func(uint32) { finished = true }); err != nil {
		return err
	}
	for !finished {
		if _, err := c.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch blocks until at least one event is read, then dispatches every
// complete event buffered. It returns the number of events dispatched.
func (c *Conn) Dispatch() (int, error) {
	return c.dispatch(time.Time{})
}

// DispatchTimeout is Dispatch with a bound on how long to wait for the
// socket. A timeout is not an error; it dispatches zero events.
func (c *Conn) DispatchTimeout(d time.Duration) (int, error) {
	return c.dispatch(time.Now().Add(d))
}

// DispatchPending dispatches complete events already buffered without
// touching the socket.
func (c *Conn) DispatchPending() (int, error) {
	return c.dispatchBuffered()
}

func (c *Conn) dispatch(deadline time.Time) (int, error) {
	if n, err := c.dispatchBuffered(); n > 0 || err != nil {
		return n, err
	}
	if !deadline.IsZero() {
		if err := c.sock.SetReadDeadline(deadline); err != nil {
			return 0, err
		}
		defer func() { _ = c.sock.SetReadDeadline(time.Time{}) }()
	}
	for {
		if err := c.fill(); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return 0, nil
			}
			return 0, err
		}
		if n, err := c.dispatchBuffered(); n > 0 || err != nil {
			return n, err
		}
	}
}

func (c *Conn) dispatchBuffered() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n := 0
	for len(c.rbuf) >= headerSize {
		sender := binary.LittleEndian.Uint32(c.rbuf[0:4])
		word := binary.LittleEndian.Uint32(c.rbuf[4:8])
		size := int(word >> 16)
		if size < headerSize {
			c.err = fmt.Errorf("wire: invalid message size %d", size)
			return n, c.err
		}
		if len(c.rbuf) < size {
			break
		}
		body := make([]byte, size-headerSize)
		copy(body, c.rbuf[headerSize:size])
		c.rbuf = c.rbuf[size:]

		ev := &Event{Sender: sender, Opcode: uint16(word & 0xffff), data: body, conn: c}
		if err := c.deliver(ev); err != nil {
			c.err = err
			return n, err
		}
		n++
	}
	if len(c.rbuf) == 0 {
		c.rbuf = c.rbuf[:0:0]
	}
	return n, nil
}

func (c *Conn) deliver(ev *Event) error {
	if ev.Sender == DisplayID {
		return c.handleDisplayEvent(ev)
	}
	o, ok := c.objects[ev.Sender]
	if !ok {
		// Destroyed client-side or never known. The compositor may still
		// send events until it processes the destructor.
		return nil
	}
	o.Dispatch(ev)
	return nil
}

func (c *Conn) handleDisplayEvent(ev *Event) error {
	switch ev.Opcode {
	case displayEventError:
		perr := &ProtocolError{Object: ev.Object(), Code: ev.Uint32(), Message: ev.String()}
		if err := ev.Err(); err != nil {
			return fmt.Errorf("invalid error event: %w", err)
		}
		return perr
	case displayEventDeleteID:
		id := ev.Uint32()
		if err := ev.Err(); err != nil {
			return fmt.Errorf("invalid delete_id event: %w", err)
		}
		delete(c.zombies, id)
		// Callbacks are destroyed by the compositor once done.
		if o, ok := c.objects[id]; ok {
			if _, isCallback := o.(*syncCallback); isCallback {
				delete(c.objects, id)
			}
		}
	}
	return nil
}

func (c *Conn) takeFD() (int, bool) {
	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

type syncCallback struct {
	Proxy
	done func(serial uint32)
}

func (cb *syncCallback) Dispatch(e *Event) {
	if e.Opcode != 0 {
		return
	}
	serial := e.Uint32()
	c := cb.conn
	delete(c.objects, cb.id)
	if cb.done != nil {
		cb.done(serial)
	}
}

func isNilObject(o Object) bool {
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
