package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Fixed represents a 24.8 fixed-point number
type Fixed int32

// Float64 converts Fixed to float64
func (f Fixed) Float64() float64 {
	return float64(f) / 256.0
}

// FixedFrom creates a Fixed from float64
func FixedFrom(v float64) Fixed {
	return Fixed(v * 256.0)
}

const headerSize = 8

// maxMessageSize is the largest message the 16-bit size field can describe.
const maxMessageSize = 0xFFFF

// ErrShortEvent is returned when an event body ends before all of its
// arguments were decoded.
var ErrShortEvent = errors.New("wire: short event")

// Request is an outgoing message being assembled.
type Request struct {
	object uint32
	opcode uint16
	buf    []byte
	fds    []int
}

// NewRequest starts a request for opcode on object.
func NewRequest(object uint32, opcode uint16) *Request {
	return &Request{
		object: object,
		opcode: opcode,
		buf:    make([]byte, headerSize, 64),
	}
}

func (r *Request) PutUint32(v uint32) *Request {
	r.buf = binary.LittleEndian.AppendUint32(r.buf, v)
	return r
}

func (r *Request) PutInt32(v int32) *Request {
	return r.PutUint32(uint32(v))
}

func (r *Request) PutFixed(v Fixed) *Request {
	return r.PutUint32(uint32(v))
}

// PutObject writes an object reference, 0 for nil.
func (r *Request) PutObject(o Object) *Request {
	if o == nil || isNilObject(o) {
		return r.PutUint32(0)
	}
	return r.PutUint32(o.ID())
}

// PutString writes a NUL-terminated, padded string.
func (r *Request) PutString(s string) *Request {
	n := len(s) + 1
	r.PutUint32(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, 0)
	return r.pad(n)
}

// PutArray writes a length-prefixed, padded byte array.
func (r *Request) PutArray(b []byte) *Request {
	r.PutUint32(uint32(len(b)))
	r.buf = append(r.buf, b...)
	return r.pad(len(b))
}

// PutFD queues a file descriptor to travel as SCM_RIGHTS ancillary data.
// File descriptors occupy no space in the message body.
func (r *Request) PutFD(fd int) *Request {
	r.fds = append(r.fds, fd)
	return r
}

func (r *Request) pad(n int) *Request {
	for i := 0; i < (4-n%4)%4; i++ {
		r.buf = append(r.buf, 0)
	}
	return r
}

// bytes finalizes the header and returns the encoded message.
func (r *Request) bytes() ([]byte, error) {
	size := len(r.buf)
	if size > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", size)
	}
	binary.LittleEndian.PutUint32(r.buf[0:4], r.object)
	binary.LittleEndian.PutUint32(r.buf[4:8], uint32(size)<<16|uint32(r.opcode))
	return r.buf, nil
}

// Event is an incoming message addressed to a client object. Arguments are
// read in declaration order; the first decoding failure sticks and is
// reported by Err.
type Event struct {
	Sender uint32
	Opcode uint16

	data []byte
	off  int
	conn *Conn
	err  error
}

func (e *Event) Uint32() uint32 {
	if e.err != nil {
		return 0
	}
	if len(e.data)-e.off < 4 {
		e.err = ErrShortEvent
		return 0
	}
	v := binary.LittleEndian.Uint32(e.data[e.off:])
	e.off += 4
	return v
}

func (e *Event) Int32() int32 {
	return int32(e.Uint32())
}

func (e *Event) Fixed() Fixed {
	return Fixed(e.Uint32())
}

// Object reads an object id. Use Conn.Lookup to resolve it.
func (e *Event) Object() uint32 {
	return e.Uint32()
}

func (e *Event) String() string {
	n := int(e.Uint32())
	if e.err != nil || n == 0 {
		return ""
	}
	padded := n + (4-n%4)%4
	if len(e.data)-e.off < padded {
		e.err = ErrShortEvent
		return ""
	}
	s := string(e.data[e.off : e.off+n-1])
	e.off += padded
	return s
}

func (e *Event) Array() []byte {
	n := int(e.Uint32())
	if e.err != nil {
		return nil
	}
	padded := n + (4-n%4)%4
	if len(e.data)-e.off < padded {
		e.err = ErrShortEvent
		return nil
	}
	b := make([]byte, n)
	copy(b, e.data[e.off:e.off+n])
	e.off += padded
	return b
}

// FD takes the next file descriptor received on the connection. The caller
// owns the returned file.
func (e *Event) FD() *os.File {
	if e.err != nil {
		return nil
	}
	fd, ok := e.conn.takeFD()
	if !ok {
		e.err = errors.New("wire: event expects a file descriptor but none was received")
		return nil
	}
	return os.NewFile(uintptr(fd), "wayland-fd")
}

// Err reports the first decoding error, if any.
func (e *Event) Err() error {
	return e.err
}
