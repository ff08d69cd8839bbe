package wl

import (
	"os"

	"github.com/bnema/wlshellev/wire"
)

const (
	ShmInterface = "wl_shm"
	ShmVersion   = 1
)

// Shm is wl_shm.
type Shm struct {
	wire.Proxy
	formats       []uint32
	formatHandler func(ShmFormatEvent)
}

type ShmFormatEvent struct {
	Format uint32
}

// CreatePool creates a pool backed by file. The descriptor is duplicated
// by the kernel on send, so the caller may close file afterwards.
func (s *Shm) CreatePool(file *os.File, size int32) (*ShmPool, error) {
	p := &ShmPool{}
	id := s.Conn().Register(p)
	err := s.Send(0, func(r *wire.Request) {
		r.PutUint32(id).PutFD(int(file.Fd())).PutInt32(size)
	})
	if err != nil {
		s.Conn().Forget(p)
		return nil, err
	}
	return p, nil
}

// Formats lists the formats announced so far.
func (s *Shm) Formats() []uint32 {
	return s.formats
}

func (s *Shm) SetFormatHandler(f func(ShmFormatEvent)) { s.formatHandler = f }

func (s *Shm) Dispatch(e *wire.Event) {
	if e.Opcode != 0 {
		return
	}
	ev := ShmFormatEvent{Format: e.Uint32()}
	if e.Err() != nil {
		return
	}
	s.formats = append(s.formats, ev.Format)
	if s.formatHandler != nil {
		s.formatHandler(ev)
	}
}

// ShmPool is wl_shm_pool.
type ShmPool struct {
	wire.Proxy
}

func (p *ShmPool) Dispatch(*wire.Event) {}

func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	b := &Buffer{}
	id := p.Conn().Register(b)
	err := p.Send(0, func(r *wire.Request) {
		r.PutUint32(id).PutInt32(offset).PutInt32(width).PutInt32(height).PutInt32(stride).PutUint32(format)
	})
	if err != nil {
		p.Conn().Forget(b)
		return nil, err
	}
	return b, nil
}

func (p *ShmPool) Destroy() error {
	err := p.Send(1, nil)
	p.Conn().Forget(p)
	return err
}

// Buffer is wl_buffer.
type Buffer struct {
	wire.Proxy
	releaseHandler func(BufferReleaseEvent)
}

type BufferReleaseEvent struct{}

func (b *Buffer) Destroy() error {
	err := b.Send(0, nil)
	b.Conn().Forget(b)
	return err
}

func (b *Buffer) SetReleaseHandler(f func(BufferReleaseEvent)) { b.releaseHandler = f }

func (b *Buffer) Dispatch(e *wire.Event) {
	if e.Opcode == 0 && b.releaseHandler != nil {
		b.releaseHandler(BufferReleaseEvent{})
	}
}
