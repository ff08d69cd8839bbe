package ev

import (
	"sync"

	"github.com/sourcegraph/conc"
)

// relay copies caller events into a bounded channel the loop drains
// without blocking. When the buffer is full the relay blocks, which pushes
// back on whoever feeds the source channel.
type relay struct {
	out  chan any
	done chan struct{}
	once sync.Once
	wg   conc.WaitGroup
}

func startRelay(src <-chan any, size int) *relay {
	r := &relay{
		out:  make(chan any, size),
		done: make(chan struct{}),
	}
	r.wg.Go(func() {
		for {
			select {
			case <-r.done:
				return
			case v, ok := <-src:
				if !ok {
					return
				}
				select {
				case r.out <- v:
				case <-r.done:
					return
				}
			}
		}
	})
	return r
}

// drain returns what is buffered right now, at most one buffer's worth so
// a fast producer cannot starve protocol dispatch.
func (r *relay) drain() []any {
	var vs []any
	for len(vs) < cap(r.out) {
		select {
		case v := <-r.out:
			vs = append(vs, v)
		default:
			return vs
		}
	}
	return vs
}

// stop ends the relay goroutine and re-raises its panic, if any.
func (r *relay) stop() {
	r.once.Do(func() { close(r.done) })
	r.wg.Wait()
}
