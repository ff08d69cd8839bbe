package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
)

// userEvents merges the CLI's event sources into the one channel the
// event loop reads.
type userEvents struct {
	out   chan any
	done  chan struct{}
	once  sync.Once
	wg    conc.WaitGroup
	stops []func()
}

func newUserEvents() *userEvents {
	return &userEvents{
		out:  make(chan any),
		done: make(chan struct{}),
	}
}

func (u *userEvents) Events() <-chan any {
	return u.out
}

func (u *userEvents) send(v any) bool {
	select {
	case u.out <- v:
		return true
	case <-u.done:
		return false
	}
}

// add forwards src until it closes or u does.
func (u *userEvents) add(src <-chan any) {
	u.wg.Go(func() {
		for {
			select {
			case v, ok := <-src:
				if !ok || !u.send(v) {
					return
				}
			case <-u.done:
				return
			}
		}
	})
}

// signals delivers SIGINT and SIGTERM as os.Signal values.
func (u *userEvents) signals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	u.stops = append(u.stops, func() { signal.Stop(sigs) })
	u.wg.Go(func() {
		for {
			select {
			case s := <-sigs:
				if !u.send(s) {
					return
				}
			case <-u.done:
				return
			}
		}
	})
}

// after delivers v once d has passed. A zero d never fires.
func (u *userEvents) after(d time.Duration, v any) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	u.stops = append(u.stops, func() { t.Stop() })
	u.wg.Go(func() {
		select {
		case <-t.C:
			u.send(v)
		case <-u.done:
		}
	})
}

// Close stops every source and waits for the forwarders.
func (u *userEvents) Close() {
	u.once.Do(func() {
		for _, stop := range u.stops {
			stop()
		}
		close(u.done)
		u.wg.Wait()
	})
}
