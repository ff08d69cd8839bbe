// Package logind relays systemd-logind Lock and Unlock requests for the
// current session, so `loginctl lock-session` can drive a locker.
package logind

import (
	"fmt"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/wlshellev/internal/logger"
)

const (
	busName      = "org.freedesktop.login1"
	managerPath  = dbus.ObjectPath("/org/freedesktop/login1")
	managerIface = "org.freedesktop.login1.Manager"
	sessionIface = "org.freedesktop.login1.Session"
)

// Request is a lock state change asked for by logind.
type Request int

const (
	LockRequested Request = iota + 1
	UnlockRequested
)

func (r Request) String() string {
	switch r {
	case LockRequested:
		return "lock"
	case UnlockRequested:
		return "unlock"
	}
	return fmt.Sprintf("Request(%d)", int(r))
}

// Watcher forwards Lock/Unlock signals of one session.
type Watcher struct {
	conn    *dbus.Conn
	path    dbus.ObjectPath
	signals chan *dbus.Signal
	events  chan any
	done    chan struct{}
	once    sync.Once
}

// Watch subscribes on the system bus to the session this process runs in.
func Watch() (*Watcher, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	w, err := WatchConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return w, nil
}

// WatchConn is Watch on an existing connection, which the Watcher owns.
func WatchConn(conn *dbus.Conn) (*Watcher, error) {
	path, err := sessionPath(conn.Object(busName, managerPath))
	if err != nil {
		return nil, err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(sessionIface),
	); err != nil {
		return nil, fmt.Errorf("add logind signal match: %w", err)
	}

	w := &Watcher{
		conn:    conn,
		path:    path,
		signals: make(chan *dbus.Signal, 10),
		events:  make(chan any),
		done:    make(chan struct{}),
	}
	conn.Signal(w.signals)
	go forward(w.signals, w.path, w.events, w.done)

	logger.Debug("watching logind session", "path", path)
	return w, nil
}

// Events yields Request values; it closes when the Watcher does.
func (w *Watcher) Events() <-chan any {
	return w.events
}

// Path is the session object being watched.
func (w *Watcher) Path() dbus.ObjectPath {
	return w.path
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.conn.RemoveSignal(w.signals)
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// sessionPath prefers XDG_SESSION_ID and falls back to the session owning
// this process.
func sessionPath(manager caller) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		if err := manager.Call(managerIface+".GetSession", 0, id).Store(&path); err == nil {
			return path, nil
		}
		logger.Debugf("logind has no session %q, looking up by pid", id)
	}
	if err := manager.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
		return "", fmt.Errorf("find logind session: %w", err)
	}
	return path, nil
}

func forward(signals <-chan *dbus.Signal, path dbus.ObjectPath, out chan<- any, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			r, ok := translate(sig, path)
			if !ok {
				continue
			}
			select {
			case out <- r:
			case <-done:
				return
			}
		}
	}
}

func translate(sig *dbus.Signal, path dbus.ObjectPath) (Request, bool) {
	if sig == nil || sig.Path != path {
		return 0, false
	}
	switch sig.Name {
	case sessionIface + ".Lock":
		return LockRequested, true
	case sessionIface + ".Unlock":
		return UnlockRequested, true
	}
	return 0, false
}
