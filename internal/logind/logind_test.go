package logind

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = dbus.ObjectPath("/org/freedesktop/login1/session/_32")

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		want Request
		ok   bool
	}{
		{"lock", &dbus.Signal{Path: session, Name: sessionIface + ".Lock"}, LockRequested, true},
		{"unlock", &dbus.Signal{Path: session, Name: sessionIface + ".Unlock"}, UnlockRequested, true},
		{"other session", &dbus.Signal{Path: "/org/freedesktop/login1/session/c1", Name: sessionIface + ".Lock"}, 0, false},
		{"other member", &dbus.Signal{Path: session, Name: sessionIface + ".PauseDevice"}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translate(tt.sig, session)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForward(t *testing.T) {
	signals := make(chan *dbus.Signal, 4)
	out := make(chan any)
	done := make(chan struct{})
	go forward(signals, session, out, done)

	signals <- &dbus.Signal{Path: session, Name: sessionIface + ".PauseDevice"}
	signals <- &dbus.Signal{Path: session, Name: sessionIface + ".Lock"}
	signals <- &dbus.Signal{Path: session, Name: sessionIface + ".Unlock"}

	assert.Equal(t, LockRequested, <-out)
	assert.Equal(t, UnlockRequested, <-out)

	// A pending send must not outlive done.
	signals <- &dbus.Signal{Path: session, Name: sessionIface + ".Lock"}
	time.Sleep(10 * time.Millisecond)
	close(done)
	for range out {
	}
}

func TestForwardStopsWhenSignalsClose(t *testing.T) {
	signals := make(chan *dbus.Signal)
	out := make(chan any)
	go forward(signals, session, out, make(chan struct{}))
	close(signals)
	_, ok := <-out
	assert.False(t, ok)
}

type fakeManager struct {
	calls   []string
	session map[string]dbus.ObjectPath
	byPID   dbus.ObjectPath
}

func (f *fakeManager) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, method)
	switch method {
	case managerIface + ".GetSession":
		if p, ok := f.session[args[0].(string)]; ok {
			return &dbus.Call{Body: []interface{}{p}}
		}
		return &dbus.Call{Err: errors.New("no such session")}
	case managerIface + ".GetSessionByPID":
		if f.byPID != "" {
			return &dbus.Call{Body: []interface{}{f.byPID}}
		}
	}
	return &dbus.Call{Err: errors.New("unknown method")}
}

func TestSessionPath(t *testing.T) {
	t.Run("session id", func(t *testing.T) {
		t.Setenv("XDG_SESSION_ID", "2")
		m := &fakeManager{session: map[string]dbus.ObjectPath{"2": session}}
		path, err := sessionPath(m)
		require.NoError(t, err)
		assert.Equal(t, session, path)
		assert.Equal(t, []string{managerIface + ".GetSession"}, m.calls)
	})

	t.Run("falls back to pid", func(t *testing.T) {
		t.Setenv("XDG_SESSION_ID", "9")
		m := &fakeManager{byPID: session}
		path, err := sessionPath(m)
		require.NoError(t, err)
		assert.Equal(t, session, path)
		assert.Len(t, m.calls, 2)
	})

	t.Run("no session", func(t *testing.T) {
		t.Setenv("XDG_SESSION_ID", "")
		_, err := sessionPath(&fakeManager{})
		assert.ErrorContains(t, err, "find logind session")
	})
}

func TestRequestString(t *testing.T) {
	assert.Equal(t, "lock", LockRequested.String())
	assert.Equal(t, "unlock", UnlockRequested.String())
	assert.Equal(t, "Request(7)", Request(7).String())
}
