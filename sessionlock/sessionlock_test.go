package sessionlock_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/wltest"
	"github.com/bnema/wlshellev/sessionlock"
	"github.com/bnema/wlshellev/wire"
)

func twoOutputs() wltest.Options {
	return wltest.Options{Outputs: []wltest.OutputSpec{
		{Name: "DP-1", Width: 800, Height: 600},
		{Name: "HDMI-A-1", X: 800, Width: 1024, Height: 768},
	}}
}

func lock(t *testing.T, opts wltest.Options) (*wltest.Server, *ev.WindowState[struct{}]) {
	t.Helper()
	srv, conn := wltest.New(t, opts)
	ws, err := sessionlock.NewWithConn[struct{}](conn, sessionlock.Settings{UserEventPoll: 5 * time.Millisecond})
	require.NoError(t, err)
	return srv, ws
}

func buffer(t *testing.T, e ev.RequestBuffer) ev.ReturnData {
	t.Helper()
	buf, err := e.NewBuffer(wire.FormatXRGB8888)
	require.NoError(t, err)
	return ev.WlBuffer{Buffer: buf}
}

func drawn(ws *ev.WindowState[struct{}]) bool {
	units := ws.Units()
	for _, u := range units {
		if u.Buffer() == nil {
			return false
		}
	}
	return len(units) > 0
}

func TestLockDrawUnlock(t *testing.T) {
	srv, ws := lock(t, twoOutputs())
	assert.True(t, srv.Locked())
	require.Len(t, ws.Units(), 2)
	for _, u := range ws.Units() {
		_, ok := sessionlock.Of(u.Role())
		assert.True(t, ok)
	}

	locked := false
	var sizes [][2]uint32
	err := ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestMessages:
			if _, ok := e.Message.(ev.SessionLocked); ok {
				assert.Nil(t, id)
				locked = true
			}
		case ev.RequestBuffer:
			sizes = append(sizes, [2]uint32{e.Width, e.Height})
			return buffer(t, e)
		case ev.NormalDispatch:
			if locked && drawn(ws) {
				return ev.RequestUnlockAndExit{}
			}
		}
		return nil
	}, make(chan any))
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, [][2]uint32{{800, 600}, {1024, 768}}, sizes)

	srv.Wait()
	assert.False(t, srv.Locked())

	names := srv.Names()
	unlock := slices.Index(names, "ext_session_lock_v1.unlock_and_destroy")
	require.GreaterOrEqual(t, unlock, 0, srv.Dump())
	require.Greater(t, len(names), unlock+1)
	assert.Equal(t, "wl_display.sync", names[unlock+1], "unlock must be flushed with a round trip")
	assert.NotContains(t, names, "ext_session_lock_v1.destroy")

	dests := srv.Find("wp_viewport.set_destination")
	require.Len(t, dests, 2)
	assert.Equal(t, []any{int32(800), int32(600)}, dests[0].Args)
	assert.Equal(t, []any{int32(1024), int32(768)}, dests[1].Args)
}

func TestLockGetsSurfacePerOutput(t *testing.T) {
	srv, ws := lock(t, twoOutputs())
	require.NoError(t, ws.Conn().Roundtrip())

	gets := srv.Find("ext_session_lock_v1.get_lock_surface")
	require.Len(t, gets, 2)
	for i, o := range ws.Outputs() {
		assert.Equal(t, o.Handle.ID(), gets[i].Args[2])
	}
	assert.NotNil(t, ws.Globals().Viewporter)
	assert.Nil(t, ws.Globals().XdgOutput)
}

func TestRefusedLock(t *testing.T) {
	opts := twoOutputs()
	opts.RefuseLock = true
	srv, ws := lock(t, opts)
	assert.False(t, srv.Locked())

	finished := false
	err := ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestMessages:
			switch e.Message.(type) {
			case ev.SessionLocked:
				t.Error("refused lock reported as locked")
			case ev.SessionFinished:
				assert.Nil(t, id)
				finished = true
				return ev.RequestExit{}
			}
		case ev.RequestBuffer:
			return buffer(t, e)
		}
		return nil
	}, make(chan any))
	require.NoError(t, err)
	assert.True(t, finished)

	srv.Wait()
	assert.Empty(t, srv.Find("ext_session_lock_v1.unlock_and_destroy"))
	assert.Len(t, srv.Find("ext_session_lock_v1.destroy"), 1)
}

func TestLockFollowsHotplug(t *testing.T) {
	srv, ws := lock(t, wltest.Options{Outputs: []wltest.OutputSpec{{Name: "DP-1", Width: 800, Height: 600}}})

	var sizes [][2]uint32
	added := false
	err := ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], _ *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			sizes = append(sizes, [2]uint32{e.Width, e.Height})
			return buffer(t, e)
		case ev.NormalDispatch:
			if !drawn(ws) {
				return nil
			}
			if !added {
				added = true
				srv.AddOutput(wltest.OutputSpec{Name: "DP-2", Width: 1280, Height: 720})
				return nil
			}
			if len(ws.Units()) == 2 {
				return ev.RequestUnlockAndExit{}
			}
		}
		return nil
	}, make(chan any))
	require.NoError(t, err)
	assert.Equal(t, [][2]uint32{{800, 600}, {1280, 720}}, sizes)
}

func TestRequestExitWhileLockedDropsLock(t *testing.T) {
	srv, ws := lock(t, twoOutputs())

	err := ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], _ *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			return buffer(t, e)
		case ev.NormalDispatch:
			if drawn(ws) {
				return ev.RequestExit{}
			}
		}
		return nil
	}, make(chan any))
	require.NoError(t, err)

	srv.Wait()
	assert.Len(t, srv.Find("ext_session_lock_v1.unlock_and_destroy"), 1)
}
