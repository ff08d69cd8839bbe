package cmd

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/config"
	"github.com/bnema/wlshellev/internal/logind"
	"github.com/bnema/wlshellev/internal/wltest"
	"github.com/bnema/wlshellev/layershell"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/sessionlock"
)

func twoOutputs() wltest.Options {
	return wltest.Options{Outputs: []wltest.OutputSpec{
		{Name: "DP-1", Description: "left", Width: 800, Height: 600},
		{Name: "HDMI-A-1", Description: "right", X: 800, Width: 1024, Height: 768},
	}}
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

func TestPaint(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "buf")
	require.NoError(t, err)
	defer f.Close()

	// Stride has padding past the last pixel.
	e := ev.RequestBuffer{File: f, Width: 2, Height: 3, Stride: 12}
	require.NoError(t, paint(e, 0xff112233))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Len(t, data, 36)
	for y := 0; y < 3; y++ {
		row := data[y*12:]
		assert.Equal(t, uint32(0xff112233), binary.LittleEndian.Uint32(row[0:]))
		assert.Equal(t, uint32(0xff112233), binary.LittleEndian.Uint32(row[4:]))
		assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(row[8:]))
	}
}

func TestPanelExitsOnSignal(t *testing.T) {
	srv, conn := wltest.New(t, twoOutputs())
	settings, err := config.DefaultConfig.Panel.LayerShell(config.DefaultConfig.Cursor)
	require.NoError(t, err)
	settings.UserEventPoll = 5 * time.Millisecond
	ws, err := layershell.NewWithConn[struct{}](conn, settings)
	require.NoError(t, err)

	events := make(chan any, 1)
	sent := false
	handler := panelHandler(0xff000000, false)
	err = ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		if _, ok := e.(ev.NormalDispatch); ok && !sent && drawn(ws) {
			sent = true
			events <- syscall.SIGTERM
		}
		return handler(e, ws, id)
	}, events)
	require.NoError(t, err)

	srv.Wait()
	assert.Len(t, srv.Find("wl_surface.attach"), 2)
	assert.Len(t, srv.Find("zwlr_layer_surface_v1.destroy"), 2)
}

func TestPanelCursorAndClick(t *testing.T) {
	opts := twoOutputs()
	opts.SeatCapabilities = wl.SeatCapabilityPointer
	srv, conn := wltest.New(t, opts)
	settings, err := config.DefaultConfig.Panel.LayerShell(config.DefaultConfig.Cursor)
	require.NoError(t, err)
	settings.UserEventPoll = 5 * time.Millisecond
	ws, err := layershell.NewWithConn[struct{}](conn, settings)
	require.NoError(t, err)

	entered := false
	handler := panelHandler(0xff000000, true)
	err = ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		if _, ok := e.(ev.NormalDispatch); ok && !entered && drawn(ws) {
			entered = true
			srv.PointerEnter(ws.MainUnit().Surface().ID(), 4, 4)
			srv.PointerButton(1, btnLeft, wl.StatePressed)
		}
		return handler(e, ws, id)
	}, make(chan any))
	require.NoError(t, err)

	srv.Wait()
	shapes := srv.Find("wp_cursor_shape_device_v1.set_shape")
	require.Len(t, shapes, 1)
}

func TestLockUnlocksOnLogindRequest(t *testing.T) {
	srv, conn := wltest.New(t, twoOutputs())
	ws, err := sessionlock.NewWithConn[struct{}](conn, sessionlock.Settings{UserEventPoll: 5 * time.Millisecond})
	require.NoError(t, err)

	events := make(chan any, 2)
	handler := lockHandler(0xff000000)
	err = ws.RunWithUserEvents(func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		if m, ok := e.(ev.RequestMessages); ok {
			if _, ok := m.Message.(ev.SessionLocked); ok {
				// A lock request must not end the lock.
				events <- logind.LockRequested
				events <- logind.UnlockRequested
			}
		}
		return handler(e, ws, id)
	}, events)
	require.NoError(t, err)

	srv.Wait()
	assert.False(t, srv.Locked())
	assert.Len(t, srv.Find("ext_session_lock_v1.unlock_and_destroy"), 1)
}

func TestLockHandlerUserEvents(t *testing.T) {
	tests := []struct {
		name string
		msg  any
		want ev.ReturnData
	}{
		{"timeout", lockTimeout{}, ev.RequestUnlockAndExit{}},
		{"signal", syscall.SIGINT, ev.RequestUnlockAndExit{}},
		{"logind unlock", logind.UnlockRequested, ev.RequestUnlockAndExit{}},
		{"logind lock", logind.LockRequested, nil},
		{"unrelated", "hello", nil},
	}
	h := lockHandler(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h(ev.UserEvent{Message: tt.msg}, nil, nil))
		})
	}
	assert.Equal(t, ev.RequestExit{}, h(ev.RequestMessages{Message: ev.SessionFinished{}}, nil, nil))
}

func TestOutputsFormatting(t *testing.T) {
	_, conn := wltest.New(t, twoOutputs())
	infos, err := ev.Probe(conn)
	require.NoError(t, err)

	table := formatOutputs(infos)
	assert.Contains(t, table, "DP-1")
	assert.Contains(t, table, "1024x768")
	assert.Contains(t, table, "1024x768+800+0")
	assert.Contains(t, formatOutputs(nil), "No outputs advertised")

	var buf bytes.Buffer
	require.NoError(t, writeOutputsJSON(&buf, infos))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "HDMI-A-1", decoded[1]["name"])
	assert.Equal(t, "right", decoded[1]["description"])

	buf.Reset()
	require.NoError(t, writeOutputsJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestUserEvents(t *testing.T) {
	u := newUserEvents()
	src := make(chan any)
	u.add(src)
	u.after(10*time.Millisecond, lockTimeout{})
	u.after(0, "never")

	src <- "from source"
	got := []any{<-u.Events(), <-u.Events()}
	assert.ElementsMatch(t, []any{"from source", lockTimeout{}}, got)

	// Forwarders blocked on send must still stop.
	src <- "pending"
	u.Close()
	u.Close()
	select {
	case v := <-u.Events():
		t.Fatalf("got %v after Close", v)
	default:
	}
}
