package ev_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/wltest"
	"github.com/bnema/wlshellev/layershell"
	"github.com/bnema/wlshellev/wire"
)

var (
	dp1  = wltest.OutputSpec{Name: "DP-1", Description: "left", Width: 800, Height: 600, Scale: 1}
	hdmi = wltest.OutputSpec{Name: "HDMI-A-1", Description: "right", X: 800, Width: 1024, Height: 768, Scale: 1}
)

func oneOutput() wltest.Options {
	return wltest.Options{Outputs: []wltest.OutputSpec{dp1}}
}

func twoOutputs() wltest.Options {
	return wltest.Options{Outputs: []wltest.OutputSpec{dp1, hdmi}}
}

func barSettings() layershell.Settings {
	return layershell.Settings{
		Namespace: "wlshellev-test",
		Layer:     layershell.LayerTop,
		Size:      &[2]uint32{0, 30},
		Anchor:    layershell.AnchorTop | layershell.AnchorLeft | layershell.AnchorRight,
	}
}

func newPanel(t *testing.T, opts wltest.Options, s layershell.Settings) (*wltest.Server, *ev.WindowState[string]) {
	t.Helper()
	srv, conn := wltest.New(t, opts)
	if s.UserEventPoll == 0 {
		s.UserEventPoll = 5 * time.Millisecond
	}
	ws, err := layershell.NewWithConn[string](conn, s)
	require.NoError(t, err)
	return srv, ws
}

// run drives ws with an idle channel so idle ticks time out quickly.
func run(ws *ev.WindowState[string], h ev.Handler[string]) error {
	return ws.RunWithUserEvents(h, make(chan any))
}

func buffer(t *testing.T, e ev.RequestBuffer) ev.ReturnData {
	t.Helper()
	buf, err := e.NewBuffer(wire.FormatARGB8888)
	require.NoError(t, err)
	return ev.WlBuffer{Buffer: buf}
}

// drawn reports whether every unit has its first buffer.
func drawn(ws *ev.WindowState[string]) bool {
	units := ws.Units()
	for _, u := range units {
		if u.Buffer() == nil {
			return false
		}
	}
	return len(units) > 0
}

func ref(id *ev.UnitID) *ev.UnitID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
