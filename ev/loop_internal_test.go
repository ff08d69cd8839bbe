package ev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/internal/wltest"
	"github.com/bnema/wlshellev/protocol/wlrlayer"
	"github.com/bnema/wlshellev/wire"
)

// stubShell gives every unit a fixed-size top layer surface.
type stubShell struct {
	manager *wlrlayer.LayerShell
}

func (s *stubShell) Bind(g *Globals, _ func(DispatchMessage)) error {
	s.manager = wlrlayer.NewLayerShell(wlrlayer.LayerShellVersion)
	_, err := g.Bind(wlrlayer.LayerShellInterface, wlrlayer.LayerShellVersion, s.manager)
	return err
}

func (s *stubShell) NewRole(req RoleRequest) (Role, error) {
	ls, err := s.manager.GetLayerSurface(req.Surface, nil, wlrlayer.LayerTop, "stub")
	if err != nil {
		return nil, err
	}
	if err := ls.SetSize(64, 32); err != nil {
		return nil, err
	}
	sink := req.Sink
	ls.SetConfigureHandler(func(e wlrlayer.LayerSurfaceConfigureEvent) {
		sink.Configure(e.Serial, e.Width, e.Height)
	})
	ls.SetClosedHandler(func(wlrlayer.LayerSurfaceClosedEvent) { sink.Closed() })
	return ls, nil
}

func (s *stubShell) DefaultOptions() any  { return nil }
func (s *stubShell) Placement() Placement { return PlaceSingle }
func (s *stubShell) Features() Features   { return Features{} }
func (s *stubShell) Exit(*Globals) error  { return nil }

func TestQueueSwapKeepsOrder(t *testing.T) {
	var q queue
	q.push(1, refreshSurface{width: 1})
	q.push(0, outputRemoved{name: 2})

	batch := q.swap()
	q.push(2, refreshSurface{width: 3})
	require.Len(t, batch, 2)
	assert.Equal(t, UnitID(1), batch[0].unit)
	assert.Equal(t, outputRemoved{name: 2}, batch[1].msg)
	q.recycle(batch)

	next := q.swap()
	require.Len(t, next, 1)
	assert.Equal(t, UnitID(2), next[0].unit)
	assert.Equal(t, 0, q.len())
}

func TestUnitRef(t *testing.T) {
	assert.Nil(t, unitRef(0))
	require.NotNil(t, unitRef(4))
	assert.Equal(t, UnitID(4), *unitRef(4))
}

func TestUnitIDsAreUnique(t *testing.T) {
	seen := map[UnitID]bool{}
	for i := 0; i < 100; i++ {
		id := nextUnitID()
		assert.NotZero(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestOptionDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	assert.Equal(t, DefaultIdleTicks, o.IdleTicks)
	assert.Equal(t, DefaultUserEventPoll, o.UserEventPoll)
	assert.Equal(t, DefaultUserEventBuffer, o.UserEventBuffer)
}

func TestIdleTicksSynthesizeNormalDispatch(t *testing.T) {
	_, conn := wltest.New(t, wltest.Options{Outputs: []wltest.OutputSpec{{Name: "DP-1", Width: 800, Height: 600}}})
	ws, err := Build[int](conn, &stubShell{}, Options{IdleTicks: 3, UserEventPoll: 5 * time.Millisecond})
	require.NoError(t, err)

	normal := 0
	l := &loop[int]{ws: ws, relay: startRelay(make(chan any), 4)}
	defer l.relay.stop()
	l.handler = func(e Event, _ *WindowState[int], _ *UnitID) ReturnData {
		switch e := e.(type) {
		case RequestBuffer:
			buf, err := e.NewBuffer(wire.FormatARGB8888)
			require.NoError(t, err)
			return WlBuffer{Buffer: buf}
		case NormalDispatch:
			normal++
		}
		return nil
	}
	l.startup()
	require.Equal(t, running, l.state)

	unit := ws.MainUnit()
	for i := 0; unit.Buffer() == nil; i++ {
		require.Less(t, i, 200, "unit never got a buffer")
		require.NoError(t, l.tick())
	}
	w, h := unit.Size()
	assert.Equal(t, [2]uint32{64, 32}, [2]uint32{w, h})

	normal = 0
	l.idle = 0
	var fired []int
	for i := 0; i < 6; i++ {
		before := normal
		require.NoError(t, l.tick())
		if normal > before {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{2, 5}, fired)
}

func TestMessagesForRemovedUnitsAreDropped(t *testing.T) {
	_, conn := wltest.New(t, wltest.Options{Outputs: []wltest.OutputSpec{{Name: "DP-1", Width: 800, Height: 600}}})
	ws, err := Build[int](conn, &stubShell{}, Options{UserEventPoll: 5 * time.Millisecond})
	require.NoError(t, err)

	var got []Event
	l := &loop[int]{ws: ws, state: running}
	l.handler = func(e Event, _ *WindowState[int], _ *UnitID) ReturnData {
		got = append(got, e)
		return nil
	}

	id := ws.MainUnit().ID()
	require.True(t, ws.RemoveUnit(id))

	for _, m := range []tagged{
		{unit: id, msg: protocolMessage{msg: MouseLeave{Serial: 1}}},
		{unit: id, msg: xdgInfoChanged{kind: XdgInfoPosition}},
		{msg: protocolMessage{msg: MouseLeave{Serial: 2}}},
	} {
		_, err := l.deliver(m)
		require.NoError(t, err)
	}
	assert.Equal(t, []Event{RequestMessages{Message: MouseLeave{Serial: 2}}}, got)
}

func TestSweepWaitsForQueuedMessages(t *testing.T) {
	_, conn := wltest.New(t, wltest.Options{Outputs: []wltest.OutputSpec{{Name: "DP-1", Width: 800, Height: 600}}})
	ws, err := Build[int](conn, &stubShell{}, Options{UserEventPoll: 5 * time.Millisecond})
	require.NoError(t, err)

	u := ws.MainUnit()
	u.dead = true
	ws.queue.push(u.id, protocolMessage{msg: Closed{}})

	ws.sweep()
	require.NotNil(t, ws.Unit(u.id))

	ws.queue.recycle(ws.queue.swap())
	ws.sweep()
	assert.Nil(t, ws.Unit(u.id))
}
