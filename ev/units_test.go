package ev_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/wltest"
	"github.com/bnema/wlshellev/layershell"
)

type bufferCall struct {
	id   ev.UnitID
	w, h uint32
}

func TestPerOutputPanelsAreDrawnInOrder(t *testing.T) {
	srv, ws := newPanel(t, twoOutputs(), layershell.Settings{
		Namespace: "bottom-bar",
		PerOutput: true,
		Size:      &[2]uint32{0, 400},
		Anchor:    layershell.AnchorBottom | layershell.AnchorLeft | layershell.AnchorRight,
	})

	units := ws.Units()
	require.Len(t, units, 2)
	for _, u := range units {
		w, h := u.Size()
		assert.Zero(t, w)
		assert.Zero(t, h)
		assert.False(t, u.Configured())
	}
	first, second := units[0].ID(), units[1].ID()
	assert.NotEqual(t, first, second)
	assert.Equal(t, "DP-1", units[0].Output().Info.Name)
	assert.Equal(t, "HDMI-A-1", units[1].Output().Info.Name)

	var calls []bufferCall
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			require.NotNil(t, id)
			calls = append(calls, bufferCall{*id, e.Width, e.Height})
			return buffer(t, e)
		case ev.NormalDispatch:
			if drawn(ws) {
				return ev.RequestExit{}
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []bufferCall{{first, 800, 400}, {second, 1024, 400}}, calls)

	srv.Wait()
	layerOf := map[uint32]uint32{}
	acked := map[uint32]bool{}
	attaches := 0
	for _, r := range srv.Requests() {
		switch {
		case r.Is("zwlr_layer_shell_v1.get_layer_surface"):
			layerOf[r.Args[0].(uint32)] = r.Args[1].(uint32)
			assert.Equal(t, "bottom-bar", r.Args[4])
		case r.Is("zwlr_layer_surface_v1.ack_configure"):
			acked[layerOf[r.Object]] = true
		case r.Is("wl_surface.attach"):
			attaches++
			assert.True(t, acked[r.Object], "surface %d attached before ack", r.Object)
		}
	}
	assert.Equal(t, 2, attaches)
}

func TestUnitsCarryXdgInfo(t *testing.T) {
	s := barSettings()
	s.PerOutput = true
	_, ws := newPanel(t, twoOutputs(), s)

	units := ws.Units()
	require.Len(t, units, 2)
	info, ok := units[1].XdgInfo()
	require.True(t, ok)
	assert.Equal(t, [2]int32{800, 0}, info.LogicalPosition)
	assert.Equal(t, [2]int32{1024, 768}, info.LogicalSize)
	assert.Equal(t, "HDMI-A-1", info.Name)
	assert.Equal(t, "right", info.Description)

	outputs := ws.Outputs()
	require.Len(t, outputs, 2)
	assert.Equal(t, int32(800), outputs[0].Info.Width)
	assert.Equal(t, int32(60000), outputs[0].Info.Refresh)
	assert.Equal(t, "DP-1", outputs[0].DisplayName())
}

func TestSingleUnitBindings(t *testing.T) {
	_, ws := newPanel(t, twoOutputs(), barSettings())
	require.Len(t, ws.Units(), 1)

	u := ws.MainUnit()
	assert.Nil(t, u.Output())
	_, ok := u.Binding()
	assert.False(t, ok)
	assert.Nil(t, u.BindingPtr())

	u.SetBinding("clock")
	*u.BindingPtr() += "!"
	v, ok := u.Binding()
	assert.True(t, ok)
	assert.Equal(t, "clock!", v)

	u.ClearBinding()
	_, ok = u.Binding()
	assert.False(t, ok)

	assert.Same(t, u, ws.UnitBySurface(u.Surface()))
	assert.Same(t, u, ws.Unit(u.ID()))
	assert.Nil(t, ws.Unit(0))
}

func TestOutputHotplug(t *testing.T) {
	s := barSettings()
	s.PerOutput = true
	srv, ws := newPanel(t, oneOutput(), s)
	require.Len(t, ws.Units(), 1)
	first := ws.MainUnit().ID()

	var calls []bufferCall
	var closed []ev.UnitID
	var added, removed uint32
	var remaining []ev.UnitID
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			calls = append(calls, bufferCall{*id, e.Width, e.Height})
			return buffer(t, e)
		case ev.RequestMessages:
			if _, ok := e.Message.(ev.Closed); ok {
				require.NotNil(t, id)
				closed = append(closed, *id)
				assert.False(t, ws.Unit(*id).Alive())
			}
		case ev.NormalDispatch:
			if !drawn(ws) {
				return nil
			}
			switch {
			case added == 0:
				added = srv.AddOutput(wltest.OutputSpec{Name: "DP-2", Width: 1280, Height: 720})
			case removed == 0 && len(ws.Units()) == 2:
				removed = added
				srv.RemoveGlobal(removed)
			case removed != 0 && len(ws.Units()) == 1:
				for _, u := range ws.Units() {
					remaining = append(remaining, u.ID())
				}
				return ev.RequestExit{}
			}
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, bufferCall{first, 800, 30}, calls[0])
	assert.NotEqual(t, first, calls[1].id)
	assert.Equal(t, uint32(1280), calls[1].w)
	assert.Equal(t, []ev.UnitID{calls[1].id}, closed)
	assert.Equal(t, []ev.UnitID{first}, remaining)

	srv.Wait()
	assert.NotEmpty(t, srv.Find("wl_output.release"))
}

func TestOutputRetractedBeforeItIsUsed(t *testing.T) {
	s := barSettings()
	s.PerOutput = true
	srv, ws := newPanel(t, oneOutput(), s)
	first := ws.MainUnit().ID()

	plugged := false
	idle := 0
	var remaining []ev.UnitID
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			return buffer(t, e)
		case ev.NormalDispatch:
			if !plugged {
				if !drawn(ws) {
					return nil
				}
				plugged = true
				name := srv.AddOutput(wltest.OutputSpec{Name: "DP-2", Width: 1280, Height: 720})
				srv.RemoveGlobal(name)
				return nil
			}
			if idle++; idle < 20 {
				return nil
			}
			for _, u := range ws.Units() {
				remaining = append(remaining, u.ID())
			}
			return ev.RequestExit{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []ev.UnitID{first}, remaining)
	assert.Len(t, ws.Outputs(), 1)
}

func TestClosedUnitIsRemovedAfterTick(t *testing.T) {
	srv, ws := newPanel(t, oneOutput(), barSettings())
	main := ws.MainUnit()
	surface := main.Surface().ID()

	closedSeen := false
	sent := false
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			return buffer(t, e)
		case ev.RequestMessages:
			if _, ok := e.Message.(ev.Closed); ok {
				require.NotNil(t, id)
				assert.Equal(t, main.ID(), *id)
				assert.NotNil(t, ws.Unit(*id), "closed unit must still be visible to the handler")
				closedSeen = true
			}
		case ev.NormalDispatch:
			if !drawn(ws) && !closedSeen {
				return nil
			}
			if !sent {
				sent = true
				srv.Close(surface)
				return nil
			}
			if closedSeen {
				assert.Empty(t, ws.Units())
				return ev.RequestExit{}
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, closedSeen)
}

func TestNewUnitAndRemoveUnit(t *testing.T) {
	srv, ws := newPanel(t, oneOutput(), barSettings())
	main := ws.MainUnit().ID()

	var calls []bufferCall
	var extra ev.UnitID
	phase := 0
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			calls = append(calls, bufferCall{*id, e.Width, e.Height})
			return buffer(t, e)
		case ev.NormalDispatch:
			if !drawn(ws) {
				return nil
			}
			switch phase {
			case 0:
				phase++
				opts := layershell.Options{
					Layer:  layershell.LayerOverlay,
					Size:   [2]uint32{200, 100},
					Anchor: layershell.AnchorTop | layershell.AnchorRight,
					Margin: layershell.Margin{Top: 10, Right: 10},
				}
				return layershell.NewLayerShellWithBinding(opts, ws.Outputs()[0], "toast")
			case 1:
				phase++
				units := ws.Units()
				require.Len(t, units, 2)
				extra = units[1].ID()
				v, ok := units[1].Binding()
				assert.True(t, ok)
				assert.Equal(t, "toast", v)
				return ev.RemoveUnit{ID: extra}
			case 2:
				assert.Len(t, ws.Units(), 1)
				assert.Nil(t, ws.Unit(extra))
				return ev.RequestExit{}
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, bufferCall{main, 800, 30}, calls[0])
	assert.Equal(t, bufferCall{extra, 200, 100}, calls[1])

	srv.Wait()
	names := srv.Names()
	margin := srv.Find("zwlr_layer_surface_v1.set_margin")
	require.Len(t, margin, 1)
	assert.Equal(t, []any{int32(10), int32(10), int32(0), int32(0)}, margin[0].Args)

	// The role goes before its surface.
	roleGone := slices.Index(names, "zwlr_layer_surface_v1.destroy")
	surfaceGone := slices.Index(names, "wl_surface.destroy")
	require.GreaterOrEqual(t, roleGone, 0)
	assert.Less(t, roleGone, surfaceGone)
}

func TestPopupLifecycle(t *testing.T) {
	srv, ws := newPanel(t, oneOutput(), barSettings())
	main := ws.MainUnit().ID()

	var popup ev.UnitID
	var popupBuffer bufferCall
	closed := false
	phase := 0
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			if *id != main {
				popupBuffer = bufferCall{*id, e.Width, e.Height}
			}
			return buffer(t, e)
		case ev.RequestMessages:
			if _, ok := e.Message.(ev.Closed); ok {
				assert.Equal(t, popup, *id)
				closed = true
			}
		case ev.NormalDispatch:
			if !drawn(ws) {
				return nil
			}
			switch phase {
			case 0:
				phase++
				return ev.NewPopUp[string]{
					Parent:     main,
					Settings:   ev.PopUpSettings{X: 20, Y: 30, Width: 120, Height: 80},
					Binding:    "menu",
					HasBinding: true,
				}
			case 1:
				phase++
				units := ws.Units()
				require.Len(t, units, 2)
				popup = units[1].ID()
				parent, ok := ws.PopupParentOf(popup)
				assert.True(t, ok)
				assert.Equal(t, main, parent)
				v, _ := units[1].Binding()
				assert.Equal(t, "menu", v)
				srv.Close(units[1].Surface().ID())
			case 2:
				if closed && len(ws.Units()) == 1 {
					return ev.RequestExit{}
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, bufferCall{popup, 120, 80}, popupBuffer)

	srv.Wait()
	require.Len(t, srv.Find("zwlr_layer_surface_v1.get_popup"), 1)
	anchor := srv.Find("xdg_positioner.set_anchor_rect")
	require.Len(t, anchor, 1)
	assert.Equal(t, []any{int32(20), int32(30), int32(1), int32(1)}, anchor[0].Args)
}

func TestPopupWithoutParentIsIgnored(t *testing.T) {
	_, ws := newPanel(t, oneOutput(), barSettings())

	asked := false
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], _ *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			return buffer(t, e)
		case ev.NormalDispatch:
			if !asked {
				asked = true
				return ev.NewPopUp[string]{Parent: 9999, Settings: ev.PopUpSettings{Width: 10, Height: 10}}
			}
			assert.Len(t, ws.Units(), 1)
			return ev.RequestExit{}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveUnitTakesPopupsAlong(t *testing.T) {
	_, ws := newPanel(t, oneOutput(), barSettings())
	main := ws.MainUnit().ID()

	phase := 0
	err := run(ws, func(e ev.Event, ws *ev.WindowState[string], _ *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			return buffer(t, e)
		case ev.NormalDispatch:
			if phase == 2 {
				assert.Empty(t, ws.Units())
				return ev.RequestExit{}
			}
			if !drawn(ws) {
				return nil
			}
			switch phase {
			case 0:
				phase++
				return ev.NewPopUp[string]{Parent: main, Settings: ev.PopUpSettings{Width: 50, Height: 50}}
			case 1:
				phase++
				require.Len(t, ws.Units(), 2)
				return ev.RemoveUnit{ID: main}
			}
		}
		return nil
	})
	require.NoError(t, err)
}
