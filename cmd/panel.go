package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/config"
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/keymap"
	"github.com/bnema/wlshellev/layershell"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

const btnLeft = 0x110

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Show a solid color panel on every output",
	Long: `Show a solid color layer shell surface. Placement, size and color come
from the [panel] section of the config file; flags override them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		p := cfg.Panel
		f := cmd.Flags()
		if f.Changed("namespace") {
			p.Namespace, _ = f.GetString("namespace")
		}
		if f.Changed("layer") {
			p.Layer, _ = f.GetString("layer")
		}
		if f.Changed("anchor") {
			p.Anchor, _ = f.GetStringSlice("anchor")
		}
		if f.Changed("width") {
			p.Width, _ = f.GetUint32("width")
		}
		if f.Changed("height") {
			p.Height, _ = f.GetUint32("height")
		}
		if f.Changed("exclusive-zone") {
			p.ExclusiveZone, _ = f.GetInt32("exclusive-zone")
		}
		if f.Changed("color") {
			p.Color, _ = f.GetString("color")
		}
		if f.Changed("single") {
			single, _ := f.GetBool("single")
			p.PerOutput = !single
		}

		settings, err := p.LayerShell(cfg.Cursor)
		if err != nil {
			return err
		}
		settings.Display = display
		pixel, err := config.ParseColor(p.Color)
		if err != nil {
			return err
		}

		if p.VirtualKeyboard {
			km, err := keymap.Default()
			if err != nil {
				return err
			}
			defer km.Close()
			settings.VirtualKeyboard = km
		}

		ws, err := layershell.New[struct{}](settings)
		if err != nil {
			return err
		}
		logger.Info("Panel started", "namespace", settings.Namespace, "surfaces", len(ws.Units()))

		events := newUserEvents()
		defer events.Close()
		events.signals()

		exitOnClick, _ := f.GetBool("exit-on-click")
		return ws.RunWithUserEvents(panelHandler(pixel, exitOnClick), events.Events())
	},
}

// panelHandler paints every surface once, shows a hand cursor over it and
// exits on a termination signal.
func panelHandler(pixel uint32, exitOnClick bool) ev.Handler[struct{}] {
	return func(e ev.Event, ws *ev.WindowState[struct{}], id *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			rd, err := fill(e, pixel, wire.FormatARGB8888)
			if err != nil {
				logger.Fatal("Failed to draw panel", "error", err)
			}
			return rd
		case ev.XdgInfoChanged:
			if u := unitOf(ws, id); u != nil {
				if info, ok := u.XdgInfo(); ok {
					logger.Debug("Output info", "unit", *id, "name", info.Name, "size", info.LogicalSize)
				}
			}
		case ev.RequestMessages:
			switch m := e.Message.(type) {
			case ev.MouseEnter:
				return ev.RequestSetCursorShape{Shape: "pointer", Pointer: m.Pointer, Serial: m.Serial}
			case ev.MouseButton:
				if exitOnClick && m.Button == btnLeft && m.State == wl.StatePressed {
					logger.Info("Panel clicked, exiting")
					return ev.RequestExit{}
				}
			case ev.RequestRefresh:
				logger.Debug("Panel resized", "width", m.Width, "height", m.Height, "scale", m.ScaleFloat)
			case ev.Closed:
				logger.Info("Panel surface closed by the compositor")
			}
		case ev.UserEvent:
			if s, ok := e.Message.(os.Signal); ok {
				logger.Info("Received signal, exiting", "signal", s)
				return ev.RequestExit{}
			}
		}
		return nil
	}
}

func unitOf[T any](ws *ev.WindowState[T], id *ev.UnitID) *ev.Unit[T] {
	if id == nil {
		return nil
	}
	return ws.Unit(*id)
}

func init() {
	f := panelCmd.Flags()
	f.String("namespace", "", "layer shell namespace")
	f.String("layer", "", "background, bottom, top or overlay")
	f.StringSlice("anchor", nil, "edges to anchor to (top,bottom,left,right)")
	f.Uint32("width", 0, "surface width, 0 stretches between anchored edges")
	f.Uint32("height", 0, "surface height, 0 stretches between anchored edges")
	f.Int32("exclusive-zone", 0, "space to reserve, -1 to overlap other panels")
	f.String("color", "", "fill color as #rrggbb or #aarrggbb")
	f.Bool("single", false, "one surface on the compositor's chosen output")
	f.Bool("exit-on-click", false, "exit when the panel is clicked")
	rootCmd.AddCommand(panelCmd)
}
