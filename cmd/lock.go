package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/internal/config"
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/internal/logind"
	"github.com/bnema/wlshellev/sessionlock"
	"github.com/bnema/wlshellev/wire"
)

// lockTimeout is sent when --timeout expires.
type lockTimeout struct{}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the session with a solid color on every output",
	Long: `Lock the session until the timeout expires, logind asks for an unlock
(loginctl unlock-session) or the process receives SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get().Lock
		f := cmd.Flags()
		timeout := time.Duration(cfg.Timeout) * time.Second
		if f.Changed("timeout") {
			timeout, _ = f.GetDuration("timeout")
		}
		useLogind := cfg.Logind
		if f.Changed("logind") {
			useLogind, _ = f.GetBool("logind")
		}
		color := cfg.Color
		if f.Changed("color") {
			color, _ = f.GetString("color")
		}
		pixel, err := config.ParseColor(color)
		if err != nil {
			return err
		}

		events := newUserEvents()
		defer events.Close()
		events.signals()
		events.after(timeout, lockTimeout{})

		if useLogind {
			w, err := logind.Watch()
			if err != nil {
				return err
			}
			defer w.Close()
			events.add(w.Events())
		}

		cursor := config.Get().Cursor
		ws, err := sessionlock.New[struct{}](sessionlock.Settings{
			Display:     display,
			CursorTheme: cursor.Theme,
			CursorSize:  cursor.Size,
		})
		if err != nil {
			return err
		}
		logger.Info("Locking session", "outputs", len(ws.Units()), "timeout", timeout)

		return ws.RunWithUserEvents(lockHandler(pixel), events.Events())
	},
}

// lockHandler paints every lock surface and unlocks on timeout, logind
// unlock or a termination signal.
func lockHandler(pixel uint32) ev.Handler[struct{}] {
	return func(e ev.Event, ws *ev.WindowState[struct{}], _ *ev.UnitID) ev.ReturnData {
		switch e := e.(type) {
		case ev.RequestBuffer:
			rd, err := fill(e, pixel, wire.FormatXRGB8888)
			if err != nil {
				logger.Fatal("Failed to draw lock surface", "error", err)
			}
			return rd
		case ev.RequestMessages:
			switch e.Message.(type) {
			case ev.SessionLocked:
				logger.Info("Session locked")
			case ev.SessionFinished:
				logger.Warn("Compositor refused or ended the lock")
				return ev.RequestExit{}
			}
		case ev.UserEvent:
			switch m := e.Message.(type) {
			case lockTimeout:
				logger.Info("Lock timeout reached, unlocking")
				return ev.RequestUnlockAndExit{}
			case logind.Request:
				if m == logind.UnlockRequested {
					logger.Info("logind requested unlock")
					return ev.RequestUnlockAndExit{}
				}
			case os.Signal:
				logger.Info("Received signal, unlocking", "signal", m)
				return ev.RequestUnlockAndExit{}
			}
		}
		return nil
	}
}

func init() {
	f := lockCmd.Flags()
	f.Duration("timeout", 0, "unlock after this long, 0 waits for a signal or logind")
	f.Bool("logind", false, "unlock when logind asks (loginctl unlock-session)")
	f.String("color", "", "fill color as #rrggbb")
	rootCmd.AddCommand(lockCmd)
}
