package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/wlshellev/internal/config"
	"github.com/bnema/wlshellev/internal/logger"
)

var (
	configPath string
	display    string

	rootCmd = &cobra.Command{
		Use:   "wlshellev",
		Short: "wlshellev - layer shell and session lock surfaces for Wayland",
		Long: `wlshellev drives wlr-layer-shell and ext-session-lock surfaces on
wlroots-style compositors. The subcommands exercise the event loop: a
panel on every output, a minimal screen locker and an output probe.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetConfigPath(configPath)
			if err := config.Init(); err != nil {
				return err
			}
			logger.SetLevel(config.Get().Logging.LogLevel)
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/wlshellev/wlshellev.toml)")
	rootCmd.PersistentFlags().StringVar(&display, "display", "", "Wayland display to connect to (default: $WAYLAND_DISPLAY)")
}
