package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/wlshellev/internal/config"
	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wlshellev configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatAppHeader("CONFIG", config.GetConfigPath()))
		fmt.Fprintln(out)

		fmt.Fprintln(out, ui.HeaderStyle.Render("[panel]"))
		fmt.Fprintln(out, ui.FormatKeyValue("  namespace", cfg.Panel.Namespace))
		fmt.Fprintln(out, ui.FormatKeyValue("  layer", cfg.Panel.Layer))
		fmt.Fprintln(out, ui.FormatKeyValue("  anchor", strings.Join(cfg.Panel.Anchor, "|")))
		fmt.Fprintln(out, ui.FormatKeyValue("  size", fmt.Sprintf("%dx%d", cfg.Panel.Width, cfg.Panel.Height)))
		fmt.Fprintln(out, ui.FormatKeyValue("  margin", fmt.Sprint(cfg.Panel.Margin)))
		fmt.Fprintln(out, ui.FormatKeyValue("  exclusive_zone", fmt.Sprint(cfg.Panel.ExclusiveZone)))
		fmt.Fprintln(out, ui.FormatKeyValue("  keyboard", cfg.Panel.Keyboard))
		fmt.Fprintln(out, ui.FormatKeyValue("  per_output", fmt.Sprint(cfg.Panel.PerOutput)))
		fmt.Fprintln(out, ui.FormatKeyValue("  color", cfg.Panel.Color))
		fmt.Fprintln(out, ui.FormatKeyValue("  virtual_keyboard", fmt.Sprint(cfg.Panel.VirtualKeyboard)))

		fmt.Fprintln(out, ui.HeaderStyle.Render("[lock]"))
		fmt.Fprintln(out, ui.FormatKeyValue("  timeout", fmt.Sprintf("%ds", cfg.Lock.Timeout)))
		fmt.Fprintln(out, ui.FormatKeyValue("  logind", fmt.Sprint(cfg.Lock.Logind)))
		fmt.Fprintln(out, ui.FormatKeyValue("  color", cfg.Lock.Color))

		fmt.Fprintln(out, ui.HeaderStyle.Render("[cursor]"))
		theme := cfg.Cursor.Theme
		if theme == "" {
			theme = "(XCURSOR_THEME or default)"
		}
		fmt.Fprintln(out, ui.FormatKeyValue("  theme", theme))
		size := fmt.Sprint(cfg.Cursor.Size)
		if cfg.Cursor.Size == 0 {
			size = "(XCURSOR_SIZE or default)"
		}
		fmt.Fprintln(out, ui.FormatKeyValue("  size", size))

		fmt.Fprintln(out, ui.HeaderStyle.Render("[logging]"))
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(LOG_LEVEL or info)"
		}
		fmt.Fprintln(out, ui.FormatKeyValue("  log_level", level))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
