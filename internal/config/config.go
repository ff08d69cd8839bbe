// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Panel   PanelConfig   `mapstructure:"panel"`
	Lock    LockConfig    `mapstructure:"lock"`
	Cursor  CursorConfig  `mapstructure:"cursor"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PanelConfig describes the surface created by `wlshellev panel`
type PanelConfig struct {
	Namespace string   `mapstructure:"namespace"`
	Layer     string   `mapstructure:"layer"`  // background, bottom, top, overlay
	Anchor    []string `mapstructure:"anchor"` // any of top, bottom, left, right
	Width     uint32   `mapstructure:"width"`  // 0 lets the compositor stretch the surface
	Height    uint32   `mapstructure:"height"`
	Margin    []int32  `mapstructure:"margin"` // top, right, bottom, left
	// ExclusiveZone reserves space; -1 asks to overlap other exclusive zones.
	ExclusiveZone   int32  `mapstructure:"exclusive_zone"`
	Keyboard        string `mapstructure:"keyboard"` // none, exclusive, on_demand
	PerOutput       bool   `mapstructure:"per_output"`
	Color           string `mapstructure:"color"`
	VirtualKeyboard bool   `mapstructure:"virtual_keyboard"`
}

// LockConfig contains settings for `wlshellev lock`
type LockConfig struct {
	Timeout int    `mapstructure:"timeout"` // seconds, 0 waits for a signal or logind
	Logind  bool   `mapstructure:"logind"`
	Color   string `mapstructure:"color"`
}

// CursorConfig selects the themed cursor used when cursor-shape is missing
type CursorConfig struct {
	Theme string `mapstructure:"theme"`
	Size  uint32 `mapstructure:"size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Overridden by the LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Panel: PanelConfig{
			Namespace: "wlshellev",
			Layer:     "top",
			Anchor:    []string{"top", "left", "right"},
			Width:     0,
			Height:    30,
			Margin:    []int32{0, 0, 0, 0},
			// Reserve the bar height so windows do not cover it
			ExclusiveZone: 30,
			Keyboard:      "none",
			PerOutput:     true,
			Color:         "#1e1e2e",
		},
		Lock: LockConfig{
			Timeout: 0,
			Logind:  false,
			Color:   "#000000",
		},
		Cursor: CursorConfig{
			Theme: "", // Empty means XCURSOR_THEME
			Size:  0,  // 0 means XCURSOR_SIZE
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wlshellev")
	viper.SetConfigType("toml")

	// WLSHELLEV_PANEL_NAMESPACE overrides panel.namespace
	viper.SetEnvPrefix("wlshellev")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/wlshellev")
		if dir := userConfigDir(); dir != "" {
			viper.AddConfigPath(dir)
		}
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("panel.namespace", DefaultConfig.Panel.Namespace)
	viper.SetDefault("panel.layer", DefaultConfig.Panel.Layer)
	viper.SetDefault("panel.anchor", DefaultConfig.Panel.Anchor)
	viper.SetDefault("panel.width", DefaultConfig.Panel.Width)
	viper.SetDefault("panel.height", DefaultConfig.Panel.Height)
	viper.SetDefault("panel.margin", DefaultConfig.Panel.Margin)
	viper.SetDefault("panel.exclusive_zone", DefaultConfig.Panel.ExclusiveZone)
	viper.SetDefault("panel.keyboard", DefaultConfig.Panel.Keyboard)
	viper.SetDefault("panel.per_output", DefaultConfig.Panel.PerOutput)
	viper.SetDefault("panel.color", DefaultConfig.Panel.Color)
	viper.SetDefault("panel.virtual_keyboard", DefaultConfig.Panel.VirtualKeyboard)

	viper.SetDefault("lock.timeout", DefaultConfig.Lock.Timeout)
	viper.SetDefault("lock.logind", DefaultConfig.Lock.Logind)
	viper.SetDefault("lock.color", DefaultConfig.Lock.Color)

	viper.SetDefault("cursor.theme", DefaultConfig.Cursor.Theme)
	viper.SetDefault("cursor.size", DefaultConfig.Cursor.Size)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.HasPrefix(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, "wlshellev.toml")
	}
	return "/etc/wlshellev/wlshellev.toml"
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wlshellev")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "wlshellev")
	}
	return ""
}
