package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/layershell"
)

// isolate points every config lookup at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	viper.Reset()
	SetConfigPath("")
	t.Cleanup(func() {
		viper.Reset()
		SetConfigPath("")
		Set(nil)
	})
	return dir
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		isolate(t)
		require.NoError(t, Init())

		c := Get()
		assert.Equal(t, "wlshellev", c.Panel.Namespace)
		assert.Equal(t, "top", c.Panel.Layer)
		assert.Equal(t, []string{"top", "left", "right"}, c.Panel.Anchor)
		assert.Equal(t, uint32(30), c.Panel.Height)
		assert.True(t, c.Panel.PerOutput)
		assert.Zero(t, c.Cursor.Size)
	})

	t.Run("reads the override file", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[panel]
namespace = "dock"
layer = "overlay"
anchor = ["bottom"]
width = 400
height = 48
margin = [1, 2, 3, 4]
keyboard = "on_demand"
per_output = false

[lock]
timeout = 10
logind = true

[cursor]
theme = "Adwaita"
size = 32
`), 0644))
		SetConfigPath(path)
		require.NoError(t, Init())

		c := Get()
		assert.Equal(t, "dock", c.Panel.Namespace)
		assert.Equal(t, "overlay", c.Panel.Layer)
		assert.Equal(t, []string{"bottom"}, c.Panel.Anchor)
		assert.Equal(t, uint32(400), c.Panel.Width)
		assert.Equal(t, []int32{1, 2, 3, 4}, c.Panel.Margin)
		assert.False(t, c.Panel.PerOutput)
		assert.Equal(t, 10, c.Lock.Timeout)
		assert.True(t, c.Lock.Logind)
		assert.Equal(t, "Adwaita", c.Cursor.Theme)
		assert.Equal(t, uint32(32), c.Cursor.Size)
		// Untouched keys keep their defaults
		assert.Equal(t, DefaultConfig.Lock.Color, c.Lock.Color)
		assert.Equal(t, path, GetConfigPath())
	})

	t.Run("missing override file falls back to defaults", func(t *testing.T) {
		dir := isolate(t)
		SetConfigPath(filepath.Join(dir, "missing.toml"))
		require.NoError(t, Init())
		assert.Equal(t, DefaultConfig.Panel.Namespace, Get().Panel.Namespace)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		isolate(t)
		t.Setenv("WLSHELLEV_PANEL_NAMESPACE", "from-env")
		t.Setenv("WLSHELLEV_LOCK_TIMEOUT", "5")
		require.NoError(t, Init())
		assert.Equal(t, "from-env", Get().Panel.Namespace)
		assert.Equal(t, 5, Get().Lock.Timeout)
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "wlshellev.toml")
		require.NoError(t, os.WriteFile(path, []byte("[panel\nnamespace = 1"), 0644))
		SetConfigPath(path)
		assert.Error(t, Init())
	})
}

func TestGetBeforeInit(t *testing.T) {
	Set(nil)
	assert.Equal(t, &DefaultConfig, Get())
}

func TestConfigPathResolution(t *testing.T) {
	t.Run("xdg config home", func(t *testing.T) {
		isolate(t)
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		assert.Equal(t, "/tmp/xdg/wlshellev/wlshellev.toml", GetConfigPath())
	})

	t.Run("home fallback", func(t *testing.T) {
		isolate(t)
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		assert.Equal(t, "/home/testuser/.config/wlshellev/wlshellev.toml", GetConfigPath())
	})

	t.Run("override wins", func(t *testing.T) {
		isolate(t)
		SetConfigPath("/somewhere/else.toml")
		assert.Equal(t, "/somewhere/else.toml", GetConfigPath())
	})
}

func TestSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "wlshellev.toml")
	SetConfigPath(path)
	require.NoError(t, Init())

	viper.Set("panel.namespace", "saved")
	require.NoError(t, Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved")

	viper.Reset()
	require.NoError(t, Init())
	assert.Equal(t, "saved", Get().Panel.Namespace)
}

func TestLayerShellSettings(t *testing.T) {
	s, err := DefaultConfig.Panel.LayerShell(CursorConfig{Theme: "Adwaita", Size: 24})
	require.NoError(t, err)
	assert.Equal(t, "wlshellev", s.Namespace)
	assert.Equal(t, layershell.LayerTop, s.Layer)
	assert.Equal(t, layershell.AnchorTop|layershell.AnchorLeft|layershell.AnchorRight, s.Anchor)
	require.NotNil(t, s.Size)
	assert.Equal(t, [2]uint32{0, 30}, *s.Size)
	assert.Equal(t, int32(30), s.ExclusiveZone)
	assert.True(t, s.PerOutput)
	assert.Equal(t, "Adwaita", s.CursorTheme)
	assert.Equal(t, uint32(24), s.CursorSize)

	p := DefaultConfig.Panel
	p.Width, p.Height = 0, 0
	p.Margin = []int32{1, 2, 3, 4}
	s, err = p.LayerShell(CursorConfig{})
	require.NoError(t, err)
	assert.Nil(t, s.Size)
	assert.Equal(t, layershell.Margin{Top: 1, Right: 2, Bottom: 3, Left: 4}, s.Margin)

	tests := []struct {
		name   string
		mutate func(*PanelConfig)
	}{
		{"bad layer", func(p *PanelConfig) { p.Layer = "middle" }},
		{"bad anchor", func(p *PanelConfig) { p.Anchor = []string{"north"} }},
		{"bad keyboard", func(p *PanelConfig) { p.Keyboard = "sometimes" }},
		{"short margin", func(p *PanelConfig) { p.Margin = []int32{1, 2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultConfig.Panel
			tt.mutate(&p)
			_, err := p.LayerShell(CursorConfig{})
			assert.Error(t, err)
		})
	}
}

func TestParseKeyboard(t *testing.T) {
	tests := []struct {
		in   string
		want layershell.KeyboardInteractivity
	}{
		{"", layershell.KeyboardNone},
		{"none", layershell.KeyboardNone},
		{"Exclusive", layershell.KeyboardExclusive},
		{"on-demand", layershell.KeyboardOnDemand},
		{"on_demand", layershell.KeyboardOnDemand},
	}
	for _, tt := range tests {
		got, err := ParseKeyboard(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "#1e1e2e", want: 0xff1e1e2e},
		{in: "000000", want: 0xff000000},
		{in: "#80ff0000", want: 0x80800000},
		{in: "#00ffffff", want: 0},
		{in: "#12345g", wantErr: true},
		{in: "#fff", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
