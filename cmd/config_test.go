package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlshellev/internal/config"
)

// executeCommand runs root with args and returns what it printed.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolatedConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		config.SetConfigPath("")
		config.Set(nil)
	})
	return filepath.Join(dir, ".config", "wlshellev", "wlshellev.toml")
}

func TestConfigInit(t *testing.T) {
	path := isolatedConfig(t)

	t.Run("creates config file when it doesn't exist", func(t *testing.T) {
		_, err := executeCommand(rootCmd, "config", "init", "--config", path)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("doesn't overwrite existing config without force", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[panel]\nnamespace = \"mine\"\n"), 0644))
		viper.Reset()
		_, err := executeCommand(rootCmd, "config", "init", "--config", path)
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[panel]\nnamespace = \"mine\"\n", string(content))
	})

	t.Run("overwrites with force flag", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[lock]\ntimeout = 3\n"), 0644))
		viper.Reset()
		_, err := executeCommand(rootCmd, "config", "init", "--config", path, "--force")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		// The file is rewritten from the merged settings, defaults included.
		assert.Contains(t, string(content), "namespace")
		assert.Contains(t, string(content), "timeout = 3")
	})
}

func TestConfigShow(t *testing.T) {
	path := isolatedConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("[panel]\nnamespace = \"topbar\"\nanchor = [\"top\"]\n"), 0644))

	out, err := executeCommand(rootCmd, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "topbar")
	assert.Contains(t, out, "[lock]")
	assert.Contains(t, out, path)
}

func TestConfigPath(t *testing.T) {
	isolatedConfig(t)
	out, err := executeCommand(rootCmd, "config", "path", "--config", "/tmp/elsewhere.toml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.toml\n", out)
}

func TestConfigValidation(t *testing.T) {
	path := isolatedConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("[panel\nlayer = top\n"), 0644))

	_, err := executeCommand(rootCmd, "config", "show", "--config", path)
	assert.ErrorContains(t, err, "error reading config file")
}
