package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"nonsense", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetLevelRespectsEnv(t *testing.T) {
	orig := Logger.GetLevel()
	defer Logger.SetLevel(orig)

	t.Setenv("LOG_LEVEL", "")
	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	t.Setenv("LOG_LEVEL", "ERROR")
	SetLevel("info")
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	orig := Logger.GetLevel()
	defer Logger.SetLevel(orig)
	Logger.SetLevel(log.InfoLevel)

	Info("hello", "unit", 3)
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "unit=3")
}
