package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestFormatAppHeader(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		status string
		want   string
	}{
		{name: "with status", title: "OUTPUTS", status: "wayland-1", want: " OUTPUTS  wayland-1"},
		{name: "title only", title: "LOCK", want: " LOCK "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ansi.Strip(FormatAppHeader(tt.title, tt.status)))
		})
	}
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, IconSuccess+" locked", ansi.Strip(FormatResult(true, "locked")))
	assert.Equal(t, IconError+" refused", ansi.Strip(FormatResult(false, "refused")))
	assert.Equal(t, IconWarning+" no seat", ansi.Strip(FormatWarning("no seat")))
	assert.Equal(t, "name: DP-1", ansi.Strip(FormatKeyValue("name", "DP-1")))
}

func TestTable(t *testing.T) {
	out := ansi.Strip(Table(
		[]string{"NAME", "SIZE"},
		[][]string{{"DP-1", "800x600"}, {"HDMI-A-1", "1024x768"}},
	))
	lines := strings.Split(out, "\n")
	// top border, header, separator, two rows, bottom border
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[1], "NAME")
	assert.Contains(t, lines[3], "DP-1")
	assert.Contains(t, lines[4], "1024x768")
	assert.True(t, strings.HasPrefix(lines[0], "╭"))
}

func TestCreateSeparator(t *testing.T) {
	tests := []struct {
		name  string
		width int
		char  string
		want  string
	}{
		{"defaults", 0, "", strings.Repeat("─", 50)},
		{"custom", 3, "=", "==="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ansi.Strip(CreateSeparator(tt.width, tt.char)))
		})
	}
}
