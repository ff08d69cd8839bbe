package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/wlshellev/layershell"
)

// ParseLayer maps a layer name to its protocol value.
func ParseLayer(name string) (layershell.Layer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "background":
		return layershell.LayerBackground, nil
	case "bottom":
		return layershell.LayerBottom, nil
	case "top", "":
		return layershell.LayerTop, nil
	case "overlay":
		return layershell.LayerOverlay, nil
	}
	return 0, fmt.Errorf("unknown layer %q", name)
}

// ParseAnchor ORs edge names together.
func ParseAnchor(edges []string) (layershell.Anchor, error) {
	var a layershell.Anchor
	for _, e := range edges {
		switch strings.ToLower(strings.TrimSpace(e)) {
		case "top":
			a |= layershell.AnchorTop
		case "bottom":
			a |= layershell.AnchorBottom
		case "left":
			a |= layershell.AnchorLeft
		case "right":
			a |= layershell.AnchorRight
		default:
			return 0, fmt.Errorf("unknown anchor edge %q", e)
		}
	}
	return a, nil
}

// ParseKeyboard maps a keyboard interactivity name to its protocol value.
func ParseKeyboard(name string) (layershell.KeyboardInteractivity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return layershell.KeyboardNone, nil
	case "exclusive":
		return layershell.KeyboardExclusive, nil
	case "on_demand", "on-demand", "ondemand":
		return layershell.KeyboardOnDemand, nil
	}
	return 0, fmt.Errorf("unknown keyboard interactivity %q", name)
}

// LayerShell converts the panel section into layer shell settings. The
// virtual keyboard keymap is left to the caller since it owns a file.
func (p PanelConfig) LayerShell(cursor CursorConfig) (layershell.Settings, error) {
	layer, err := ParseLayer(p.Layer)
	if err != nil {
		return layershell.Settings{}, err
	}
	anchor, err := ParseAnchor(p.Anchor)
	if err != nil {
		return layershell.Settings{}, err
	}
	keyboard, err := ParseKeyboard(p.Keyboard)
	if err != nil {
		return layershell.Settings{}, err
	}

	var margin layershell.Margin
	switch len(p.Margin) {
	case 0:
	case 4:
		margin = layershell.Margin{Top: p.Margin[0], Right: p.Margin[1], Bottom: p.Margin[2], Left: p.Margin[3]}
	default:
		return layershell.Settings{}, fmt.Errorf("margin needs 4 values (top, right, bottom, left), got %d", len(p.Margin))
	}

	s := layershell.Settings{
		Namespace:     p.Namespace,
		PerOutput:     p.PerOutput,
		Layer:         layer,
		Anchor:        anchor,
		Margin:        margin,
		ExclusiveZone: p.ExclusiveZone,
		Keyboard:      keyboard,
		CursorTheme:   cursor.Theme,
		CursorSize:    cursor.Size,
	}
	if p.Width != 0 || p.Height != 0 {
		s.Size = &[2]uint32{p.Width, p.Height}
	}
	return s, nil
}

// ParseColor reads #rrggbb or #aarrggbb into a premultiplied ARGB pixel.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	v := uint32(n)
	if len(hex) == 6 {
		return 0xff000000 | v, nil
	}
	a := v >> 24
	r := (v >> 16 & 0xff) * a / 0xff
	g := (v >> 8 & 0xff) * a / 0xff
	b := (v & 0xff) * a / 0xff
	return a<<24 | r<<16 | g<<8 | b, nil
}
