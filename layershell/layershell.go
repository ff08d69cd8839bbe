// Package layershell runs ev units as wlr-layer-shell surfaces: panels,
// docks, wallpapers and on-screen keyboards.
package layershell

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/wlshellev/ev"
	"github.com/bnema/wlshellev/keymap"
	"github.com/bnema/wlshellev/protocol/wlrlayer"
	"github.com/bnema/wlshellev/wire"
)

// ErrNamespace is returned for an empty namespace.
var ErrNamespace = errors.New("layer shell namespace must not be empty")

type Layer uint32

const (
	LayerBackground Layer = wlrlayer.LayerBackground
	LayerBottom     Layer = wlrlayer.LayerBottom
	LayerTop        Layer = wlrlayer.LayerTop
	LayerOverlay    Layer = wlrlayer.LayerOverlay
)

// Anchor is a bitmask of screen edges.
type Anchor uint32

const (
	AnchorTop    Anchor = wlrlayer.AnchorTop
	AnchorBottom Anchor = wlrlayer.AnchorBottom
	AnchorLeft   Anchor = wlrlayer.AnchorLeft
	AnchorRight  Anchor = wlrlayer.AnchorRight
)

type KeyboardInteractivity uint32

const (
	KeyboardNone      KeyboardInteractivity = wlrlayer.KeyboardInteractivityNone
	KeyboardExclusive KeyboardInteractivity = wlrlayer.KeyboardInteractivityExclusive
	KeyboardOnDemand  KeyboardInteractivity = wlrlayer.KeyboardInteractivityOnDemand
)

// Options describe one layer surface.
type Options struct {
	Namespace string
	Layer     Layer
	// Size is the requested size; a zero dimension lets the compositor
	// decide, which requires anchoring both opposite edges.
	Size          [2]uint32
	Anchor        Anchor
	Margin        Margin
	ExclusiveZone int32
	Keyboard      KeyboardInteractivity
}

// Margin is top, right, bottom, left.
type Margin struct {
	Top, Right, Bottom, Left int32
}

// Settings configure a layer shell WindowState.
type Settings struct {
	// Display overrides WAYLAND_DISPLAY.
	Display   string
	Namespace string
	// PerOutput creates one surface per output, following hot-plug.
	PerOutput     bool
	Layer         Layer
	Size          *[2]uint32
	Anchor        Anchor
	Margin        Margin
	ExclusiveZone int32
	Keyboard      KeyboardInteractivity

	UseDisplayHandle bool
	IdleTicks        int
	UserEventPoll    time.Duration
	UserEventBuffer  int
	VirtualKeyboard  *keymap.Keymap
	CursorTheme      string
	CursorSize       uint32
}

// Options returns the per-surface part of s.
func (s Settings) Options() Options {
	o := Options{
		Namespace:     s.Namespace,
		Layer:         s.Layer,
		Anchor:        s.Anchor,
		Margin:        s.Margin,
		ExclusiveZone: s.ExclusiveZone,
		Keyboard:      s.Keyboard,
	}
	if s.Size != nil {
		o.Size = *s.Size
	}
	return o
}

func (s Settings) evOptions() ev.Options {
	return ev.Options{
		UseDisplayHandle: s.UseDisplayHandle,
		IdleTicks:        s.IdleTicks,
		UserEventPoll:    s.UserEventPoll,
		UserEventBuffer:  s.UserEventBuffer,
		VirtualKeyboard:  s.VirtualKeyboard,
		CursorTheme:      s.CursorTheme,
		CursorSize:       s.CursorSize,
	}
}

// New connects to the compositor and builds a layer shell WindowState.
func New[T any](s Settings) (*ev.WindowState[T], error) {
	if s.Namespace == "" {
		return nil, ErrNamespace
	}
	conn, err := ev.Connect(s.Display)
	if err != nil {
		return nil, err
	}
	return NewWithConn[T](conn, s)
}

// NewWithConn builds on an existing connection, which is closed on error.
func NewWithConn[T any](conn *wire.Conn, s Settings) (*ev.WindowState[T], error) {
	if s.Namespace == "" {
		_ = conn.Close()
		return nil, ErrNamespace
	}
	sh := &shell{defaults: s.Options(), perOutput: s.PerOutput}
	return ev.Build[T](conn, sh, s.evOptions())
}

// NewLayerShell asks the run loop for an extra layer surface. A nil output
// lets the compositor choose.
func NewLayerShell[T any](opts Options, output *ev.Output) ev.NewUnit[T] {
	return ev.NewUnit[T]{Options: opts, Output: output}
}

// NewLayerShellWithBinding is NewLayerShell with an initial binding.
func NewLayerShellWithBinding[T any](opts Options, output *ev.Output, binding T) ev.NewUnit[T] {
	return ev.NewUnit[T]{Options: opts, Output: output, Binding: binding, HasBinding: true}
}

type shell struct {
	defaults  Options
	perOutput bool
	manager   *wlrlayer.LayerShell
}

func (s *shell) Bind(g *ev.Globals, _ func(ev.DispatchMessage)) error {
	gl, ok := g.List.Find(wlrlayer.LayerShellInterface)
	if !ok {
		return &ev.BindError{Interface: wlrlayer.LayerShellInterface, Err: ev.ErrMissingGlobal}
	}
	s.manager = wlrlayer.NewLayerShell(min(gl.Version, wlrlayer.LayerShellVersion))
	_, err := g.Bind(wlrlayer.LayerShellInterface, wlrlayer.LayerShellVersion, s.manager)
	return err
}

func (s *shell) Placement() ev.Placement {
	if s.perOutput {
		return ev.PlacePerOutput
	}
	return ev.PlaceSingle
}

func (s *shell) Features() ev.Features {
	return ev.Features{XdgOutput: true}
}

func (s *shell) DefaultOptions() any {
	return s.defaults
}

func (s *shell) NewRole(req ev.RoleRequest) (ev.Role, error) {
	opts := s.defaults
	switch o := req.Options.(type) {
	case nil:
	case Options:
		opts = o
	case *Options:
		opts = *o
	default:
		panic(fmt.Sprintf("layershell: unit options are %T, want layershell.Options", req.Options))
	}
	if opts.Namespace == "" {
		opts.Namespace = s.defaults.Namespace
	}

	ls, err := s.manager.GetLayerSurface(req.Surface, outputHandle(req.Output), uint32(opts.Layer), opts.Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: get layer surface: %w", ev.ErrDispatch, err)
	}
	surf := &Surface{layer: ls, surface: req.Surface, requested: opts.Size}
	if err := surf.apply(opts); err != nil {
		_ = ls.Destroy()
		return nil, fmt.Errorf("%w: %w", ev.ErrDispatch, err)
	}

	sink := req.Sink
	ls.SetConfigureHandler(func(e wlrlayer.LayerSurfaceConfigureEvent) {
		w, h := e.Width, e.Height
		if w == 0 {
			w = surf.requested[0]
		}
		if h == 0 {
			h = surf.requested[1]
		}
		sink.Configure(e.Serial, w, h)
	})
	ls.SetClosedHandler(func(wlrlayer.LayerSurfaceClosedEvent) {
		sink.Closed()
	})
	return surf, nil
}

func (s *shell) Exit(*ev.Globals) error {
	return nil
}
