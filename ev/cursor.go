package ev

import (
	"fmt"

	"github.com/bnema/wlshellev/internal/logger"
	"github.com/bnema/wlshellev/internal/xcursor"
	"github.com/bnema/wlshellev/protocol/cursorshape"
	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

// cursorState holds cursor-shape devices per pointer, or the software
// cursor surface and its themed buffers when the protocol is missing.
type cursorState struct {
	devices map[*wl.Pointer]*cursorshape.Device

	theme   *xcursor.Theme
	surface *wl.Surface
	images  map[string]*cursorImage
}

type cursorImage struct {
	buffer   *wl.Buffer
	width    int32
	height   int32
	hotspotX int32
	hotspotY int32
}

func (ws *WindowState[T]) setCursor(rd RequestSetCursorShape) {
	pointer := rd.Pointer
	if pointer == nil {
		pointer = ws.input.pointer
	}
	if pointer == nil {
		logger.Debug("No pointer, ignoring cursor request", "shape", rd.Shape)
		return
	}
	serial := rd.Serial
	if serial == 0 {
		serial = ws.input.enterSerial
	}
	if ws.cursor == nil {
		ws.cursor = &cursorState{
			devices: make(map[*wl.Pointer]*cursorshape.Device),
			images:  make(map[string]*cursorImage),
		}
	}

	if m := ws.globals.CursorShape; m != nil {
		if err := ws.cursor.setShape(m, pointer, serial, rd.Shape); err != nil {
			logger.Warn("Failed to set cursor shape", "shape", rd.Shape, "error", err)
		}
		return
	}
	if err := ws.setThemedCursor(pointer, serial, rd.Shape); err != nil {
		logger.Warn("Failed to set themed cursor", "shape", rd.Shape, "error", err)
	}
}

func (c *cursorState) setShape(m *cursorshape.Manager, p *wl.Pointer, serial uint32, name string) error {
	dev, ok := c.devices[p]
	if !ok {
		var err error
		dev, err = m.GetPointer(p)
		if err != nil {
			return err
		}
		c.devices[p] = dev
	}
	return dev.SetShape(serial, cursorShape(name))
}

// setThemedCursor loads the shape from the Xcursor theme and attaches it to
// a dedicated cursor surface.
func (ws *WindowState[T]) setThemedCursor(p *wl.Pointer, serial uint32, name string) error {
	c := ws.cursor
	if c.theme == nil {
		c.theme = xcursor.NewTheme(ws.opts.CursorTheme, ws.opts.CursorSize)
	}
	img, ok := c.images[name]
	if !ok {
		loaded, err := c.theme.LoadAny(xcursor.Names(name)...)
		if err != nil {
			return err
		}
		img, err = ws.cursorBuffer(loaded)
		if err != nil {
			return err
		}
		c.images[name] = img
	}
	if c.surface == nil {
		s, err := ws.globals.Compositor.CreateSurface()
		if err != nil {
			return fmt.Errorf("create cursor surface: %w", err)
		}
		c.surface = s
	}
	if err := c.surface.Attach(img.buffer, 0, 0); err != nil {
		return err
	}
	if err := c.surface.DamageBuffer(0, 0, img.width, img.height); err != nil {
		return err
	}
	if err := c.surface.Commit(); err != nil {
		return err
	}
	return p.SetCursor(serial, c.surface, img.hotspotX, img.hotspotY)
}

func (ws *WindowState[T]) cursorBuffer(img *xcursor.Image) (*cursorImage, error) {
	data := img.Bytes()
	file, err := wire.CreateAnonymousFile("wlshellev-cursor", int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTempFile, err)
	}
	defer file.Close()
	if _, err := file.WriteAt(data, 0); err != nil {
		return nil, fmt.Errorf("write cursor image: %w", err)
	}

	pool, err := ws.globals.Shm.CreatePool(file, int32(len(data)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = pool.Destroy() }()
	buf, err := pool.CreateBuffer(0, int32(img.Width), int32(img.Height), int32(img.Width*4), wire.FormatARGB8888)
	if err != nil {
		return nil, err
	}
	return &cursorImage{
		buffer:   buf,
		width:    int32(img.Width),
		height:   int32(img.Height),
		hotspotX: int32(img.HotspotX),
		hotspotY: int32(img.HotspotY),
	}, nil
}

func (c *cursorState) destroy() {
	for _, dev := range c.devices {
		_ = dev.Destroy()
	}
	for _, img := range c.images {
		_ = img.buffer.Destroy()
	}
	if c.surface != nil {
		_ = c.surface.Destroy()
	}
}
