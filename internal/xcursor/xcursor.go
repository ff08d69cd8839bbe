// Package xcursor loads cursor images from Xcursor themes on disk.
package xcursor

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSize is used when XCURSOR_SIZE is unset or invalid.
const DefaultSize = 23

const (
	magic          = "Xcur"
	imageChunkType = 0xfffd0002
	maxInherits    = 8
)

// ErrNotFound is returned when no theme on the search path has the cursor.
var ErrNotFound = errors.New("xcursor: cursor not found")

// Image is one cursor frame in premultiplied ARGB.
type Image struct {
	Size     uint32
	Width    uint32
	Height   uint32
	HotspotX uint32
	HotspotY uint32
	Delay    uint32
	Pixels   []uint32
}

// Bytes returns the pixels in little-endian ARGB8888 layout, as wl_shm
// expects.
func (img *Image) Bytes() []byte {
	b := make([]byte, len(img.Pixels)*4)
	for i, p := range img.Pixels {
		binary.LittleEndian.PutUint32(b[i*4:], p)
	}
	return b
}

// SearchPath returns the theme directories in lookup order, honoring
// XCURSOR_PATH.
func SearchPath() []string {
	if p := os.Getenv("XCURSOR_PATH"); p != "" {
		return filepath.SplitList(p)
	}
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local/share/icons"),
			filepath.Join(home, ".icons"),
		)
	}
	return append(dirs, "/usr/share/icons", "/usr/share/pixmaps")
}

// Theme is a named cursor theme resolved against a search path.
type Theme struct {
	Name string
	Size uint32
	Path []string
}

// NewTheme builds a theme from XCURSOR_THEME and XCURSOR_SIZE, falling
// back to the given name and size.
func NewTheme(name string, size uint32) *Theme {
	if env := os.Getenv("XCURSOR_THEME"); env != "" {
		name = env
	}
	if name == "" {
		name = "default"
	}
	if env := os.Getenv("XCURSOR_SIZE"); env != "" {
		var n uint32
		if _, err := fmt.Sscanf(env, "%d", &n); err == nil && n > 0 {
			size = n
		}
	}
	if size == 0 {
		size = DefaultSize
	}
	return &Theme{Name: name, Size: size, Path: SearchPath()}
}

// Load finds cursor name in the theme or its ancestors and returns the
// image whose nominal size is closest to the theme size.
func (t *Theme) Load(name string) (*Image, error) {
	seen := make(map[string]bool)
	queue := []string{t.Name}
	for len(queue) > 0 && len(seen) < maxInherits {
		theme := queue[0]
		queue = queue[1:]
		if seen[theme] {
			continue
		}
		seen[theme] = true

		for _, dir := range t.Path {
			path := filepath.Join(dir, theme, "cursors", name)
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			img, err := Decode(f, t.Size)
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return img, nil
		}
		queue = append(queue, t.inherits(theme)...)
	}
	return nil, fmt.Errorf("%w: %s in theme %s", ErrNotFound, name, t.Name)
}

func (t *Theme) inherits(theme string) []string {
	for _, dir := range t.Path {
		f, err := os.Open(filepath.Join(dir, theme, "index.theme"))
		if err != nil {
			continue
		}
		parents := parseInherits(f)
		_ = f.Close()
		if len(parents) > 0 {
			return parents
		}
	}
	return nil
}

func parseInherits(r io.Reader) []string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "Inherits" {
			continue
		}
		var out []string
		for _, p := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

type tocEntry struct {
	typ      uint32
	subtype  uint32
	position uint32
}

// Decode reads an Xcursor file and returns the first frame of the size
// closest to want.
func Decode(r io.ReadSeeker, want uint32) (*Image, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr[0:4]) != magic {
		return nil, errors.New("not an Xcursor file")
	}
	headerSize := binary.LittleEndian.Uint32(hdr[4:])
	ntoc := binary.LittleEndian.Uint32(hdr[12:])
	if ntoc > 0x10000 {
		return nil, fmt.Errorf("implausible table size %d", ntoc)
	}
	if _, err := r.Seek(int64(headerSize), io.SeekStart); err != nil {
		return nil, err
	}

	toc := make([]tocEntry, 0, ntoc)
	buf := make([]byte, 12)
	for i := uint32(0); i < ntoc; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		toc = append(toc, tocEntry{
			typ:      binary.LittleEndian.Uint32(buf[0:]),
			subtype:  binary.LittleEndian.Uint32(buf[4:]),
			position: binary.LittleEndian.Uint32(buf[8:]),
		})
	}

	best := -1
	var bestDist uint32
	for i, e := range toc {
		if e.typ != imageChunkType {
			continue
		}
		d := distance(e.subtype, want)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil, errors.New("no image chunks")
	}
	return readImage(r, toc[best].position)
}

func distance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func readImage(r io.ReadSeeker, pos uint32) (*Image, error) {
	if _, err := r.Seek(int64(pos), io.SeekStart); err != nil {
		return nil, err
	}
	var hdr [36]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	u := func(i int) uint32 { return binary.LittleEndian.Uint32(hdr[i*4:]) }
	if u(1) != imageChunkType {
		return nil, errors.New("chunk is not an image")
	}
	img := &Image{
		Size:     u(2),
		Width:    u(4),
		Height:   u(5),
		HotspotX: u(6),
		HotspotY: u(7),
		Delay:    u(8),
	}
	if img.Width == 0 || img.Height == 0 || img.Width > 0x7fff || img.Height > 0x7fff {
		return nil, fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	raw := make([]byte, img.Width*img.Height*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read pixels: %w", err)
	}
	img.Pixels = make([]uint32, img.Width*img.Height)
	for i := range img.Pixels {
		img.Pixels[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return img, nil
}

// Names returns the legacy X11 aliases to try for a CSS cursor name.
func Names(shape string) []string {
	names := []string{shape}
	if alts, ok := legacyNames[shape]; ok {
		names = append(names, alts...)
	}
	return names
}

var legacyNames = map[string][]string{
	"default":     {"left_ptr", "arrow"},
	"pointer":     {"hand2", "hand1", "pointing_hand"},
	"text":        {"xterm", "ibeam"},
	"wait":        {"watch"},
	"progress":    {"left_ptr_watch"},
	"crosshair":   {"cross"},
	"move":        {"fleur"},
	"not-allowed": {"crossed_circle"},
	"grab":        {"openhand"},
	"grabbing":    {"closedhand"},
	"help":        {"question_arrow"},
	"ew-resize":   {"sb_h_double_arrow"},
	"ns-resize":   {"sb_v_double_arrow"},
	"n-resize":    {"top_side"},
	"s-resize":    {"bottom_side"},
	"e-resize":    {"right_side"},
	"w-resize":    {"left_side"},
	"ne-resize":   {"top_right_corner"},
	"nw-resize":   {"top_left_corner"},
	"se-resize":   {"bottom_right_corner"},
	"sw-resize":   {"bottom_left_corner"},
}

// LoadAny tries each name in order and returns the first hit.
func (t *Theme) LoadAny(names ...string) (*Image, error) {
	var lastErr error = ErrNotFound
	for _, n := range names {
		img, err := t.Load(n)
		if err == nil {
			return img, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
