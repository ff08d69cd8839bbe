// Package keymap prepares XKB keymaps for upload over the virtual keyboard
// protocol. It only moves already serialized text into a shareable file;
// compiling keymaps is left to xkbcommon.
package keymap

import (
	"fmt"
	"os"

	"github.com/bnema/wlshellev/protocol/wl"
	"github.com/bnema/wlshellev/wire"
)

// DefaultXKB is a minimal evdev/us keymap.
const DefaultXKB = `xkb_keymap {
	xkb_keycodes  { include "evdev+aliases(qwerty)"	};
	xkb_types     { include "complete"	};
	xkb_compat    { include "complete"	};
	xkb_symbols   { include "pc+us+inet(evdev)"	};
	xkb_geometry  { include "pc(pc105)"	};
};`

// Keymap is a keymap file ready to hand to the compositor.
type Keymap struct {
	File   *os.File
	Size   uint32
	Format uint32
}

// Close releases the backing file.
func (k *Keymap) Close() error {
	if k.File == nil {
		return nil
	}
	return k.File.Close()
}

// Default returns DefaultXKB in a shared file.
func Default() (*Keymap, error) {
	return FromString(DefaultXKB)
}

// FromString writes text plus a NUL terminator into an anonymous file.
// Size includes the terminator, which is what compositors mmap.
func FromString(text string) (*Keymap, error) {
	size := len(text) + 1
	if size > 0x7FFFFFFF {
		return nil, fmt.Errorf("invalid keymap size: %d", size)
	}

	f, err := wire.CreateAnonymousFile("wlshellev-keymap", int64(size))
	if err != nil {
		return nil, fmt.Errorf("create keymap file: %w", err)
	}

	data, err := wire.MapFile(f, size)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map keymap file: %w", err)
	}
	copy(data, text)
	data[len(text)] = 0
	if err := wire.Unmap(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("unmap keymap file: %w", err)
	}

	return &Keymap{File: f, Size: uint32(size), Format: wl.KeyboardKeymapFormatXkbV1}, nil
}
