package cmd

import (
	"encoding/binary"
	"fmt"

	"github.com/bnema/wlshellev/ev"
)

// fill paints the requested buffer with one pixel value and wraps it.
func fill(e ev.RequestBuffer, pixel uint32, format uint32) (ev.ReturnData, error) {
	if err := paint(e, pixel); err != nil {
		return nil, err
	}
	buf, err := e.NewBuffer(format)
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	return ev.WlBuffer{Buffer: buf}, nil
}

func paint(e ev.RequestBuffer, pixel uint32) error {
	row := make([]byte, e.Stride)
	for x := uint32(0); x+4 <= e.Stride && x/4 < e.Width; x += 4 {
		binary.LittleEndian.PutUint32(row[x:], pixel)
	}
	for y := uint32(0); y < e.Height; y++ {
		if _, err := e.File.WriteAt(row, int64(y)*int64(e.Stride)); err != nil {
			return fmt.Errorf("fill buffer: %w", err)
		}
	}
	return nil
}
