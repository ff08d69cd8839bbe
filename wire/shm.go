//go:build linux

package wire

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Wayland shm pixel formats
const (
	FormatARGB8888 = 0
	FormatXRGB8888 = 1
)

// CreateAnonymousFile returns a sealed, size-fixed file suitable for sharing
// with the compositor: a memfd when available, an unlinked /dev/shm file
// otherwise.
func CreateAnonymousFile(name string, size int64) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err == nil {
		if err := unix.Ftruncate(fd, size); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("ftruncate memfd: %w", err)
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS,
			unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_SEAL); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("seal memfd: %w", err)
		}
		return os.NewFile(uintptr(fd), name), nil
	}

	fd, err = unix.Open("/dev/shm", unix.O_TMPFILE|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create anonymous file: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	return os.NewFile(uintptr(fd), name), nil
}

// MapFile maps size bytes of f read-write and shared.
func MapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Unmap releases a mapping made by MapFile.
func Unmap(data []byte) error {
	return unix.Munmap(data)
}
