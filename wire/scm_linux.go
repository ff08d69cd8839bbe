//go:build linux

package wire

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxFDsPerMessage mirrors libwayland's limit on descriptors per sendmsg.
const maxFDsPerMessage = 28

var oobSpace = unix.CmsgSpace(maxFDsPerMessage * 4)

// fill reads once from the socket, appending bytes to the read buffer and
// received descriptors to the fd queue.
func (c *Conn) fill() error {
	buf := make([]byte, 4096)
	n, oobn, _, _, err := c.sock.ReadMsgUnix(buf, c.oob)
	if err != nil {
		return err
	}
	if oobn > 0 {
		scms, err := unix.ParseSocketControlMessage(c.oob[:oobn])
		if err != nil {
			return fmt.Errorf("parse control message: %w", err)
		}
		for i := range scms {
			if scms[i].Header.Level != unix.SOL_SOCKET || scms[i].Header.Type != unix.SCM_RIGHTS {
				continue
			}
			fds, err := unix.ParseUnixRights(&scms[i])
			if err != nil {
				return fmt.Errorf("parse unix rights: %w", err)
			}
			c.fds = append(c.fds, fds...)
		}
	}
	if n == 0 && oobn == 0 {
		return ErrClosed
	}
	c.rbuf = append(c.rbuf, buf[:n]...)
	return nil
}

func (c *Conn) write(b []byte, fds []int) error {
	if len(fds) == 0 {
		_, err := c.sock.Write(b)
		return err
	}
	if len(fds) > maxFDsPerMessage {
		return fmt.Errorf("too many file descriptors: %d", len(fds))
	}
	_, _, err := c.sock.WriteMsgUnix(b, unix.UnixRights(fds...), nil)
	return err
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}
