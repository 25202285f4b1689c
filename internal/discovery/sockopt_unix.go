//go:build !windows

package discovery

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// enableBroadcast is a net.ListenConfig control hook that turns on
// SO_BROADCAST (the net package never sets it, and sending to a broadcast
// address without it fails with EACCES) and SO_REUSEADDR, so a scan can
// grab port 30303 right after a previous session released it.
func enableBroadcast(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
		if serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
