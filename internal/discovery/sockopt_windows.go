//go:build windows

package discovery

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// enableBroadcast is a net.ListenConfig control hook that turns on
// SO_BROADCAST, which Winsock also requires before sending to a broadcast
// address.
func enableBroadcast(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
