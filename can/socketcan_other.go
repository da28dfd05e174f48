//go:build !linux

package can

import "errors"

// DialSocketCAN is only available on Linux.
func DialSocketCAN(iface string) (Bus, error) {
	return nil, errors.New("can: SocketCAN requires linux")
}
