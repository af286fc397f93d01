//go:build !linux

package hostch

import "errors"

// OpenSocketCAN is provided for non-linux builds so bridge code can compile.
func OpenSocketCAN(iface string) (Channel, error) {
	return nil, errors.New("socketcan channel requires linux")
}
