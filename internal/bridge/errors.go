package bridge

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	// ErrDeviceNotPresent is returned by send paths when the context's host
	// channel never opened.
	ErrDeviceNotPresent = errors.New("device not present")
	// ErrOptionUnsupported rejects any socket option that is not a
	// CAN_RAW_FILTER install on SOL_CAN_RAW.
	ErrOptionUnsupported = errors.New("socket option unsupported")
	// ErrFamilyMismatch rejects packets whose address family is not CAN.
	ErrFamilyMismatch = errors.New("address family mismatch")
)
