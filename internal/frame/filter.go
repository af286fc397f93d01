package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Filter wire sizes. Userspace hands the bridge one of two filter layouts
// and the only discriminator is the declared byte length:
//
//	native (FilterWireSize):  4B id, 4B mask (LE, raw values),
//	                          1B flags, 3B pad
//	legacy (LegacyFilterWireSize): host struct can_filter, 4B id + 4B mask
//	                          with the EFF/RTR flag bits folded into the words
const (
	FilterWireSize       = 12
	LegacyFilterWireSize = 8
)

// Native layout flag bits.
const (
	filterFlagExtended = 1 << 0
	filterFlagRTR      = 1 << 1
	filterFlagRTRMask  = 1 << 2
)

// ErrFilterLength is returned for any filter blob whose length is neither of
// the two recognized sizes. No partial conversion is attempted.
var ErrFilterLength = errors.New("frame: invalid filter length")

// Filter is the canonical acceptance rule: a frame is delivered when its
// identifier masked by Mask equals ID masked by Mask (SocketCAN semantics).
// The same Filter value results from either wire encoding of the same rule.
type Filter struct {
	ID      uint32
	Mask    uint32
	Type    IDType
	RTR     bool
	RTRMask bool
}

// DecodeFilter dispatches strictly on len(b): FilterWireSize decodes the
// native layout, LegacyFilterWireSize the host layout. Anything else fails
// with ErrFilterLength.
func DecodeFilter(b []byte) (Filter, error) {
	switch len(b) {
	case FilterWireSize:
		return decodeNativeFilter(b), nil
	case LegacyFilterWireSize:
		return decodeLegacyFilter(b), nil
	default:
		return Filter{}, fmt.Errorf("%w: %d", ErrFilterLength, len(b))
	}
}

func decodeNativeFilter(b []byte) Filter {
	var f Filter
	f.ID = binary.LittleEndian.Uint32(b[0:4])
	f.Mask = binary.LittleEndian.Uint32(b[4:8])
	flags := b[8]
	if flags&filterFlagExtended != 0 {
		f.Type = Extended
		f.ID &= EFFMask
		f.Mask &= EFFMask
	} else {
		f.Type = Standard
		f.ID &= SFFMask
		f.Mask &= SFFMask
	}
	f.RTR = flags&filterFlagRTR != 0
	f.RTRMask = flags&filterFlagRTRMask != 0
	return f
}

func decodeLegacyFilter(b []byte) Filter {
	var f Filter
	id := binary.LittleEndian.Uint32(b[0:4])
	mask := binary.LittleEndian.Uint32(b[4:8])
	if id&EFFFlag != 0 {
		f.Type = Extended
		f.ID = id & EFFMask
		f.Mask = mask & EFFMask
	} else {
		f.Type = Standard
		f.ID = id & SFFMask
		f.Mask = mask & SFFMask
	}
	f.RTR = id&RTRFlag != 0
	f.RTRMask = mask&RTRFlag != 0
	return f
}

// PutNative encodes f in the native layout into b (>= FilterWireSize bytes).
func (f Filter) PutNative(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], f.ID)
	binary.LittleEndian.PutUint32(b[4:8], f.Mask)
	var flags byte
	if f.Type == Extended {
		flags |= filterFlagExtended
	}
	if f.RTR {
		flags |= filterFlagRTR
	}
	if f.RTRMask {
		flags |= filterFlagRTRMask
	}
	b[8] = flags
	b[9], b[10], b[11] = 0, 0, 0
}

// PutLegacy encodes f in the host can_filter layout into b
// (>= LegacyFilterWireSize bytes).
func (f Filter) PutLegacy(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], f.HostID())
	binary.LittleEndian.PutUint32(b[4:8], f.HostMask())
}

// HostID folds the type/RTR flags back into a host filter id word.
func (f Filter) HostID() uint32 {
	var id uint32
	if f.Type == Extended {
		id = (f.ID & EFFMask) | EFFFlag
	} else {
		id = f.ID & SFFMask
	}
	if f.RTR {
		id |= RTRFlag
	}
	return id
}

// HostMask folds the mask flags into a host filter mask word. The EFF bit is
// always part of the mask so standard and extended identifiers never alias.
func (f Filter) HostMask() uint32 {
	mask := (f.Mask & EFFMask) | EFFFlag
	if f.RTRMask {
		mask |= RTRFlag
	}
	return mask
}

// IsZero reports whether f is the accept-all filter (no installed rule).
func (f Filter) IsZero() bool { return f == Filter{} }

// Matches applies SocketCAN filter semantics to a host wire frame.
func (f Filter) Matches(hf HostFrame) bool {
	if f.IsZero() {
		return true
	}
	m := f.HostMask()
	return hf.ID&m == f.HostID()&m
}
