package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SocketCAN flag bits carried in the upper bits of the host can_id word
// (same values as <linux/can.h>).
const (
	EFFFlag = 0x80000000
	RTRFlag = 0x40000000
	ErrFlag = 0x20000000
	SFFMask = 0x7FF
	EFFMask = 0x1FFFFFFF
)

// HostWireSize is sizeof(struct can_frame) on the host side: 4-byte id,
// 1-byte dlc, 3 pad bytes, 8 data bytes. The host channel exchanges frames
// as fixed blobs of exactly this size.
const HostWireSize = 16

// MaxDataLen is the classic CAN payload limit.
const MaxDataLen = 8

// ErrShortWire is returned when a host frame blob is not HostWireSize bytes.
var ErrShortWire = errors.New("frame: short host wire blob")

// HostFrame mirrors the host transport's struct can_frame. ID carries the
// EFF/RTR/ERR flag bits in its upper bits like SocketCAN. Only the first
// DLC data bytes are meaningful.
type HostFrame struct {
	ID   uint32
	DLC  uint8
	Data [MaxDataLen]byte
}

// PutWire encodes hf into b, which must be at least HostWireSize bytes.
// Fields are host byte order; on the little-endian hosts this bridge targets
// that is binary.LittleEndian (same note as the raw CAN socket reader).
func (hf HostFrame) PutWire(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], hf.ID)
	b[4] = hf.DLC
	b[5], b[6], b[7] = 0, 0, 0
	copy(b[8:HostWireSize], hf.Data[:])
}

// HostFrameFromWire decodes one host frame blob. The data-length code is
// canonicalized into [0,MaxDataLen].
func HostFrameFromWire(b []byte) (HostFrame, error) {
	var hf HostFrame
	if len(b) < HostWireSize {
		return hf, fmt.Errorf("%w: %d", ErrShortWire, len(b))
	}
	hf.ID = binary.LittleEndian.Uint32(b[0:4])
	hf.DLC = clampDLC(b[4])
	copy(hf.Data[:], b[8:HostWireSize])
	return hf, nil
}

// IDType discriminates standard (11-bit) from extended (29-bit) identifiers.
type IDType uint8

const (
	Standard IDType = iota
	Extended
)

// Frame is the network stack's canonical CAN frame: identifier with the flag
// bits stripped out into explicit fields.
type Frame struct {
	ID   uint32
	Type IDType
	RTR  bool
	DLC  uint8
	Data [MaxDataLen]byte
}

// ToFrame converts a host wire frame to the canonical representation.
// Total: never fails, identifier and payload bytes are preserved exactly,
// the DLC is clamped into [0,MaxDataLen].
func ToFrame(hf HostFrame) Frame {
	var f Frame
	if hf.ID&EFFFlag != 0 {
		f.Type = Extended
		f.ID = hf.ID & EFFMask
	} else {
		f.Type = Standard
		f.ID = hf.ID & SFFMask
	}
	f.RTR = hf.ID&RTRFlag != 0
	f.DLC = clampDLC(hf.DLC)
	f.Data = hf.Data
	return f
}

// ToHost converts a canonical frame back to the host wire representation,
// folding the type/RTR flags into the id word. Total: never fails.
func ToHost(f Frame) HostFrame {
	var hf HostFrame
	if f.Type == Extended {
		hf.ID = (f.ID & EFFMask) | EFFFlag
	} else {
		hf.ID = f.ID & SFFMask
	}
	if f.RTR {
		hf.ID |= RTRFlag
	}
	hf.DLC = clampDLC(f.DLC)
	hf.Data = f.Data
	return hf
}

func clampDLC(dlc uint8) uint8 {
	if dlc > MaxDataLen {
		return MaxDataLen
	}
	return dlc
}
