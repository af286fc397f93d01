package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestHostRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hf   HostFrame
	}{
		{"std", HostFrame{ID: 0x123, DLC: 4, Data: [8]byte{1, 2, 3, 4}}},
		{"stdZeroLen", HostFrame{ID: 0x7FF, DLC: 0}},
		{"ext", HostFrame{ID: (0x18DAF110 & EFFMask) | EFFFlag, DLC: 8, Data: [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 1, 2, 3, 4}}},
		{"rtrStd", HostFrame{ID: 0x100 | RTRFlag, DLC: 2}},
		{"rtrExt", HostFrame{ID: 0x1ABCDE | EFFFlag | RTRFlag, DLC: 1, Data: [8]byte{0x55}}},
	}
	for _, tc := range tests {
		got := ToHost(ToFrame(tc.hf))
		if got.ID != tc.hf.ID {
			t.Fatalf("%s: id 0x%X != 0x%X", tc.name, got.ID, tc.hf.ID)
		}
		if got.DLC != tc.hf.DLC {
			t.Fatalf("%s: dlc %d != %d", tc.name, got.DLC, tc.hf.DLC)
		}
		if !bytes.Equal(got.Data[:got.DLC], tc.hf.Data[:tc.hf.DLC]) {
			t.Fatalf("%s: payload %v != %v", tc.name, got.Data, tc.hf.Data)
		}
	}
}

func TestToFrameStripsFlags(t *testing.T) {
	f := ToFrame(HostFrame{ID: 0x1FFFFFFF | EFFFlag | RTRFlag, DLC: 3})
	if f.Type != Extended || !f.RTR {
		t.Fatalf("expected extended RTR frame, got %+v", f)
	}
	if f.ID != 0x1FFFFFFF {
		t.Fatalf("expected raw id 0x1FFFFFFF, got 0x%X", f.ID)
	}

	f = ToFrame(HostFrame{ID: 0x7FF, DLC: 1})
	if f.Type != Standard || f.RTR || f.ID != 0x7FF {
		t.Fatalf("unexpected standard frame: %+v", f)
	}
}

func TestDLCClamp(t *testing.T) {
	if got := ToFrame(HostFrame{ID: 1, DLC: 15}).DLC; got != MaxDataLen {
		t.Fatalf("ToFrame dlc clamp: got %d", got)
	}
	if got := ToHost(Frame{ID: 1, DLC: 200}).DLC; got != MaxDataLen {
		t.Fatalf("ToHost dlc clamp: got %d", got)
	}
}

func TestHostWireCodec(t *testing.T) {
	hf := HostFrame{ID: 0x123 | EFFFlag, DLC: 4, Data: [8]byte{1, 2, 3, 4}}
	var buf [HostWireSize]byte
	hf.PutWire(buf[:])

	// can_frame layout: LE id word, dlc, 3 pad, 8 data.
	want := []byte{0x23, 0x01, 0x00, 0x80, 4, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0}
	if !bytes.Equal(buf[:], want) {
		t.Fatalf("wire mismatch:\n got %v\nwant %v", buf[:], want)
	}

	got, err := HostFrameFromWire(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != hf {
		t.Fatalf("decode mismatch: %+v != %+v", got, hf)
	}
}

func TestHostWireShortBlob(t *testing.T) {
	_, err := HostFrameFromWire(make([]byte, HostWireSize-1))
	if !errors.Is(err, ErrShortWire) {
		t.Fatalf("expected ErrShortWire, got %v", err)
	}
}

func TestHostWireCanonicalizesDLC(t *testing.T) {
	var buf [HostWireSize]byte
	HostFrame{ID: 7, DLC: 9}.PutWire(buf[:])
	buf[4] = 0x4F // junk dlc on the wire
	hf, err := HostFrameFromWire(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hf.DLC != MaxDataLen {
		t.Fatalf("expected clamped dlc %d, got %d", MaxDataLen, hf.DLC)
	}
}
