package netstack

import (
	"errors"
	"testing"
	"time"

	"github.com/kstaniek/go-can-bridge/internal/frame"
)

func TestRegisterInterfaceIdempotent(t *testing.T) {
	l := NewLocal(2, 2)
	a := l.RegisterInterface("zcan0")
	b := l.RegisterInterface("zcan0")
	if a != b {
		t.Fatalf("expected same interface handle")
	}
	if a.IsUp() {
		t.Fatalf("new interface must start down")
	}
	l.SetUp("zcan0", true)
	if !a.IsUp() {
		t.Fatalf("expected interface up")
	}
}

func TestAllocRxExhaustion(t *testing.T) {
	l := NewLocal(1, 1)
	ifc := l.RegisterInterface("zcan0")

	pkt, err := l.AllocRx(ifc, frame.HostWireSize, FamilyCAN, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("first alloc: %v", err)
	}
	if pkt.Family != FamilyCAN {
		t.Fatalf("family not tagged: %v", pkt.Family)
	}

	start := time.Now()
	_, err = l.AllocRx(ifc, frame.HostWireSize, FamilyCAN, 20*time.Millisecond)
	if !errors.Is(err, ErrNoBuffer) {
		t.Fatalf("expected ErrNoBuffer, got %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("alloc gave up before the wait bound")
	}

	l.Release(pkt)
	if _, err := l.AllocRx(ifc, frame.HostWireSize, FamilyCAN, 10*time.Millisecond); err != nil {
		t.Fatalf("alloc after release: %v", err)
	}
}

func TestAllocRxBadSize(t *testing.T) {
	l := NewLocal(1, 1)
	ifc := l.RegisterInterface("zcan0")
	if _, err := l.AllocRx(ifc, 0, FamilyCAN, time.Millisecond); err == nil {
		t.Fatalf("expected error for size 0")
	}
	if _, err := l.AllocRx(ifc, MaxRxPacket+1, FamilyCAN, time.Millisecond); err == nil {
		t.Fatalf("expected error for oversized alloc")
	}
}

func TestRecvQueueFull(t *testing.T) {
	l := NewLocal(4, 1)
	ifc := l.RegisterInterface("zcan0")

	a, _ := l.AllocRx(ifc, 1, FamilyCAN, time.Millisecond)
	b, _ := l.AllocRx(ifc, 1, FamilyCAN, time.Millisecond)
	if err := l.Recv(ifc, a); err != nil {
		t.Fatalf("first recv: %v", err)
	}
	if err := l.Recv(ifc, b); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	l.Release(b)

	select {
	case got := <-l.Queue("zcan0"):
		l.Release(got)
	default:
		t.Fatalf("expected queued packet")
	}
}

func TestDrainConsumesAndReleases(t *testing.T) {
	l := NewLocal(1, 2)
	ifc := l.RegisterInterface("zcan0")

	seen := make(chan uint32, 2)
	l.Drain("zcan0", func(pkt *Packet) { seen <- pkt.Frame.ID })

	for i := uint32(1); i <= 2; i++ {
		pkt, err := l.AllocRx(ifc, 1, FamilyCAN, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		pkt.Frame = frame.Frame{ID: i}
		if err := l.Recv(ifc, pkt); err != nil {
			t.Fatalf("recv %d: %v", i, err)
		}
	}
	// with a pool of 1, the second alloc only succeeds if Drain releases
	for i := uint32(1); i <= 2; i++ {
		select {
		case id := <-seen:
			if id != i {
				t.Fatalf("expected id %d, got %d", i, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for drained packet %d", i)
		}
	}
}

func TestRecvUnregisteredInterface(t *testing.T) {
	l := NewLocal(1, 1)
	other := NewLocal(1, 1).RegisterInterface("ghost")
	pkt, _ := l.AllocRx(l.RegisterInterface("zcan0"), 1, FamilyCAN, time.Millisecond)
	if err := l.Recv(other, pkt); err == nil {
		t.Fatalf("expected error for unregistered interface")
	}
}
