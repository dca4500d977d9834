package adapter

import (
	"errors"
	"testing"

	"github.com/roffe/goxcp"
	"github.com/roffe/goxcp/pkg/ecusim"
)

func TestLoopbackUnbound(t *testing.T) {
	lb := NewLoopback()
	if err := lb.Send([]byte{goxcp.CmdConnect, 0}); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Send() error = %v, want %v", err, ErrNotBound)
	}
}

func TestLoopbackRoundTrip(t *testing.T) {
	mem := ecusim.NewMemory(64)
	lb := NewLoopback()
	slave, err := goxcp.New(goxcp.DefaultConfig(), mem, ecusim.NewFlash(mem), nil, lb)
	if err != nil {
		t.Fatal(err)
	}
	lb.Bind(slave)

	if err := lb.Send([]byte{goxcp.CmdConnect, 0}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	select {
	case frame := <-lb.Recv():
		if frame[0] != goxcp.PidRes {
			t.Fatalf("response PID = 0x%02X", frame[0])
		}
	default:
		t.Fatal("no response queued")
	}
}

func TestLoopbackClosed(t *testing.T) {
	lb := NewLoopback()
	lb.Close()
	if err := lb.Transmit([]byte{0x00}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Transmit() error = %v, want %v", err, ErrClosed)
	}
}
