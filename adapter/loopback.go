package adapter

import (
	"sync"

	"github.com/roffe/goxcp"
)

// Loopback wires a master directly to an in-process slave. Send runs the
// command to completion on the slave and queues the response, DAQ frames
// the slave transmits land in the same channel. Use it as the slave's
// Transmitter.
type Loopback struct {
	mu    sync.Mutex
	slave *goxcp.Slave
	out   chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewLoopback() *Loopback {
	return &Loopback{
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Bind attaches the slave after construction, the slave itself needs the
// loopback as its transmitter first.
func (l *Loopback) Bind(s *goxcp.Slave) {
	l.mu.Lock()
	l.slave = s
	l.mu.Unlock()
}

func (l *Loopback) Send(data []byte) error {
	l.mu.Lock()
	s := l.slave
	l.mu.Unlock()
	if s == nil {
		return ErrNotBound
	}
	pkt := s.ProcessCommand(data)
	if wire := pkt.Encode(); wire != nil {
		return l.Transmit(wire)
	}
	return nil
}

// Transmit implements goxcp.Transmitter.
func (l *Loopback) Transmit(data []byte) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.out <- data:
		return nil
	default:
		return ErrRecvFull
	}
}

func (l *Loopback) Recv() <-chan []byte {
	return l.out
}

func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
	return nil
}
