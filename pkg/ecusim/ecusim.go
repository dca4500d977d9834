// Package ecusim provides in-memory stand-ins for the slave's external
// collaborators: a flat RAM image, a sector style flash driver and a
// millisecond clock. Used by the simulator CLI and the tests.
package ecusim

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrEraseFault = errors.New("ecusim: injected erase fault")
	ErrWriteFault = errors.New("ecusim: injected write fault")
)

// Memory is a flat byte array ECU image. Reads outside the image return
// 0xFF like unprogrammed flash, writes outside are dropped. The address
// extension is ignored, this target has a single address space.
type Memory struct {
	data []byte
}

func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) ReadByte(address uint32, _ uint8) byte {
	if int(address) >= len(m.data) {
		return 0xFF
	}
	return m.data[address]
}

func (m *Memory) WriteByte(address uint32, _ uint8, value byte) {
	if int(address) < len(m.data) {
		m.data[address] = value
	}
}

// Bytes exposes the raw image for test setup and the dump command.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Flash simulates the non-volatile driver. Erase fills with 0xFF, Write
// lands in the backing memory too so UPLOAD and PROGRAM_VERIFY see the
// programmed bytes. FailErase/FailWrite inject driver faults.
type Flash struct {
	mem *Memory

	FailErase bool
	FailWrite bool

	erases int
	writes int
}

func NewFlash(mem *Memory) *Flash {
	return &Flash{mem: mem}
}

func (f *Flash) Erase(address, length uint32) error {
	if f.FailErase {
		return ErrEraseFault
	}
	f.erases++
	for i := uint32(0); i < length; i++ {
		f.mem.WriteByte(address+i, 0, 0xFF)
	}
	return nil
}

func (f *Flash) Write(address uint32, data []byte) error {
	if f.FailWrite {
		return ErrWriteFault
	}
	f.writes++
	for i, b := range data {
		f.mem.WriteByte(address+uint32(i), 0, b)
	}
	return nil
}

func (f *Flash) Verify(address uint32, data []byte) error {
	for i, b := range data {
		if f.mem.ReadByte(address+uint32(i), 0) != b {
			return errors.New("ecusim: verify mismatch")
		}
	}
	return nil
}

// Erases and Writes report how often the driver was invoked.
func (f *Flash) Erases() int { return f.erases }
func (f *Flash) Writes() int { return f.writes }

// Clock counts milliseconds since construction.
type Clock struct {
	start time.Time
}

func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

func (c *Clock) Timestamp() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// FixedClock reports a settable tick, handy in tests.
type FixedClock struct {
	ticks atomic.Uint32
}

func (c *FixedClock) Set(v uint32)      { c.ticks.Store(v) }
func (c *FixedClock) Timestamp() uint32 { return c.ticks.Load() }
