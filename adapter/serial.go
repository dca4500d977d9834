package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Serial moves frames over a serial line with a one byte length prefix,
// the plain XCP-on-UART framing our bench harnesses use. The same binding
// serves both ends of the link.
type Serial struct {
	port    serial.Port
	in      chan []byte
	logging bool

	closeOnce sync.Once
	cancel    context.CancelFunc
}

type Opt func(*Serial) error

func OptComPort(port string, baudrate int) Opt {
	return func(s *Serial) error {
		name, err := portInfo(port)
		if err != nil {
			return err
		}
		mode := &serial.Mode{
			BaudRate: baudrate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
		p, err := serial.Open(name, mode)
		if err != nil {
			return fmt.Errorf("failed to open com port %q : %v", port, err)
		}
		s.port = p
		return nil
	}
}

func OptLogging(enabled bool) Opt {
	return func(s *Serial) error {
		s.logging = enabled
		return nil
	}
}

func NewSerial(ctx context.Context, opts ...Opt) (*Serial, error) {
	s := &Serial{
		in: make(chan []byte, 32),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.port == nil {
		return nil, errors.New("adapter: no com port configured")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return s, nil
}

func (s *Serial) run(ctx context.Context) {
	defer close(s.in)
	hdr := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.readFull(hdr); err != nil {
			if ctx.Err() == nil {
				log.Printf("serial read: %v", err)
			}
			return
		}
		n := int(hdr[0])
		if n == 0 {
			continue
		}
		frame := make([]byte, n)
		if err := s.readFull(frame); err != nil {
			if ctx.Err() == nil {
				log.Printf("serial read: %v", err)
			}
			return
		}
		if s.logging {
			log.Printf("<i> %X", frame)
		}
		select {
		case s.in <- frame:
		default:
			log.Println(ErrRecvFull)
		}
	}
}

func (s *Serial) readFull(buf []byte) error {
	pos := 0
	for pos < len(buf) {
		n, err := s.port.Read(buf[pos:])
		if err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func (s *Serial) Send(data []byte) error {
	if len(data) > 0xFF {
		return ErrFrameTooLarge
	}
	if s.logging {
		log.Printf("<o> %X", data)
	}
	wire := append([]byte{byte(len(data))}, data...)
	if _, err := s.port.Write(wire); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Transmit implements goxcp.Transmitter so a slave can push DAQ frames
// straight onto the wire.
func (s *Serial) Transmit(data []byte) error {
	return s.Send(data)
}

func (s *Serial) Recv() <-chan []byte {
	return s.in
}

func (s *Serial) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.port.Close()
	})
	return err
}

// ListPorts returns the names of the serial ports on this machine.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, port := range ports {
		names = append(names, port.Name)
	}
	return names, nil
}

func portInfo(portName string) (string, error) {
	if runtime.GOOS == "windows" {
		portName = strings.ToUpper(portName)
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	for _, port := range ports {
		if port.Name == portName {
			if port.IsUSB {
				log.Printf("   USB ID      %s:%s\n", port.VID, port.PID)
				log.Printf("   USB serial  %s\n", port.SerialNumber)
			}
			return portName, nil
		}
	}
	return "", fmt.Errorf("port %q not found", portName)
}
