package goxcp

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Leading identifier bytes of outbound frames.
const (
	PidRes  = 0xFF // positive response
	PidErr  = 0xFE // error
	PidEv   = 0xFD // event
	PidServ = 0xFC // service request
)

type PacketKind int

const (
	// PacketNone is the zero value, nothing goes on the wire.
	PacketNone PacketKind = iota
	PacketPositive
	PacketError
	PacketEvent
	PacketService
)

func (k PacketKind) String() string {
	switch k {
	case PacketNone:
		return "NONE"
	case PacketPositive:
		return "RES"
	case PacketError:
		return "ERR"
	case PacketEvent:
		return "EV"
	case PacketService:
		return "SERV"
	default:
		return "UNKNOWN"
	}
}

// Packet is one outbound slave frame. Callers switch on Kind instead of
// peeking at a magic leading byte.
type Packet struct {
	Kind    PacketKind
	Code    ErrCode // only set for PacketError
	Payload []byte
}

func PositivePacket(payload ...byte) Packet {
	return Packet{Kind: PacketPositive, Payload: payload}
}

func ErrorPacket(code ErrCode) Packet {
	return Packet{Kind: PacketError, Code: code}
}

func EventPacket(payload ...byte) Packet {
	return Packet{Kind: PacketEvent, Payload: payload}
}

// Encode renders the packet in wire form, PID byte first. A PacketNone
// encodes to nil.
func (p Packet) Encode() []byte {
	switch p.Kind {
	case PacketPositive:
		return append([]byte{PidRes}, p.Payload...)
	case PacketError:
		return []byte{PidErr, byte(p.Code)}
	case PacketEvent:
		return append([]byte{PidEv}, p.Payload...)
	case PacketService:
		return append([]byte{PidServ}, p.Payload...)
	default:
		return nil
	}
}

// Decode parses a wire frame back into a Packet. Used by the master side,
// the slave never receives its own packet types.
func Decode(data []byte) (Packet, error) {
	if len(data) < 1 {
		return Packet{}, fmt.Errorf("empty response frame")
	}
	switch data[0] {
	case PidRes:
		return Packet{Kind: PacketPositive, Payload: data[1:]}, nil
	case PidErr:
		if len(data) < 2 {
			return Packet{}, fmt.Errorf("error frame without error code")
		}
		return Packet{Kind: PacketError, Code: ErrCode(data[1]), Payload: data[2:]}, nil
	case PidEv:
		return Packet{Kind: PacketEvent, Payload: data[1:]}, nil
	case PidServ:
		return Packet{Kind: PacketService, Payload: data[1:]}, nil
	default:
		return Packet{}, fmt.Errorf("unknown response PID 0x%02X", data[0])
	}
}

func (p Packet) String() string {
	var out strings.Builder
	out.WriteString(p.Kind.String())
	if p.Kind == PacketError {
		out.WriteString(fmt.Sprintf(" %s", p.Code))
		return out.String()
	}
	out.WriteString(" || ")
	out.WriteString(hexView(p.Payload))
	return out.String()
}

var (
	green = color.New(color.FgGreen).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	cyan  = color.New(color.FgCyan).SprintfFunc()
)

// ColorString is String with ANSI colors for live traffic dumps.
func (p Packet) ColorString() string {
	switch p.Kind {
	case PacketError:
		return red("%s %s", p.Kind, p.Code)
	case PacketPositive:
		return green("%s", p.Kind) + " || " + hexView(p.Payload)
	default:
		return cyan("%s", p.Kind) + " || " + hexView(p.Payload)
	}
}

func hexView(data []byte) string {
	var hv strings.Builder
	for i, b := range data {
		hv.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			hv.WriteString(" ")
		}
	}
	return fmt.Sprintf("%-23s", hv.String())
}
