package goxcp

import (
	"bytes"
	"testing"

	"github.com/roffe/goxcp/pkg/ecusim"
)

// recorder captures everything the slave transmits.
type recorder struct {
	frames [][]byte
}

func (r *recorder) Transmit(data []byte) error {
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func (r *recorder) reset() {
	r.frames = nil
}

func newTestSlave(t *testing.T, secure bool) (*Slave, *ecusim.Memory, *ecusim.Flash, *recorder) {
	t.Helper()
	mem := ecusim.NewMemory(0x10000)
	flash := ecusim.NewFlash(mem)
	clock := &ecusim.FixedClock{}
	rec := &recorder{}

	cfg := DefaultConfig()
	if secure {
		cfg.Security = SecurityConfig{
			Enabled:    true,
			RequireCal: true,
			RequireDaq: true,
			RequirePgm: true,
			SecretKey:  0xDEADBEEF,
		}
	}
	s, err := New(cfg, mem, flash, clock, rec)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, mem, flash, rec
}

func connect(t *testing.T, s *Slave) {
	t.Helper()
	pkt := s.ProcessCommand([]byte{CmdConnect, 0x00})
	if pkt.Kind != PacketPositive {
		t.Fatalf("connect failed: %s", pkt)
	}
}

func wantPositive(t *testing.T, pkt Packet) {
	t.Helper()
	if pkt.Kind != PacketPositive {
		t.Fatalf("want positive response, got %s", pkt)
	}
}

func wantError(t *testing.T, pkt Packet, code ErrCode) {
	t.Helper()
	if pkt.Kind != PacketError {
		t.Fatalf("want error %s, got %s", code, pkt)
	}
	if pkt.Code != code {
		t.Fatalf("want error %s, got %s", code, pkt.Code)
	}
}

func TestConnectResponse(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)

	pkt := s.ProcessCommand([]byte{CmdConnect, 0x00})
	wantPositive(t, pkt)
	if !s.Connected() {
		t.Fatal("slave not connected after CONNECT")
	}
	if len(pkt.Payload) != 7 {
		t.Fatalf("CONNECT payload length = %d, want 7", len(pkt.Payload))
	}
	if pkt.Payload[0] != ResourceCalPag|ResourceDaq|ResourcePgm {
		t.Errorf("resources = 0x%02X", pkt.Payload[0])
	}
	if pkt.Payload[2] != DefaultMaxCTO {
		t.Errorf("MAX_CTO = %d, want %d", pkt.Payload[2], DefaultMaxCTO)
	}
	if pkt.Payload[3] != 0 || pkt.Payload[4] != DefaultMaxDTO {
		t.Errorf("MAX_DTO = % X", pkt.Payload[3:5])
	}
}

func TestCommandsRequireConnection(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)

	for _, cmd := range []byte{CmdGetStatus, CmdUpload, CmdDownload, CmdFreeDaq, CmdProgramStart} {
		pkt := s.ProcessCommand([]byte{cmd, 0, 0, 0, 0, 0, 0, 0})
		if pkt.Kind != PacketError || pkt.Code != ErrSequence {
			t.Errorf("%s before CONNECT: got %s, want sequence error", CommandName(cmd), pkt)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	wantError(t, s.ProcessCommand([]byte{0x42, 0, 0, 0, 0, 0, 0, 0}), ErrCmdUnknown)
}

func TestEmptyFrameNoResponse(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	pkt := s.ProcessCommand(nil)
	if pkt.Kind != PacketNone {
		t.Fatalf("empty frame produced %s", pkt)
	}
	if pkt.Encode() != nil {
		t.Fatal("PacketNone must encode to nil")
	}
}

func TestDisconnect(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	wantPositive(t, s.ProcessCommand([]byte{CmdDisconnect}))
	if s.Connected() {
		t.Fatal("still connected after DISCONNECT")
	}
}

func TestSynchAnswersCmdSynch(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	wantError(t, s.ProcessCommand([]byte{CmdSynch}), ErrCmdSynch)
}

func TestSetMtaUploadDownloadRoundTrip(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	// download at 0x4000
	wantPositive(t, s.ProcessCommand([]byte{CmdSetMta, 0, 0, 0x00, 0x00, 0x00, 0x40, 0x00}))
	cmd := append([]byte{CmdDownload, byte(len(data))}, data...)
	wantPositive(t, s.ProcessCommand(cmd))

	if addr, _ := s.MTA(); addr != 0x4004 {
		t.Fatalf("MTA after download = 0x%X, want 0x4004", addr)
	}

	// read it back
	wantPositive(t, s.ProcessCommand([]byte{CmdSetMta, 0, 0, 0x00, 0x00, 0x00, 0x40, 0x00}))
	pkt := s.ProcessCommand([]byte{CmdUpload, byte(len(data))})
	wantPositive(t, pkt)
	if !bytes.Equal(pkt.Payload, data) {
		t.Fatalf("upload = % X, want % X", pkt.Payload, data)
	}
}

func TestShortUploadUpdatesMta(t *testing.T) {
	s, mem, _, _ := newTestSlave(t, false)
	connect(t, s)

	copy(mem.Bytes()[0x2000:], []byte{1, 2, 3, 4})

	wantPositive(t, s.ProcessCommand([]byte{CmdSetMta, 0, 0, 0x00, 0x00, 0x00, 0x10, 0x00}))

	pkt := s.ProcessCommand([]byte{CmdShortUpload, 4, 0, 0x00, 0x00, 0x00, 0x20, 0x00})
	wantPositive(t, pkt)
	if !bytes.Equal(pkt.Payload, []byte{1, 2, 3, 4}) {
		t.Fatalf("short upload = % X", pkt.Payload)
	}
	// the inline address replaces the MTA, already advanced
	if addr, _ := s.MTA(); addr != 0x2004 {
		t.Fatalf("MTA after short upload = 0x%X, want 0x2004", addr)
	}
}

func TestUploadSizeBound(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	wantError(t, s.ProcessCommand([]byte{CmdUpload, DefaultMaxCTO}), ErrOutOfRange)
	wantPositive(t, s.ProcessCommand([]byte{CmdUpload, DefaultMaxCTO - 1}))
}

func TestDownloadSizeBound(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	cmd := make([]byte, 2+DefaultMaxCTO-1)
	cmd[0] = CmdDownload
	cmd[1] = DefaultMaxCTO - 1
	wantError(t, s.ProcessCommand(cmd), ErrOutOfRange)
}

func TestShortDownloadUnsupported(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	wantError(t, s.ProcessCommand([]byte{CmdShortDownload, 2, 0, 0, 0, 0, 0x30, 0x00}), ErrCmdSyntax)
}

func TestBuildChecksum(t *testing.T) {
	s, mem, _, _ := newTestSlave(t, false)
	connect(t, s)

	copy(mem.Bytes()[0x100:], []byte{0x10, 0x20, 0x30})

	wantPositive(t, s.ProcessCommand([]byte{CmdSetMta, 0, 0, 0x00, 0x00, 0x00, 0x01, 0x00}))
	pkt := s.ProcessCommand([]byte{CmdBuildChecksum, 0, 0, 0, 0x00, 0x00, 0x00, 0x03})
	wantPositive(t, pkt)
	if got := pkt.Payload[6]; got != 0x60 {
		t.Fatalf("checksum low byte = 0x%02X, want 0x60", got)
	}
	if addr, _ := s.MTA(); addr != 0x103 {
		t.Fatalf("MTA after checksum = 0x%X, want 0x103", addr)
	}
}

func TestModifyBits(t *testing.T) {
	s, mem, _, _ := newTestSlave(t, false)
	connect(t, s)

	copy(mem.Bytes()[0x200:], []byte{0x00, 0x00, 0x00, 0xFF})

	wantPositive(t, s.ProcessCommand([]byte{CmdSetMta, 0, 0, 0x00, 0x00, 0x00, 0x02, 0x00}))
	// clear bits 0..3, flip bit 4: AND mask 0x000F, XOR mask 0x0010, shift 0
	wantPositive(t, s.ProcessCommand([]byte{CmdModifyBits, 0, 0x00, 0x0F, 0x00, 0x10}))

	got := mem.Bytes()[0x200:0x204]
	want := []byte{0x00, 0x00, 0x00, 0xE0}
	if !bytes.Equal(got, want) {
		t.Fatalf("modify bits = % X, want % X", got, want)
	}
	if addr, _ := s.MTA(); addr != 0x200 {
		t.Fatalf("MODIFY_BITS must not advance the MTA, got 0x%X", addr)
	}
}

func TestGetDaqClock(t *testing.T) {
	s, _, _, _ := newTestSlave(t, false)
	connect(t, s)

	pkt := s.ProcessCommand([]byte{CmdGetDaqClock})
	wantPositive(t, pkt)
	if len(pkt.Payload) != 7 {
		t.Fatalf("GET_DAQ_CLOCK payload length = %d", len(pkt.Payload))
	}
}

func TestGetStatusProtectionMask(t *testing.T) {
	s, _, _, _ := newTestSlave(t, true)
	connect(t, s)

	pkt := s.ProcessCommand([]byte{CmdGetStatus})
	wantPositive(t, pkt)
	mask := pkt.Payload[1]
	if mask&ResourceCalPag == 0 || mask&ResourcePgm == 0 {
		t.Fatalf("protection mask = 0x%02X, want CAL and PGM locked", mask)
	}
}
