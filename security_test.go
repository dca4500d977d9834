package goxcp

import (
	"bytes"
	"testing"

	"github.com/roffe/goxcp/pkg/seedkey"
)

const testSecret = 0xDEADBEEF

func TestGateDisabledIsOpen(t *testing.T) {
	g := newSecurityGate(SecurityConfig{})

	if !g.IsUnlocked(ResourceCalPag | ResourceDaq | ResourceStim | ResourcePgm) {
		t.Fatal("disabled gate must be open for every resource")
	}
	if mask := g.ProtectionMask(); mask != 0 {
		t.Fatalf("protection mask = 0x%02X, want 0", mask)
	}
}

func TestGateSeedKeyRoundTrip(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequireCal: true, SecretKey: testSecret,
	})

	if g.IsUnlocked(ResourceCalPag) {
		t.Fatal("CAL unlocked before handshake")
	}

	seed := g.GetSeed(SeedModeCalPag)
	if len(seed) != seedkey.SeedLength {
		t.Fatalf("seed length = %d, want %d", len(seed), seedkey.SeedLength)
	}
	if g.Status(ResourceCalPag) != SecSeedRequested {
		t.Fatalf("status = %s, want seed requested", g.Status(ResourceCalPag))
	}

	if !g.Unlock(seedkey.ComputeKey(seed, testSecret)) {
		t.Fatal("correct key rejected")
	}
	if !g.IsUnlocked(ResourceCalPag) {
		t.Fatal("CAL still locked after unlock")
	}
}

func TestGateWrongKey(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequireCal: true, SecretKey: testSecret,
	})

	seed := g.GetSeed(SeedModeCalPag)
	key := seedkey.ComputeKey(seed, testSecret)
	key[0] ^= 0xFF

	if g.Unlock(key) {
		t.Fatal("corrupted key accepted")
	}
	if g.IsUnlocked(ResourceCalPag) {
		t.Fatal("CAL unlocked by wrong key")
	}

	if g.Unlock([]byte{1, 2}) {
		t.Fatal("short key accepted")
	}
}

func TestGateSeedsDifferPerRequest(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequireCal: true, RequirePgm: true, SecretKey: testSecret,
	})

	a := g.GetSeed(SeedModeCalPag)
	b := g.GetSeed(SeedModeCalPag)
	if bytes.Equal(a, b) {
		t.Fatalf("consecutive seeds identical: % X", a)
	}

	// and across a reset, the generator state is kept
	g.Reset()
	c := g.GetSeed(SeedModeCalPag)
	if bytes.Equal(b, c) {
		t.Fatalf("seed repeated after reset: % X", b)
	}
}

func TestGateUnlockedModeGetsEmptySeed(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequirePgm: true, SecretKey: testSecret,
	})

	seed := g.GetSeed(SeedModePgm)
	if !g.Unlock(seedkey.ComputeKey(seed, testSecret)) {
		t.Fatal("unlock failed")
	}

	again := g.GetSeed(SeedModePgm)
	if len(again) != 0 {
		t.Fatalf("unlocked mode issued a %d byte seed, want empty", len(again))
	}
}

func TestGateModesAreIndependent(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequireCal: true, RequireDaq: true, RequirePgm: true,
		SecretKey: testSecret,
	})

	seed := g.GetSeed(SeedModeDaq)
	if !g.Unlock(seedkey.ComputeKey(seed, testSecret)) {
		t.Fatal("DAQ unlock failed")
	}

	if !g.IsUnlocked(ResourceDaq) {
		t.Fatal("DAQ locked after its own unlock")
	}
	if g.IsUnlocked(ResourceCalPag) {
		t.Fatal("CAL opened by a DAQ unlock")
	}
	if g.IsUnlocked(ResourcePgm) {
		t.Fatal("PGM opened by a DAQ unlock")
	}
	// STIM shares the DAQ switch but has its own slot
	if g.IsUnlocked(ResourceStim) {
		t.Fatal("STIM opened by a DAQ unlock")
	}
}

func TestGateResetLocksEverything(t *testing.T) {
	g := newSecurityGate(SecurityConfig{
		Enabled: true, RequireCal: true, SecretKey: testSecret,
	})

	seed := g.GetSeed(SeedModeCalPag)
	if !g.Unlock(seedkey.ComputeKey(seed, testSecret)) {
		t.Fatal("unlock failed")
	}

	g.Reset()
	if g.IsUnlocked(ResourceCalPag) {
		t.Fatal("CAL still unlocked after reset")
	}
}

// The wire level handshake, through the dispatcher.
func TestSecuredCommandsOverTheWire(t *testing.T) {
	s, _, _, _ := newTestSlave(t, true)
	connect(t, s)

	// download is gated until CAL is unlocked
	wantError(t, s.ProcessCommand([]byte{CmdDownload, 1, 0xAA}), ErrAccessLocked)
	wantError(t, s.ProcessCommand([]byte{CmdAllocDaq, 0, 0, 1}), ErrAccessLocked)
	wantError(t, s.ProcessCommand([]byte{CmdProgramStart}), ErrAccessLocked)

	// reads stay open
	wantPositive(t, s.ProcessCommand([]byte{CmdUpload, 1}))

	pkt := s.ProcessCommand([]byte{CmdGetSeed, SeedModeCalPag})
	wantPositive(t, pkt)
	seedLen := int(pkt.Payload[0])
	if seedLen != seedkey.SeedLength {
		t.Fatalf("seed length = %d", seedLen)
	}
	seed := pkt.Payload[1 : 1+seedLen]
	key := seedkey.ComputeKey(seed, testSecret)

	cmd := append([]byte{CmdUnlock, byte(len(key))}, key...)
	pkt = s.ProcessCommand(cmd)
	wantPositive(t, pkt)
	if pkt.Payload[0]&ResourceCalPag != 0 {
		t.Fatalf("CAL still in protection mask 0x%02X", pkt.Payload[0])
	}

	wantPositive(t, s.ProcessCommand([]byte{CmdDownload, 1, 0xAA}))
	// DAQ and PGM stay gated behind their own handshakes
	wantError(t, s.ProcessCommand([]byte{CmdAllocDaq, 0, 0, 1}), ErrAccessLocked)
	wantError(t, s.ProcessCommand([]byte{CmdProgramStart}), ErrAccessLocked)
}

func TestGetSeedInvalidMode(t *testing.T) {
	s, _, _, _ := newTestSlave(t, true)
	connect(t, s)

	wantError(t, s.ProcessCommand([]byte{CmdGetSeed, SeedModePgm + 1}), ErrOutOfRange)
}

func TestUnlockWrongKeyOverTheWire(t *testing.T) {
	s, _, _, _ := newTestSlave(t, true)
	connect(t, s)

	pkt := s.ProcessCommand([]byte{CmdGetSeed, SeedModeCalPag})
	wantPositive(t, pkt)

	wantError(t, s.ProcessCommand([]byte{CmdUnlock, 4, 0, 0, 0, 0}), ErrAccessLocked)
	wantError(t, s.ProcessCommand([]byte{CmdDownload, 1, 0xAA}), ErrAccessLocked)
}

func TestDisconnectRelocks(t *testing.T) {
	s, _, _, _ := newTestSlave(t, true)
	connect(t, s)

	pkt := s.ProcessCommand([]byte{CmdGetSeed, SeedModeCalPag})
	wantPositive(t, pkt)
	seed := pkt.Payload[1:]
	key := seedkey.ComputeKey(seed, testSecret)
	wantPositive(t, s.ProcessCommand(append([]byte{CmdUnlock, byte(len(key))}, key...)))

	wantPositive(t, s.ProcessCommand([]byte{CmdDisconnect}))
	connect(t, s)
	wantError(t, s.ProcessCommand([]byte{CmdDownload, 1, 0xAA}), ErrAccessLocked)
}
