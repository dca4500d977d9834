package goxcp

import (
	"github.com/roffe/goxcp/pkg/seedkey"
)

// SecStatus tracks the gate state of one protected resource mode.
type SecStatus uint8

const (
	SecLocked SecStatus = iota
	SecSeedRequested
	SecUnlocked
)

func (s SecStatus) String() string {
	switch s {
	case SecLocked:
		return "locked"
	case SecSeedRequested:
		return "seed requested"
	case SecUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// SecurityConfig selects which resources need the seed/key handshake.
// STIM deliberately rides on the DAQ requirement flag, it has no switch of
// its own. The derivation behind SecretKey is a placeholder, not a
// cryptographic scheme, see pkg/seedkey.
type SecurityConfig struct {
	Enabled    bool
	RequireCal bool
	RequireDaq bool
	RequirePgm bool
	SecretKey  uint32
}

// securityGate issues seeds and verifies keys, one status per seed mode.
// Unlocks are monotonic until Reset.
type securityGate struct {
	cfg SecurityConfig

	mode   uint8 // mode of the most recent GET_SEED
	seed   [seedkey.SeedLength]byte
	status [4]SecStatus

	lfsr uint32
}

func newSecurityGate(cfg SecurityConfig) *securityGate {
	g := &securityGate{cfg: cfg, lfsr: 0xACE1}
	g.Reset()
	return g
}

// Reset locks all four modes and clears the active seed. The seed generator
// state survives on purpose so consecutive sessions see fresh seeds.
func (g *securityGate) Reset() {
	g.mode = 0
	g.seed = [seedkey.SeedLength]byte{}
	for i := range g.status {
		g.status[i] = SecLocked
	}
}

// IsUnlocked reports whether every resource bit in mask is accessible.
// A disabled gate is always open.
func (g *securityGate) IsUnlocked(mask uint8) bool {
	if !g.cfg.Enabled {
		return true
	}
	if mask&ResourceCalPag != 0 && g.cfg.RequireCal && g.status[SeedModeCalPag] != SecUnlocked {
		return false
	}
	if mask&ResourceDaq != 0 && g.cfg.RequireDaq && g.status[SeedModeDaq] != SecUnlocked {
		return false
	}
	// STIM shares the DAQ requirement but keeps its own unlock state.
	if mask&ResourceStim != 0 && g.cfg.RequireDaq && g.status[SeedModeStim] != SecUnlocked {
		return false
	}
	if mask&ResourcePgm != 0 && g.cfg.RequirePgm && g.status[SeedModePgm] != SecUnlocked {
		return false
	}
	return true
}

// ProtectionMask returns the resource bits that are still locked.
func (g *securityGate) ProtectionMask() uint8 {
	var mask uint8
	for _, res := range []uint8{ResourceCalPag, ResourceDaq, ResourceStim, ResourcePgm} {
		if !g.IsUnlocked(res) {
			mask |= res
		}
	}
	return mask
}

// GetSeed issues a 4 byte challenge for the given mode and marks it seed
// requested. An already unlocked mode gets a zero length seed, no challenge
// needed.
func (g *securityGate) GetSeed(mode uint8) []byte {
	if mode >= uint8(len(g.status)) {
		return nil
	}
	g.mode = mode
	if g.status[mode] == SecUnlocked {
		return []byte{}
	}
	g.generateSeed()
	g.status[mode] = SecSeedRequested
	return append([]byte(nil), g.seed[:]...)
}

// Unlock verifies key against the active seed. A match unlocks the mode of
// the most recent GetSeed, a mismatch changes nothing and the caller has to
// request a fresh seed.
func (g *securityGate) Unlock(key []byte) bool {
	if len(key) != seedkey.KeyLength {
		return false
	}
	expected := seedkey.ComputeKey(g.seed[:], g.cfg.SecretKey)
	for i := range expected {
		if key[i] != expected[i] {
			return false
		}
	}
	g.status[g.mode] = SecUnlocked
	return true
}

// Status returns the gate state for a resource bit.
func (g *securityGate) Status(resource uint8) SecStatus {
	if !g.cfg.Enabled {
		return SecUnlocked
	}
	mode := SeedModeCalPag
	switch {
	case resource&ResourceDaq != 0:
		mode = SeedModeDaq
	case resource&ResourceStim != 0:
		mode = SeedModeStim
	case resource&ResourcePgm != 0:
		mode = SeedModePgm
	}
	return g.status[mode]
}

// generateSeed steps a 16 bit fibonacci LFSR and folds the secret key into
// the output stream. Pseudo-random only, same as the derivation itself.
func (g *securityGate) generateSeed() {
	for i := 0; i < seedkey.SeedLength; i++ {
		bit := (g.lfsr ^ (g.lfsr >> 2) ^ (g.lfsr >> 3) ^ (g.lfsr >> 5)) & 1
		g.lfsr = (g.lfsr >> 1) | (bit << 15)
		g.seed[i] = byte(g.lfsr) ^ byte(g.cfg.SecretKey>>(i*8))
	}
}
