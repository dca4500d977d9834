package goxcp

import (
	"errors"
)

// Default transport geometry and arena capacities. These match the classic
// XCP-on-CAN binding with 8 byte frames.
const (
	DefaultMaxCTO           = 8
	DefaultMaxDTO           = 8
	DefaultMaxDaqLists      = 4
	DefaultMaxOdtPerList    = 8
	DefaultMaxEntriesPerOdt = 7
	DefaultMaxSectors       = 8
	DefaultPgmMaxSize       = 6
)

var (
	ErrNilMemory = errors.New("goxcp: nil memory bridge")
	ErrNilFlash  = errors.New("goxcp: nil flash driver")
)

// Memory is the byte level bridge into the ECU address space. The address
// extension selects an address space on targets that have more than one,
// a plain implementation may ignore it.
type Memory interface {
	ReadByte(address uint32, extension uint8) byte
	WriteByte(address uint32, extension uint8, value byte)
}

// Flash is the non-volatile memory driver the programming state machine
// delegates to. Calls are synchronous, the engine reports whatever the
// driver returns and never retries.
type Flash interface {
	Erase(address, length uint32) error
	Write(address uint32, data []byte) error
	Verify(address uint32, data []byte) error
}

// Clock supplies the 32 bit tick counter reported by GET_DAQ_CLOCK.
type Clock interface {
	Timestamp() uint32
}

// Transmitter carries encoded slave packets to the master tool. DAQ data
// frames are pushed through it from SendDaqData, command responses are
// returned by ProcessCommand and transmitted by the transport binding.
type Transmitter interface {
	Transmit(data []byte) error
}

// Config holds the build time constants of one slave instance. The zero
// value is not usable, start from DefaultConfig.
type Config struct {
	MaxCTO           int
	MaxDTO           int
	MaxDaqLists      int
	MaxOdtPerList    int
	MaxEntriesPerOdt int
	MaxSectors       int
	PgmMaxSize       int

	// Sector table published by PROGRAM_START. When empty the slave
	// publishes two 16KiB sectors at the STM32 flash base, same as the
	// factory layout most of our bench ECUs ship with.
	Sectors []SectorInfo

	Security SecurityConfig
}

func DefaultConfig() Config {
	return Config{
		MaxCTO:           DefaultMaxCTO,
		MaxDTO:           DefaultMaxDTO,
		MaxDaqLists:      DefaultMaxDaqLists,
		MaxOdtPerList:    DefaultMaxOdtPerList,
		MaxEntriesPerOdt: DefaultMaxEntriesPerOdt,
		MaxSectors:       DefaultMaxSectors,
		PgmMaxSize:       DefaultPgmMaxSize,
	}
}

// Slave is one calibration protocol engine instance. It is strictly
// run-to-completion: every command is handled synchronously inside
// ProcessCommand and no handler blocks or defers work. The engine itself
// does no locking, a concurrent host must serialize all calls into it.
type Slave struct {
	cfg   Config
	mem   Memory
	flash Flash
	clock Clock
	tx    Transmitter

	connected bool
	mta       uint32
	mtaExt    uint8

	daq      *daqArena
	security *securityGate
	pgm      *pgmMachine

	handlers map[byte]func(data []byte) Packet
	guards   map[byte]uint8 // command -> required resource mask
}

// New creates a slave bound to its collaborators. clock and tx may be nil,
// GET_DAQ_CLOCK then reports zero and DAQ frames are dropped.
func New(cfg Config, mem Memory, flash Flash, clock Clock, tx Transmitter) (*Slave, error) {
	if mem == nil {
		return nil, ErrNilMemory
	}
	if flash == nil {
		return nil, ErrNilFlash
	}
	s := &Slave{
		cfg:      cfg,
		mem:      mem,
		flash:    flash,
		clock:    clock,
		tx:       tx,
		daq:      newDaqArena(cfg.MaxDaqLists, cfg.MaxOdtPerList, cfg.MaxEntriesPerOdt),
		security: newSecurityGate(cfg.Security),
		pgm:      newPgmMachine(cfg.MaxSectors),
	}
	s.initHandlers()
	return s, nil
}

// Connected reports the session flag.
func (s *Slave) Connected() bool {
	return s.connected
}

// MTA returns the current memory transfer address and extension.
func (s *Slave) MTA() (uint32, uint8) {
	return s.mta, s.mtaExt
}

// PgmState exposes the programming state machine, read only.
func (s *Slave) PgmState() PgmState {
	return s.pgm.state
}

// ProcessCommand runs one inbound command frame to completion and returns
// the response packet. A zero length frame yields no response at all
// (PacketNone), everything else gets exactly one packet back.
func (s *Slave) ProcessCommand(data []byte) Packet {
	if len(data) < 1 {
		return Packet{}
	}
	cmd := data[0]

	// CONNECT is the only command accepted without a session.
	if cmd == CmdConnect {
		return s.cmdConnect(data)
	}
	if !s.connected {
		return ErrorPacket(ErrSequence)
	}

	h, ok := s.handlers[cmd]
	if !ok {
		return ErrorPacket(ErrCmdUnknown)
	}
	if mask := s.guards[cmd]; mask != 0 && !s.security.IsUnlocked(mask) {
		return ErrorPacket(ErrAccessLocked)
	}
	return h(data)
}

func (s *Slave) initHandlers() {
	s.handlers = map[byte]func([]byte) Packet{
		CmdDisconnect:      func(d []byte) Packet { return s.cmdDisconnect() },
		CmdGetStatus:       func(d []byte) Packet { return s.cmdGetStatus() },
		CmdSynch:           func(d []byte) Packet { return s.cmdSynch() },
		CmdGetCommModeInfo: func(d []byte) Packet { return s.cmdGetCommModeInfo() },
		CmdGetID:           s.cmdGetID,
		CmdSetRequest:      s.cmdSetRequest,
		CmdGetSeed:         s.cmdGetSeed,
		CmdUnlock:          s.cmdUnlock,
		CmdSetMta:          s.cmdSetMta,
		CmdUpload:          s.cmdUpload,
		CmdShortUpload:     s.cmdShortUpload,
		CmdBuildChecksum:   s.cmdBuildChecksum,
		CmdDownload:        s.cmdDownload,
		CmdShortDownload:   s.cmdShortDownload,
		CmdModifyBits:      s.cmdModifyBits,

		CmdFreeDaq:             func(d []byte) Packet { return s.cmdFreeDaq() },
		CmdAllocDaq:            s.cmdAllocDaq,
		CmdAllocOdt:            s.cmdAllocOdt,
		CmdAllocOdtEntry:       s.cmdAllocOdtEntry,
		CmdSetDaqPtr:           s.cmdSetDaqPtr,
		CmdWriteDaq:            s.cmdWriteDaq,
		CmdSetDaqListMode:      s.cmdSetDaqListMode,
		CmdGetDaqListMode:      s.cmdGetDaqListMode,
		CmdStartStopDaqList:    s.cmdStartStopDaqList,
		CmdStartStopSynch:      s.cmdStartStopSynch,
		CmdGetDaqClock:         func(d []byte) Packet { return s.cmdGetDaqClock() },
		CmdGetDaqProcessorInfo: func(d []byte) Packet { return s.cmdGetDaqProcessorInfo() },
		CmdGetDaqResolutionInfo: func(d []byte) Packet {
			return s.cmdGetDaqResolutionInfo()
		},
		CmdGetDaqListInfo:  s.cmdGetDaqListInfo,
		CmdGetDaqEventInfo: s.cmdGetDaqEventInfo,

		CmdProgramStart:        s.cmdProgramStart,
		CmdProgramClear:        s.cmdProgramClear,
		CmdProgram:             s.cmdProgram,
		CmdProgramReset:        func(d []byte) Packet { return s.cmdProgramReset() },
		CmdGetPgmProcessorInfo: func(d []byte) Packet { return s.cmdGetPgmProcessorInfo() },
		CmdGetSectorInfo:       s.cmdGetSectorInfo,
		CmdProgramPrepare:      s.cmdProgramPrepare,
		CmdProgramFormat:       s.cmdProgramFormat,
		CmdProgramNext:         s.cmdProgram,
		CmdProgramMax:          s.cmdProgramMax,
		CmdProgramVerify:       s.cmdProgramVerify,
	}

	// Commands gated behind the seed/key handshake when security is on.
	s.guards = map[byte]uint8{
		CmdDownload:      ResourceCalPag,
		CmdShortDownload: ResourceCalPag,
		CmdModifyBits:    ResourceCalPag,

		CmdFreeDaq:          ResourceDaq,
		CmdAllocDaq:         ResourceDaq,
		CmdAllocOdt:         ResourceDaq,
		CmdAllocOdtEntry:    ResourceDaq,
		CmdSetDaqPtr:        ResourceDaq,
		CmdWriteDaq:         ResourceDaq,
		CmdSetDaqListMode:   ResourceDaq,
		CmdStartStopDaqList: ResourceDaq,
		CmdStartStopSynch:   ResourceDaq,

		CmdProgramStart:   ResourcePgm,
		CmdProgramClear:   ResourcePgm,
		CmdProgram:        ResourcePgm,
		CmdProgramNext:    ResourcePgm,
		CmdProgramMax:     ResourcePgm,
		CmdProgramVerify:  ResourcePgm,
		CmdProgramPrepare: ResourcePgm,
		CmdProgramFormat:  ResourcePgm,
	}
}

func (s *Slave) transmit(data []byte) {
	if s.tx == nil {
		return
	}
	// The engine has no queue and no retry, a failed transmit is the
	// transport's problem to report.
	_ = s.tx.Transmit(data)
}
