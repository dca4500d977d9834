package goxcp

import "encoding/binary"

// PgmState is the flash programming phase. Transitions are strictly
// sequential, no phase may be skipped.
type PgmState uint8

const (
	PgmIdle PgmState = iota
	PgmStarted
	PgmCleared
	PgmProgramming
)

func (s PgmState) String() string {
	switch s {
	case PgmIdle:
		return "idle"
	case PgmStarted:
		return "started"
	case PgmCleared:
		return "cleared"
	case PgmProgramming:
		return "programming"
	default:
		return "unknown"
	}
}

// SectorInfo describes one erasable flash sector as reported to the tool.
type SectorInfo struct {
	StartAddress    uint32
	Length          uint32
	Number          uint8
	ClearSequence   uint8
	ProgramSequence uint8
	Method          uint8
}

type pgmMachine struct {
	state      PgmState
	sectors    []SectorInfo
	maxSectors int
}

func newPgmMachine(maxSectors int) *pgmMachine {
	return &pgmMachine{maxSectors: maxSectors}
}

func (p *pgmMachine) reset() {
	p.state = PgmIdle
}

// require validates that the machine sits in one of the allowed states for
// cmd. The state is untouched either way.
func (p *pgmMachine) require(cmd byte, allowed ...PgmState) *TransitionError {
	for _, st := range allowed {
		if p.state == st {
			return nil
		}
	}
	return &TransitionError{Cmd: cmd, State: p.state}
}

// defaultSectors is the fallback published by PROGRAM_START when the host
// did not configure a table: two 16KiB sectors at the STM32F4 flash base.
func defaultSectors() []SectorInfo {
	return []SectorInfo{
		{StartAddress: 0x08000000, Length: 0x4000, Number: 0},
		{StartAddress: 0x08004000, Length: 0x4000, Number: 1, ClearSequence: 1, ProgramSequence: 1},
	}
}

// PROGRAM_START is valid from Idle only, a second start while a sequence is
// underway answers "programming active". It publishes the sector table and
// the per-command block limits.
func (s *Slave) cmdProgramStart(data []byte) Packet {
	if s.pgm.state != PgmIdle {
		return ErrorPacket(ErrPgmActive)
	}
	s.pgm.state = PgmStarted

	sectors := s.cfg.Sectors
	if len(sectors) == 0 {
		sectors = defaultSectors()
	}
	if len(sectors) > s.pgm.maxSectors {
		sectors = sectors[:s.pgm.maxSectors]
	}
	s.pgm.sectors = sectors

	resp := make([]byte, 7)
	resp[1] = 0x01 // COMM_MODE_PGM, block mode supported
	resp[2] = byte(s.cfg.PgmMaxSize)
	resp[3] = 0x00 // MIN_ST_PGM
	resp[4] = 0x01 // QUEUE_SIZE_PGM
	return PositivePacket(resp...)
}

// PROGRAM_CLEAR, p4..p7 = clear range. Erases range bytes at the MTA via
// the flash driver. A driver failure reports a generic error and leaves the
// machine in Started.
func (s *Slave) cmdProgramClear(data []byte) Packet {
	if err := s.pgm.require(CmdProgramClear, PgmStarted); err != nil {
		return ErrorPacket(ErrSequence)
	}
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	clearRange := binary.BigEndian.Uint32(data[4:8])
	if err := s.flash.Erase(s.mta, clearRange); err != nil {
		return ErrorPacket(ErrGeneric)
	}
	s.pgm.state = PgmCleared
	return PositivePacket()
}

// PROGRAM / PROGRAM_NEXT, p1 = byte count, p2.. = data. A zero count is the
// end-of-block signal and drops back to Started without touching flash.
func (s *Slave) cmdProgram(data []byte) Packet {
	if err := s.pgm.require(CmdProgram, PgmCleared, PgmProgramming); err != nil {
		return ErrorPacket(ErrSequence)
	}
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	n := int(data[1])
	if n > s.cfg.PgmMaxSize {
		return ErrorPacket(ErrOutOfRange)
	}
	if n == 0 {
		s.pgm.state = PgmStarted
		return PositivePacket()
	}
	if len(data) < 2+n {
		return ErrorPacket(ErrCmdSyntax)
	}
	if err := s.flash.Write(s.mta, data[2:2+n]); err != nil {
		return ErrorPacket(ErrGeneric)
	}
	s.mta += uint32(n)
	s.pgm.state = PgmProgramming
	return PositivePacket()
}

// PROGRAM_MAX always writes the fixed maximum block carried at p1...
func (s *Slave) cmdProgramMax(data []byte) Packet {
	if err := s.pgm.require(CmdProgramMax, PgmCleared, PgmProgramming); err != nil {
		return ErrorPacket(ErrSequence)
	}
	n := s.cfg.PgmMaxSize
	if len(data) < 1+n {
		return ErrorPacket(ErrCmdSyntax)
	}
	if err := s.flash.Write(s.mta, data[1:1+n]); err != nil {
		return ErrorPacket(ErrGeneric)
	}
	s.mta += uint32(n)
	s.pgm.state = PgmProgramming
	return PositivePacket()
}

// PROGRAM_RESET forces the machine back to Idle and drops the session, the
// tool is expected to reconnect after the ECU comes back up.
func (s *Slave) cmdProgramReset() Packet {
	s.pgm.reset()
	s.connected = false
	s.daq.stopAll()
	s.security.Reset()
	return PositivePacket()
}

func (s *Slave) cmdGetPgmProcessorInfo() Packet {
	resp := make([]byte, 7)
	resp[0] = 0x07 // PGM_PROPERTIES: absolute + functional + sector info
	resp[1] = byte(len(s.pgm.sectors))
	return PositivePacket(resp...)
}

// GET_SECTOR_INFO, p1 = mode, p2 = sector number. Mode 0 reports clear and
// program sequence numbers, method and length, mode 1 the start address.
func (s *Slave) cmdGetSectorInfo(data []byte) Packet {
	if len(data) < 3 {
		return ErrorPacket(ErrCmdSyntax)
	}
	mode := data[1]
	num := int(data[2])
	if num >= len(s.pgm.sectors) {
		return ErrorPacket(ErrOutOfRange)
	}
	sector := s.pgm.sectors[num]

	resp := make([]byte, 7)
	switch mode {
	case 0:
		resp[0] = sector.ClearSequence
		resp[1] = sector.ProgramSequence
		resp[2] = sector.Method
		binary.BigEndian.PutUint32(resp[3:7], sector.Length)
	case 1:
		binary.BigEndian.PutUint32(resp[3:7], sector.StartAddress)
	default:
		return ErrorPacket(ErrModeNotValid)
	}
	return PositivePacket(resp...)
}

// PROGRAM_PREPARE, p2..p3 = code size. Nothing to stage on this target.
func (s *Slave) cmdProgramPrepare(data []byte) Packet {
	return PositivePacket()
}

// PROGRAM_FORMAT, p1 = compression, p2 = encryption, p3 = programming
// method, p4 = access method. Only the uncompressed, unencrypted format is
// supported.
func (s *Slave) cmdProgramFormat(data []byte) Packet {
	if len(data) < 5 {
		return ErrorPacket(ErrCmdSyntax)
	}
	if data[1] != 0 || data[2] != 0 {
		return ErrorPacket(ErrModeNotValid)
	}
	return PositivePacket()
}

// PROGRAM_VERIFY, p1 = mode, p4..p7 = value. Mode 0 requests an external
// verification and is always acknowledged, mode 1 compares the 32 bit value
// at the MTA against value.
func (s *Slave) cmdProgramVerify(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	mode := data[1]
	value := binary.BigEndian.Uint32(data[4:8])

	switch mode {
	case 0:
		return PositivePacket()
	case 1:
		var actual uint32
		for i := uint32(0); i < 4; i++ {
			actual = actual<<8 | uint32(s.mem.ReadByte(s.mta+i, s.mtaExt))
		}
		if actual != value {
			return ErrorPacket(ErrVerify)
		}
		return PositivePacket()
	default:
		return ErrorPacket(ErrModeNotValid)
	}
}

// Sectors exposes the published sector table, read only.
func (s *Slave) Sectors() []SectorInfo {
	out := make([]SectorInfo, len(s.pgm.sectors))
	copy(out, s.pgm.sectors)
	return out
}
