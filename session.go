package goxcp

import "encoding/binary"

// CONNECT, p1 = mode (ignored). Starts the session, parks the programming
// state machine and re-locks the security gate so every session begins
// from a known state.
func (s *Slave) cmdConnect(data []byte) Packet {
	s.connected = true
	s.pgm.reset()
	s.security.Reset()

	resp := make([]byte, 7)
	resp[0] = ResourceCalPag | ResourceDaq | ResourcePgm
	resp[1] = 0x00 // COMM_MODE_BASIC
	resp[2] = byte(s.cfg.MaxCTO)
	binary.BigEndian.PutUint16(resp[3:5], uint16(s.cfg.MaxDTO))
	resp[5] = 0x01 // protocol layer version
	resp[6] = 0x01 // transport layer version
	return PositivePacket(resp...)
}

func (s *Slave) cmdDisconnect() Packet {
	s.connected = false
	s.daq.stopAll()
	s.security.Reset()
	return PositivePacket()
}

func (s *Slave) cmdGetStatus() Packet {
	resp := make([]byte, 5)
	resp[0] = 0x00 // current session status
	resp[1] = s.security.ProtectionMask()
	resp[2] = 0x00 // reserved
	// session configuration id
	resp[3] = 0x00
	resp[4] = 0x00
	return PositivePacket(resp...)
}

// SYNCH always answers a negative response with ERR_CMD_SYNCH, that is the
// whole point of the command.
func (s *Slave) cmdSynch() Packet {
	return ErrorPacket(ErrCmdSynch)
}

func (s *Slave) cmdGetCommModeInfo() Packet {
	resp := make([]byte, 7)
	resp[1] = 0x00                    // COMM_MODE_OPTIONAL
	resp[3] = byte(s.cfg.MaxCTO - 1)  // MAX_BS
	resp[4] = 0x00                    // MIN_ST
	resp[5] = 0x01                    // QUEUE_SIZE
	resp[6] = 0x01                    // driver version
	return PositivePacket(resp...)
}

// GET_ID reports a zero length identifier. Serving the actual string would
// need an upload overlay at the MTA which this transport has no room for.
func (s *Slave) cmdGetID(data []byte) Packet {
	return PositivePacket(make([]byte, 7)...)
}

// SET_REQUEST is acknowledged without any stored state, the slave has no
// session configuration to persist.
func (s *Slave) cmdSetRequest(data []byte) Packet {
	return PositivePacket()
}

func (s *Slave) cmdGetSeed(data []byte) Packet {
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	mode := data[1]
	if mode > SeedModePgm {
		return ErrorPacket(ErrOutOfRange)
	}
	seed := s.security.GetSeed(mode)
	resp := append([]byte{byte(len(seed))}, seed...)
	return PositivePacket(resp...)
}

func (s *Slave) cmdUnlock(data []byte) Packet {
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	keyLen := int(data[1])
	if len(data) < 2+keyLen {
		return ErrorPacket(ErrCmdSyntax)
	}
	if !s.security.Unlock(data[2 : 2+keyLen]) {
		return ErrorPacket(ErrAccessLocked)
	}
	return PositivePacket(s.security.ProtectionMask())
}

func (s *Slave) cmdSetMta(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	s.mtaExt = data[3]
	s.mta = binary.BigEndian.Uint32(data[4:8])
	return PositivePacket()
}

func (s *Slave) cmdUpload(data []byte) Packet {
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	n := int(data[1])
	if n > s.cfg.MaxCTO-1 {
		return ErrorPacket(ErrOutOfRange)
	}
	resp := make([]byte, n)
	for i := 0; i < n; i++ {
		resp[i] = s.mem.ReadByte(s.mta+uint32(i), s.mtaExt)
	}
	s.mta += uint32(n)
	return PositivePacket(resp...)
}

func (s *Slave) cmdShortUpload(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	n := int(data[1])
	ext := data[3]
	addr := binary.BigEndian.Uint32(data[4:8])
	if n > s.cfg.MaxCTO-1 {
		return ErrorPacket(ErrOutOfRange)
	}
	resp := make([]byte, n)
	for i := 0; i < n; i++ {
		resp[i] = s.mem.ReadByte(addr+uint32(i), ext)
	}
	// The inline address becomes the new MTA, already advanced.
	s.mta = addr + uint32(n)
	s.mtaExt = ext
	return PositivePacket(resp...)
}

// BUILD_CHECKSUM, p4..p7 = block size. Simple additive checksum over the
// block starting at the MTA, which advances past the block.
func (s *Slave) cmdBuildChecksum(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	blockSize := binary.BigEndian.Uint32(data[4:8])
	var sum uint32
	for i := uint32(0); i < blockSize; i++ {
		sum += uint32(s.mem.ReadByte(s.mta+i, s.mtaExt))
	}
	s.mta += blockSize

	resp := make([]byte, 7)
	resp[0] = 0x01 // XCP_CHECKSUM_TYPE_ADD_11
	binary.BigEndian.PutUint32(resp[3:7], sum)
	return PositivePacket(resp...)
}

func (s *Slave) cmdDownload(data []byte) Packet {
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	n := int(data[1])
	if n > s.cfg.MaxCTO-2 {
		return ErrorPacket(ErrOutOfRange)
	}
	if len(data) < 2+n {
		return ErrorPacket(ErrCmdSyntax)
	}
	for i := 0; i < n; i++ {
		s.mem.WriteByte(s.mta+uint32(i), s.mtaExt, data[2+i])
	}
	s.mta += uint32(n)
	return PositivePacket()
}

// SHORT_DOWNLOAD cannot fit address plus data in an 8 byte frame, on this
// transport it is always a syntax error.
func (s *Slave) cmdShortDownload(data []byte) Packet {
	return ErrorPacket(ErrCmdSyntax)
}

// MODIFY_BITS, p1 = shift, p2..p3 = AND mask, p4..p5 = XOR mask. Clears the
// shifted AND bits then flips the shifted XOR bits in the 32 bit value at
// the MTA. The MTA does not advance.
func (s *Slave) cmdModifyBits(data []byte) Packet {
	if len(data) < 6 {
		return ErrorPacket(ErrCmdSyntax)
	}
	shift := data[1]
	andMask := binary.BigEndian.Uint16(data[2:4])
	xorMask := binary.BigEndian.Uint16(data[4:6])
	if shift > 31 {
		return ErrorPacket(ErrOutOfRange)
	}

	var v uint32
	for i := uint32(0); i < 4; i++ {
		v = v<<8 | uint32(s.mem.ReadByte(s.mta+i, s.mtaExt))
	}
	v = (v &^ (uint32(andMask) << shift)) ^ (uint32(xorMask) << shift)
	for i := uint32(0); i < 4; i++ {
		s.mem.WriteByte(s.mta+i, s.mtaExt, byte(v>>(24-8*i)))
	}
	return PositivePacket()
}
