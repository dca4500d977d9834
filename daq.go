package goxcp

import "encoding/binary"

// OdtEntry describes one sampled memory location.
type OdtEntry struct {
	Address   uint32
	Size      uint8
	Extension uint8
}

type odt struct {
	entries    []OdtEntry
	entryCount int
}

type daqList struct {
	odts         []odt
	odtCount     int
	mode         uint8
	eventChannel uint16
	prescaler    uint8
	priority     uint8
	running      bool
}

// daqArena is the fixed capacity DAQ store plus the write cursor. Indices
// are always validated against the allocated counts, never against the raw
// capacity, a freed or shrunk allocation invalidates stale ids.
type daqArena struct {
	lists     []daqList
	listCount int

	curList  int
	curOdt   int
	curEntry int

	maxOdtPerList    int
	maxEntriesPerOdt int
}

func newDaqArena(maxLists, maxOdt, maxEntries int) *daqArena {
	a := &daqArena{
		lists:            make([]daqList, maxLists),
		maxOdtPerList:    maxOdt,
		maxEntriesPerOdt: maxEntries,
	}
	for i := range a.lists {
		a.lists[i].odts = make([]odt, maxOdt)
		for j := range a.lists[i].odts {
			a.lists[i].odts[j].entries = make([]OdtEntry, maxEntries)
		}
	}
	return a
}

func (a *daqArena) free() {
	for i := range a.lists {
		a.lists[i] = daqList{odts: a.lists[i].odts}
		for j := range a.lists[i].odts {
			a.lists[i].odts[j].entryCount = 0
		}
	}
	a.listCount = 0
	a.curList, a.curOdt, a.curEntry = 0, 0, 0
}

func (a *daqArena) stopAll() {
	for i := range a.lists {
		a.lists[i].running = false
	}
}

// validList reports whether the id falls inside the allocated list range.
func (a *daqArena) validList(list int) bool {
	return list < a.listCount
}

// validPtr checks a full write cursor against the current allocation.
func (a *daqArena) validPtr(list, odtNum, entry int) bool {
	return list < a.listCount &&
		odtNum < a.lists[list].odtCount &&
		entry < a.lists[list].odts[odtNum].entryCount
}

// FREE_DAQ clears every list and parks the write cursor. Always succeeds.
func (s *Slave) cmdFreeDaq() Packet {
	s.daq.free()
	return PositivePacket()
}

// ALLOC_DAQ, p2..p3 = list count.
func (s *Slave) cmdAllocDaq(data []byte) Packet {
	if len(data) < 4 {
		return ErrorPacket(ErrCmdSyntax)
	}
	count := int(binary.BigEndian.Uint16(data[2:4]))
	if count > len(s.daq.lists) {
		return ErrorPacket(ErrMemoryOverflow)
	}
	for i := 0; i < count; i++ {
		s.daq.lists[i].odtCount = 0
		s.daq.lists[i].running = false
	}
	s.daq.listCount = count
	return PositivePacket()
}

// ALLOC_ODT, p2..p3 = list, p4 = ODT count.
func (s *Slave) cmdAllocOdt(data []byte) Packet {
	if len(data) < 5 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	count := int(data[4])
	if !s.daq.validList(list) {
		return ErrorPacket(ErrOutOfRange)
	}
	if count > s.daq.maxOdtPerList {
		return ErrorPacket(ErrMemoryOverflow)
	}
	l := &s.daq.lists[list]
	l.odtCount = count
	for i := 0; i < count; i++ {
		l.odts[i].entryCount = 0
	}
	return PositivePacket()
}

// ALLOC_ODT_ENTRY, p2..p3 = list, p4 = ODT, p5 = entry count.
func (s *Slave) cmdAllocOdtEntry(data []byte) Packet {
	if len(data) < 6 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	odtNum := int(data[4])
	count := int(data[5])
	if !s.daq.validList(list) || odtNum >= s.daq.lists[list].odtCount {
		return ErrorPacket(ErrOutOfRange)
	}
	if count > s.daq.maxEntriesPerOdt {
		return ErrorPacket(ErrMemoryOverflow)
	}
	s.daq.lists[list].odts[odtNum].entryCount = count
	return PositivePacket()
}

// SET_DAQ_PTR, p2..p3 = list, p4 = ODT, p5 = entry. One combined range
// check against the allocation, then the cursor moves.
func (s *Slave) cmdSetDaqPtr(data []byte) Packet {
	if len(data) < 6 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	odtNum := int(data[4])
	entry := int(data[5])
	if !s.daq.validPtr(list, odtNum, entry) {
		return ErrorPacket(ErrOutOfRange)
	}
	s.daq.curList, s.daq.curOdt, s.daq.curEntry = list, odtNum, entry
	return PositivePacket()
}

// WRITE_DAQ, p1 = bit offset (unused on this target), p2 = size,
// p3 = extension, p4..p7 = address. Writes the entry under the cursor then
// auto advances. When the last entry of the last ODT is written the cursor
// silently wraps back to (odt 0, entry 0) instead of erroring; documented
// quirk, tools rely on SET_DAQ_PTR before every run anyway.
func (s *Slave) cmdWriteDaq(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	a := s.daq
	if !a.validPtr(a.curList, a.curOdt, a.curEntry) {
		return ErrorPacket(ErrOutOfRange)
	}

	ent := &a.lists[a.curList].odts[a.curOdt].entries[a.curEntry]
	ent.Size = data[2]
	ent.Extension = data[3]
	ent.Address = binary.BigEndian.Uint32(data[4:8])

	a.curEntry++
	if a.curEntry >= a.lists[a.curList].odts[a.curOdt].entryCount {
		a.curEntry = 0
		a.curOdt++
		if a.curOdt >= a.lists[a.curList].odtCount {
			a.curOdt = 0
		}
	}
	return PositivePacket()
}

// SET_DAQ_LIST_MODE stores scheduling metadata only, nothing starts here.
func (s *Slave) cmdSetDaqListMode(data []byte) Packet {
	if len(data) < 8 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	if !s.daq.validList(list) {
		return ErrorPacket(ErrOutOfRange)
	}
	l := &s.daq.lists[list]
	l.mode = data[1]
	l.eventChannel = binary.BigEndian.Uint16(data[4:6])
	l.prescaler = data[6]
	l.priority = data[7]
	return PositivePacket()
}

func (s *Slave) cmdGetDaqListMode(data []byte) Packet {
	if len(data) < 4 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	if !s.daq.validList(list) {
		return ErrorPacket(ErrOutOfRange)
	}
	l := &s.daq.lists[list]
	resp := make([]byte, 7)
	resp[0] = l.mode
	binary.BigEndian.PutUint16(resp[3:5], l.eventChannel)
	resp[5] = l.prescaler
	resp[6] = l.priority
	return PositivePacket(resp...)
}

// START_STOP_DAQ_LIST, p1 = mode (0 stop, 1 start, 2 select), p2..p3 = list.
// The response carries FIRST_PID, the DTO identifier of the list's first ODT.
func (s *Slave) cmdStartStopDaqList(data []byte) Packet {
	if len(data) < 4 {
		return ErrorPacket(ErrCmdSyntax)
	}
	mode := data[1]
	list := int(binary.BigEndian.Uint16(data[2:4]))
	if !s.daq.validList(list) {
		return ErrorPacket(ErrOutOfRange)
	}
	switch mode {
	case 0:
		s.daq.lists[list].running = false
	case 1:
		s.daq.lists[list].running = true
	case 2:
		// select, acknowledge only
	default:
		return ErrorPacket(ErrModeNotValid)
	}
	firstPid := byte(list * s.daq.maxOdtPerList)
	return PositivePacket(firstPid)
}

// START_STOP_SYNCH, p1 = mode. Mode 0 stops every list, mode 1 starts every
// list that has at least one allocated ODT, whatever its event channel.
func (s *Slave) cmdStartStopSynch(data []byte) Packet {
	if len(data) < 2 {
		return ErrorPacket(ErrCmdSyntax)
	}
	switch data[1] {
	case 0:
		s.daq.stopAll()
	case 1:
		for i := 0; i < s.daq.listCount; i++ {
			if s.daq.lists[i].odtCount > 0 {
				s.daq.lists[i].running = true
			}
		}
	}
	return PositivePacket()
}

func (s *Slave) cmdGetDaqClock() Packet {
	var ts uint32
	if s.clock != nil {
		ts = s.clock.Timestamp()
	}
	resp := make([]byte, 7)
	binary.BigEndian.PutUint32(resp[3:7], ts)
	return PositivePacket(resp...)
}

func (s *Slave) cmdGetDaqProcessorInfo() Packet {
	resp := make([]byte, 7)
	resp[0] = 0x01 // DAQ_PROPERTIES: dynamic DAQ supported
	binary.BigEndian.PutUint16(resp[1:3], uint16(len(s.daq.lists)))
	binary.BigEndian.PutUint16(resp[3:5], uint16(len(s.daq.lists))) // MAX_EVENT_CHANNEL
	resp[5] = 0x00 // MIN_DAQ
	resp[6] = 0x00 // DAQ_KEY_BYTE
	return PositivePacket(resp...)
}

func (s *Slave) cmdGetDaqResolutionInfo() Packet {
	resp := make([]byte, 7)
	resp[0] = 0x01 // GRANULARITY_ODT_ENTRY_SIZE_DAQ
	resp[1] = byte(s.daq.maxEntriesPerOdt)
	resp[2] = 0x01 // GRANULARITY_ODT_ENTRY_SIZE_STIM
	resp[3] = byte(s.daq.maxEntriesPerOdt)
	resp[4] = 0x00 // TIMESTAMP_MODE
	binary.BigEndian.PutUint16(resp[5:7], 0x0001)
	return PositivePacket(resp...)
}

func (s *Slave) cmdGetDaqListInfo(data []byte) Packet {
	if len(data) < 4 {
		return ErrorPacket(ErrCmdSyntax)
	}
	list := int(binary.BigEndian.Uint16(data[2:4]))
	if !s.daq.validList(list) {
		return ErrorPacket(ErrOutOfRange)
	}
	resp := make([]byte, 5)
	resp[0] = 0x00 // DAQ_LIST_PROPERTIES
	resp[1] = byte(s.daq.lists[list].odtCount)
	resp[2] = byte(s.daq.maxEntriesPerOdt)
	// fixed event channel, none
	return PositivePacket(resp...)
}

func (s *Slave) cmdGetDaqEventInfo(data []byte) Packet {
	if len(data) < 4 {
		return ErrorPacket(ErrCmdSyntax)
	}
	resp := make([]byte, 6)
	resp[0] = 0x04 // DAQ_EVENT_PROPERTIES
	resp[1] = byte(len(s.daq.lists))
	resp[2] = 0x00 // name length
	resp[3] = 0x0A // time cycle, 10
	resp[4] = 0x06 // time unit, 1ms
	resp[5] = 0x00 // priority
	return PositivePacket(resp...)
}

// SendDaqData is the scheduled transmission entry point, driven by the
// host's timer for the given event channel. Every running list bound to the
// channel emits one DTO frame per allocated ODT: PID byte, then the entry
// bytes read through the memory bridge. Entries that no longer fit in the
// frame are silently dropped.
func (s *Slave) SendDaqData(eventChannel uint16) {
	for listIdx := 0; listIdx < s.daq.listCount; listIdx++ {
		list := &s.daq.lists[listIdx]
		if !list.running || list.eventChannel != eventChannel {
			continue
		}
		for odtIdx := 0; odtIdx < list.odtCount; odtIdx++ {
			o := &list.odts[odtIdx]
			frame := make([]byte, 1, s.cfg.MaxDTO)
			frame[0] = byte(listIdx*s.daq.maxOdtPerList + odtIdx)
			for e := 0; e < o.entryCount; e++ {
				ent := &o.entries[e]
				for i := uint8(0); i < ent.Size && len(frame) < s.cfg.MaxDTO; i++ {
					frame = append(frame, s.mem.ReadByte(ent.Address+uint32(i), ent.Extension))
				}
			}
			s.transmit(frame)
		}
	}
}
