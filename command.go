package goxcp

// Command opcodes, byte 0 of every inbound frame.
const (
	CmdConnect         = 0xFF
	CmdDisconnect      = 0xFE
	CmdGetStatus       = 0xFD
	CmdSynch           = 0xFC
	CmdGetCommModeInfo = 0xFB
	CmdGetID           = 0xFA
	CmdSetRequest      = 0xF9
	CmdGetSeed         = 0xF8
	CmdUnlock          = 0xF7
	CmdSetMta          = 0xF6
	CmdUpload          = 0xF5
	CmdShortUpload     = 0xF4
	CmdBuildChecksum   = 0xF3
	CmdDownload        = 0xF0
	CmdDownloadNext    = 0xEF
	CmdDownloadMax     = 0xEE
	CmdShortDownload   = 0xED
	CmdModifyBits      = 0xEC

	CmdSetDaqPtr            = 0xE2
	CmdWriteDaq             = 0xE1
	CmdSetDaqListMode       = 0xE0
	CmdGetDaqListMode       = 0xDF
	CmdStartStopDaqList     = 0xDE
	CmdStartStopSynch       = 0xDD
	CmdGetDaqClock          = 0xDC
	CmdReadDaq              = 0xDB
	CmdGetDaqProcessorInfo  = 0xDA
	CmdGetDaqResolutionInfo = 0xD9
	CmdGetDaqListInfo       = 0xD8
	CmdGetDaqEventInfo      = 0xD7
	CmdFreeDaq              = 0xD6
	CmdAllocDaq             = 0xD5
	CmdAllocOdt             = 0xD4
	CmdAllocOdtEntry        = 0xD3

	CmdProgramStart        = 0xD2
	CmdProgramClear        = 0xD1
	CmdProgram             = 0xD0
	CmdProgramReset        = 0xCF
	CmdGetPgmProcessorInfo = 0xCE
	CmdGetSectorInfo       = 0xCD
	CmdProgramPrepare      = 0xCC
	CmdProgramFormat       = 0xCB
	CmdProgramNext         = 0xCA
	CmdProgramMax          = 0xC9
	CmdProgramVerify       = 0xC8
)

// Resource bits used by GET_SEED/UNLOCK and the session status report.
const (
	ResourceCalPag uint8 = 0x01
	ResourceDaq    uint8 = 0x04
	ResourceStim   uint8 = 0x08
	ResourcePgm    uint8 = 0x10
)

// Seed request modes, p1 of GET_SEED.
const (
	SeedModeCalPag uint8 = 0x00
	SeedModeDaq    uint8 = 0x01
	SeedModeStim   uint8 = 0x02
	SeedModePgm    uint8 = 0x03
)

// CommandName returns a printable name for an opcode, unknown codes come
// back as an empty string.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdConnect:
		return "CONNECT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdGetStatus:
		return "GET_STATUS"
	case CmdSynch:
		return "SYNCH"
	case CmdGetCommModeInfo:
		return "GET_COMM_MODE_INFO"
	case CmdGetID:
		return "GET_ID"
	case CmdSetRequest:
		return "SET_REQUEST"
	case CmdGetSeed:
		return "GET_SEED"
	case CmdUnlock:
		return "UNLOCK"
	case CmdSetMta:
		return "SET_MTA"
	case CmdUpload:
		return "UPLOAD"
	case CmdShortUpload:
		return "SHORT_UPLOAD"
	case CmdBuildChecksum:
		return "BUILD_CHECKSUM"
	case CmdDownload:
		return "DOWNLOAD"
	case CmdDownloadNext:
		return "DOWNLOAD_NEXT"
	case CmdDownloadMax:
		return "DOWNLOAD_MAX"
	case CmdShortDownload:
		return "SHORT_DOWNLOAD"
	case CmdModifyBits:
		return "MODIFY_BITS"
	case CmdSetDaqPtr:
		return "SET_DAQ_PTR"
	case CmdWriteDaq:
		return "WRITE_DAQ"
	case CmdSetDaqListMode:
		return "SET_DAQ_LIST_MODE"
	case CmdGetDaqListMode:
		return "GET_DAQ_LIST_MODE"
	case CmdStartStopDaqList:
		return "START_STOP_DAQ_LIST"
	case CmdStartStopSynch:
		return "START_STOP_SYNCH"
	case CmdGetDaqClock:
		return "GET_DAQ_CLOCK"
	case CmdReadDaq:
		return "READ_DAQ"
	case CmdGetDaqProcessorInfo:
		return "GET_DAQ_PROCESSOR_INFO"
	case CmdGetDaqResolutionInfo:
		return "GET_DAQ_RESOLUTION_INFO"
	case CmdGetDaqListInfo:
		return "GET_DAQ_LIST_INFO"
	case CmdGetDaqEventInfo:
		return "GET_DAQ_EVENT_INFO"
	case CmdFreeDaq:
		return "FREE_DAQ"
	case CmdAllocDaq:
		return "ALLOC_DAQ"
	case CmdAllocOdt:
		return "ALLOC_ODT"
	case CmdAllocOdtEntry:
		return "ALLOC_ODT_ENTRY"
	case CmdProgramStart:
		return "PROGRAM_START"
	case CmdProgramClear:
		return "PROGRAM_CLEAR"
	case CmdProgram:
		return "PROGRAM"
	case CmdProgramReset:
		return "PROGRAM_RESET"
	case CmdGetPgmProcessorInfo:
		return "GET_PGM_PROCESSOR_INFO"
	case CmdGetSectorInfo:
		return "GET_SECTOR_INFO"
	case CmdProgramPrepare:
		return "PROGRAM_PREPARE"
	case CmdProgramFormat:
		return "PROGRAM_FORMAT"
	case CmdProgramNext:
		return "PROGRAM_NEXT"
	case CmdProgramMax:
		return "PROGRAM_MAX"
	case CmdProgramVerify:
		return "PROGRAM_VERIFY"
	default:
		return ""
	}
}
