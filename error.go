package goxcp

import "fmt"

// ErrCode is the one byte error code carried by negative responses.
type ErrCode byte

const (
	ErrCmdSynch       ErrCode = 0x00
	ErrCmdBusy        ErrCode = 0x10
	ErrDaqActive      ErrCode = 0x11
	ErrPgmActive      ErrCode = 0x12
	ErrCmdUnknown     ErrCode = 0x20
	ErrCmdSyntax      ErrCode = 0x21
	ErrOutOfRange     ErrCode = 0x22
	ErrWriteProtected ErrCode = 0x23
	ErrAccessDenied   ErrCode = 0x24
	ErrAccessLocked   ErrCode = 0x25
	ErrPageNotValid   ErrCode = 0x26
	ErrModeNotValid   ErrCode = 0x27
	ErrSegmentInvalid ErrCode = 0x28
	ErrSequence       ErrCode = 0x29
	ErrDaqConfig      ErrCode = 0x2A
	ErrMemoryOverflow ErrCode = 0x30
	ErrGeneric        ErrCode = 0x31
	ErrVerify         ErrCode = 0x32
)

func (e ErrCode) String() string {
	switch e {
	case ErrCmdSynch:
		return "command processor synchronization"
	case ErrCmdBusy:
		return "command was not executed, slave busy"
	case ErrDaqActive:
		return "command rejected because DAQ is running"
	case ErrPgmActive:
		return "command rejected because programming is active"
	case ErrCmdUnknown:
		return "unknown command"
	case ErrCmdSyntax:
		return "command syntax invalid"
	case ErrOutOfRange:
		return "command syntax valid but parameters out of range"
	case ErrWriteProtected:
		return "memory location is write protected"
	case ErrAccessDenied:
		return "memory location is not accessible"
	case ErrAccessLocked:
		return "access denied, seed & key is required"
	case ErrPageNotValid:
		return "selected page not available"
	case ErrModeNotValid:
		return "selected mode not available"
	case ErrSegmentInvalid:
		return "selected segment not valid"
	case ErrSequence:
		return "sequence error"
	case ErrDaqConfig:
		return "DAQ configuration not valid"
	case ErrMemoryOverflow:
		return "memory overflow error"
	case ErrGeneric:
		return "generic error"
	case ErrVerify:
		return "verify failed"
	default:
		return fmt.Sprintf("unknown error 0x%02X", byte(e))
	}
}

// SlaveError wraps an ErrCode as a Go error on the master side.
type SlaveError struct {
	Cmd  byte
	Code ErrCode
}

func (e *SlaveError) Error() string {
	name := CommandName(e.Cmd)
	if name == "" {
		name = fmt.Sprintf("0x%02X", e.Cmd)
	}
	return fmt.Sprintf("%s: %s (0x%02X)", name, e.Code, byte(e.Code))
}

// TransitionError reports a flash programming command issued outside its
// required predecessor state. The machine is left untouched.
type TransitionError struct {
	Cmd   byte
	State PgmState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", CommandName(e.Cmd), e.State)
}
