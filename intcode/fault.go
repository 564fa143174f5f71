package intcode

import (
	"fmt"
	"strconv"
)

// FaultCode signifies the condition that stopped execution of an
// instruction. A FaultCode is itself an error so that callers can test for
// it with errors.Is.
type FaultCode byte

const (
	InvalidOpcode FaultCode = iota + 1
	InvalidAddress
	InvalidDestination
	BaseOverflow
	MissingChannel
	ChannelClosed
)

func (c FaultCode) String() string {
	switch c {
	case InvalidOpcode:
		return "invalid opcode"
	case InvalidAddress:
		return "invalid address"
	case InvalidDestination:
		return "invalid destination"
	case BaseOverflow:
		return "relative base overflow"
	case MissingChannel:
		return "missing channel"
	case ChannelClosed:
		return "channel closed"
	}
	return fmt.Sprintf("unknown (%d)", byte(c))
}

func (c FaultCode) Error() string { return c.String() }

// Fault is returned by Step and Run when an instruction cannot be executed.
// Memory writes made by earlier instructions are left in place.
type Fault struct {
	FaultCode
	Op   int64  // instruction word
	Addr uint64 // program counter of the instruction
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s executing %d at %d", f.FaultCode, f.Op, f.Addr)
}

func (f Fault) Unwrap() error { return f.FaultCode }

// ParseError reports malformed program text.
type ParseError struct {
	Pos   int    // index of the offending token
	Token string // the token as found in the text
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token == "" && e.Pos < 0 {
		return "parse program: " + e.Err.Error()
	}
	return "parse program: token " + strconv.Itoa(e.Pos) + " " + strconv.Quote(e.Token) + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
