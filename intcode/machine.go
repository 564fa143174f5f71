// Package intcode provides an implementation of an intcode computer, called
// Machine, that executes programs given as comma separated integers.
//
// A Machine reads input from and writes output to channels. Several machines
// may be wired together, the output of one feeding the input of the next,
// including in cycles. In non-blocking mode an Input instruction that finds
// no value suspends the machine instead of waiting, so a single goroutine can
// drive a whole ring by calling Run on each machine in turn.
package intcode

import (
	"fmt"
	"math"
)

// State is the execution state of a Machine.
type State byte

const (
	Running State = iota
	WaitingForInput
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case WaitingForInput:
		return "waiting for input"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("state(%d)", byte(s))
}

// Machine is an intcode computer.
type Machine struct {
	Mem     Memory
	PC      uint64
	RelBase uint64

	// MemoryLimit, if non-zero, is the number of words an instruction may
	// grow the memory to. Writes at or beyond it fail with InvalidAddress.
	// Poke is only bounded by MaxMemory.
	MemoryLimit int

	// Logf, if set, is called with each instruction before it executes.
	Logf func(format string, args ...any)

	state    State
	in       *Receiver
	out      *Sender
	blocking bool
	last     int64
	count    int64
}

// NewMachine returns a Machine loaded with p, using blocking input and with
// no channels connected.
func NewMachine(p Program) *Machine {
	m := &Machine{blocking: true}
	m.Load(p)
	return m
}

// Load copies p into memory and resets the program counter, relative base,
// state and last output. Connected channels are kept.
func (m *Machine) Load(p Program) {
	m.Mem = append(m.Mem[:0], p.words...)
	m.PC = 0
	m.RelBase = 0
	m.state = Running
	m.last = 0
	m.count = 0
}

// Peek returns the value at addr, or 0 if addr is beyond memory.
func (m *Machine) Peek(addr uint64) int64 { return m.Mem.Peek(addr) }

// Poke writes v at addr, growing memory as needed. It returns InvalidAddress
// if addr is at or beyond MaxMemory.
func (m *Machine) Poke(addr uint64, v int64) error { return m.Mem.Poke(addr, v) }

// State returns the machine's execution state.
func (m *Machine) State() State { return m.state }

// IsRunning reports whether the machine has not halted. A machine waiting
// for input is still running.
func (m *Machine) IsRunning() bool { return m.state != Halted }

// LastOutput returns the most recent value written by an Output instruction.
func (m *Machine) LastOutput() int64 { return m.last }

// InstructionCount returns the number of instructions completed since the
// program was loaded. An Input that suspends the machine is not counted.
func (m *Machine) InstructionCount() int64 { return m.count }

// SetBlockingInput selects whether Input instructions wait for a value
// (true, the default) or suspend the machine when none is queued.
func (m *Machine) SetBlockingInput(blocking bool) { m.blocking = blocking }

// BlockingInput reports whether Input instructions wait for a value.
func (m *Machine) BlockingInput() bool { return m.blocking }

// CreateInputChannel connects a new input channel and returns its sending
// end.
func (m *Machine) CreateInputChannel() *Sender {
	s, r := NewChannel()
	m.in = r
	return s
}

// ConnectInput makes r the machine's input.
func (m *Machine) ConnectInput(r *Receiver) { m.in = r }

// DisconnectInput removes and returns the machine's input, or nil if there
// is none.
func (m *Machine) DisconnectInput() *Receiver {
	r := m.in
	m.in = nil
	return r
}

// Input returns the machine's input, or nil.
func (m *Machine) Input() *Receiver { return m.in }

// SendInput queues v on the machine's input channel.
func (m *Machine) SendInput(v int64) error {
	if m.in == nil {
		return MissingChannel
	}
	return m.in.q.push(v)
}

// CreateOutputChannel connects a new output channel and returns its
// receiving end.
func (m *Machine) CreateOutputChannel() *Receiver {
	s, r := NewChannel()
	m.out = s
	return r
}

// ConnectOutput makes s the machine's output.
func (m *Machine) ConnectOutput(s *Sender) { m.out = s }

// DisconnectOutput removes and returns the machine's output, or nil if
// there is none.
func (m *Machine) DisconnectOutput() *Sender {
	s := m.out
	m.out = nil
	return s
}

// Output returns the machine's output, or nil.
func (m *Machine) Output() *Sender { return m.out }

// Run executes instructions until the machine halts or, in non-blocking
// mode, waits for input. A waiting machine retries its Input instruction.
func (m *Machine) Run() error {
	for {
		if err := m.Step(); err != nil {
			return err
		}
		if m.state != Running {
			return nil
		}
	}
}

// Step executes the instruction at m.PC. It does nothing if the machine has
// halted. A failing instruction does not advance the program counter.
func (m *Machine) Step() error {
	if m.state == Halted {
		return nil
	}
	m.state = Running
	ins, err := m.Decode(m.PC)
	if err != nil {
		return err
	}
	if m.Logf != nil {
		m.Logf("%6d  %v", m.PC, ins)
	}
	return m.exec(ins)
}

func (m *Machine) exec(ins Instruction) error {
	next := m.PC + ins.Op().Size()
	switch i := ins.(type) {
	case Add:
		if err := m.store(i.Dest, i.X+i.Y); err != nil {
			return err
		}
	case Multiply:
		if err := m.store(i.Dest, i.X*i.Y); err != nil {
			return err
		}
	case Input:
		v, ok, err := m.recv()
		if err != nil {
			return err
		}
		if !ok {
			m.state = WaitingForInput
			return nil
		}
		if err := m.store(i.Dest, v); err != nil {
			return err
		}
	case Output:
		if m.out == nil {
			return m.fault(MissingChannel)
		}
		if err := m.out.Send(i.Value); err != nil {
			return m.fault(ChannelClosed)
		}
		m.last = i.Value
	case JumpIfTrue:
		if i.Cond != 0 {
			if i.Target < 0 {
				return m.fault(InvalidAddress)
			}
			next = uint64(i.Target)
		}
	case JumpIfFalse:
		if i.Cond == 0 {
			if i.Target < 0 {
				return m.fault(InvalidAddress)
			}
			next = uint64(i.Target)
		}
	case LessThan:
		if err := m.store(i.Dest, b2i(i.X < i.Y)); err != nil {
			return err
		}
	case Equal:
		if err := m.store(i.Dest, b2i(i.X == i.Y)); err != nil {
			return err
		}
	case AdjustRelativeBase:
		base, ok := offset(m.RelBase, i.Offset)
		if !ok {
			return m.fault(BaseOverflow)
		}
		m.RelBase = base
	case Halt:
		m.state = Halted
		next = m.PC
	default:
		panic(fmt.Errorf("internal error: %T not implemented", ins))
	}
	m.PC = next
	m.count++
	return nil
}

// recv obtains the next input value. ok is false if the machine is in
// non-blocking mode and no value is queued.
func (m *Machine) recv() (v int64, ok bool, err error) {
	if m.in == nil {
		return 0, false, m.fault(MissingChannel)
	}
	if m.blocking {
		v, err = m.in.Recv()
		ok = err == nil
	} else {
		v, ok, err = m.in.TryRecv()
	}
	if err != nil {
		return 0, false, m.fault(ChannelClosed)
	}
	return v, ok, nil
}

func (m *Machine) store(addr uint64, v int64) error {
	if m.MemoryLimit > 0 && addr >= uint64(m.MemoryLimit) {
		return m.fault(InvalidAddress)
	}
	if err := m.Mem.Poke(addr, v); err != nil {
		return m.fault(InvalidAddress)
	}
	return nil
}

func (m *Machine) fault(c FaultCode) error {
	return Fault{FaultCode: c, Op: m.Mem.Peek(m.PC), Addr: m.PC}
}

// offset returns base+n. ok is false if the result is negative or does not
// fit in an int64.
func offset(base uint64, n int64) (uint64, bool) {
	if base > math.MaxInt64 {
		return 0, false
	}
	if n < 0 {
		d := uint64(-(n + 1)) + 1
		return base - d, d <= base
	}
	sum := base + uint64(n)
	return sum, sum <= math.MaxInt64
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
