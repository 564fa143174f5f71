package intcode

import "fmt"

// Instruction is a decoded instruction with its parameters already resolved
// against the machine state at decode time. The set of implementations is
// closed: Add, Multiply, Input, Output, JumpIfTrue, JumpIfFalse, LessThan,
// Equal, AdjustRelativeBase and Halt.
type Instruction interface {
	Op() Op
	fmt.Stringer
	instruction()
}

// Add stores X+Y at Dest.
type Add struct {
	X, Y int64
	Dest uint64
}

// Multiply stores X*Y at Dest.
type Multiply struct {
	X, Y int64
	Dest uint64
}

// Input stores the next input value at Dest.
type Input struct {
	Dest uint64
}

// Output emits Value.
type Output struct {
	Value int64
}

// JumpIfTrue sets the program counter to Target if Cond is non-zero.
type JumpIfTrue struct {
	Cond, Target int64
}

// JumpIfFalse sets the program counter to Target if Cond is zero.
type JumpIfFalse struct {
	Cond, Target int64
}

// LessThan stores 1 at Dest if X < Y, and 0 otherwise.
type LessThan struct {
	X, Y int64
	Dest uint64
}

// Equal stores 1 at Dest if X == Y, and 0 otherwise.
type Equal struct {
	X, Y int64
	Dest uint64
}

// AdjustRelativeBase adds Offset to the relative base.
type AdjustRelativeBase struct {
	Offset int64
}

// Halt stops the machine.
type Halt struct{}

func (Add) Op() Op                { return ADD }
func (Multiply) Op() Op           { return MUL }
func (Input) Op() Op              { return IN }
func (Output) Op() Op             { return OUT }
func (JumpIfTrue) Op() Op         { return JNZ }
func (JumpIfFalse) Op() Op        { return JZ }
func (LessThan) Op() Op           { return LT }
func (Equal) Op() Op              { return EQ }
func (AdjustRelativeBase) Op() Op { return ARB }
func (Halt) Op() Op               { return HLT }

func (Add) instruction()                {}
func (Multiply) instruction()           {}
func (Input) instruction()              {}
func (Output) instruction()             {}
func (JumpIfTrue) instruction()         {}
func (JumpIfFalse) instruction()        {}
func (LessThan) instruction()           {}
func (Equal) instruction()              {}
func (AdjustRelativeBase) instruction() {}
func (Halt) instruction()               {}

func (i Add) String() string      { return fmt.Sprintf("add %d %d -> [%d]", i.X, i.Y, i.Dest) }
func (i Multiply) String() string { return fmt.Sprintf("mul %d %d -> [%d]", i.X, i.Y, i.Dest) }
func (i Input) String() string    { return fmt.Sprintf("in -> [%d]", i.Dest) }
func (i Output) String() string   { return fmt.Sprintf("out %d", i.Value) }
func (i JumpIfTrue) String() string {
	return fmt.Sprintf("jnz %d -> %d", i.Cond, i.Target)
}
func (i JumpIfFalse) String() string {
	return fmt.Sprintf("jz %d -> %d", i.Cond, i.Target)
}
func (i LessThan) String() string { return fmt.Sprintf("lt %d %d -> [%d]", i.X, i.Y, i.Dest) }
func (i Equal) String() string    { return fmt.Sprintf("eq %d %d -> [%d]", i.X, i.Y, i.Dest) }
func (i AdjustRelativeBase) String() string {
	return fmt.Sprintf("arb %+d", i.Offset)
}
func (Halt) String() string { return "hlt" }

// Decode decodes the instruction at pc against the current memory and
// relative base. It does not modify the machine.
func (m *Machine) Decode(pc uint64) (Instruction, error) {
	d := decoder{m: m, pc: pc, word: m.Mem.Peek(pc)}
	op := opcode(d.word)
	if !op.Valid() {
		return nil, d.fault(InvalidOpcode)
	}
	for i := 0; i < int(op.Size())-1; i++ {
		if _, ok := mode(d.word, i); !ok {
			return nil, d.fault(InvalidOpcode)
		}
	}

	var ins Instruction
	switch op {
	case ADD:
		ins = Add{X: d.read(0), Y: d.read(1), Dest: d.dest(2)}
	case MUL:
		ins = Multiply{X: d.read(0), Y: d.read(1), Dest: d.dest(2)}
	case IN:
		ins = Input{Dest: d.dest(0)}
	case OUT:
		ins = Output{Value: d.read(0)}
	case JNZ:
		ins = JumpIfTrue{Cond: d.read(0), Target: d.read(1)}
	case JZ:
		ins = JumpIfFalse{Cond: d.read(0), Target: d.read(1)}
	case LT:
		ins = LessThan{X: d.read(0), Y: d.read(1), Dest: d.dest(2)}
	case EQ:
		ins = Equal{X: d.read(0), Y: d.read(1), Dest: d.dest(2)}
	case ARB:
		ins = AdjustRelativeBase{Offset: d.read(0)}
	case HLT:
		ins = Halt{}
	default:
		panic(fmt.Errorf("internal error: %v not decoded", op))
	}
	if d.err != nil {
		return nil, d.err
	}
	return ins, nil
}

// decoder resolves the parameters of one instruction. The first failure is
// kept in err and later resolutions become no-ops.
type decoder struct {
	m    *Machine
	pc   uint64
	word int64
	err  error
}

func (d *decoder) fault(c FaultCode) error {
	return Fault{FaultCode: c, Op: d.word, Addr: d.pc}
}

func (d *decoder) operand(i int) (Mode, int64) {
	md, _ := mode(d.word, i)
	return md, d.m.Mem.Peek(d.pc + 1 + uint64(i))
}

// addr resolves a Position or Relative operand to an address.
func (d *decoder) addr(md Mode, n int64) uint64 {
	var base uint64
	if md == Relative {
		base = d.m.RelBase
	}
	a, ok := offset(base, n)
	if !ok {
		d.err = d.fault(InvalidAddress)
		return 0
	}
	return a
}

func (d *decoder) read(i int) int64 {
	if d.err != nil {
		return 0
	}
	md, n := d.operand(i)
	if md == Immediate {
		return n
	}
	a := d.addr(md, n)
	if d.err != nil {
		return 0
	}
	return d.m.Mem.Peek(a)
}

func (d *decoder) dest(i int) uint64 {
	if d.err != nil {
		return 0
	}
	md, n := d.operand(i)
	if md == Immediate {
		d.err = d.fault(InvalidDestination)
		return 0
	}
	return d.addr(md, n)
}
