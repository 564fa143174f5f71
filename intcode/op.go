package intcode

import "fmt"

// Op represents an intcode opcode, the low two decimal digits of an
// instruction word.
type Op int64

const (
	ADD Op = 1
	MUL Op = 2
	IN  Op = 3
	OUT Op = 4
	JNZ Op = 5
	JZ  Op = 6
	LT  Op = 7
	EQ  Op = 8
	ARB Op = 9
	HLT Op = 99
)

var opStrings = map[Op]string{
	ADD: "add",
	MUL: "mul",
	IN:  "in",
	OUT: "out",
	JNZ: "jnz",
	JZ:  "jz",
	LT:  "lt",
	EQ:  "eq",
	ARB: "arb",
	HLT: "hlt",
}

// Size reports the number of words occupied by an instruction with this
// opcode, including the instruction word itself. It returns 0 for unknown
// opcodes.
func (o Op) Size() uint64 {
	switch o {
	case ADD, MUL, LT, EQ:
		return 4
	case JNZ, JZ:
		return 3
	case IN, OUT, ARB:
		return 2
	case HLT:
		return 1
	}
	return 0
}

// Valid reports whether o is a known opcode.
func (o Op) Valid() bool { return o.Size() > 0 }

func (o Op) String() string {
	if s, ok := opStrings[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int64(o))
}

// Mode is a parameter addressing mode.
type Mode byte

const (
	Position  Mode = 0
	Immediate Mode = 1
	Relative  Mode = 2
)

func (m Mode) String() string {
	switch m {
	case Position:
		return "position"
	case Immediate:
		return "immediate"
	case Relative:
		return "relative"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// opcode splits an instruction word into its opcode.
func opcode(word int64) Op { return Op(word % 100) }

// mode returns the addressing mode digit for parameter i (0-based) of the
// instruction word, and reports whether it is a known mode.
func mode(word int64, i int) (Mode, bool) {
	d := word / 100
	for ; i > 0; i-- {
		d /= 10
	}
	m := Mode(d % 10)
	return m, m <= Relative
}
