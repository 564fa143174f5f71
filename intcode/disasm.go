package intcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Disasm writes a listing of p to w, one instruction per line. Operands are
// shown by mode: [n] for position, n for immediate and [rb+n] for relative.
// Words that do not decode as an instruction are listed as data.
func Disasm(w io.Writer, p Program) error {
	bw := bufio.NewWriter(w)
	for pc := 0; pc < len(p.words); {
		line, size := disasmAt(p.words, pc)
		fmt.Fprintf(bw, "%6d  %s\n", pc, line)
		pc += size
	}
	return bw.Flush()
}

// DisasmAt returns the listing text for the instruction at pc in mem and its
// size in words.
func DisasmAt(mem Memory, pc uint64) (string, uint64) {
	if pc >= uint64(len(mem)) {
		return ".word 0", 1
	}
	s, n := disasmAt(mem, int(pc))
	return s, uint64(n)
}

func disasmAt(words []int64, pc int) (string, int) {
	word := words[pc]
	op := opcode(word)
	size := int(op.Size())
	if size == 0 || pc+size > len(words) {
		return fmt.Sprintf(".word %d", word), 1
	}
	var b strings.Builder
	b.WriteString(op.String())
	for i := 0; i < size-1; i++ {
		md, ok := mode(word, i)
		if !ok {
			return fmt.Sprintf(".word %d", word), 1
		}
		n := words[pc+1+i]
		switch md {
		case Position:
			fmt.Fprintf(&b, " [%d]", n)
		case Immediate:
			fmt.Fprintf(&b, " %d", n)
		case Relative:
			fmt.Fprintf(&b, " [rb%+d]", n)
		}
	}
	return b.String(), size
}
