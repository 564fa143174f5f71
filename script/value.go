package script

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/nf/intcode/intcode"
)

// Program is the Starlark value of an intcode program.
type Program struct {
	p intcode.Program
}

var _ starlark.HasAttrs = Program{}

func (p Program) String() string       { return fmt.Sprintf("<program %d words>", p.p.Len()) }
func (Program) Type() string           { return "program" }
func (Program) Freeze()                {}
func (p Program) Truth() starlark.Bool { return p.p.Len() > 0 }
func (Program) Hash() (uint32, error)  { return 0, fmt.Errorf("unhashable: program") }
func (Program) AttrNames() []string    { return []string{"size", "words"} }

func (p Program) Attr(name string) (starlark.Value, error) {
	switch name {
	case "size":
		return starlark.MakeInt(p.p.Len()), nil
	case "words":
		return intList(p.p.Instructions()), nil
	}
	return nil, nil
}

// Machine is the Starlark value of an intcode machine. Its input and output
// channels are created with it, so a script can send to it and read from it
// until it is connected to another machine.
type Machine struct {
	m   *intcode.Machine
	in  *intcode.Sender
	out *intcode.Receiver
}

var _ starlark.HasAttrs = (*Machine)(nil)

// NewMachine returns a machine loaded with p.
func NewMachine(p intcode.Program, blocking bool) *Machine {
	m := intcode.NewMachine(p)
	m.SetBlockingInput(blocking)
	return &Machine{
		m:   m,
		in:  m.CreateInputChannel(),
		out: m.CreateOutputChannel(),
	}
}

// Unwrap returns the underlying machine.
func (m *Machine) Unwrap() *intcode.Machine { return m.m }

func (m *Machine) String() string {
	return fmt.Sprintf("<machine pc=%d %v>", m.m.PC, m.m.State())
}
func (*Machine) Type() string          { return "machine" }
func (*Machine) Freeze()               {}
func (*Machine) Truth() starlark.Bool  { return starlark.True }
func (*Machine) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: machine") }

type method func(m *Machine, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var methods = map[string]method{
	"run":     (*Machine).run,
	"step":    (*Machine).step,
	"peek":    (*Machine).peek,
	"poke":    (*Machine).poke,
	"send":    (*Machine).send,
	"recv":    (*Machine).recv,
	"outputs": (*Machine).outputs,
	"load":    (*Machine).load,
}

func (m *Machine) Attr(name string) (starlark.Value, error) {
	switch name {
	case "running":
		return starlark.Bool(m.m.IsRunning()), nil
	case "state":
		return starlark.String(m.m.State().String()), nil
	case "pc":
		return starlark.MakeUint64(m.m.PC), nil
	case "relative_base":
		return starlark.MakeUint64(m.m.RelBase), nil
	case "last_output":
		return starlark.MakeInt64(m.m.LastOutput()), nil
	case "count":
		return starlark.MakeInt64(m.m.InstructionCount()), nil
	}
	fn, ok := methods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return fn(b.Receiver().(*Machine), b, args, kwargs)
	}).BindReceiver(m), nil
}

func (m *Machine) AttrNames() []string {
	names := []string{"count", "last_output", "pc", "relative_base", "running", "state"}
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Machine) run(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := m.m.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(m.m.State().String()), nil
}

func (m *Machine) step(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	if err := m.m.Step(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(m.m.State().String()), nil
}

func (m *Machine) peek(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr starlark.Int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}
	a, err := toAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.MakeInt64(m.m.Peek(a)), nil
}

func (m *Machine) poke(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr, val starlark.Int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &val); err != nil {
		return nil, err
	}
	a, err := toAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	v, err := toWord(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := m.m.Poke(a, v); err != nil {
		return nil, fmt.Errorf("%s: address %d: %w", b.Name(), a, err)
	}
	return starlark.None, nil
}

func (m *Machine) send(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	for i, arg := range args {
		x, ok := arg.(starlark.Int)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want int", b.Name(), i+1, arg.Type())
		}
		v, err := toWord(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		if err := m.m.SendInput(v); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	return starlark.None, nil
}

func (m *Machine) recv(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	v, ok, err := m.out.TryRecv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if !ok {
		return starlark.None, nil
	}
	return starlark.MakeInt64(v), nil
}

func (m *Machine) outputs(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return intList(m.out.Drain()), nil
}

func (m *Machine) load(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var p Program
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &p); err != nil {
		return nil, err
	}
	m.m.Load(p.p)
	return starlark.None, nil
}

func toAddr(x starlark.Int) (uint64, error) {
	a, ok := x.Uint64()
	if !ok {
		return 0, fmt.Errorf("address %v out of range", x)
	}
	return a, nil
}

func toWord(x starlark.Int) (int64, error) {
	v, ok := x.Int64()
	if !ok {
		return 0, fmt.Errorf("value %v out of range", x)
	}
	return v, nil
}

func intList(words []int64) *starlark.List {
	elems := make([]starlark.Value, len(words))
	for i, w := range words {
		elems[i] = starlark.MakeInt64(w)
	}
	return starlark.NewList(elems)
}
