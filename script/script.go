// Package script drives intcode machines from Starlark programs.
//
// The following builtins are predeclared:
//
//	parse(text)                     -> program
//	load_program(path)              -> program
//	machine(program, blocking=True) -> machine
//	connect(a, b)                   send a's output to b's input
//	run_all(machines, concurrent=False)
//
// A machine has the methods run, step, peek, poke, send, recv, outputs and
// load, and the attributes running, state, pc, relative_base, last_output and
// count.
package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/network"
)

// Options configures Exec.
type Options struct {
	// Stdout receives the output of print. The default is os.Stdout.
	Stdout io.Writer
	// Dir is the directory load_program resolves relative paths against.
	// The default is the directory of the script.
	Dir string
	// Logger receives the scheduling events of run_all.
	Logger *slog.Logger
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Exec runs the script in filename, or src if it is not nil, and returns
// its global variables. src may be a string, a []byte or an io.Reader.
func Exec(filename string, src any, opts Options) (starlark.StringDict, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(filename)
	}
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(stdout, msg)
		},
	}
	e := &env{dir: dir, log: opts.Logger}
	globals, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, e.builtins())
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return nil, err
	}
	return globals, nil
}

type env struct {
	dir string
	log *slog.Logger
}

func (e *env) builtins() starlark.StringDict {
	return starlark.StringDict{
		"parse":        starlark.NewBuiltin("parse", parse),
		"load_program": starlark.NewBuiltin("load_program", e.loadProgram),
		"machine":      starlark.NewBuiltin("machine", newMachine),
		"connect":      starlark.NewBuiltin("connect", connect),
		"run_all":      starlark.NewBuiltin("run_all", e.runAll),
	}
}

func parse(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}
	p, err := intcode.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return Program{p}, nil
}

func (e *env) loadProgram(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &path); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.dir, path)
	}
	p, err := intcode.ParseFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, b.Name())
	}
	return Program{p}, nil
}

func newMachine(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		p        Program
		blocking = true
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &p, "blocking?", &blocking); err != nil {
		return nil, err
	}
	return NewMachine(p.p, blocking), nil
}

func connect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var from, to *Machine
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &from, &to); err != nil {
		return nil, err
	}
	from.m.ConnectOutput(to.in)
	return starlark.None, nil
}

func (e *env) runAll(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		list       *starlark.List
		concurrent bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "machines", &list, "concurrent?", &concurrent); err != nil {
		return nil, err
	}
	if list.Len() == 0 {
		return starlark.None, nil
	}
	ms := make([]*intcode.Machine, list.Len())
	for i := range ms {
		m, ok := list.Index(i).(*Machine)
		if !ok {
			return nil, fmt.Errorf("%s: element %d is %s, want machine", b.Name(), i, list.Index(i).Type())
		}
		ms[i] = m.m
	}
	nw := network.Of(ms...)
	nw.SetLogger(e.log)
	var err error
	if concurrent {
		err = nw.RunConcurrent(context.Background())
	} else {
		err = nw.Run()
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}
