// Package network runs groups of intcode machines whose outputs feed the
// inputs of their neighbours.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nf/intcode/intcode"
)

// ErrDeadlock is returned by Run when every machine that has not halted is
// waiting for input that no other machine will provide.
var ErrDeadlock = errors.New("network deadlock: all machines waiting for input")

// MachineError reports a failure of one machine in a network.
type MachineError struct {
	Index int
	Err   error
}

func (e *MachineError) Error() string { return fmt.Sprintf("machine %d: %v", e.Index, e.Err) }
func (e *MachineError) Unwrap() error { return e.Err }

// Network is a list of machines. Unless built with Of, machine i sends its
// output to machine i+1.
type Network struct {
	ms  []*intcode.Machine
	in  *intcode.Sender
	out *intcode.Receiver
	log *slog.Logger
}

type Option func(*options)

type options struct {
	loop bool
	log  *slog.Logger
}

// Loop connects the last machine's output to the first machine's input.
func Loop() Option {
	return func(o *options) { o.loop = true }
}

// Logger sets the logger that receives scheduling events.
func Logger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a chain of n machines, each loaded with its own copy of p.
// Without Loop, Input sends to the first machine and Output receives from
// the last.
func New(p intcode.Program, n int, opts ...Option) *Network {
	if n < 1 {
		panic("network.New: need at least one machine")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	nw := &Network{ms: make([]*intcode.Machine, n)}
	nw.SetLogger(o.log)
	for i := range nw.ms {
		nw.ms[i] = intcode.NewMachine(p)
	}
	for i := 0; i+1 < n; i++ {
		nw.ms[i].ConnectOutput(nw.ms[i+1].CreateInputChannel())
	}
	first, last := nw.ms[0], nw.ms[n-1]
	if o.loop {
		last.ConnectOutput(first.CreateInputChannel())
	} else {
		nw.in = first.CreateInputChannel()
		nw.out = last.CreateOutputChannel()
	}
	return nw
}

// Of returns a network of machines the caller has already connected.
func Of(ms ...*intcode.Machine) *Network {
	if len(ms) == 0 {
		panic("network.Of: need at least one machine")
	}
	nw := &Network{ms: ms}
	nw.SetLogger(nil)
	return nw
}

// SetLogger sets the logger that receives scheduling events. A nil logger
// discards them.
func (nw *Network) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	nw.log = l
}

// Len returns the number of machines.
func (nw *Network) Len() int { return len(nw.ms) }

// Machine returns machine i.
func (nw *Network) Machine(i int) *intcode.Machine { return nw.ms[i] }

// Input returns the sending end of the first machine's input, or nil if the
// network is a ring or was built with Of.
func (nw *Network) Input() *intcode.Sender { return nw.in }

// Output returns the receiving end of the last machine's output, or nil if
// the network is a ring or was built with Of.
func (nw *Network) Output() *intcode.Receiver { return nw.out }

// Send queues v on the input of machine i.
func (nw *Network) Send(i int, v int64) error {
	if i < 0 || i >= len(nw.ms) {
		return fmt.Errorf("send to machine %d: network has %d machines", i, len(nw.ms))
	}
	if err := nw.ms[i].SendInput(v); err != nil {
		return &MachineError{Index: i, Err: err}
	}
	return nil
}

// Prime sends vals[i] to machine i.
func (nw *Network) Prime(vals ...int64) error {
	if len(vals) > len(nw.ms) {
		return fmt.Errorf("prime: %d values for %d machines", len(vals), len(nw.ms))
	}
	for i, v := range vals {
		if err := nw.Send(i, v); err != nil {
			return err
		}
	}
	return nil
}

// LastOutput returns the last value written by the last machine.
func (nw *Network) LastOutput() int64 { return nw.ms[len(nw.ms)-1].LastOutput() }

// Halted reports whether every machine has halted.
func (nw *Network) Halted() bool {
	for _, m := range nw.ms {
		if m.IsRunning() {
			return false
		}
	}
	return true
}

// Run drives all machines on the calling goroutine. Each machine is switched
// to non-blocking input and run in turn until it halts or waits for input,
// until every machine has halted.
//
// If a full pass completes no instruction, Run returns ErrDeadlock. The
// network is left intact, so the caller may send more input and call Run
// again.
func (nw *Network) Run() error {
	for _, m := range nw.ms {
		m.SetBlockingInput(false)
	}
	for pass := 0; ; pass++ {
		progress, running := false, false
		for i, m := range nw.ms {
			if !m.IsRunning() {
				continue
			}
			n := m.InstructionCount()
			if err := m.Run(); err != nil {
				nw.log.Error("machine failed", "machine", i, "err", err)
				return &MachineError{Index: i, Err: err}
			}
			if m.InstructionCount() != n {
				progress = true
			}
			if m.IsRunning() {
				running = true
				nw.log.Debug("machine waiting", "machine", i, "pass", pass, "pc", m.PC)
			} else {
				nw.log.Debug("machine halted", "machine", i, "pass", pass, "last_output", m.LastOutput())
			}
		}
		if !running {
			nw.log.Info("network halted", "passes", pass+1, "last_output", nw.LastOutput())
			return nil
		}
		if !progress {
			nw.log.Warn("network deadlocked", "pass", pass)
			return ErrDeadlock
		}
	}
}

// RunConcurrent runs each machine on its own goroutine with blocking input
// and waits for all of them to halt.
//
// A machine that halts closes its output, so a machine downstream still
// waiting for a value fails with ChannelClosed instead of waiting forever.
// The first failure, or the cancellation of ctx, closes every channel in the
// network and stops the other machines. The network cannot be run again
// after that.
func (nw *Network) RunConcurrent(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range nw.ms {
		m.SetBlockingInput(true)
		out := m.Output()
		g.Go(func() error {
			err := runBlocking(gctx, m)
			if out != nil {
				out.Close()
			}
			if err != nil {
				nw.log.Error("machine failed", "machine", i, "err", err)
				nw.shutdown()
				return &MachineError{Index: i, Err: err}
			}
			nw.log.Debug("machine halted", "machine", i, "last_output", m.LastOutput())
			return nil
		})
	}
	stop := context.AfterFunc(ctx, nw.shutdown)
	defer stop()
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	nw.log.Info("network halted", "last_output", nw.LastOutput())
	return nil
}

func runBlocking(ctx context.Context, m *intcode.Machine) error {
	for m.IsRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// shutdown closes both ends of every channel connected to the network.
func (nw *Network) shutdown() {
	for _, m := range nw.ms {
		if in := m.Input(); in != nil {
			in.Close()
		}
		if out := m.Output(); out != nil {
			out.Close()
		}
	}
}
