package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/intcode/intcode"
)

type stateKind int

const (
	pauseState stateKind = iota
	breakState
	waitState
	haltState
	faultState
)

// debugger is a terminal interface that steps a single machine.
//
// The commands are:
//
//	s, step [n]      execute n instructions
//	c, cont          run until a break, halt or fault, or until any command
//	b, break [addr]  set or clear the break address
//	w, watch addr    show the value at addr
//	poke addr=value  write to memory
//	in values        send input (text in -ascii mode)
//	r, reset         reload the program
//	exit
type debugger struct {
	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	opts  options
	cmds  chan string
	reset chan intcode.Program

	mu      sync.Mutex
	labels  *labels
	brk     *label
	watches []label
}

// session is the machine under the debugger and its channels.
type session struct {
	m   *intcode.Machine
	in  *intcode.Sender
	out *intcode.Receiver
}

func (d *debugger) labelSet() *labels {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.labels
}

func (d *debugger) setLabels(ls *labels) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.labels = ls
}

func (d *debugger) breakpoint() *label {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brk
}

func newDebugger(o options) *debugger {
	d := &debugger{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),

		opts:  o,
		cmds:  make(chan string, 16),
		reset: make(chan intcode.Program, 1),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "w", "watch":
				for _, l := range d.labelSet().withNamePrefix(arg) {
					entries = append(entries, cmd+" "+l.name)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := strings.TrimSpace(d.input.GetText())
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		if d.command(cmd) {
			return
		}
		select {
		case d.cmds <- cmd:
		default:
			log.Printf("busy, dropped %q", cmd)
		}
	})
	return d
}

// command handles the commands that do not touch the machine. It reports
// whether cmd was one of them.
func (d *debugger) command(cmd string) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	switch name {
	case "b", "break":
		if arg == "" {
			d.mu.Lock()
			d.brk = nil
			d.mu.Unlock()
			log.Print("cleared break")
			return true
		}
		l, ok := d.labelSet().resolve(arg)
		if !ok {
			log.Printf("invalid address %q", arg)
			return true
		}
		d.mu.Lock()
		d.brk = &l
		d.mu.Unlock()
		log.Printf("set break %d", l.addr)
		return true
	case "w", "watch":
		l, ok := d.labelSet().resolve(arg)
		if !ok {
			log.Printf("invalid address %q", arg)
			return true
		}
		d.mu.Lock()
		d.watches = append(d.watches, l)
		d.mu.Unlock()
		log.Printf("watching %d", l.addr)
		return true
	}
	return false
}

func (d *debugger) Run() error { return d.app.Run() }

// swap replaces the program under the debugger.
func (d *debugger) swap(p intcode.Program) {
	select {
	case <-d.reset:
	default:
	}
	d.reset <- p
}

// control owns the machine. It runs until the process exits.
func (d *debugger) control(p intcode.Program) {
	s := d.load(p)
	for {
		select {
		case p = <-d.reset:
			log.Print("reset")
			s = d.load(p)
		case cmd := <-d.cmds:
			if cmd == "r" || cmd == "reset" {
				log.Print("reset")
				s = d.load(p)
				continue
			}
			d.exec(s, cmd)
		}
	}
}

func (d *debugger) load(p intcode.Program) *session {
	m := intcode.NewMachine(p)
	m.SetBlockingInput(false)
	if d.opts.trace {
		m.Logf = log.Printf
	}
	s := &session{m: m, in: m.CreateInputChannel(), out: m.CreateOutputChannel()}
	for _, pk := range d.opts.pokes {
		if err := m.Poke(pk.Addr, pk.Value); err != nil {
			log.Printf("poke %d: %v", pk.Addr, err)
		}
	}
	for _, v := range d.opts.in {
		s.in.Send(v)
	}
	d.show(m, pauseState)
	return s
}

func (d *debugger) exec(s *session, cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	switch name {
	case "s", "step":
		n := 1
		if arg != "" {
			var err error
			if n, err = strconv.Atoi(arg); err != nil || n < 1 {
				log.Printf("invalid count %q", arg)
				return
			}
		}
		k := pauseState
		for range n {
			var stop bool
			if k, stop = d.step(s); stop {
				break
			}
		}
		d.show(s.m, k)
	case "c", "cont":
		d.cont(s)
	case "poke":
		pokes, err := parsePokes(arg)
		if err != nil {
			log.Print(err)
			return
		}
		for _, pk := range pokes {
			if err := s.m.Poke(pk.Addr, pk.Value); err != nil {
				log.Printf("poke %d: %v", pk.Addr, err)
			}
		}
		d.show(s.m, pauseState)
	case "in":
		vals, err := lineValues(arg, d.opts.ascii)
		if err != nil {
			log.Print(err)
			return
		}
		for _, v := range vals {
			s.in.Send(v)
		}
		log.Printf("queued %d values", len(vals))
		d.show(s.m, pauseState)
	default:
		log.Printf("unknown command %q", cmd)
	}
}

// step executes one instruction and logs any output. It reports whether
// execution should stop, and why.
func (d *debugger) step(s *session) (stateKind, bool) {
	m := s.m
	if !m.IsRunning() {
		return haltState, true
	}
	err := m.Step()
	for _, v := range s.out.Drain() {
		if d.opts.ascii && v >= 0 && v < 128 {
			log.Printf("out: %d %q", v, rune(v))
		} else {
			log.Printf("out: %d", v)
		}
	}
	if err != nil {
		log.Printf("fault: %v", err)
		return faultState, true
	}
	switch m.State() {
	case intcode.Halted:
		return haltState, true
	case intcode.WaitingForInput:
		return waitState, true
	}
	if b := d.breakpoint(); b != nil && b.addr == m.PC {
		return breakState, true
	}
	return pauseState, false
}

func (d *debugger) cont(s *session) {
	for n := 1; ; n++ {
		if k, stop := d.step(s); stop {
			d.show(s.m, k)
			return
		}
		if n%1000 != 0 {
			continue
		}
		select {
		case p := <-d.reset:
			// Leave it for control.
			select {
			case d.reset <- p:
			default:
			}
			return
		case cmd := <-d.cmds:
			log.Print("paused")
			d.show(s.m, pauseState)
			if cmd != "p" && cmd != "pause" {
				d.exec(s, cmd)
			}
			return
		default:
		}
	}
}

func (d *debugger) show(m *intcode.Machine, k stateKind) {
	var (
		watch = d.watchContent(m)
		state = stateMsg(d.labelSet(), m, k)
	)
	d.app.QueueUpdateDraw(func() {
		switch k {
		case pauseState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case breakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case waitState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case haltState, faultState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		d.state.SetText(state)
	})
}

func stateMsg(ls *labels, m *intcode.Machine, k stateKind) string {
	text, _ := intcode.DisasmAt(m.Mem, m.PC)
	var pcLabel string
	if l := ls.forAddr(m.PC); len(l) > 0 {
		pcLabel = l[0].name
	}
	kind := "       "
	switch k {
	case breakState:
		kind = "[break]"
	case waitState:
		kind = "[input]"
	case haltState:
		kind = "[halt] "
	case faultState:
		kind = "[FAULT]"
	}
	queued := 0
	if in := m.Input(); in != nil {
		queued = in.Len()
	}
	return fmt.Sprintf("%6d  %-28s %s %s\nrb: %d  count: %d  last: %d  queued: %d\n",
		m.PC, text, kind, pcLabel, m.RelBase, m.InstructionCount(), m.LastOutput(), queued)
}

func (d *debugger) watchContent(m *intcode.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if l := d.brk; l != nil {
		fmt.Fprintf(&b, "%s [%d] brk!\n", l.name, l.addr)
	}
	for _, w := range d.watches {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s [%d] %d", w.name, w.addr, m.Peek(w.addr))
	}
	return b.String()
}
