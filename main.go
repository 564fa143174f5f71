// Command intcode runs intcode programs, alone or as chains and rings of
// machines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/network"
	"github.com/nf/intcode/script"
)

func main() {
	log.SetPrefix("intcode: ")
	log.SetFlags(0)

	var (
		inFlag          = flag.String("in", "", "comma separated `values` sent to the first machine")
		pokeFlag        = flag.String("poke", "", "comma separated `addr=value` pairs written before running")
		peekFlag        = flag.String("peek", "", "comma separated `addresses` of the first machine printed after halting")
		chainFlag       = flag.Int("chain", 1, "number of machines, each feeding the next")
		loopFlag        = flag.Bool("loop", false, "feed the last machine's output back to the first")
		concurrentFlag  = flag.Bool("concurrent", false, "run each machine on its own goroutine")
		primeFlag       = flag.String("prime", "", "comma separated `values`, one sent to each machine first")
		netFlag         = flag.String("net", "", "run the network described by CUE `file`")
		interactiveFlag = flag.Bool("interactive", false, "read input values from standard input")
		asciiFlag       = flag.Bool("ascii", false, "exchange text: input lines as character codes, outputs below 128 as characters")
		scriptFlag      = flag.String("script", "", "run the Starlark driver `file`")
		disasmFlag      = flag.Bool("disasm", false, "print a listing of the program and exit")
		debugFlag       = flag.Bool("debug", false, "enable debugger (implies -dev)")
		labelsFlag      = flag.String("labels", "", "read debugger labels from `file`")
		devFlag         = flag.Bool("dev", false, "enable developer mode (re-run the program when it changes)")
		traceFlag       = flag.Bool("trace", false, "log each instruction")
		journalFlag     = flag.Bool("journal", false, "also log to the systemd journal")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <program.txt>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s <-dev | -debug> [flags] <program.txt>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -net <network.cue>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -script <driver.star>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	level := slog.LevelInfo
	if *traceFlag {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level, *journalFlag)

	if *scriptFlag != "" {
		_, err := script.Exec(*scriptFlag, nil, script.Options{Logger: logger})
		if err != nil {
			log.Fatal(err)
		}
		return
	}
	if *netFlag != "" {
		if err := runNetwork(*netFlag, logger); err != nil {
			log.Fatal(err)
		}
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
	}

	o, err := parseOptions(*inFlag, *primeFlag, *pokeFlag, *peekFlag)
	if err != nil {
		log.Fatal(err)
	}
	o.chain = *chainFlag
	o.loop = *loopFlag
	o.concurrent = *concurrentFlag
	o.interactive = *interactiveFlag
	o.ascii = *asciiFlag
	o.trace = *traceFlag
	if o.chain < 1 {
		log.Fatal("-chain must be at least 1")
	}
	if o.interactive && o.loop {
		log.Fatal("-interactive cannot be used with -loop")
	}

	if *disasmFlag {
		p, err := intcode.ParseFile(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		if err := intcode.Disasm(os.Stdout, p); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *devFlag || *debugFlag {
		if err := devMode(flag.Arg(0), *debugFlag, *labelsFlag, o, logger); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	err = runFile(flag.Arg(0), o, logger)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
}

// options controls how a program is run.
type options struct {
	in, prime []int64
	pokes     []network.Poke
	peeks     []uint64

	chain       int
	loop        bool
	concurrent  bool
	interactive bool
	ascii       bool
	trace       bool
}

func parseOptions(in, prime, pokes, peeks string) (o options, err error) {
	if o.in, err = parseValues(in); err != nil {
		return o, fmt.Errorf("-in: %w", err)
	}
	if o.prime, err = parseValues(prime); err != nil {
		return o, fmt.Errorf("-prime: %w", err)
	}
	if o.pokes, err = parsePokes(pokes); err != nil {
		return o, fmt.Errorf("-poke: %w", err)
	}
	if o.peeks, err = parseAddrs(peeks); err != nil {
		return o, fmt.Errorf("-peek: %w", err)
	}
	return o, nil
}

// parseValues parses comma separated integers. Empty text yields no values.
func parseValues(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, err := intcode.Parse(s)
	if err != nil {
		return nil, err
	}
	return p.Instructions(), nil
}

func parsePokes(s string) ([]network.Poke, error) {
	var pokes []network.Poke
	for _, f := range splitList(s) {
		a, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not addr=value", f)
		}
		addr, err := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", a)
		}
		val, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", v)
		}
		pokes = append(pokes, network.Poke{Addr: addr, Value: val})
	}
	return pokes, nil
}

func parseAddrs(s string) ([]uint64, error) {
	var addrs []uint64
	for _, f := range splitList(s) {
		addr, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", f)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func splitList(s string) (fields []string) {
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func runFile(name string, o options, logger *slog.Logger) error {
	p, err := intcode.ParseFile(name)
	if err != nil {
		return err
	}
	return run(os.Stdout, p, o, logger)
}

func runNetwork(name string, logger *slog.Logger) error {
	c, err := network.LoadConfig(name)
	if err != nil {
		return err
	}
	nw, err := c.Build(network.Logger(logger))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if c.Concurrent {
		err = nw.RunConcurrent(ctx)
	} else {
		err = nw.Run()
	}
	if err != nil {
		return err
	}
	printOutputs(os.Stdout, nw, false)
	return nil
}

// run runs p on a network built as o describes and writes the outputs of
// the last machine, and any requested peeks, to w.
func run(w io.Writer, p intcode.Program, o options, logger *slog.Logger) error {
	opts := []network.Option{network.Logger(logger)}
	if o.loop {
		opts = append(opts, network.Loop())
	}
	nw := network.New(p, o.chain, opts...)
	backlogs := make([]*backlog, nw.Len())
	for i := range nw.Len() {
		m := nw.Machine(i)
		for _, pk := range o.pokes {
			if err := m.Poke(pk.Addr, pk.Value); err != nil {
				return fmt.Errorf("-poke %d: %w", pk.Addr, err)
			}
		}
		if o.trace {
			m.Logf = func(format string, args ...any) {
				logger.Debug(fmt.Sprintf(format, args...), "machine", i)
			}
		} else {
			backlogs[i] = new(backlog)
			m.Logf = backlogs[i].LazyPrintf
		}
	}
	if err := nw.Prime(o.prime...); err != nil {
		return err
	}
	for _, v := range o.in {
		if err := nw.Send(0, v); err != nil {
			return err
		}
	}

	var err error
	if o.interactive {
		err = runInteractive(w, nw, o.ascii)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if o.concurrent {
			err = nw.RunConcurrent(ctx)
		} else {
			err = nw.Run()
		}
		if err == nil {
			printOutputs(w, nw, o.ascii)
		}
	}
	var me *network.MachineError
	if errors.As(err, &me) && backlogs[me.Index] != nil {
		log.Printf("last instructions of machine %d:", me.Index)
		backlogs[me.Index].Emit()
	}
	if errors.Is(err, network.ErrDeadlock) {
		return fmt.Errorf("%w (supply input with -in or -interactive)", err)
	}
	if err != nil {
		return err
	}
	for _, addr := range o.peeks {
		fmt.Fprintf(w, "[%d] %d\n", addr, nw.Machine(0).Peek(addr))
	}
	return nil
}

// printOutputs writes the values queued on the network's output, or the last
// output of a ring.
func printOutputs(w io.Writer, nw *network.Network, ascii bool) {
	out := nw.Output()
	if out == nil {
		fmt.Fprintln(w, nw.LastOutput())
		return
	}
	for _, v := range out.Drain() {
		writeValue(w, v, ascii)
	}
}
