package main

import (
	"bytes"
	"errors"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/network"
)

const ampLoop = "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5"

func TestRun(t *testing.T) {
	quiet := slog.New(slog.DiscardHandler)
	for _, c := range []struct {
		name string
		prog string
		o    options
		want string
	}{
		{
			name: "poke and peek",
			prog: "1,0,0,3,1,1,2,3,1,3,4,3,1,5,0,3,2,1,10,19,99",
			o: options{
				chain: 1,
				pokes: []network.Poke{{Addr: 1, Value: 0}, {Addr: 2, Value: 0}},
				peeks: []uint64{0, 3},
			},
			want: "[0] 1\n[3] 2\n",
		},
		{
			name: "input",
			prog: "3,9,8,9,10,9,4,9,99,-1,8",
			o:    options{chain: 1, in: []int64{8}},
			want: "1\n",
		},
		{
			name: "chain",
			prog: "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0",
			o:    options{chain: 5, prime: []int64{4, 3, 2, 1, 0}, in: []int64{0}},
			want: "43210\n",
		},
		{
			name: "ring",
			prog: ampLoop,
			o:    options{chain: 5, loop: true, prime: []int64{9, 8, 7, 6, 5}, in: []int64{0}},
			want: "139629729\n",
		},
		{
			name: "concurrent ring",
			prog: ampLoop,
			o:    options{chain: 5, loop: true, concurrent: true, prime: []int64{9, 8, 7, 6, 5}, in: []int64{0}},
			want: "139629729\n",
		},
		{
			name: "ascii",
			prog: "104,72,104,105,104,10,104,1000,99",
			o:    options{chain: 1, ascii: true},
			want: "Hi\n1000\n",
		},
	} {
		var b bytes.Buffer
		if err := run(&b, intcode.MustParse(c.prog), c.o, quiet); err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if g := b.String(); g != c.want {
			t.Errorf("%s: got output %q, want %q", c.name, g, c.want)
		}
	}
}

func TestRunErrors(t *testing.T) {
	quiet := slog.New(slog.DiscardHandler)
	var b bytes.Buffer
	err := run(&b, intcode.MustParse("3,0,99"), options{chain: 1}, quiet)
	if !errors.Is(err, network.ErrDeadlock) {
		t.Errorf("got error %v, want %v", err, network.ErrDeadlock)
	}
	err = run(&b, intcode.MustParse("1101,1,1,0,98"), options{chain: 2}, quiet)
	var me *network.MachineError
	if !errors.As(err, &me) || me.Index != 0 || !errors.Is(err, intcode.InvalidOpcode) {
		t.Errorf("got error %v, want invalid opcode in machine 0", err)
	}
}

func TestParseOptions(t *testing.T) {
	o, err := parseOptions("1, 2,3", "", "1=12, 2=2", "0,4")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(o.in, []int64{1, 2, 3}) || o.prime != nil {
		t.Errorf("values: in %v prime %v", o.in, o.prime)
	}
	if want := []network.Poke{{Addr: 1, Value: 12}, {Addr: 2, Value: 2}}; !slices.Equal(o.pokes, want) {
		t.Errorf("pokes = %v, want %v", o.pokes, want)
	}
	if !slices.Equal(o.peeks, []uint64{0, 4}) {
		t.Errorf("peeks = %v", o.peeks)
	}

	for _, c := range []struct {
		in, prime, pokes, peeks string
		want                    string
	}{
		{in: "1,x", want: "-in"},
		{prime: "9,,8", want: "-prime"},
		{pokes: "1", want: "-poke"},
		{pokes: "-1=0", want: "-poke"},
		{pokes: "1=a", want: "-poke"},
		{peeks: "a", want: "-peek"},
	} {
		_, err := parseOptions(c.in, c.prime, c.pokes, c.peeks)
		if err == nil || !strings.HasPrefix(err.Error(), c.want) {
			t.Errorf("parseOptions(%q, %q, %q, %q): got error %v", c.in, c.prime, c.pokes, c.peeks, err)
		}
	}
}

func TestLineValues(t *testing.T) {
	for _, c := range []struct {
		line  string
		ascii bool
		want  []int64
	}{
		{"1,2,3", false, []int64{1, 2, 3}},
		{"  ", false, nil},
		{"NOT A J", true, []int64{78, 79, 84, 32, 65, 32, 74, 10}},
		{"", true, []int64{10}},
	} {
		got, err := lineValues(c.line, c.ascii)
		if err != nil {
			t.Errorf("lineValues(%q): %v", c.line, err)
			continue
		}
		if !slices.Equal(got, c.want) {
			t.Errorf("lineValues(%q, %v) = %v, want %v", c.line, c.ascii, got, c.want)
		}
	}
}

func TestFeed(t *testing.T) {
	s, r := intcode.NewChannel()
	if err := feed(strings.NewReader("1,2\nbad\n3\n"), s, false); err != nil {
		t.Fatal(err)
	}
	if g := r.Drain(); !slices.Equal(g, []int64{1, 2, 3}) {
		t.Errorf("fed %v", g)
	}
	if _, err := r.Recv(); err != intcode.ChannelClosed {
		t.Errorf("input not closed after EOF: %v", err)
	}
}

func TestCopyOutput(t *testing.T) {
	s, r := intcode.NewChannel()
	for _, v := range []int64{104, 105, 10, 300} {
		s.Send(v)
	}
	s.Close()
	var b bytes.Buffer
	copyOutput(&b, r, true)
	if g, want := b.String(), "hi\n300\n"; g != want {
		t.Errorf("got %q, want %q", g, want)
	}
}

func TestBacklog(t *testing.T) {
	var buf bytes.Buffer
	flags, prefix := log.Flags(), log.Prefix()
	log.SetOutput(&buf)
	log.SetFlags(0)
	log.SetPrefix("")
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
		log.SetPrefix(prefix)
	})

	var b backlog
	b.Emit()
	if buf.Len() != 0 {
		t.Errorf("empty backlog emitted %q", buf.String())
	}
	for i := range 3 {
		b.LazyPrintf("step %d", i)
	}
	b.Emit()
	if g, w := buf.String(), "step 0\nstep 1\nstep 2\n"; g != w {
		t.Errorf("got %q, want %q", g, w)
	}

	buf.Reset()
	b = backlog{}
	for i := range maxBacklog + 5 {
		b.LazyPrintf("step %d", i)
	}
	b.Emit()
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != maxBacklog || lines[0] != "step 5" || lines[len(lines)-1] != "step 104" {
		t.Errorf("backlog emitted %d lines from %q to %q", len(lines), lines[0], lines[len(lines)-1])
	}
}
