package network

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nf/intcode/intcode"
)

const (
	amp      = "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0"
	ampLoop  = "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5"
	readHalt = "3,0,99"
)

func TestChain(t *testing.T) {
	nw := New(intcode.MustParse(amp), 5)
	if err := nw.Prime(4, 3, 2, 1, 0); err != nil {
		t.Fatal(err)
	}
	if err := nw.Input().Send(0); err != nil {
		t.Fatal(err)
	}
	if err := nw.Run(); err != nil {
		t.Fatal(err)
	}
	if g := nw.Output().Drain(); !slices.Equal(g, []int64{43210}) {
		t.Errorf("output %v, want [43210]", g)
	}
	if !nw.Halted() {
		t.Error("network not halted")
	}
}

func TestRing(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		nw := New(intcode.MustParse(ampLoop), 5, Loop())
		if nw.Input() != nil || nw.Output() != nil {
			t.Error("ring has external channels")
		}
		if err := nw.Prime(9, 8, 7, 6, 5); err != nil {
			t.Fatal(err)
		}
		if err := nw.Send(0, 0); err != nil {
			t.Fatal(err)
		}
		var err error
		if concurrent {
			err = nw.RunConcurrent(context.Background())
		} else {
			err = nw.Run()
		}
		if err != nil {
			t.Fatalf("concurrent=%v: %v", concurrent, err)
		}
		if g := nw.LastOutput(); g != 139629729 {
			t.Errorf("concurrent=%v: last output %d, want 139629729", concurrent, g)
		}
	}
}

func TestDeadlock(t *testing.T) {
	nw := New(intcode.MustParse(readHalt), 2, Loop())
	if err := nw.Run(); err != ErrDeadlock {
		t.Fatalf("got error %v, want %v", err, ErrDeadlock)
	}
	for i := range nw.Len() {
		if g := nw.Machine(i).State(); g != intcode.WaitingForInput {
			t.Errorf("machine %d is %v", i, g)
		}
	}
	nw.Send(0, 1)
	nw.Send(1, 2)
	if err := nw.Run(); err != nil {
		t.Fatal(err)
	}
	if g := nw.Machine(1).Peek(0); g != 2 {
		t.Errorf("machine 1 read %d, want 2", g)
	}
}

func TestSendRange(t *testing.T) {
	nw := New(intcode.MustParse(readHalt), 2)
	if err := nw.Send(2, 0); err == nil {
		t.Error("Send to machine 2 succeeded")
	}
	if err := nw.Prime(1, 2, 3); err == nil {
		t.Error("Prime with too many values succeeded")
	}
}

func TestMachineError(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		a := intcode.NewMachine(intcode.MustParse("3,0,4,0,99"))
		b := intcode.NewMachine(intcode.MustParse("3,0,98"))
		a.ConnectOutput(b.CreateInputChannel())
		a.CreateInputChannel()
		a.SendInput(1)
		nw := Of(a, b)

		var err error
		if concurrent {
			err = nw.RunConcurrent(context.Background())
		} else {
			err = nw.Run()
		}
		var me *MachineError
		if !errors.As(err, &me) || me.Index != 1 {
			t.Fatalf("concurrent=%v: got error %v, want failure of machine 1", concurrent, err)
		}
		if !errors.Is(err, intcode.InvalidOpcode) {
			t.Errorf("concurrent=%v: got error %v, want %v", concurrent, err, intcode.InvalidOpcode)
		}
	}
}

func TestHaltClosesOutput(t *testing.T) {
	// The second machine wants two values but the first sends only one.
	nw := Of(
		intcode.NewMachine(intcode.MustParse("104,7,99")),
		intcode.NewMachine(intcode.MustParse("3,0,3,0,99")),
	)
	nw.Machine(0).ConnectOutput(nw.Machine(1).CreateInputChannel())
	err := nw.RunConcurrent(context.Background())
	if !errors.Is(err, intcode.ChannelClosed) {
		t.Fatalf("got error %v, want %v", err, intcode.ChannelClosed)
	}
	if g := nw.Machine(1).Peek(0); g != 7 {
		t.Errorf("machine 1 read %d, want 7", g)
	}
}

func TestRunConcurrentCancel(t *testing.T) {
	nw := New(intcode.MustParse(readHalt), 3, Loop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() { errc <- nw.RunConcurrent(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("got error %v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunConcurrent did not return after cancel")
	}
}

func TestLogger(t *testing.T) {
	var b bytes.Buffer
	l := slog.New(slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}))
	nw := New(intcode.MustParse(readHalt), 1, Logger(l))
	nw.Input().Send(5)
	if err := nw.Run(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"machine halted", "network halted"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("log does not contain %q:\n%s", want, b.String())
		}
	}
}
