package intcode

import (
	"slices"
	"testing"
	"time"
)

func TestChannelOrder(t *testing.T) {
	s, r := NewChannel()
	for i := int64(1); i <= 5; i++ {
		if err := s.Send(i); err != nil {
			t.Fatal(err)
		}
	}
	if n := r.Len(); n != 5 {
		t.Fatalf("Len = %d, want 5", n)
	}
	var got []int64
	for {
		v, ok, err := r.TryRecv()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}
	if want := []int64{1, 2, 3, 4, 5}; !slices.Equal(got, want) {
		t.Errorf("received %v, want %v", got, want)
	}
}

func TestChannelClose(t *testing.T) {
	s, r := NewChannel()
	s.Send(1)
	s.Close()
	if err := s.Send(2); err != ChannelClosed {
		t.Errorf("Send after Close: got %v, want %v", err, ChannelClosed)
	}
	if v, err := r.Recv(); v != 1 || err != nil {
		t.Errorf("Recv = %d, %v; want queued value 1", v, err)
	}
	if _, err := r.Recv(); err != ChannelClosed {
		t.Errorf("Recv after drain: got %v, want %v", err, ChannelClosed)
	}
	if _, ok, err := r.TryRecv(); ok || err != ChannelClosed {
		t.Errorf("TryRecv after drain: got %v, %v", ok, err)
	}

	s, r = NewChannel()
	r.Close()
	if err := s.Send(1); err != ChannelClosed {
		t.Errorf("Send to closed receiver: got %v, want %v", err, ChannelClosed)
	}
}

func TestChannelRecvWakes(t *testing.T) {
	s, r := NewChannel()
	done := make(chan int64)
	go func() {
		v, _ := r.Recv()
		done <- v
	}()
	time.Sleep(10 * time.Millisecond)
	s.Send(7)
	select {
	case v := <-done:
		if v != 7 {
			t.Errorf("Recv = %d, want 7", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not wake after Send")
	}

	_, r = NewChannel()
	errc := make(chan error)
	go func() {
		_, err := r.Recv()
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	r.Close()
	select {
	case err := <-errc:
		if err != ChannelClosed {
			t.Errorf("Recv: got %v, want %v", err, ChannelClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not wake after Close")
	}
}

func TestChannelDrain(t *testing.T) {
	s, r := NewChannel()
	s.Send(3)
	s.Send(4)
	if g := r.Drain(); !slices.Equal(g, []int64{3, 4}) {
		t.Errorf("Drain = %v", g)
	}
	if n := r.Len(); n != 0 {
		t.Errorf("Len after Drain = %d", n)
	}
	select {
	case <-r.Ready():
	default:
		t.Error("no ready token after Send")
	}
}
