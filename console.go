package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/nf/intcode/intcode"
	"github.com/nf/intcode/network"
)

// runInteractive runs nw concurrently while feeding standard input to its
// first machine and printing the outputs of its last as they arrive.
func runInteractive(w io.Writer, nw *network.Network, ascii bool) error {
	go func() {
		if err := feed(os.Stdin, nw.Input(), ascii); err != nil {
			log.Printf("reading stdin: %v", err)
		}
	}()
	done := make(chan bool)
	go func() {
		copyOutput(w, nw.Output(), ascii)
		close(done)
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := nw.RunConcurrent(ctx)
	<-done
	return err
}

// feed sends the values read from r, one line at a time, to s. It closes s
// when r is exhausted.
func feed(r io.Reader, s *intcode.Sender, ascii bool) error {
	defer s.Close()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		vals, err := lineValues(sc.Text(), ascii)
		if err != nil {
			log.Print(err)
			continue
		}
		for _, v := range vals {
			if err := s.Send(v); err != nil {
				return nil
			}
		}
	}
	return sc.Err()
}

// lineValues returns the values a line of input represents: its character
// codes followed by a newline in ascii mode, or else the comma separated
// integers it holds.
func lineValues(line string, ascii bool) ([]int64, error) {
	if !ascii {
		return parseValues(line)
	}
	vals := make([]int64, 0, len(line)+1)
	for i := 0; i < len(line); i++ {
		vals = append(vals, int64(line[i]))
	}
	return append(vals, '\n'), nil
}

// copyOutput writes values received from r until it is closed.
func copyOutput(w io.Writer, r *intcode.Receiver, ascii bool) {
	for {
		v, err := r.Recv()
		if err != nil {
			return
		}
		writeValue(w, v, ascii)
	}
}

func writeValue(w io.Writer, v int64, ascii bool) {
	if ascii && v >= 0 && v < 128 {
		w.Write([]byte{byte(v)})
		return
	}
	fmt.Fprintln(w, v)
}
