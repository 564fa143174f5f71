package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// labels maps memory addresses to names, sorted by address.
type labels []label

type label struct {
	addr uint64
	name string
}

func (l label) String() string { return fmt.Sprintf("%s (%d)", l.name, l.addr) }

func (s *labels) forAddr(addr uint64) (ls []label) {
	if s == nil {
		return nil
	}
	i := sort.Search(len(*s), func(i int) bool { return (*s)[i].addr >= addr })
	for ; i < len(*s) && (*s)[i].addr == addr; i++ {
		ls = append(ls, (*s)[i])
	}
	return ls
}

// resolve returns the label named arg, or an unnamed label if arg is a
// decimal address.
func (s *labels) resolve(arg string) (label, bool) {
	if s != nil {
		for _, l := range *s {
			if l.name == arg {
				return l, true
			}
		}
	}
	addr, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return label{}, false
	}
	if ls := s.forAddr(addr); len(ls) > 0 {
		return ls[0], true
	}
	return label{addr: addr, name: arg}, true
}

func (s *labels) withNamePrefix(prefix string) (ls []label) {
	if s == nil {
		return nil
	}
	for _, l := range *s {
		if strings.HasPrefix(l.name, prefix) {
			ls = append(ls, l)
		}
	}
	return ls
}

// parseLabels reads a label file. Each line holds a decimal address and a
// name separated by white space. Blank lines and lines starting with # are
// ignored.
func parseLabels(name string) (*labels, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ls labels
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: want address and name, got %q", name, n, line)
		}
		addr, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid address %q", name, n, fields[0])
		}
		ls = append(ls, label{addr: addr, name: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].addr < ls[j].addr
	})
	return &ls, nil
}
