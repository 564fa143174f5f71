package network

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/nf/intcode/intcode"
)

//go:embed schema.cue
var schemaSrc string

// Config describes a network in CUE:
//
//	program:    "amp.txt"
//	machines:   5
//	loop:       true
//	prime:      [9, 8, 7, 6, 5]
//	input:      [0]
//	poke:       [{addr: 1, value: 12}]
//
// A relative program path is resolved against the directory of the
// configuration file.
type Config struct {
	Program    string  `json:"program"`
	Machines   int     `json:"machines"`
	Loop       bool    `json:"loop"`
	Concurrent bool    `json:"concurrent"`
	Prime      []int64 `json:"prime"`
	Input      []int64 `json:"input"`
	Poke       []Poke  `json:"poke"`
}

// Poke is a memory write applied to every machine before it runs.
type Poke struct {
	Addr  uint64 `json:"addr"`
	Value int64  `json:"value"`
}

// LoadConfig reads and validates the CUE file at path.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c, err := ParseConfig(content, path)
	if err != nil {
		return nil, err
	}
	if c.Program != "" && !filepath.IsAbs(c.Program) {
		c.Program = filepath.Join(filepath.Dir(path), c.Program)
	}
	return c, nil
}

// ParseConfig decodes a CUE network description. The filename is used in
// error messages only.
func ParseConfig(content []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	value := ctx.CompileBytes(content, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	var c Config
	if err := value.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(c.Prime) > c.Machines {
		return nil, fmt.Errorf("config: %d prime values for %d machines", len(c.Prime), c.Machines)
	}
	return &c, nil
}

// Build parses the program and returns the configured network with its
// pokes applied and its prime and input values queued.
func (c *Config) Build(opts ...Option) (*Network, error) {
	p, err := intcode.ParseFile(c.Program)
	if err != nil {
		return nil, err
	}
	if c.Loop {
		opts = append(opts, Loop())
	}
	nw := New(p, c.Machines, opts...)
	for _, m := range nw.ms {
		for _, pk := range c.Poke {
			if err := m.Poke(pk.Addr, pk.Value); err != nil {
				return nil, fmt.Errorf("poke %d: %w", pk.Addr, err)
			}
		}
	}
	if err := nw.Prime(c.Prime...); err != nil {
		return nil, err
	}
	for _, v := range c.Input {
		if err := nw.Send(0, v); err != nil {
			return nil, err
		}
	}
	return nw, nil
}
