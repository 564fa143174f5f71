package intcode

import (
	"errors"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrEmpty is the ParseError cause for a program with no text.
var ErrEmpty = errors.New("empty program")

// Program is an immutable intcode instruction tape. The zero Program has no
// instructions; use Parse or ParseFile to obtain a valid one.
type Program struct {
	words []int64
}

// Parse parses comma separated base 10 integers, ignoring whitespace around
// the text and around each token.
func Parse(text string) (Program, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Program{}, &ParseError{Pos: -1, Err: ErrEmpty}
	}
	toks := strings.Split(text, ",")
	words := make([]int64, len(toks))
	for i, t := range toks {
		v, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok {
				err = ne.Err
			}
			return Program{}, &ParseError{Pos: i, Token: t, Err: err}
		}
		words[i] = v
	}
	return Program{words: words}, nil
}

// MustParse is like Parse but panics if text is not a valid program.
func MustParse(text string) Program {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFile reads and parses the program in the named file.
func ParseFile(name string) (Program, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return Program{}, pkgerrors.Wrap(err, "ParseFile")
	}
	p, err := Parse(string(b))
	if err != nil {
		return Program{}, pkgerrors.Wrapf(err, "ParseFile %s", name)
	}
	return p, nil
}

// Len returns the number of words in the program.
func (p Program) Len() int { return len(p.words) }

// Instructions returns a copy of the program's words.
func (p Program) Instructions() []int64 {
	return append([]int64(nil), p.words...)
}

// String returns the program in its text form.
func (p Program) String() string {
	return join(p.words)
}

func join(words []int64) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(w, 10))
	}
	return b.String()
}
