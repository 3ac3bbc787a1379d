// Package symbol splits a character stream into letters and passthrough units.
package symbol

import (
	"bufio"
	"io"
)

// Escape marks the next character as passthrough.
const Escape = '\\'

// AlphabetSize is the number of letters in the Latin alphabet.
const AlphabetSize = 26

// Kind classifies a Symbol.
type Kind int

const (
	// Passthrough symbols are written out verbatim.
	Passthrough Kind = iota
	// Letter symbols carry an alphabet position and case.
	Letter
)

// Symbol is one logical unit of the stream.
type Symbol struct {
	Kind  Kind
	Pos   int
	Upper bool
	// Text holds the raw content of a passthrough symbol.
	Text string
}

// IsLetter reports whether s takes part in ciphering and counting.
func (s Symbol) IsLetter() bool {
	return s.Kind == Letter
}

// Rune returns the letter for a letter symbol shifted to position pos.
func (s Symbol) Rune(pos int) rune {
	if s.Upper {
		return rune('A' + pos)
	}
	return rune('a' + pos)
}

// String returns the symbol as it appears in the source.
func (s Symbol) String() string {
	if s.IsLetter() {
		return string(s.Rune(s.Pos))
	}
	return s.Text
}

type state int

const (
	stateNormal state = iota
	stateEscapeArmed
)

// Stream yields symbols from a reader. It is single-pass and works on bytes, so
// anything that is not an ASCII letter is reproduced exactly, valid UTF-8 or not.
type Stream struct {
	r     io.ByteReader
	state state
	done  bool
}

// NewStream wraps r. Readers that do not implement io.ByteReader are buffered.
func NewStream(r io.Reader) *Stream {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Stream{r: br}
}

// Next returns the next symbol, or io.EOF once the source is exhausted.
// A marker left unmatched at end of input is returned as a bare passthrough.
func (s *Stream) Next() (Symbol, error) {
	if s.done {
		return Symbol{}, io.EOF
	}
	for {
		ch, err := s.r.ReadByte()
		if err != nil {
			if err != io.EOF {
				return Symbol{}, err
			}
			s.done = true
			if s.state == stateEscapeArmed {
				s.state = stateNormal
				return Symbol{Kind: Passthrough, Text: string(Escape)}, nil
			}
			return Symbol{}, io.EOF
		}

		switch s.state {
		case stateEscapeArmed:
			s.state = stateNormal
			return Symbol{Kind: Passthrough, Text: string([]byte{Escape, ch})}, nil
		default:
			if ch == Escape {
				s.state = stateEscapeArmed
				continue
			}
			return classify(ch), nil
		}
	}
}

// Each calls fn for every remaining symbol until the stream ends or fn fails.
func (s *Stream) Each(fn func(Symbol) error) error {
	for {
		sym, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(sym); err != nil {
			return err
		}
	}
}

func classify(ch byte) Symbol {
	switch {
	case ch >= 'a' && ch <= 'z':
		return Symbol{Kind: Letter, Pos: int(ch - 'a')}
	case ch >= 'A' && ch <= 'Z':
		return Symbol{Kind: Letter, Pos: int(ch - 'A'), Upper: true}
	default:
		return Symbol{Kind: Passthrough, Text: string([]byte{ch})}
	}
}
