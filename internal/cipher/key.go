// Package cipher implements the fixed-shift and running-key substitution ciphers.
package cipher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/encryptor/internal/symbol"
)

// Family names a cipher variant.
type Family string

const (
	// Fixed shifts every letter by the same amount.
	Fixed Family = "fixed"
	// RunningKeyFamily cycles the shift through a key sequence.
	RunningKeyFamily Family = "running-key"
)

// ErrUnknownCipher is returned for an unrecognised cipher family.
var ErrUnknownCipher = errors.New("unknown cipher type")

var familyAliases = map[string]Family{
	"fixed":       Fixed,
	"caesar":      Fixed,
	"running-key": RunningKeyFamily,
	"vigenere":    RunningKeyFamily,
	"viegenere":   RunningKeyFamily,
}

// ParseFamily resolves a family name or one of its aliases.
func ParseFamily(name string) (Family, error) {
	f, ok := familyAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
	return f, nil
}

// KeyError reports a key that is not valid for its cipher family.
type KeyError struct {
	Family Family
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid key %q for %s cipher: %s", e.Key, e.Family, e.Reason)
}

// Key is a cipher key. The set of implementations is closed: FixedShift and RunningKey.
type Key interface {
	Family() Family
	// schedule returns a fresh shift source; its cursor lives for one transform.
	schedule() func() int
}

// FixedShift shifts every letter by the same amount.
type FixedShift int

// Family implements Key.
func (FixedShift) Family() Family { return Fixed }

func (k FixedShift) schedule() func() int {
	s := mod(int(k))
	return func() int { return s }
}

// RunningKey cycles through a sequence of shifts, one per letter.
type RunningKey []int

// Family implements Key.
func (RunningKey) Family() Family { return RunningKeyFamily }

func (k RunningKey) schedule() func() int {
	shifts := append(RunningKey(nil), k...)
	cursor := 0
	return func() int {
		s := mod(shifts[cursor])
		cursor = (cursor + 1) % len(shifts)
		return s
	}
}

// String renders the key as upper-case letters.
func (k RunningKey) String() string {
	var b strings.Builder
	for _, s := range k {
		b.WriteByte(byte('A' + mod(s)))
	}
	return b.String()
}

// ParseKey validates raw for the given family.
func ParseKey(family Family, raw string) (Key, error) {
	switch family {
	case Fixed:
		return parseFixed(raw)
	case RunningKeyFamily:
		return parseRunning(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, family)
	}
}

func parseFixed(raw string) (Key, error) {
	if raw == "" {
		return nil, &KeyError{Family: Fixed, Key: raw, Reason: "key is required"}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return nil, &KeyError{Family: Fixed, Key: raw, Reason: "key must be a non-negative integer"}
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &KeyError{Family: Fixed, Key: raw, Reason: err.Error()}
	}
	return FixedShift(mod(n)), nil
}

func parseRunning(raw string) (Key, error) {
	if raw == "" {
		return nil, &KeyError{Family: RunningKeyFamily, Key: raw, Reason: "key is required"}
	}
	key := make(RunningKey, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			key = append(key, int(ch-'a'))
		case ch >= 'A' && ch <= 'Z':
			key = append(key, int(ch-'A'))
		default:
			return nil, &KeyError{Family: RunningKeyFamily, Key: raw, Reason: "key must contain only letters"}
		}
	}
	return key, nil
}

// Invert returns the key that undoes k. A nil key inverts to nil, which Transform rejects.
func Invert(k Key) Key {
	switch key := k.(type) {
	case nil:
		return nil
	case FixedShift:
		return FixedShift(mod(symbol.AlphabetSize - int(key)))
	case RunningKey:
		inv := make(RunningKey, len(key))
		for i, s := range key {
			inv[i] = mod(symbol.AlphabetSize - s)
		}
		return inv
	default:
		panic(fmt.Sprintf("cipher: unknown key type %T", k))
	}
}

func mod(n int) int {
	n %= symbol.AlphabetSize
	if n < 0 {
		n += symbol.AlphabetSize
	}
	return n
}
