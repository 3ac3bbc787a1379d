package cipher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/encryptor/internal/symbol"
)

// Transform shifts every letter read from src by the key schedule and writes the result
// to dst. Escaped characters and non-letters are copied unchanged.
func Transform(dst io.Writer, src io.Reader, key Key) error {
	if err := validate(key); err != nil {
		return err
	}
	next := key.schedule()
	w := bufio.NewWriter(dst)
	err := symbol.NewStream(src).Each(func(s symbol.Symbol) error {
		if !s.IsLetter() {
			_, err := w.WriteString(s.Text)
			return err
		}
		_, err := w.WriteRune(s.Rune(mod(s.Pos + next())))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to transform: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// TransformString is Transform over an in-memory string.
func TransformString(text string, key Key) (string, error) {
	var b strings.Builder
	if err := Transform(&b, strings.NewReader(text), key); err != nil {
		return "", err
	}
	return b.String(), nil
}

func validate(key Key) error {
	switch k := key.(type) {
	case nil:
		return errors.New("key is nil")
	case FixedShift:
		return nil
	case RunningKey:
		if len(k) == 0 {
			return &KeyError{Family: RunningKeyFamily, Reason: "key is required"}
		}
		return nil
	default:
		return fmt.Errorf("unsupported key type %T", key)
	}
}
