package main

import (
	"errors"

	"github.com/verte-zerg/encryptor/internal/cipher"
	"github.com/verte-zerg/encryptor/internal/crack"
	"github.com/verte-zerg/encryptor/internal/store"
	"github.com/verte-zerg/encryptor/internal/textio"
)

// Process exit statuses.
const (
	exitOK            = 0
	exitCipherError   = 1
	exitKeyError      = 2
	exitArgumentError = 3
	exitFileError     = 4
	exitTaskError     = 5
	// exitFailure covers errors outside the categories above, such as a failed write.
	exitFailure       = 6
)

var (
	errNoTask      = errors.New("no task given (encode, decode, train, hack)")
	errUnknownTask = errors.New("unable to do task")
)

// argumentError marks malformed command-line input.
type argumentError struct {
	err error
}

func (e argumentError) Error() string { return e.err.Error() }
func (e argumentError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var keyErr *cipher.KeyError
	var openErr *textio.OpenError
	var argErr argumentError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &keyErr):
		return exitKeyError
	case errors.Is(err, cipher.ErrUnknownCipher), errors.Is(err, crack.ErrUnsupportedCipher):
		return exitCipherError
	case errors.As(err, &openErr), errors.Is(err, store.ErrModelNotFound):
		return exitFileError
	case errors.Is(err, errNoTask), errors.Is(err, errUnknownTask), errors.Is(err, crack.ErrEmptyReferenceModel):
		return exitTaskError
	case errors.As(err, &argErr):
		return exitArgumentError
	default:
		return exitFailure
	}
}
