// Package crack recovers fixed-shift keys by frequency analysis.
package crack

import (
	"errors"
	"fmt"
	"io"

	"github.com/verte-zerg/encryptor/internal/cipher"
	"github.com/verte-zerg/encryptor/internal/freq"
	"github.com/verte-zerg/encryptor/internal/symbol"
)

var (
	// ErrEmptyReferenceModel is returned when the reference table has no letters.
	ErrEmptyReferenceModel = errors.New("reference model is empty")
	// ErrUnsupportedCipher is returned when recovery is requested for a cipher other than fixed.
	ErrUnsupportedCipher = errors.New("key recovery is only supported for the fixed cipher")
)

// Result describes the best candidate found by the search.
type Result struct {
	// Key is the shift the ciphertext was encrypted with.
	Key cipher.FixedShift
	// Distance is the squared distance of the best hypothesis to the reference.
	Distance int64
	// Letters is the number of letters observed.
	Letters int
}

// Recover returns the fixed-shift key the observed text was most likely encrypted with.
func Recover(observed io.Reader, reference freq.Table) (int, error) {
	res, err := Analyze(observed, reference)
	if err != nil {
		return 0, err
	}
	return int(res.Key), nil
}

// Analyze counts the observed text and searches the 26 shifts against reference.
func Analyze(observed io.Reader, reference freq.Table) (Result, error) {
	if reference.Total() == 0 {
		return Result{}, ErrEmptyReferenceModel
	}
	base, err := freq.Count(observed)
	if err != nil {
		return Result{}, err
	}
	return Search(base, reference), nil
}

// Search tests every decrypting shift of base against reference. Ties keep the
// lowest shift, so an unshifted fit always wins a tie.
func Search(base, reference freq.Table) Result {
	bestShift := 0
	bestDistance := freq.SquaredDistance(reference, base)
	for s := 1; s < symbol.AlphabetSize; s++ {
		d := freq.SquaredDistance(base.Shifted(s), reference)
		if d < bestDistance {
			bestShift = s
			bestDistance = d
		}
	}
	return Result{
		Key:      cipher.Invert(cipher.FixedShift(bestShift)).(cipher.FixedShift),
		Distance: bestDistance,
		Letters:  base.Total(),
	}
}

// Hack recovers the key from src and writes the decrypted text to dst. The source is
// read twice, so it must be seekable.
func Hack(dst io.Writer, src io.ReadSeeker, reference freq.Table) (Result, error) {
	res, err := Analyze(src, reference)
	if err != nil {
		return Result{}, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("failed to rewind input: %w", err)
	}
	if err := cipher.Transform(dst, src, cipher.Invert(res.Key)); err != nil {
		return Result{}, err
	}
	return res, nil
}
