// Package freq counts letter frequencies over a symbol stream.
package freq

import (
	"fmt"
	"io"

	"github.com/verte-zerg/encryptor/internal/symbol"
)

// Table holds the count of each lowercase letter, indexed by alphabet position.
type Table [symbol.AlphabetSize]int

// Count tallies the letters in src, case-folded. Escaped characters are not counted.
func Count(src io.Reader) (Table, error) {
	var t Table
	err := symbol.NewStream(src).Each(func(s symbol.Symbol) error {
		if s.IsLetter() {
			t[s.Pos]++
		}
		return nil
	})
	if err != nil {
		return Table{}, fmt.Errorf("failed to count letters: %w", err)
	}
	return t, nil
}

// Total returns the number of letters counted.
func (t Table) Total() int {
	total := 0
	for _, c := range t {
		total += c
	}
	return total
}

// Get returns the count for a lowercase letter; other runes count as zero.
func (t Table) Get(letter rune) int {
	if letter < 'a' || letter > 'z' {
		return 0
	}
	return t[letter-'a']
}

// Shifted moves the count of every letter forward by s positions. Negative s moves back.
func (t Table) Shifted(s int) Table {
	s %= symbol.AlphabetSize
	if s < 0 {
		s += symbol.AlphabetSize
	}
	var out Table
	for pos, c := range t {
		out[(pos+s)%symbol.AlphabetSize] = c
	}
	return out
}

// SquaredDistance is the sum of squared count differences over all letters.
// Counts are not normalised, so tables over texts of different length differ.
func SquaredDistance(a, b Table) int64 {
	var d int64
	for i := range a {
		diff := int64(a[i] - b[i])
		d += diff * diff
	}
	return d
}

// Map returns the table keyed by single lowercase letters, all 26 present.
func (t Table) Map() map[string]int {
	m := make(map[string]int, symbol.AlphabetSize)
	for pos, c := range t {
		m[string(rune('a'+pos))] = c
	}
	return m
}

// FromMap builds a table from letter keys. Missing letters count as zero.
func FromMap(m map[string]int) (Table, error) {
	var t Table
	for k, v := range m {
		if len(k) != 1 || k[0] < 'a' || k[0] > 'z' {
			return Table{}, fmt.Errorf("invalid letter %q in frequency table", k)
		}
		if v < 0 {
			return Table{}, fmt.Errorf("negative count %d for letter %q", v, k)
		}
		t[k[0]-'a'] = v
	}
	return t, nil
}
