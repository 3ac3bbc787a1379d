package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/encryptor/internal/freq"
	"github.com/verte-zerg/encryptor/internal/textio"
)

// Format is a model file encoding.
type Format string

const (
	// JSON stores {"a": 12, ...}. Used when the extension is not recognised.
	JSON Format = "json"
	// YAML stores one "letter: count" line per letter.
	YAML Format = "yaml"
	// TOML stores one "letter = count" line per letter.
	TOML Format = "toml"
)

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	default:
		return JSON
	}
}

// File persists a single model as a letter-to-count mapping on disk.
type File struct {
	Path string
}

// NewFile returns a file-backed model store.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads and decodes the model file.
func (f *File) Load(_ context.Context) (freq.Table, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return freq.Table{}, &textio.OpenError{Path: f.Path, Err: err}
	}
	counts, err := decode(FormatForPath(f.Path), data)
	if err != nil {
		return freq.Table{}, fmt.Errorf("failed to decode model %s: %w", f.Path, err)
	}
	table, err := freq.FromMap(counts)
	if err != nil {
		return freq.Table{}, fmt.Errorf("invalid model %s: %w", f.Path, err)
	}
	return table, nil
}

// Save encodes table and replaces the model file atomically.
func (f *File) Save(_ context.Context, table freq.Table) error {
	data, err := encode(FormatForPath(f.Path), table.Map())
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	sink, err := textio.CreateSink(f.Path)
	if err != nil {
		return err
	}
	if _, err := sink.Write(data); err != nil {
		_ = sink.Abort()
		return fmt.Errorf("failed to write model: %w", err)
	}
	return sink.Close()
}

func decode(format Format, data []byte) (map[string]int, error) {
	counts := map[string]int{}
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &counts)
	case TOML:
		err = toml.Unmarshal(data, &counts)
	default:
		err = json.Unmarshal(data, &counts)
	}
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func encode(format Format, counts map[string]int) ([]byte, error) {
	switch format {
	case YAML:
		return yaml.Marshal(counts)
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(counts); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.Marshal(counts)
	}
}
