// Package textio opens the character sources and sinks used by cipher tasks.
package textio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenError reports a file that could not be opened or created.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// OpenSource opens path for reading, or returns fallback when path is empty.
func OpenSource(path string, fallback io.Reader) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(fallback), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return file, nil
}

// OpenCorpus streams the given files back to back. At least one path is required.
func OpenCorpus(paths []string) (io.ReadCloser, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no training text given")
	}
	files := make([]*os.File, 0, len(paths))
	readers := make([]io.Reader, 0, len(paths))
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			for _, f := range files {
				// Best-effort close of already opened files.
				_ = f.Close()
			}
			return nil, &OpenError{Path: path, Err: err}
		}
		files = append(files, file)
		readers = append(readers, file)
	}
	return &corpus{Reader: io.MultiReader(readers...), files: files}, nil
}

type corpus struct {
	io.Reader
	files []*os.File
}

func (c *corpus) Close() error {
	var first error
	for _, f := range c.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Sink is a writable destination. For files, output lands at the target path only
// when Close succeeds.
type Sink interface {
	io.Writer
	Close() error
	// Abort discards partial output.
	Abort() error
}

// OpenSink creates path for writing, or wraps fallback when path is empty.
func OpenSink(path string, fallback io.Writer) (Sink, error) {
	if path == "" {
		return writerSink{fallback}, nil
	}
	return CreateSink(path)
}

// CreateSink writes to a temp file next to path and renames it into place on Close.
func CreateSink(path string) (Sink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return &fileSink{File: tmpFile, path: path}, nil
}

type fileSink struct {
	*os.File
	path string
}

func (s *fileSink) Close() error {
	tmpPath := s.File.Name()
	if err := s.File.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSink) Abort() error {
	tmpPath := s.File.Name()
	_ = s.File.Close()
	return os.Remove(tmpPath)
}

type writerSink struct {
	io.Writer
}

func (writerSink) Close() error { return nil }
func (writerSink) Abort() error { return nil }

// Rewindable returns src as an io.ReadSeeker. Regular files are used directly;
// anything else is spooled into a temp file first. The returned cleanup removes
// the spool, if any.
func Rewindable(src io.Reader) (io.ReadSeeker, func(), error) {
	switch v := src.(type) {
	case *os.File:
		// Pipes and terminals are files too but cannot seek.
		if info, err := v.Stat(); err == nil && info.Mode().IsRegular() {
			return v, func() {}, nil
		}
	case io.ReadSeeker:
		return v, func() {}, nil
	}
	spool, err := os.CreateTemp("", "encryptor-spool-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	cleanup := func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}
	if _, err := io.Copy(spool, src); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to spool input: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to rewind spool: %w", err)
	}
	return spool, cleanup, nil
}
