package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/encryptor/internal/cipher"
	"github.com/verte-zerg/encryptor/internal/crack"
	"github.com/verte-zerg/encryptor/internal/store"
	"github.com/verte-zerg/encryptor/internal/textio"
)

const corpus = `It was a bright cold day in April, and the clocks were striking thirteen.
Winston Smith, his chin nuzzled into his breast in an effort to escape the vile wind,
slipped quickly through the glass doors of Victory Mansions, though not quickly enough
to prevent a swirl of gritty dust from entering along with him.`

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	// A nil slice would make cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEncodeDecodeStdio(t *testing.T) {
	isolate(t)

	out, err := run(t, "Hello, World!", "encode", "--key", "3")
	require.NoError(t, err)
	assert.Equal(t, "Khoor, Zruog!", out)

	out, err = run(t, out, "decode", "--key", "3")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out)
}

func TestEncodeRunningKeyFiles(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "plain.txt")
	enc := filepath.Join(dir, "enc.txt")
	dec := filepath.Join(dir, "dec.txt")
	writeFile(t, in, "attack at \\dawn")

	_, err := run(t, "", "encode", "--cipher", "vigenere", "--key", "LEMON", "--input-file", in, "--output-file", enc)
	require.NoError(t, err)
	data, err := os.ReadFile(enc)
	require.NoError(t, err)
	// The escaped d does not advance the key.
	assert.Equal(t, "lxfopv ef \\dojy", string(data))

	_, err = run(t, "", "decode", "--cipher", "running-key", "--key", "lemon", "--input-file", enc, "--output-file", dec)
	require.NoError(t, err)
	data, err = os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, "attack at \\dawn", string(data))
}

func TestTrainAndHackWithModelFile(t *testing.T) {
	dir := isolate(t)
	text := filepath.Join(dir, "corpus.txt")
	modelPath := filepath.Join(dir, "model.json")
	writeFile(t, text, corpus)

	_, err := run(t, "", "train", "--text-file", text, "--model-file", modelPath)
	require.NoError(t, err)
	require.FileExists(t, modelPath)

	ciphertext, err := cipher.TransformString(corpus, cipher.FixedShift(11))
	require.NoError(t, err)
	out, err := run(t, ciphertext, "hack", "--model-file", modelPath)
	require.NoError(t, err)
	assert.Equal(t, corpus, out)
}

func TestTrainAndHackWithModelDatabase(t *testing.T) {
	dir := isolate(t)
	text := filepath.Join(dir, "corpus.txt")
	writeFile(t, text, corpus)

	_, err := run(t, "", "train", "--text-file", text, "--model", "english")
	require.NoError(t, err)

	cipherPath := filepath.Join(dir, "cipher.txt")
	ciphertext, err := cipher.TransformString(corpus, cipher.FixedShift(4))
	require.NoError(t, err)
	writeFile(t, cipherPath, ciphertext)

	out, err := run(t, "", "hack", "--model", "english", "--input-file", cipherPath)
	require.NoError(t, err)
	assert.Equal(t, corpus, out)

	out, err = run(t, "", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "english")
	assert.Contains(t, out, text)

	out, err = run(t, "", "inspect", "--model", "english")
	require.NoError(t, err)
	assert.Contains(t, out, "Model english")
	assert.Contains(t, out, "Top: ")

	_, err = run(t, "", "models", "delete", "english")
	require.NoError(t, err)
	_, err = run(t, "", "inspect", "--model", "english")
	assert.ErrorIs(t, err, store.ErrModelNotFound)
}

func TestTrainFromStdin(t *testing.T) {
	dir := isolate(t)
	modelPath := filepath.Join(dir, "model.yaml")

	_, err := run(t, "abc abc", "train", "--model-file", modelPath)
	require.NoError(t, err)
	data, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a: 2")
}

func TestConfigFileSetsCipher(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "encryptor")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	writeFile(t, filepath.Join(cfgDir, "config.toml"), "[cipher]\nfamily = \"running-key\"\n")

	out, err := run(t, "attackatdawn", "encode", "--key", "LEMON")
	require.NoError(t, err)
	assert.Equal(t, "lxfopvefrnhr", out)

	// An explicit flag still wins over the config file.
	out, err = run(t, "abc", "encode", "--cipher", "fixed", "--key", "1")
	require.NoError(t, err)
	assert.Equal(t, "bcd", out)
}

func TestExitCodes(t *testing.T) {
	dir := isolate(t)
	emptyModel := filepath.Join(dir, "empty.json")
	writeFile(t, emptyModel, "{}")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no task", nil, exitTaskError},
		{"unknown task", []string{"explode"}, exitTaskError},
		{"unknown cipher", []string{"encode", "--cipher", "enigma", "--key", "1"}, exitCipherError},
		{"missing key", []string{"encode"}, exitKeyError},
		{"bad fixed key", []string{"encode", "--key", "three"}, exitKeyError},
		{"bad running key", []string{"decode", "--cipher", "running-key", "--key", "l3mon"}, exitKeyError},
		{"missing input", []string{"encode", "--key", "1", "--input-file", filepath.Join(dir, "nope.txt")}, exitFileError},
		{"missing model", []string{"hack", "--model-file", filepath.Join(dir, "nope.json")}, exitFileError},
		{"empty model", []string{"hack", "--model-file", emptyModel}, exitTaskError},
		{"hack running key", []string{"hack", "--cipher", "running-key"}, exitCipherError},
		{"unknown flag", []string{"encode", "--shift", "1"}, exitArgumentError},
		{"both model flags", []string{"hack", "--model", "a", "--model-file", emptyModel}, exitArgumentError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "abc", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, exitCode(err), "error: %v", err)
		})
	}
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitKeyError, exitCode(fmt.Errorf("wrapped: %w", &cipher.KeyError{Family: cipher.Fixed})))
	assert.Equal(t, exitFileError, exitCode(&textio.OpenError{Path: "x", Err: os.ErrNotExist}))
	assert.Equal(t, exitTaskError, exitCode(crack.ErrEmptyReferenceModel))
	assert.Equal(t, exitCipherError, exitCode(fmt.Errorf("parse: %w", cipher.ErrUnknownCipher)))
	assert.Equal(t, exitFailure, exitCode(errors.New("write: no space left on device")))
	assert.NotEqual(t, exitCode(cipher.ErrUnknownCipher), exitCode(errors.New("broken pipe")))
}

func TestOutputFileNotWrittenOnFailure(t *testing.T) {
	dir := isolate(t)
	outPath := filepath.Join(dir, "out.txt")
	emptyModel := filepath.Join(dir, "empty.json")
	writeFile(t, emptyModel, "{}")

	_, err := run(t, "abc", "hack", "--model-file", emptyModel, "--output-file", outPath)
	require.ErrorIs(t, err, crack.ErrEmptyReferenceModel)
	assert.NoFileExists(t, outPath)
}
