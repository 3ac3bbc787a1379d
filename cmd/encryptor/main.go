// Package main provides the CLI entrypoint for encryptor.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/encryptor/internal/cipher"
	"github.com/verte-zerg/encryptor/internal/config"
	"github.com/verte-zerg/encryptor/internal/crack"
	"github.com/verte-zerg/encryptor/internal/freq"
	"github.com/verte-zerg/encryptor/internal/logging"
	"github.com/verte-zerg/encryptor/internal/model"
	"github.com/verte-zerg/encryptor/internal/store"
	"github.com/verte-zerg/encryptor/internal/textio"
)

const (
	defaultCipher    = "fixed"
	defaultModelName = "default"
)

var (
	taskCfg model.Config
	logCfg  model.LogConfig

	logger = zap.NewNop()
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "encryptor <task>",
		Short:             "Shift and running-key ciphers with frequency-analysis key recovery",
		SilenceUsage:      true,
		SilenceErrors:     false,
		Args:              cobra.ArbitraryArgs,
		RunE:              runRootCmd,
		PersistentPreRunE: setup,
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return argumentError{err}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&taskCfg.Cipher, "cipher", defaultCipher, "cipher type: fixed (caesar) or running-key (vigenere)")
	flags.StringVar(&taskCfg.InputFile, "input-file", "", "input file (default: stdin)")
	flags.StringVar(&taskCfg.OutputFile, "output-file", "", "output file (default: stdout)")
	flags.BoolVarP(&logCfg.Verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&logCfg.JSON, "json-log", false, "output logs in JSON format")

	rootCmd.AddCommand(newEncodeCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newHackCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runRootCmd(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errNoTask
	}
	return fmt.Errorf("%w: %q", errUnknownTask, args[0])
}

func setup(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return argumentError{fmt.Errorf("failed to load config: %w", err)}
	}
	applyStringConfig(cmd, "cipher", &taskCfg.Cipher, fileCfg.Cipher.Family)
	if flagChanged(cmd, "model") && flagChanged(cmd, "model-file") {
		return argumentError{fmt.Errorf("--model and --model-file cannot be used together")}
	}
	applyStringConfig(cmd, "model", &taskCfg.ModelName, fileCfg.Model.Name)
	if !flagChanged(cmd, "model") {
		applyStringConfig(cmd, "model-file", &taskCfg.ModelFile, fileCfg.Model.File)
	}
	applyBoolConfig(cmd, "verbose", &logCfg.Verbose, fileCfg.Logging.Verbose)
	applyBoolConfig(cmd, "json-log", &logCfg.JSON, fileCfg.Logging.JSON)

	l, err := logging.NewConsoleLogger(logCfg.Verbose, logCfg.JSON)
	if err != nil {
		return err
	}
	logger = l.With(zap.String("task", cmd.Name()))
	return nil
}

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encrypt the input with a key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, false)
		},
	}
	cmd.Flags().StringVar(&taskCfg.Key, "key", "", "cipher key: a shift for fixed, letters for running-key")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decrypt the input with a key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, true)
		},
	}
	cmd.Flags().StringVar(&taskCfg.Key, "key", "", "cipher key used to encode the input")
	return cmd
}

func runTransform(cmd *cobra.Command, decode bool) error {
	family, err := cipher.ParseFamily(taskCfg.Cipher)
	if err != nil {
		return err
	}
	key, err := cipher.ParseKey(family, taskCfg.Key)
	if err != nil {
		return err
	}
	if decode {
		key = cipher.Invert(key)
	}

	return withIO(cmd, func(dst io.Writer, src io.Reader) error {
		logger.Debug("transforming",
			zap.String("cipher", string(family)),
			zap.Bool("decode", decode),
			zap.String("input", displayPath(taskCfg.InputFile, "stdin")),
			zap.String("output", displayPath(taskCfg.OutputFile, "stdout")))
		return cipher.Transform(dst, src, key)
	})
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build a reference letter-frequency model from text",
		Args:  cobra.NoArgs,
		RunE:  runTrainCmd,
	}
	cmd.Flags().StringArrayVar(&taskCfg.TextFiles, "text-file", nil, "training text (repeatable; default: input)")
	addModelFlags(cmd)
	return cmd
}

func runTrainCmd(cmd *cobra.Command, _ []string) error {
	if _, err := cipher.ParseFamily(taskCfg.Cipher); err != nil {
		return err
	}
	var src io.ReadCloser
	var err error
	source := displayPath(taskCfg.InputFile, "stdin")
	if len(taskCfg.TextFiles) > 0 {
		src, err = textio.OpenCorpus(taskCfg.TextFiles)
		source = strings.Join(taskCfg.TextFiles, ",")
	} else {
		src, err = textio.OpenSource(taskCfg.InputFile, cmd.InOrStdin())
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("failed to close training text", zap.Error(cerr))
		}
	}()

	table, err := freq.Count(src)
	if err != nil {
		return err
	}

	ms, closeStore, err := openModelStore(source)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := ms.Save(cmd.Context(), table); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	logger.Info("model trained",
		zap.String("source", source),
		zap.Int("letters", table.Total()),
		zap.Strings("top", freq.TopLetters(table, 5)))
	return nil
}

func newHackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hack",
		Short: "Recover a fixed-shift key using a trained model and decrypt the input",
		Args:  cobra.NoArgs,
		RunE:  runHackCmd,
	}
	addModelFlags(cmd)
	return cmd
}

func runHackCmd(cmd *cobra.Command, _ []string) error {
	family, err := cipher.ParseFamily(taskCfg.Cipher)
	if err != nil {
		return err
	}
	if family != cipher.Fixed {
		return crack.ErrUnsupportedCipher
	}

	reference, err := loadReference(cmd.Context())
	if err != nil {
		return err
	}

	return withIO(cmd, func(dst io.Writer, src io.Reader) error {
		rs, cleanup, err := textio.Rewindable(src)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := crack.Hack(dst, rs, reference)
		if err != nil {
			return err
		}
		logger.Info("key recovered",
			zap.Int("key", int(res.Key)),
			zap.Int64("distance", res.Distance),
			zap.Int("letters", res.Letters))
		return nil
	})
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List trained models in the model database",
		Args:  cobra.NoArgs,
		RunE:  runModelsCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a trained model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsDeleteCmd,
	})
	return cmd
}

func runModelsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(st)

	models, err := st.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		logErrln("No models found. Train one with: encryptor train --text-file <file>")
		return nil
	}
	out := cmd.OutOrStdout()
	for _, m := range models {
		if _, err := fmt.Fprintf(out, "%-16s %10d  %s  %s\n",
			m.Name, m.Letters, m.TrainedAt.Local().Format("2006-01-02 15:04"), m.Source); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runModelsDeleteCmd(cmd *cobra.Command, args []string) error {
	st, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(st)

	if err := st.DeleteModel(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Info("model deleted", zap.String("model", args[0]))
	return nil
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the letter frequencies of a model",
		Args:  cobra.NoArgs,
		RunE:  runInspectCmd,
	}
	addModelFlags(cmd)
	return cmd
}

func runInspectCmd(cmd *cobra.Command, _ []string) error {
	table, err := loadReference(cmd.Context())
	if err != nil {
		return err
	}
	title := "Model " + taskCfg.ModelName
	if taskCfg.ModelFile != "" {
		title = "Model " + taskCfg.ModelFile
	}
	out := cmd.OutOrStdout()
	return freq.Render(out, title, table, isTerminal(out))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "config",
		Short:             "Create/open config file",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&taskCfg.ModelFile, "model-file", "", "model file (.json, .yaml or .toml)")
	cmd.Flags().StringVar(&taskCfg.ModelName, "model", defaultModelName, "model name in the model database")
}

// withIO opens the task's source and sink, runs fn, and commits the sink only
// when fn succeeds.
func withIO(cmd *cobra.Command, fn func(dst io.Writer, src io.Reader) error) error {
	src, err := textio.OpenSource(taskCfg.InputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("failed to close input", zap.Error(cerr))
		}
	}()

	sink, err := textio.OpenSink(taskCfg.OutputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := fn(sink, src); err != nil {
		if aerr := sink.Abort(); aerr != nil {
			logger.Warn("failed to discard output", zap.Error(aerr))
		}
		return err
	}
	return sink.Close()
}

func openModelStore(source string) (store.ModelStore, func(), error) {
	if taskCfg.ModelFile != "" {
		logger.Debug("using model file", zap.String("path", taskCfg.ModelFile))
		return store.NewFile(taskCfg.ModelFile), func() {}, nil
	}
	st, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using model database", zap.String("model", taskCfg.ModelName))
	return st.Named(taskCfg.ModelName, source), func() { closeDB(st) }, nil
}

func loadReference(ctx context.Context) (freq.Table, error) {
	ms, closeStore, err := openModelStore("")
	if err != nil {
		return freq.Table{}, err
	}
	defer closeStore()
	table, err := ms.Load(ctx)
	if err != nil {
		return freq.Table{}, fmt.Errorf("failed to load model: %w", err)
	}
	logger.Debug("model loaded", zap.Int("letters", table.Total()))
	return table, nil
}

func openDB() (*store.Store, error) {
	path := config.DefaultDBPath()
	st, err := store.Open(path)
	if err != nil {
		return nil, &textio.OpenError{Path: path, Err: err}
	}
	return st, nil
}

func closeDB(st *store.Store) {
	if err := st.Close(); err != nil {
		logger.Warn("failed to close db", zap.Error(err))
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func flagChanged(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	return flag != nil && flag.Changed
}

func displayPath(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# encryptor configuration
# Uncomment a value to enable it. CLI flags override config values.

[cipher]
# family = %q          # fixed (caesar) or running-key (vigenere)

[model]
# name = %q          # Model name in the model database
# file = "model.json"     # Model file; takes precedence over name when set

[logging]
# verbose = false         # Enable debug logging
# json = false            # Output logs in JSON format
`,
		defaultCipher,
		defaultModelName,
	)
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
