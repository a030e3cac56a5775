// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/db47h/hwunit/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options is a run configuration.
//
type Options = config.Config

// DefaultOptions returns the default run configuration.
//
func DefaultOptions() *Options { return config.Default() }

// ErrFailed is returned by Execute when some tests did not pass.
//
var ErrFailed = errors.New("some tests failed")

// A Session holds the libraries of a project and runs their tests.
//
type Session struct {
	args   []string
	libs   []*Library
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// FromArgs creates a new session. The command line arguments are parsed when
// the session is executed.
//
func FromArgs(args []string) *Session {
	return &Session{
		args:   append([]string{}, args...),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// FromArgv creates a new session from the process command line arguments.
//
func FromArgv() *Session {
	return FromArgs(os.Args[1:])
}

// SetOutput sets the destination of reports and error messages.
//
func (s *Session) SetOutput(stdout, stderr io.Writer) {
	s.stdout, s.stderr = stdout, stderr
}

// SetLogger sets the session logger. By default, a logger is built from the
// run configuration when the session is executed.
//
func (s *Session) SetLogger(log *zap.Logger) {
	s.log = log
}

func (s *Session) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

func validName(name string) bool {
	for i, r := range name {
		if !(unicode.IsLetter(r) || r == '_' || i > 0 && unicode.IsDigit(r)) {
			return false
		}
	}
	return name != ""
}

// AddLibrary adds a new library. Library names must be identifiers and are
// case insensitive. The name "work" is reserved.
//
func (s *Session) AddLibrary(name string) (*Library, error) {
	if strings.EqualFold(name, "work") {
		return nil, errors.Errorf("library name %q is reserved", name)
	}
	if !validName(name) {
		return nil, errors.Errorf("invalid library name %q", name)
	}
	if _, err := s.Library(name); err == nil {
		return nil, errors.Errorf("library %s already exists", name)
	}
	l := &Library{
		s:     s,
		name:  name,
		copts: make(map[string][]string),
		sopts: make(map[string][]string),
	}
	s.libs = append(s.libs, l)
	s.logger().Debug("Added library", zap.String("name", name))
	return l, nil
}

// Library returns the named library.
//
func (s *Session) Library(name string) (*Library, error) {
	for _, l := range s.libs {
		if strings.EqualFold(l.name, name) {
			return l, nil
		}
	}
	return nil, errors.Errorf("library %s not found", name)
}

// Libraries returns the session libraries in registration order.
//
func (s *Session) Libraries() []*Library {
	return append([]*Library(nil), s.libs...)
}

// Command returns the command line interface of the session.
//
func (s *Session) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           filepath.Base(os.Args[0]) + " [patterns...]",
		Short:         "Compile HDL sources and run their test benches",
		Long:          "Compile HDL sources and run their test benches.\n\nPatterns are glob patterns matched against full test names (lib.bench.config.test).",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			cfg.Patterns = args
			return s.execute(cmd.Context(), cfg)
		},
	}
	config.BindFlags(cmd.Flags())
	cmd.SetArgs(s.args)
	cmd.SetOut(s.stdout)
	cmd.SetErr(s.stderr)
	return cmd
}

// Execute parses the command line, loads the run configuration and runs the
// tests. It returns ErrFailed if some tests did not pass, unless --exit-0 is
// set.
//
func (s *Session) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return s.ExecuteContext(ctx)
}

// ExecuteContext is like Execute with a context.
//
func (s *Session) ExecuteContext(ctx context.Context) error {
	return s.Command().ExecuteContext(ctx)
}

// Main executes the session and exits the process with status 0 if all tests
// passed, 1 otherwise.
//
func (s *Session) Main() {
	if err := s.Execute(); err != nil {
		if errors.Cause(err) != ErrFailed {
			fmt.Fprintf(s.stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func (s *Session) execute(ctx context.Context, cfg *Options) error {
	if s.log == nil {
		log, err := newLogger(cfg.Verbose)
		if err != nil {
			return errors.Wrap(err, "failed to create logger")
		}
		s.log = log
		defer func() { _ = log.Sync() }()
	}
	log := s.logger()
	if cfg.File != "" {
		log.Debug("Loaded configuration", zap.String("file", cfg.File))
	}

	cases, err := selectCases(s.testCases(), cfg.Patterns)
	if err != nil {
		return err
	}
	if cfg.ExportJSON != "" {
		if err := writeFile(cfg.ExportJSON, func(w io.Writer) error { return exportJSON(w, s.libs, cases) }); err != nil {
			return err
		}
	}
	if cfg.List {
		for _, tc := range cases {
			fmt.Fprintln(s.stdout, tc.name)
		}
		fmt.Fprintf(s.stdout, "Listed %d tests\n", len(cases))
		return nil
	}
	if cfg.Compile {
		if _, err := s.compile(); err != nil {
			return err
		}
		fmt.Fprintln(s.stdout, "Compile passed")
		return nil
	}

	r, err := s.Run(ctx, cfg)
	if err != nil {
		return err
	}
	r.Write(s.stdout, !cfg.NoColor, cfg.Verbose)
	if cfg.XUnitXML != "" {
		if err := writeFile(cfg.XUnitXML, r.WriteXUnit); err != nil {
			return err
		}
	}
	if !r.OK() && !cfg.Exit0 {
		return ErrFailed
	}
	return nil
}

func writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// compile compiles all libraries.
func (s *Session) compile() (map[*Library]*design, error) {
	out := make(map[*Library]*design, len(s.libs))
	for _, l := range s.libs {
		d, err := l.compile(s.logger())
		if err != nil {
			return nil, err
		}
		out[l] = d
	}
	return out, nil
}

// Run compiles all libraries and runs the test cases selected by
// cfg.Patterns. Test failures are reported in the returned Report, not as an
// error.
//
func (s *Session) Run(ctx context.Context, cfg *Options) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	designs, err := s.compile()
	if err != nil {
		return nil, err
	}
	cases, err := selectCases(s.testCases(), cfg.Patterns)
	if err != nil {
		return nil, err
	}
	s.logger().Info("Running tests", zap.Int("count", len(cases)), zap.Int("threads", cfg.NumThreads))
	r := &Report{Results: s.runCases(ctx, cases, designs, cfg)}
	r.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return r, err
	}
	return r, nil
}
