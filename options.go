// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"io"
	"strings"

	"github.com/db47h/hwunit/internal/hdl"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Compile and simulation option names.
//
const (
	// AFlags holds the analysis flags: --std=1|2.
	AFlags = "hwsim.a_flags"
	// ElabFlags holds the elaboration flags: --std, --workers, --spc.
	ElabFlags = "hwsim.elab_flags"
	// SimFlags holds the simulation flags: --max-cycles.
	SimFlags = "hwsim.sim_flags"
)

// Default number of simulation steps per clock cycle.
const defaultSPC = 16

type analysisOpts struct {
	std hdl.Std
}

type elabOpts struct {
	std     hdl.Std // 0 if unset
	workers int
	spc     uint
}

type simOpts struct {
	maxCycles int
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlagSet(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, fs.Name())
	}
	if fs.NArg() > 0 {
		return errors.Errorf("%s: unexpected arguments %s", fs.Name(), strings.Join(fs.Args(), " "))
	}
	return nil
}

func checkStd(name string, std int) (hdl.Std, error) {
	switch hdl.Std(std) {
	case hdl.Std1, hdl.Std2:
		return hdl.Std(std), nil
	}
	return 0, errors.Errorf("%s: unsupported language standard %d", name, std)
}

func parseAnalysisFlags(args []string) (analysisOpts, error) {
	var (
		o   analysisOpts
		std int
	)
	fs := newFlagSet(AFlags)
	fs.IntVar(&std, "std", int(hdl.Std2), "language standard")
	if err := parseFlagSet(fs, args); err != nil {
		return o, err
	}
	var err error
	o.std, err = checkStd(AFlags, std)
	return o, err
}

func parseElabFlags(args []string) (elabOpts, error) {
	var (
		o   = elabOpts{workers: 1, spc: defaultSPC}
		std int
	)
	fs := newFlagSet(ElabFlags)
	fs.IntVar(&std, "std", int(hdl.Std2), "language standard")
	fs.IntVar(&o.workers, "workers", o.workers, "simulation goroutines per test (0 = GOMAXPROCS)")
	fs.UintVar(&o.spc, "spc", o.spc, "simulation steps per clock cycle")
	if err := parseFlagSet(fs, args); err != nil {
		return o, err
	}
	if fs.Changed("std") {
		var err error
		if o.std, err = checkStd(ElabFlags, std); err != nil {
			return o, err
		}
	}
	if o.workers < 0 {
		return o, errors.Errorf("%s: invalid worker count %d", ElabFlags, o.workers)
	}
	if o.spc < 2 {
		return o, errors.Errorf("%s: steps per cycle must be at least 2, got %d", ElabFlags, o.spc)
	}
	return o, nil
}

func parseSimFlags(args []string) (simOpts, error) {
	var o simOpts
	fs := newFlagSet(SimFlags)
	fs.IntVar(&o.maxCycles, "max-cycles", 0, "maximum clock cycles per vector (0 = unlimited)")
	if err := parseFlagSet(fs, args); err != nil {
		return o, err
	}
	if o.maxCycles < 0 {
		return o, errors.Errorf("%s: invalid max-cycles %d", SimFlags, o.maxCycles)
	}
	return o, nil
}

// checkOption validates the values of a known option.
func checkOption(name string, values []string) error {
	var err error
	switch name {
	case AFlags:
		_, err = parseAnalysisFlags(values)
	case ElabFlags:
		_, err = parseElabFlags(values)
	case SimFlags:
		_, err = parseSimFlags(values)
	default:
		err = errors.Errorf("unknown option %q", name)
	}
	return err
}

func isCompileOption(name string) bool { return name == AFlags }

func isSimOption(name string) bool { return name == ElabFlags || name == SimFlags }

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
