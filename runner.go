// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/hwunit/hwlib"
	"github.com/db47h/hwunit/hwsim"
	"github.com/db47h/hwunit/internal/hdl"
	"github.com/db47h/hwunit/internal/tb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// testCase is a test run under one configuration.
type testCase struct {
	name   string
	bench  *TestBench
	test   *Test
	config *Config // nil for the implicit configuration
}

func (tc *testCase) configName() string {
	if tc.config == nil {
		return ""
	}
	return tc.config.Name
}

// simOption returns the effective value of a simulation option.
func (tc *testCase) simOption(name string) []string {
	if tc.config != nil {
		if vs, ok := tc.config.SimOptions[name]; ok {
			return vs
		}
	}
	return tc.bench.lib.sopts[name]
}

// testCases returns all test cases in registration order. Test case names
// are lib.bench.test for the implicit configuration and
// lib.bench.config.test otherwise.
func (s *Session) testCases() []*testCase {
	var out []*testCase
	for _, l := range s.libs {
		for _, b := range l.benches {
			for _, t := range b.tests {
				prefix := l.name + "." + b.name + "."
				if len(t.configs) == 0 {
					out = append(out, &testCase{name: prefix + t.name, bench: b, test: t})
					continue
				}
				for _, c := range t.configs {
					out = append(out, &testCase{name: prefix + c.Name + "." + t.name, bench: b, test: t, config: c})
				}
			}
		}
	}
	return out
}

// selectCases returns the test cases whose name matches any of the patterns.
// No pattern selects all test cases.
func selectCases(cases []*testCase, patterns []string) ([]*testCase, error) {
	if len(patterns) == 0 {
		return cases, nil
	}
	var out []*testCase
	for _, tc := range cases {
		for _, p := range patterns {
			ok, err := path.Match(p, tc.name)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid pattern %q", p)
			}
			if ok {
				out = append(out, tc)
				break
			}
		}
	}
	return out, nil
}

// runCases runs test cases concurrently and returns their results in the
// same order.
func (s *Session) runCases(ctx context.Context, cases []*testCase, designs map[*Library]*design, cfg *Options) []*TestResult {
	log := s.logger()
	results := make([]*TestResult, len(cases))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(cfg.NumThreads)
	for i, tc := range cases {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = newResult(tc)
				results[i].Status = Skipped
				results[i].Message = "not run"
				return nil
			}
			r := runCase(ctx, tc, designs[tc.bench.lib])
			results[i] = r
			log.Debug("Test done",
				zap.String("test", r.Name),
				zap.Stringer("status", r.Status),
				zap.Duration("duration", r.Duration))
			if cfg.OutputPath != "" {
				if err := writeOutput(cfg.OutputPath, r); err != nil {
					log.Warn("Failed to write test output", zap.String("test", r.Name), zap.Error(err))
				}
			}
			if r.Status == Failed && cfg.FailFast {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeOutput(dir string, r *TestResult) error {
	dir = filepath.Join(dir, r.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "output.txt"), []byte(r.Output), 0o644)
}

func runCase(ctx context.Context, tc *testCase, d *design) *TestResult {
	r := newResult(tc)
	var out bytes.Buffer
	start := time.Now()
	err := simulate(ctx, tc, d, &out)
	r.Duration = time.Since(start)
	switch {
	case err == nil:
		r.Status = Passed
	case ctx.Err() != nil && errors.Cause(err) == ctx.Err():
		r.Status = Skipped
		r.Message = "cancelled"
	default:
		r.Status = Failed
		r.Message = err.Error()
		fmt.Fprintf(&out, "FAIL: %s\n", r.Message)
	}
	r.Output = out.String()
	return r
}

// simulate elaborates the test bench of tc and runs its vectors.
func simulate(ctx context.Context, tc *testCase, d *design, out *bytes.Buffer) error {
	eo, err := parseElabFlags(tc.simOption(ElabFlags))
	if err != nil {
		return err
	}
	if eo.std != 0 && eo.std != d.std {
		return errors.Errorf("elaboration standard %d does not match analysis standard %d", eo.std, d.std)
	}
	so, err := parseSimFlags(tc.simOption(SimFlags))
	if err != nil {
		return err
	}
	gs, err := tc.bench.decl.Resolve(tc.test.generics(tc.config))
	if err != nil {
		return errors.Wrapf(err, "testbench %s", tc.bench.name)
	}
	steps, err := tc.test.decl.Steps(gs.EvalContext())
	if err != nil {
		return err
	}
	dut, ok := d.lookup(tc.bench.DUT())
	if !ok {
		return errors.Errorf("unknown dut %s", tc.bench.DUT())
	}
	e, err := elaborate(dut, eo)
	if err != nil {
		return errors.Wrapf(err, "failed to elaborate %s", tc.bench.DUT())
	}
	defer e.c.Dispose()
	fmt.Fprintf(out, "elaborated %s: %d components, %d steps per cycle\n", e.name, e.c.Size(), e.c.SPC())

	for i, st := range steps {
		for _, n := range tb.PinNames(st.In) {
			p, ok := e.ins[n]
			if !ok {
				return errors.Errorf("%s: vector %d: %s is not an input of %s", st.Pos, i, n, e.name)
			}
			v := st.In[n]
			if err := p.check(v); err != nil {
				return errors.Wrapf(err, "%s: vector %d", st.Pos, i)
			}
			p.val = v.N
		}
		if so.maxCycles > 0 && st.Cycles > so.maxCycles {
			return errors.Errorf("%s: vector %d: %d cycles exceeds max-cycles %d", st.Pos, i, st.Cycles, so.maxCycles)
		}
		if err := e.c.Run(ctx, st.Cycles); err != nil {
			return err
		}
		fmt.Fprintf(out, "vector %d at %s: in %s out %s\n", i, st.Pos, e.state(e.inOrder), e.state(e.outOrder))
		for _, n := range tb.PinNames(st.Expect) {
			p, ok := e.outs[n]
			if !ok {
				return errors.Errorf("%s: vector %d: %s is not an output of %s", st.Pos, i, n, e.name)
			}
			exp := st.Expect[n]
			if err := p.check(exp); err != nil {
				return errors.Wrapf(err, "%s: vector %d", st.Pos, i)
			}
			if p.val != exp.N {
				return errors.Errorf("%s: vector %d: %s = %s, expected %s", st.Pos, i, n, p.format(p.val), p.format(exp.N))
			}
		}
	}
	fmt.Fprintf(out, "%d vectors passed in %d steps\n", len(steps), e.c.Steps())
	return nil
}

// port is a DUT pin or bus.
type port struct {
	name  string
	width int // 0 for single pins
	val   int64
}

// check returns an error if v is not a valid value for p: booleans for single
// pins, integers in [0, 2**width) for buses.
func (p *port) check(v tb.Value) error {
	switch {
	case p.width == 0 && !v.Bool:
		return errors.Errorf("%s: expected a boolean, got %d", p.name, v.N)
	case p.width > 0 && v.Bool:
		return errors.Errorf("%s: expected an integer, got %t", p.name, v.N != 0)
	case p.width > 0 && (v.N < 0 || p.width < 64 && v.N >= int64(1)<<uint(p.width)):
		return errors.Errorf("%s: value %d out of range for a %d bit bus", p.name, v.N, p.width)
	}
	return nil
}

func (p *port) format(v int64) string {
	if p.width == 0 {
		return strconv.FormatBool(v != 0)
	}
	return strconv.FormatInt(v, 10)
}

// elaboration is a DUT wired to input drivers and output probes.
type elaboration struct {
	name              string
	c                 *hwsim.Circuit
	ins, outs         map[string]*port
	inOrder, outOrder []*port
}

func (e *elaboration) state(ps []*port) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.name + "=" + p.format(p.val))
	}
	b.WriteByte('}')
	return b.String()
}

// ports groups pin names into single pins and buses.
func ports(pins []string) ([]*port, error) {
	var out []*port
	idx := make(map[string]*port)
	for _, pin := range pins {
		r, err := hdl.ParsePinRef(pin)
		if err != nil {
			return nil, err
		}
		if p, ok := idx[r.Name]; ok {
			p.width++
			continue
		}
		p := &port{name: r.Name}
		if r.Indexed() {
			p.width = 1
		}
		idx[r.Name] = p
		out = append(out, p)
	}
	return out, nil
}

func isConstant(name string) bool {
	return name == hwsim.Clk || name == hwsim.True || name == hwsim.False
}

func elaborate(dut hwsim.NewPartFn, eo elabOpts) (*elaboration, error) {
	spec := dut("").PartSpec
	e := &elaboration{name: spec.Name, ins: make(map[string]*port), outs: make(map[string]*port)}
	var err error
	if e.inOrder, err = ports(spec.Inputs); err != nil {
		return nil, err
	}
	if e.outOrder, err = ports(spec.Outputs); err != nil {
		return nil, err
	}

	conns := make([]hwsim.Connection, 0, len(spec.Inputs)+len(spec.Outputs))
	for _, l := range [][]string{spec.Inputs, spec.Outputs} {
		for _, p := range l {
			conns = append(conns, hwsim.Connection{PP: p, CP: []string{p}})
		}
	}
	parts := hwsim.Parts{spec.Wire(conns)}
	for _, p := range e.inOrder {
		// constant inputs like clk are wired to the circuit constants.
		if isConstant(p.name) {
			continue
		}
		e.ins[p.name] = p
		if p.width == 0 {
			parts = append(parts, hwlib.Input(func() bool { return p.val != 0 })("out="+p.name))
		} else {
			parts = append(parts, hwlib.InputN(p.width, func() int64 { return p.val })("out="+p.name))
		}
	}
	for _, p := range e.outOrder {
		e.outs[p.name] = p
		if p.width == 0 {
			parts = append(parts, hwlib.Output(func(v bool) {
				if v {
					p.val = 1
				} else {
					p.val = 0
				}
			})("in="+p.name))
		} else {
			parts = append(parts, hwlib.OutputN(p.width, func(v int64) { p.val = v })("in="+p.name))
		}
	}
	if e.c, err = hwsim.NewCircuit(eo.workers, eo.spc, parts); err != nil {
		return nil, err
	}
	return e, nil
}
