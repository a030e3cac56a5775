// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"sort"
	"strings"

	"github.com/db47h/hwunit/internal/tb"
	"github.com/pkg/errors"
)

// A TestBench is a testbench block from a test bench file.
//
type TestBench struct {
	lib      *Library
	file     *SourceFile
	decl     *tb.Bench
	name     string
	generics map[string]interface{}
	tests    []*Test
}

func newTestBench(l *Library, f *SourceFile, b *tb.Bench) *TestBench {
	bench := &TestBench{lib: l, file: f, decl: b, name: b.Name, generics: make(map[string]interface{})}
	for _, t := range b.Tests {
		bench.tests = append(bench.tests, &Test{bench: bench, decl: t, name: t.Name})
	}
	return bench
}

// Name returns the test bench name.
//
func (b *TestBench) Name() string { return b.name }

// DUT returns the name of the chip under test.
//
func (b *TestBench) DUT() string { return b.decl.DUT }

// File returns the file declaring b.
//
func (b *TestBench) File() *SourceFile { return b.file }

// Test returns the named test.
//
func (b *TestBench) Test(name string) (*Test, error) {
	for _, t := range b.tests {
		if t.name == name {
			return t, nil
		}
	}
	return nil, errors.Errorf("testbench %s: test %s not found", b.name, name)
}

// Tests returns the tests of b in declaration order.
//
func (b *TestBench) Tests() []*Test {
	return append([]*Test(nil), b.tests...)
}

// SetGeneric sets the value of a generic for every test of the bench.
// Configurations may override it.
//
func (b *TestBench) SetGeneric(name string, value interface{}) error {
	gs := copyGenerics(b.generics)
	gs[name] = value
	if err := b.decl.Check(gs); err != nil {
		return errors.Wrapf(err, "testbench %s", b.name)
	}
	b.generics = gs
	return nil
}

// AddConfig adds a configuration to every test of the bench.
//
func (b *TestBench) AddConfig(name string, opts ...ConfigOption) error {
	for _, t := range b.tests {
		if err := t.AddConfig(name, opts...); err != nil {
			return err
		}
	}
	return nil
}

// A Test is a named test in a test bench.
//
type Test struct {
	bench   *TestBench
	decl    *tb.Test
	name    string
	configs []*Config
}

// Name returns the test name.
//
func (t *Test) Name() string { return t.name }

// AddConfig adds a named configuration to the test. Once a configuration has
// been added, the implicit default configuration is no longer run. Generic
// names are checked against the test bench declarations.
//
func (t *Test) AddConfig(name string, opts ...ConfigOption) error {
	if name == "" || strings.ContainsAny(name, ". \t") {
		return errors.Errorf("test %s: invalid configuration name %q", t.name, name)
	}
	for _, c := range t.configs {
		if c.Name == name {
			return errors.Errorf("test %s: duplicate configuration %s", t.name, name)
		}
	}
	c := &Config{Name: name, Generics: make(map[string]interface{}), SimOptions: make(map[string][]string)}
	for _, o := range opts {
		if err := o(c); err != nil {
			return errors.Wrapf(err, "test %s: configuration %s", t.name, name)
		}
	}
	if err := t.bench.decl.Check(t.generics(c)); err != nil {
		return errors.Wrapf(err, "test %s: configuration %s", t.name, name)
	}
	t.configs = append(t.configs, c)
	return nil
}

// Configs returns the explicit configurations of t in registration order.
//
func (t *Test) Configs() []*Config {
	return append([]*Config(nil), t.configs...)
}

// generics returns the generic overrides for configuration c, which may be
// nil for the implicit configuration.
func (t *Test) generics(c *Config) map[string]interface{} {
	gs := copyGenerics(t.bench.generics)
	if c != nil {
		for k, v := range c.Generics {
			gs[k] = v
		}
	}
	return gs
}

// A Config is a named set of generic values and simulation options under
// which a test is run.
//
type Config struct {
	Name       string
	Generics   map[string]interface{}
	SimOptions map[string][]string
}

// GenericNames returns the sorted names of the generics set by c.
//
func (c *Config) GenericNames() []string {
	out := make([]string, 0, len(c.Generics))
	for k := range c.Generics {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// A ConfigOption sets up a configuration.
//
type ConfigOption func(c *Config) error

// WithGenerics sets generic values.
//
func WithGenerics(generics map[string]interface{}) ConfigOption {
	return func(c *Config) error {
		for k, v := range generics {
			c.Generics[k] = v
		}
		return nil
	}
}

// WithSimOption sets a simulation option, overriding the library setting.
//
func WithSimOption(name string, values []string) ConfigOption {
	return func(c *Config) error {
		if !isSimOption(name) {
			return errors.Errorf("unknown sim option %q", name)
		}
		if err := checkOption(name, values); err != nil {
			return err
		}
		c.SimOptions[name] = copyStrings(values)
		return nil
	}
}

func copyGenerics(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
