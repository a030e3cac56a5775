// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package tb decodes test bench files.
//
// A test bench file is an HCL file holding one or more testbench blocks:
//
//	testbench "half_adder_tb" {
//	  dut = "HalfAdder"
//	  generic "fail" { default = false }
//	  test "logic" {
//	    vector {
//	      in     = { a = true, b = true }
//	      expect = { sum = false, carry = !generic.fail }
//	      cycles = 1
//	    }
//	  }
//	}
//
// Vector expressions are evaluated once per configuration with the generic
// values in scope as generic.<name>.
//
package tb

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// File is a decoded test bench file.
//
type File struct {
	Name    string
	Benches []*Bench `hcl:"testbench,block"`
}

// Bench is a testbench block.
//
type Bench struct {
	Name     string     `hcl:"name,label"`
	DUT      string     `hcl:"dut"`
	Generics []*Generic `hcl:"generic,block"`
	Tests    []*Test    `hcl:"test,block"`
}

// Generic is a generic declaration. A generic without default must be given
// a value by every configuration.
//
type Generic struct {
	Name    string         `hcl:"name,label"`
	Default hcl.Expression `hcl:"default,optional"`

	value cty.Value
}

// Test is a named sequence of vectors.
//
type Test struct {
	Name    string    `hcl:"name,label"`
	Vectors []*Vector `hcl:"vector,block"`
}

// Vector drives the DUT inputs, runs the clock and checks the DUT outputs.
//
type Vector struct {
	In     hcl.Expression `hcl:"in"`
	Expect hcl.Expression `hcl:"expect"`
	Cycles hcl.Expression `hcl:"cycles,optional"`
}

// Parse parses and decodes the test bench source src. The name is used in
// error messages.
//
func Parse(name string, src []byte) (*File, error) {
	p := hclparse.NewParser()
	hf, diags := p.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, errors.Errorf("failed to parse test bench file %s: %s", name, diags.Error())
	}
	f := &File{Name: name}
	if diags = gohcl.DecodeBody(hf.Body, nil, f); diags.HasErrors() {
		return nil, errors.Errorf("failed to decode test bench file %s: %s", name, diags.Error())
	}
	if err := f.check(); err != nil {
		return nil, errors.Wrap(err, name)
	}
	return f, nil
}

func (f *File) check() error {
	benches := make(map[string]bool)
	for _, b := range f.Benches {
		if benches[b.Name] {
			return errors.Errorf("duplicate testbench %q", b.Name)
		}
		benches[b.Name] = true
		if b.DUT == "" {
			return errors.Errorf("testbench %q: empty dut", b.Name)
		}
		gs := make(map[string]bool)
		for _, g := range b.Generics {
			if gs[g.Name] {
				return errors.Errorf("testbench %q: duplicate generic %q", b.Name, g.Name)
			}
			gs[g.Name] = true
			v, diags := g.Default.Value(nil)
			if diags.HasErrors() {
				return errors.Errorf("testbench %q: generic %q: %s", b.Name, g.Name, diags.Error())
			}
			g.value = v
		}
		ts := make(map[string]bool)
		for _, t := range b.Tests {
			if ts[t.Name] {
				return errors.Errorf("testbench %q: duplicate test %q", b.Name, t.Name)
			}
			ts[t.Name] = true
		}
	}
	return nil
}

// Generic returns the named generic.
//
func (b *Bench) Generic(name string) (*Generic, bool) {
	for _, g := range b.Generics {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Test returns the named test.
//
func (b *Bench) Test(name string) (*Test, bool) {
	for _, t := range b.Tests {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// HasDefault returns true if the generic has a default value.
//
func (g *Generic) HasDefault() bool { return !g.value.IsNull() }

// Pos returns a range start as file:line:col.
//
func Pos(r hcl.Range) string {
	return fmt.Sprintf("%s:%d:%d", r.Filename, r.Start.Line, r.Start.Column)
}
