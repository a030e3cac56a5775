// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package tb_test

import (
	"testing"

	"github.com/db47h/hwunit/internal/tb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const benchSrc = `
testbench "adder_tb" {
  dut = "Adder"

  generic "fail" { default = false }
  generic "width" { default = 2 }
  generic "label" {}

  test "logic" {
    vector {
      in     = { a = true, b = 1 }
      expect = { sum = false, carry = !generic.fail }
    }
    vector {
      in     = { x = generic.width + 1 }
      expect = {}
      cycles = 3
    }
  }
  test "other" {
    vector {
      in     = {}
      expect = {}
    }
  }
}
`

func TestParse(t *testing.T) {
	f, err := tb.Parse("adder_tb.hcl", []byte(benchSrc))
	require.NoError(t, err)
	require.Len(t, f.Benches, 1)

	b := f.Benches[0]
	assert.Equal(t, "adder_tb", b.Name)
	assert.Equal(t, "Adder", b.DUT)
	assert.Len(t, b.Generics, 3)
	assert.Len(t, b.Tests, 2)

	g, ok := b.Generic("fail")
	require.True(t, ok)
	assert.True(t, g.HasDefault())
	g, ok = b.Generic("label")
	require.True(t, ok)
	assert.False(t, g.HasDefault())

	_, ok = b.Test("logic")
	assert.True(t, ok)
	_, ok = b.Test("nope")
	assert.False(t, ok)
}

func TestParse_errors(t *testing.T) {
	td := []struct {
		name string
		src  string
		err  string
	}{
		{"syntax", `testbench "x" {`, "failed to parse test bench file t.hcl"},
		{"no_dut", `testbench "x" {}`, "failed to decode test bench file t.hcl"},
		{"unknown_attr", `
testbench "x" {
  dut = "D"
  foo = 1
}`, "failed to decode test bench file t.hcl"},
		{"dup_bench", `
testbench "x" { dut = "D" }
testbench "x" { dut = "D" }`, `t.hcl: duplicate testbench "x"`},
		{"dup_test", `
testbench "x" {
  dut = "D"
  test "t" {}
  test "t" {}
}`, `t.hcl: testbench "x": duplicate test "t"`},
		{"dup_generic", `
testbench "x" {
  dut = "D"
  generic "g" {}
  generic "g" {}
}`, `t.hcl: testbench "x": duplicate generic "g"`},
		{"empty_dut", `testbench "x" { dut = "" }`, `t.hcl: testbench "x": empty dut`},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			_, err := tb.Parse("t.hcl", []byte(d.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), d.err)
		})
	}
}

func TestResolve(t *testing.T) {
	f, err := tb.Parse("adder_tb.hcl", []byte(benchSrc))
	require.NoError(t, err)
	b := f.Benches[0]

	_, err = b.Resolve(nil)
	assert.EqualError(t, err, "generic label has no value")

	gs, err := b.Resolve(map[string]interface{}{"label": "x", "fail": true})
	require.NoError(t, err)
	assert.True(t, gs["fail"].True())
	assert.Equal(t, "x", gs["label"].AsString())

	_, err = b.Resolve(map[string]interface{}{"label": "x", "nope": 1})
	assert.EqualError(t, err, `testbench adder_tb has no generic "nope"`)

	// numbers do not convert to bool
	_, err = b.Resolve(map[string]interface{}{"label": "x", "fail": 12})
	assert.Error(t, err)

	// strings convert to numbers
	gs, err = b.Resolve(map[string]interface{}{"label": "x", "width": "4"})
	require.NoError(t, err)
	steps, err := b.Tests[0].Steps(gs.EvalContext())
	require.NoError(t, err)
	assert.Equal(t, tb.Value{N: 5}, steps[1].In["x"])
}

func TestCheck(t *testing.T) {
	f, err := tb.Parse("adder_tb.hcl", []byte(benchSrc))
	require.NoError(t, err)
	b := f.Benches[0]

	// missing values are only reported by Resolve.
	assert.NoError(t, b.Check(nil))
	assert.NoError(t, b.Check(map[string]interface{}{"fail": true}))
	assert.EqualError(t, b.Check(map[string]interface{}{"nope": 1}), `testbench adder_tb has no generic "nope"`)
	assert.Error(t, b.Check(map[string]interface{}{"fail": 12}))
}

func TestSteps(t *testing.T) {
	f, err := tb.Parse("adder_tb.hcl", []byte(benchSrc))
	require.NoError(t, err)
	b := f.Benches[0]

	for _, fail := range []bool{false, true} {
		gs, err := b.Resolve(map[string]interface{}{"label": "x", "fail": fail})
		require.NoError(t, err)
		steps, err := b.Tests[0].Steps(gs.EvalContext())
		require.NoError(t, err)
		require.Len(t, steps, 2)

		s := steps[0]
		assert.Equal(t, map[string]tb.Value{"a": {N: 1, Bool: true}, "b": {N: 1}}, s.In)
		carry := tb.Value{N: 1, Bool: true}
		if fail {
			carry.N = 0
		}
		assert.Equal(t, map[string]tb.Value{"sum": {Bool: true}, "carry": carry}, s.Expect)
		assert.Equal(t, 1, s.Cycles)
		assert.Equal(t, "adder_tb.hcl:11:16", s.Pos)

		s = steps[1]
		assert.Equal(t, map[string]tb.Value{"x": {N: 3}}, s.In)
		assert.Empty(t, s.Expect)
		assert.Equal(t, 3, s.Cycles)
	}
}

func TestSteps_errors(t *testing.T) {
	td := []struct {
		name   string
		vector string
		err    string
	}{
		{"not_object", `in = 1
      expect = {}`, "t.hcl:5:12: expected an object of pin values, got number"},
		{"bad_value", `in = { a = "z" }
      expect = {}`, "t.hcl:5:12: pin a: expected bool or number, got string"},
		{"bad_cycles", `in = {}
      expect = {}
      cycles = 0`, "t.hcl:7:16: cycles must be at least 1, got 0"},
		{"unknown_generic", `in = { a = generic.nope }
      expect = {}`, "Unsupported attribute"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			src := `testbench "x" {
  dut = "D"
  test "t" {
    vector {
      ` + d.vector + `
    }
  }
}`
			f, err := tb.Parse("t.hcl", []byte(src))
			require.NoError(t, err)
			gs, err := f.Benches[0].Resolve(nil)
			require.NoError(t, err)
			_, err = f.Benches[0].Tests[0].Steps(gs.EvalContext())
			require.Error(t, err)
			assert.Contains(t, err.Error(), d.err)
		})
	}
}

func TestToValue(t *testing.T) {
	v, err := tb.ToValue(true)
	require.NoError(t, err)
	assert.True(t, v.True())
	_, err = tb.ToValue(nil)
	assert.Error(t, err)
	_, err = tb.ToValue(make(chan int))
	assert.Error(t, err)
}
