// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim_test

import (
	"context"
	"strings"
	"testing"

	hl "github.com/db47h/hwunit/hwlib"
	hw "github.com/db47h/hwunit/hwsim"
	"github.com/pkg/errors"
	"go.uber.org/goleak"
)

const testTPC = 16

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

func testGate(t *testing.T, name string, gate hw.NewPartFn, result [][]bool) {
	t.Helper()
	part := gate("").PartSpec // build dummy gate just to get to the partspec
	inputs := make([]bool, len(part.Inputs))
	outputs := make([]bool, len(part.Outputs))
	var w strings.Builder
	parts := make(hw.Parts, 0, len(part.Inputs)+len(part.Outputs)+1)
	for i, n := range part.Inputs {
		w.WriteByte(',')
		w.WriteString(n + "=" + n)
		in := &inputs[i]
		parts = append(parts, hl.Input(func() bool { return *in })("out="+n))
	}
	for i, n := range part.Outputs {
		w.WriteByte(',')
		w.WriteString(n + "=" + n)
		out := &outputs[i]
		parts = append(parts, hl.Output(func(v bool) { *out = v })("in="+n))
	}
	parts = append(parts, gate(strings.TrimPrefix(w.String(), ",")))
	c, err := hw.NewCircuit(0, testTPC, parts)
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	defer c.Dispose()

	tot := 1 << uint(len(part.Inputs))
	for i := 0; i < tot; i++ {
		for bit := range inputs {
			inputs[len(inputs)-bit-1] = (i & (1 << uint(bit))) != 0
		}
		c.TickTock()
		for o, out := range outputs {
			exp := result[o][i]
			if exp != out {
				t.Errorf("%s %v = %v, got %v", name, inputs, exp, out)
			}
		}
	}
}

func Test_gate_custom(t *testing.T) {
	and, err := hw.Chip("AND", hw.IO("a, b"), hw.IO("out"),
		hw.Parts{
			hl.Nand("a=a, b=b, out=nand"),
			hl.Nand("a=nand, b=nand, out=out"),
		})
	if err != nil {
		t.Fatal(err)
	}
	or, err := hw.Chip("OR", hw.IO("a, b"), hw.IO("out"),
		hw.Parts{
			hl.Nand("a=a, b=a, out=notA"),
			hl.Nand("a=b, b=b, out=notB"),
			hl.Nand("a=notA, b=notB, out=out"),
		})
	if err != nil {
		t.Fatal(err)
	}
	nor, err := hw.Chip("NOR", hw.IO("a, b"), hw.IO("out"),
		hw.Parts{
			or("a=a, b=b, out=orAB"),
			hl.Nand("a=orAB, b=orAB, out=out"),
		})
	if err != nil {
		t.Fatal(err)
	}
	xor, err := hw.Chip("XOR", hw.IO("a, b"), hw.IO("out"),
		hw.Parts{
			hl.Nand("a=a, b=b, out=nandAB"),
			hl.Nand("a=a, b=nandAB, out=w0"),
			hl.Nand("a=b, b=nandAB, out=w1"),
			hl.Nand("a=w0, b=w1, out=out"),
		})
	if err != nil {
		t.Fatal(err)
	}
	not, err := hw.Chip("NOT", hw.IO("a"), hw.IO("out"),
		hw.Parts{
			hl.Nand("a=a, b=a, out=out"),
		})
	if err != nil {
		t.Fatal(err)
	}
	mux, err := hw.Chip("MUX", hw.IO("a, b, sel"), hw.IO("out"), hw.Parts{
		hl.Not("in=sel, out=notSel"),
		hl.And("a=a, b=notSel, out=w0"),
		hl.And("a=b, b=sel, out=w1"),
		hl.Or("a=w0, b=w1, out=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	dmux, err := hw.Chip("DMUX", hw.IO("in, sel"), hw.IO("a, b"), hw.Parts{
		hl.Not("in=sel, out=notSel"),
		hl.And("a=in, b=notSel, out=a"),
		hl.And("a=in, b=sel, out=b"),
	})
	if err != nil {
		t.Fatal(err)
	}
	halfAdder, err := hw.Chip("HALFADDER", hw.IO("a, b"), hw.IO("sum, carry"), hw.Parts{
		xor("a=a, b=b, out=sum"),
		and("a=a, b=b, out=carry"),
	})
	if err != nil {
		t.Fatal(err)
	}
	td := []struct {
		name   string
		gate   hw.NewPartFn
		result [][]bool
	}{
		{"AND", and, [][]bool{{false, false, false, true}}},
		{"OR", or, [][]bool{{false, true, true, true}}},
		{"NOR", nor, [][]bool{{true, false, false, false}}},
		{"XOR", xor, [][]bool{{false, true, true, false}}},
		{"NOT", not, [][]bool{{true, false}}},
		{"MUX", mux, [][]bool{{false, false, false, true, true, false, true, true}}},
		{"DMUX", dmux, [][]bool{{false, false, true, false}, {false, false, false, true}}},
		{"HALFADDER", halfAdder, [][]bool{{false, true, true, false}, {false, false, false, true}}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			testGate(t, d.name, d.gate, d.result)
		})
	}
}

// Test a basic clock with a Nor gate.
//
// The purpose of this test is to catch changes in propagation delays
// from Inputs and Outputs as well as testing loops between input and outputs.
//
func Test_clock(t *testing.T) {
	var disable, tick bool

	check := func(v bool) {
		t.Helper()
		if tick != v {
			t.Errorf("expected %v, got %v", v, tick)
		}
	}
	// wrapped into a stand-alone chip in order to add a layer complexity.
	clk, err := hw.Chip("CLK", hw.IO("disable"), hw.IO("tick"), hw.Parts{
		hl.Nor("a=disable, b=tick, out=tick"),
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := hw.NewCircuit(0, testTPC, hw.Parts{
		hl.Input(func() bool { return disable })("out=disable"),
		clk("disable=disable, tick=out"),
		hl.Output(func(out bool) { tick = out })("in=out"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	disable = true
	c.Step()
	check(false)
	c.Step()
	// expected glitch due to signal propagation delay
	check(true)
	c.Step()
	check(false)
	c.Step()
	check(false)

	disable = false
	c.Step()
	check(false)
	c.Step()
	check(false)
	c.Step()
	// the clock starts ticking now.
	check(true)
	c.Step()
	check(false)
	c.Step()
	check(true)
	disable = true
	c.Step()
	check(false)
	c.Step()
	check(true)
	c.Step()
	// the clock stops ticking now.
	check(false)
	c.Step()
	check(false)
}

func TestCircuit_Run(t *testing.T) {
	var out bool
	c, err := hw.NewCircuit(2, 4, hw.Parts{
		hl.Not("in=false, out=x"),
		hl.Output(func(v bool) { out = v })("in=x"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	if err := c.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if !out {
		t.Fatal("expected out = true")
	}
	if c.Steps() != 8 {
		t.Fatalf("expected 8 steps, got %d", c.Steps())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, 1); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Dispose twice
	c.Dispose()
}

func TestNewCircuit_empty(t *testing.T) {
	if _, err := hw.NewCircuit(0, testTPC, nil); err == nil {
		t.Fatal("expected error for empty part list")
	}
}

func TestNewCircuit_spc(t *testing.T) {
	td := []struct {
		spc, want uint
	}{
		{0, 2}, {2, 2}, {3, 4}, {16, 16}, {17, 32},
	}
	for _, d := range td {
		// more workers than components
		c, err := hw.NewCircuit(16, d.spc, hw.Parts{hl.Not("in=false, out=x"), hl.Output(func(bool) {})("in=x")})
		if err != nil {
			t.Fatal(err)
		}
		if c.SPC() != d.want {
			t.Errorf("spc %d: got %d, expected %d", d.spc, c.SPC(), d.want)
		}
		if err = c.Run(context.Background(), 1); err != nil {
			t.Fatal(err)
		}
		if c.Steps() != d.want {
			t.Errorf("spc %d: got %d steps per cycle, expected %d", d.spc, c.Steps(), d.want)
		}
		c.Dispose()
	}
}
