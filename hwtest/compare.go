// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/db47h/hwunit/hwlib"
	"github.com/db47h/hwunit/hwsim"
)

func connString(pins ...[]string) string {
	var b strings.Builder
	for _, l := range pins {
		for _, n := range l {
			if b.Len() > 0 {
				b.WriteRune(',')
			}
			b.WriteString(n)
			b.WriteRune('=')
			b.WriteString(n)
		}
	}
	return b.String()
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ComparePart takes two parts and compares their outputs given the same inputs.
// Both parts must have the same Input/Output interface. Up to 2^12 random
// input combinations are tested, plus all zeroes and all ones.
//
func ComparePart(t *testing.T, tpc uint, part1 hwsim.NewPartFn, part2 hwsim.NewPartFn) {
	t.Helper()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	ps1, ps2 := part1("").PartSpec, part2("").PartSpec
	if !equal(ps1.Inputs, ps2.Inputs) {
		t.Fatalf("input mismatch: %v != %v", ps1.Inputs, ps2.Inputs)
	}
	if !equal(ps1.Outputs, ps2.Outputs) {
		t.Fatalf("output mismatch: %v != %v", ps1.Outputs, ps2.Outputs)
	}

	inputs := make([]bool, len(ps1.Inputs))
	outputs := make([][2]bool, len(ps1.Outputs))

	conns := connString(ps1.Inputs, ps1.Outputs)
	// build two wrappers with their own set of outputs
	parts1 := hwsim.Parts{part1(conns)}
	parts2 := hwsim.Parts{part2(conns)}
	for i, o := range ps1.Outputs {
		n := i
		parts1 = append(parts1, hwlib.Output(func(b bool) { outputs[n][0] = b })("in="+o))
		parts2 = append(parts2, hwlib.Output(func(b bool) { outputs[n][1] = b })("in="+o))
	}
	w1, err := hwsim.Chip("wrapper1", ps1.Inputs, nil, parts1)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := hwsim.Chip("wrapper2", ps2.Inputs, nil, parts2)
	if err != nil {
		t.Fatal(err)
	}

	var parts hwsim.Parts
	for i, n := range ps1.Inputs {
		k := i
		parts = append(parts, hwlib.Input(func() bool { return inputs[k] })("out="+n))
	}
	cstr := connString(ps1.Inputs)
	parts = append(parts, w1(cstr), w2(cstr))

	c, err := hwsim.NewCircuit(0, tpc, parts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	errString := func(oname string, ex, got bool) string {
		var b strings.Builder
		for i, n := range ps1.Inputs {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", n, inputs[i])
		}
		return fmt.Sprintf("\nExpected %s => %s=%v\nGot %v", b.String(), oname, ex, got)
	}
	check := func() {
		t.Helper()
		c.TickTock()
		for o, out := range outputs {
			if out[0] != out[1] {
				t.Fatal(errString(ps1.Outputs[o], out[0], out[1]))
			}
		}
	}

	start := time.Now()

	// all 0
	check()
	// all 1
	for in := range inputs {
		inputs[in] = true
	}
	check()

	iter := len(ps1.Inputs)
	if iter > 12 {
		iter = 12
	}
	iter = 1 << uint(iter)
	for i := 0; i < iter; i++ {
		for in := range inputs {
			inputs[in] = rnd.Int63()&(1<<62) != 0
		}
		check()
	}

	elapsed := time.Since(start)
	ticks := c.Steps() / c.SPC()
	t.Logf("%d components. %d steps in %v. %d clock ticks => %.2f Hz", c.Size(), c.Steps(), elapsed, ticks, float64(ticks)/elapsed.Seconds())
}
