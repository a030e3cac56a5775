// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable parts for hwsim. These are the
// built-in parts available to HDL chip descriptions.
//
package hwlib

import (
	"github.com/db47h/hwunit/hwsim"
)

// common pin names
const (
	pA   = "a"
	pB   = "b"
	pIn  = "in"
	pSel = "sel"
	pOut = "out"
)

var notGate = &hwsim.PartSpec{Name: "Not", Inputs: []string{pIn}, Outputs: []string{pOut},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		in, out := s.Pin(pIn), s.Pin(pOut)
		return []hwsim.Component{
			func(c *hwsim.Circuit) { c.Set(out, !c.Get(in)) },
		}
	},
}

// Not returns a NOT gate.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(w string) hwsim.Part {
	return notGate.NewPart(w)
}

// other gates
type gate func(a, b bool) bool

func (g gate) mount(s *hwsim.Socket) []hwsim.Component {
	a, b, out := s.Pin(pA), s.Pin(pB), s.Pin(pOut)
	return []hwsim.Component{
		func(c *hwsim.Circuit) { c.Set(out, g(c.Get(a), c.Get(b))) },
	}
}

func newGate(name string, fn func(a, b bool) bool) *hwsim.PartSpec {
	return &hwsim.PartSpec{
		Name:    name,
		Inputs:  []string{pA, pB},
		Outputs: []string{pOut},
		Mount:   gate(fn).mount,
	}
}

var (
	and  = newGate("And", func(a, b bool) bool { return a && b })
	nand = newGate("Nand", func(a, b bool) bool { return !(a && b) })
	or   = newGate("Or", func(a, b bool) bool { return a || b })
	nor  = newGate("Nor", func(a, b bool) bool { return !(a || b) })
	xor  = newGate("Xor", func(a, b bool) bool { return a != b })
	xnor = newGate("Xnor", func(a, b bool) bool { return a == b })
)

// And returns a AND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b
//
func And(w string) hwsim.Part { return and.NewPart(w) }

// Nand returns a NAND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a && b)
//
func Nand(w string) hwsim.Part { return nand.NewPart(w) }

// Or returns a OR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a || b
//
func Or(w string) hwsim.Part { return or.NewPart(w) }

// Nor returns a NOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a || b)
//
func Nor(w string) hwsim.Part { return nor.NewPart(w) }

// Xor returns a XOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a != b
//
func Xor(w string) hwsim.Part { return xor.NewPart(w) }

// Xnor returns a XNOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a == b
//
func Xnor(w string) hwsim.Part { return xnor.NewPart(w) }

// Mux returns a multiplexer.
//
//	Inputs: a, b, sel
//	Outputs: out
//	Function: if sel == 0 { out = a } else { out = b }
//
func Mux(w string) hwsim.Part { return mux.NewPart(w) }

var mux = &hwsim.PartSpec{
	Name:    "Mux",
	Inputs:  []string{pA, pB, pSel},
	Outputs: []string{pOut},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		a, b, sel, out := s.Pin(pA), s.Pin(pB), s.Pin(pSel), s.Pin(pOut)
		return []hwsim.Component{func(c *hwsim.Circuit) {
			if c.Get(sel) {
				c.Set(out, c.Get(b))
			} else {
				c.Set(out, c.Get(a))
			}
		}}
	},
}

// DMux returns a demultiplexer.
//
//	Inputs: in, sel
//	Outputs: a, b
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
//
func DMux(w string) hwsim.Part { return dmux.NewPart(w) }

var dmux = &hwsim.PartSpec{
	Name:    "DMux",
	Inputs:  []string{pIn, pSel},
	Outputs: []string{pA, pB},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		in, sel, a, b := s.Pin(pIn), s.Pin(pSel), s.Pin(pA), s.Pin(pB)
		return []hwsim.Component{func(c *hwsim.Circuit) {
			if c.Get(sel) {
				c.Set(a, false)
				c.Set(b, c.Get(in))
			} else {
				c.Set(a, c.Get(in))
				c.Set(b, false)
			}
		}}
	},
}

var dff = &hwsim.PartSpec{
	Name:    "DFF",
	Inputs:  []string{pIn},
	Outputs: []string{pOut},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		in, out := s.Pin(pIn), s.Pin(pOut)
		var curOut bool
		return []hwsim.Component{
			func(c *hwsim.Circuit) {
				// raising edge?
				if c.AtTick() {
					curOut = c.Get(in)
				}
				c.Set(out, curOut)
			}}
	},
}

// DFF returns a clocked data flip flop.
//
//	Inputs: in
//	Outputs: out
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
//
func DFF(w string) hwsim.Part { return dff.NewPart(w) }
