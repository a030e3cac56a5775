// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/hwunit/hwsim"
)

var hAdder = &hwsim.PartSpec{
	Name:    "HalfAdder",
	Inputs:  []string{pA, pB},
	Outputs: []string{"sum", "carry"},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		a, b := s.Pin(pA), s.Pin(pB)
		sum, carry := s.Pin("sum"), s.Pin("carry")
		return []hwsim.Component{
			func(c *hwsim.Circuit) {
				va, vb := c.Get(a), c.Get(b)
				c.Set(sum, va != vb)
				c.Set(carry, va && vb)
			}}
	}}

// HalfAdder returns a half adder.
//
//	Inputs: a, b
//	Outputs: sum, carry
//	Function: sum = lsb(a + b)
//	          carry = msb(a + b)
//
func HalfAdder(c string) hwsim.Part {
	return hAdder.NewPart(c)
}

var adder = &hwsim.PartSpec{
	Name:    "FullAdder",
	Inputs:  []string{pA, pB, "c"},
	Outputs: []string{"sum", "carry"},
	Mount: func(s *hwsim.Socket) []hwsim.Component {
		a, b, cin := s.Pin(pA), s.Pin(pB), s.Pin("c")
		sum, carry := s.Pin("sum"), s.Pin("carry")
		return []hwsim.Component{
			func(c *hwsim.Circuit) {
				va, vb, vc := c.Get(a), c.Get(b), c.Get(cin)
				s := va != vb
				c.Set(sum, s != vc)
				c.Set(carry, s && vc || va && vb)
			}}
	}}

// FullAdder returns a 3 bit adder.
//
//	Inputs: a, b, c
//	Outputs: sum, carry
//	Function: sum = lsb(a + b + c)
//	          carry = msb(a + b + c)
//
func FullAdder(c string) hwsim.Part {
	return adder.NewPart(c)
}

// AdderN returns a N-bits adder
//
//	Inputs: a[bits], b[bits]
//	Outputs: out[bits], carry
//
func AdderN(bits int) hwsim.NewPartFn {
	adderN := &hwsim.PartSpec{
		Name:    "Add" + strconv.Itoa(bits),
		Inputs:  hwsim.IO("a[" + strconv.Itoa(bits) + "], b[" + strconv.Itoa(bits) + "]"),
		Outputs: hwsim.IO("out[" + strconv.Itoa(bits) + "], carry"),
		Mount: func(s *hwsim.Socket) []hwsim.Component {
			a, b := s.Bus(pA, bits), s.Bus(pB, bits)
			out, cout := s.Bus(pOut, bits), s.Pin("carry")
			return []hwsim.Component{
				func(c *hwsim.Circuit) {
					cc := false
					for i, o := range out {
						va, vb := c.Get(a[i]), c.Get(b[i])
						s0 := va != vb
						c.Set(o, s0 != cc)
						cc = va && vb || s0 && cc
					}
					c.Set(cout, cc)
				}}
		}}
	return adderN.NewPart
}
