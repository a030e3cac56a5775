// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/hwunit/hwsim"
)

var builtins = map[string]*hwsim.PartSpec{
	"Not":       notGate,
	"And":       and,
	"Nand":      nand,
	"Or":        or,
	"Nor":       nor,
	"Xor":       xor,
	"Xnor":      xnor,
	"Mux":       mux,
	"DMux":      dmux,
	"DFF":       dff,
	"HalfAdder": hAdder,
	"FullAdder": adder,
}

// Lookup returns the built-in part with the given name.
//
func Lookup(name string) (hwsim.NewPartFn, bool) {
	sp, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return sp.NewPart, true
}
