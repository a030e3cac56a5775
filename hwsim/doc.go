// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hwsim provides a naive gate level hardware simulator and an API to
compose basic components (logic gates, muxers, etc.) into more complex ones.

Parts are described by a PartSpec and wired into chips with connection strings
that follow the syntax of the HDL chip language:

	halfAdder, err := hwsim.Chip("HalfAdder", hwsim.IO("a, b"), hwsim.IO("sum, carry"), hwsim.Parts{
		hwlib.Xor("a=a, b=b, out=sum"),
		hwlib.And("a=a, b=b, out=carry"),
	})

A Circuit runs the mounted components in parallel, one step at a time. Every
component reads the pin states of the previous step and writes the states of
the next one, so a signal takes one step to cross a built-in gate. A clock
signal (pin "clk") toggles every half cycle.

*/
package hwsim
