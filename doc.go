// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwunit compiles HDL chip descriptions and runs HCL test benches
// against them using the hwsim simulator.
//
// A project is set up by registering libraries and source files in a Session,
// then handing control to the session command line entry point:
//
//	s := hwunit.FromArgv()
//	lib, err := s.AddLibrary("lib")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err = lib.AddSourceFile("half_adder.hdl"); err != nil {
//		log.Fatal(err)
//	}
//	if _, err = lib.AddSourceFile("half_adder_tb.hcl"); err != nil {
//		log.Fatal(err)
//	}
//	s.Main()
//
// Design files (.hdl) declare chips:
//
//	CHIP HalfAdder {
//		IN a, b;
//		OUT sum, carry;
//		PARTS:
//		Xor(a=a, b=b, out=sum);
//		And(a=a, b=b, out=carry);
//	}
//
// Test bench files (.hcl) declare test benches, their generics and tests:
//
//	testbench "half_adder_tb" {
//	  dut = "HalfAdder"
//	  generic "fail" { default = false }
//	  test "logic" {
//	    vector {
//	      in     = { a = true, b = true }
//	      expect = { sum = false, carry = !generic.fail }
//	    }
//	  }
//	}
//
// Every test is run once per configuration registered with Test.AddConfig.
// Tests without configurations run once under an implicit default
// configuration. Test case names are lib.bench.test for the implicit
// configuration and lib.bench.config.test otherwise.
//
// Libraries accept the following options, given as command line style flag
// lists:
//
//	hwsim.a_flags     compile option: --std=1|2 (default 2)
//	hwsim.elab_flags  sim option: --std, --workers=N, --spc=N
//	hwsim.sim_flags   sim option: --max-cycles=N
//
package hwunit
