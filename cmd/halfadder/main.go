// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command halfadder compiles the half adder design and runs its test bench
// under the default and fail configurations. It must be run from the
// directory holding half_adder.hdl and half_adder_tb.hcl.
//
// Usage:
//
//	halfadder [flags] [patterns...]
//
// Run halfadder --help for the list of flags.
//
package main

import (
	"fmt"
	"os"

	"github.com/db47h/hwunit"
	"github.com/db47h/hwunit/halfadder"
)

func main() {
	s := hwunit.FromArgv()
	lib, err := halfadder.New(s)
	if err == nil {
		err = lib.Setup()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	s.Main()
}
