// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package halfadder registers the half adder design and its test bench in a
// hwunit session.
//
package halfadder

import (
	"github.com/db47h/hwunit"
	"github.com/pkg/errors"
)

// LibraryName is the name of the library holding the half adder sources.
//
const LibraryName = "lib"

// Test bench and test names.
//
const (
	TestBenchName = "half_adder_tb"
	TestName      = "logic"
)

// Sources returns the library source files, relative to the working
// directory, in compilation order.
//
func Sources() []string { return []string{"half_adder.hdl", "half_adder_tb.hcl"} }

// Flags returns the flags used for both analysis and elaboration.
//
func Flags() []string { return []string{"--std=2"} }

// Library configures the half adder library of a session.
//
type Library struct {
	lib     *hwunit.Library
	flags   []string
	sources []string
}

// New creates the half adder library in s.
//
func New(s *hwunit.Session) (*Library, error) {
	lib, err := s.AddLibrary(LibraryName)
	if err != nil {
		return nil, err
	}
	return &Library{lib: lib, flags: Flags(), sources: Sources()}, nil
}

// Lib returns the underlying hwunit library.
//
func (l *Library) Lib() *hwunit.Library { return l.lib }

// Setup adds the sources and configures the library. It must be called
// before the session is executed.
//
func (l *Library) Setup() error {
	if err := l.addSources(); err != nil {
		return err
	}
	if err := l.configureCompile(); err != nil {
		return err
	}
	return l.configureRun()
}

func (l *Library) addSources() error {
	for _, s := range l.sources {
		if _, err := l.lib.AddSourceFile(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) configureCompile() error {
	return l.lib.AddCompileOption(hwunit.AFlags, l.flags)
}

func (l *Library) configureRun() error {
	if err := l.lib.SetSimOption(hwunit.ElabFlags, l.flags); err != nil {
		return err
	}
	tb, err := l.lib.TestBench(TestBenchName)
	if err != nil {
		return err
	}
	test, err := tb.Test(TestName)
	if err != nil {
		return err
	}
	// adding a configuration disables the implicit default one.
	if err = test.AddConfig("default"); err != nil {
		return errors.Wrap(err, "failed to add default configuration")
	}
	err = test.AddConfig("fail", hwunit.WithGenerics(map[string]interface{}{"fail": true}))
	return errors.Wrap(err, "failed to add fail configuration")
}
