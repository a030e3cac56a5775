// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/db47h/hwunit/internal/tb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FileKind is the kind of a source file.
//
type FileKind int

// Source file kinds.
//
const (
	// DesignFile is an HDL chip description (.hdl).
	DesignFile FileKind = iota
	// TestBenchFile is an HCL test bench (.hcl).
	TestBenchFile
)

func (k FileKind) String() string {
	if k == TestBenchFile {
		return "testbench"
	}
	return "design"
}

// A SourceFile is a source file registered in a library.
//
type SourceFile struct {
	lib  *Library
	path string
	kind FileKind
	src  []byte
	tb   *tb.File
}

// Name returns the file path as given to AddSourceFile.
//
func (f *SourceFile) Name() string { return f.path }

// Kind returns the file kind.
//
func (f *SourceFile) Kind() FileKind { return f.kind }

// Library returns the name of the library f belongs to.
//
func (f *SourceFile) Library() string { return f.lib.name }

// A Library is a named set of source files compiled together, with its
// compile and simulation options.
//
type Library struct {
	s       *Session
	name    string
	files   []*SourceFile
	copts   map[string][]string
	sopts   map[string][]string
	benches []*TestBench
}

// Name returns the library name.
//
func (l *Library) Name() string { return l.name }

// AddSourceFile reads the file at path and adds it to the library. The file
// kind is determined by its extension: .hdl for design files and .hcl for test
// benches. Test benches are decoded right away so that they can be looked up
// by name.
//
func (l *Library) AddSourceFile(path string) (*SourceFile, error) {
	var kind FileKind
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdl":
		kind = DesignFile
	case ".hcl":
		kind = TestBenchFile
	default:
		return nil, errors.Errorf("%s: unknown source file type", path)
	}
	clean := filepath.Clean(path)
	for _, f := range l.files {
		if filepath.Clean(f.path) == clean {
			return nil, errors.Errorf("%s: file already in library %s", path, l.name)
		}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to add source file")
	}
	f := &SourceFile{lib: l, path: path, kind: kind, src: src}
	if kind == TestBenchFile {
		if f.tb, err = tb.Parse(path, src); err != nil {
			return nil, err
		}
		var benches []*TestBench
		for _, b := range f.tb.Benches {
			if _, err := l.TestBench(b.Name); err == nil {
				return nil, errors.Errorf("%s: duplicate testbench %s in library %s", path, b.Name, l.name)
			}
			benches = append(benches, newTestBench(l, f, b))
		}
		l.benches = append(l.benches, benches...)
	}
	l.files = append(l.files, f)
	l.s.logger().Debug("Added source file",
		zap.String("library", l.name),
		zap.String("path", path),
		zap.Stringer("kind", kind))
	return f, nil
}

// SourceFiles returns the library source files in registration order.
//
func (l *Library) SourceFiles() []*SourceFile {
	return append([]*SourceFile(nil), l.files...)
}

// AddCompileOption appends values to the named compile option.
//
func (l *Library) AddCompileOption(name string, values []string) error {
	if !isCompileOption(name) {
		return errors.Errorf("library %s: unknown compile option %q", l.name, name)
	}
	vs := append(copyStrings(l.copts[name]), values...)
	if err := checkOption(name, vs); err != nil {
		return errors.Wrapf(err, "library %s", l.name)
	}
	l.copts[name] = vs
	return nil
}

// SetCompileOption replaces the values of the named compile option.
//
func (l *Library) SetCompileOption(name string, values []string) error {
	if !isCompileOption(name) {
		return errors.Errorf("library %s: unknown compile option %q", l.name, name)
	}
	if err := checkOption(name, values); err != nil {
		return errors.Wrapf(err, "library %s", l.name)
	}
	l.copts[name] = copyStrings(values)
	return nil
}

// CompileOption returns the values of the named compile option.
//
func (l *Library) CompileOption(name string) []string {
	return copyStrings(l.copts[name])
}

// SetSimOption replaces the values of the named simulation option for every
// test in the library. Configurations may override it.
//
func (l *Library) SetSimOption(name string, values []string) error {
	if !isSimOption(name) {
		return errors.Errorf("library %s: unknown sim option %q", l.name, name)
	}
	if err := checkOption(name, values); err != nil {
		return errors.Wrapf(err, "library %s", l.name)
	}
	l.sopts[name] = copyStrings(values)
	return nil
}

// SimOption returns the values of the named simulation option.
//
func (l *Library) SimOption(name string) []string {
	return copyStrings(l.sopts[name])
}

// TestBench returns the named test bench.
//
func (l *Library) TestBench(name string) (*TestBench, error) {
	for _, b := range l.benches {
		if b.name == name {
			return b, nil
		}
	}
	return nil, errors.Errorf("library %s: testbench %s not found", l.name, name)
}

// TestBenches returns the library test benches in declaration order.
//
func (l *Library) TestBenches() []*TestBench {
	return append([]*TestBench(nil), l.benches...)
}
