// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"fmt"
	"sort"

	"github.com/db47h/hwunit/hwlib"
	"github.com/db47h/hwunit/hwsim"
	"github.com/db47h/hwunit/internal/dag"
	"github.com/db47h/hwunit/internal/hdl"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// design is a compiled library.
type design struct {
	lib   *Library
	std   hdl.Std
	chips map[string]hwsim.NewPartFn
	// source files in compilation order.
	order []*SourceFile
}

// lookup returns the named chip, falling back to built-in parts.
func (d *design) lookup(name string) (hwsim.NewPartFn, bool) {
	if fn, ok := d.chips[name]; ok {
		return fn, true
	}
	return hwlib.Lookup(name)
}

type chipSrc struct {
	decl *hdl.ChipDecl
	file *SourceFile
}

func (cs chipSrc) errorf(pos hdl.Pos, format string, args ...interface{}) error {
	return errors.Errorf("%s: "+format, append([]interface{}{cs.file.pos(pos)}, args...)...)
}

func (f *SourceFile) pos(p hdl.Pos) string {
	line, col := hdl.LineCol(string(f.src), p)
	return fmt.Sprintf("%s:%d:%d", f.path, line, col)
}

// compile parses the design files of l, orders all source files by
// dependency and builds every chip.
func (l *Library) compile(log *zap.Logger) (*design, error) {
	ao, err := parseAnalysisFlags(l.copts[AFlags])
	if err != nil {
		return nil, errors.Wrapf(err, "library %s", l.name)
	}
	d := &design{lib: l, std: ao.std, chips: make(map[string]hwsim.NewPartFn)}

	decls := make(map[string]chipSrc)
	parsed := make(map[*SourceFile]*hdl.File)
	for _, f := range l.files {
		if f.kind != DesignFile {
			continue
		}
		hf, err := hdl.ParseFile(f.path, string(f.src), ao.std)
		if err != nil {
			return nil, err
		}
		parsed[f] = hf
		for _, c := range hf.Chips {
			if prev, ok := decls[c.Name]; ok {
				return nil, errors.Errorf("%s: duplicate chip %s, previous declaration at %s",
					f.pos(c.Pos), c.Name, prev.file.pos(prev.decl.Pos))
			}
			decls[c.Name] = chipSrc{c, f}
		}
	}

	g := dag.NewGraph()
	for _, f := range l.files {
		g.AddNode(f.path, f)
	}
	for _, f := range l.files {
		var uses []string
		if f.kind == DesignFile {
			uses = parsed[f].Uses()
		} else {
			for _, b := range f.tb.Benches {
				if _, ok := decls[b.DUT]; !ok {
					if _, ok := hwlib.Lookup(b.DUT); !ok {
						return nil, errors.Errorf("%s: testbench %s: unknown dut %s", f.path, b.Name, b.DUT)
					}
				}
				uses = append(uses, b.DUT)
			}
		}
		for _, u := range uses {
			if cs, ok := decls[u]; ok && cs.file != f {
				if err := g.AddEdge(cs.file.path, f.path); err != nil {
					return nil, err
				}
			}
		}
	}
	nodes, err := g.TopologicalSort()
	if err != nil {
		return nil, errors.Wrapf(err, "library %s", l.name)
	}

	b := &builder{decls: decls, chips: d.chips, building: make(map[string]bool)}
	for _, n := range nodes {
		f := n.Data.(*SourceFile)
		d.order = append(d.order, f)
		if f.kind != DesignFile {
			continue
		}
		for _, c := range parsed[f].Chips {
			if _, err := b.build(c.Name); err != nil {
				return nil, err
			}
		}
		log.Debug("Compiled design file",
			zap.String("library", l.name),
			zap.String("path", f.path),
			zap.Int("chips", len(parsed[f].Chips)))
	}
	return d, nil
}

type builder struct {
	decls    map[string]chipSrc
	chips    map[string]hwsim.NewPartFn
	building map[string]bool
}

func (b *builder) build(name string) (hwsim.NewPartFn, error) {
	if fn, ok := b.chips[name]; ok {
		return fn, nil
	}
	cs := b.decls[name]
	if b.building[name] {
		return nil, cs.errorf(cs.decl.Pos, "recursive chip %s", name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	fn, err := b.chip(cs)
	if err != nil {
		return nil, err
	}
	b.chips[name] = fn
	return fn, nil
}

func (b *builder) chip(cs chipSrc) (hwsim.NewPartFn, error) {
	c := cs.decl
	in, out := hwsim.Expand(c.In), hwsim.Expand(c.Out)
	var parts hwsim.Parts
	if c.Builtin != "" {
		fn, ok := hwlib.Lookup(c.Builtin)
		if !ok {
			return nil, cs.errorf(c.Pos, "unknown built-in part %s", c.Builtin)
		}
		spec := fn("").PartSpec
		if !samePins(spec.Inputs, in) || !samePins(spec.Outputs, out) {
			return nil, cs.errorf(c.Pos, "chip %s: pins do not match built-in part %s", c.Name, c.Builtin)
		}
		conns := make([]hwsim.Connection, 0, len(in)+len(out))
		for _, l := range [][]string{in, out} {
			for _, p := range l {
				conns = append(conns, hwsim.Connection{PP: p, CP: []string{p}})
			}
		}
		parts = hwsim.Parts{spec.Wire(conns)}
	} else {
		for _, pd := range c.Parts {
			fn, ok := b.chips[pd.Name]
			if !ok {
				if _, declared := b.decls[pd.Name]; declared {
					var err error
					if fn, err = b.build(pd.Name); err != nil {
						return nil, err
					}
				} else if fn, ok = hwlib.Lookup(pd.Name); !ok {
					return nil, cs.errorf(pd.Pos, "unknown part %s", pd.Name)
				}
			}
			parts = append(parts, fn("").PartSpec.Wire(hwsim.Connect(pd.Conns)))
		}
	}
	fn, err := hwsim.Chip(c.Name, in, out, parts)
	if err != nil {
		return nil, cs.errorf(c.Pos, "chip %s: %v", c.Name, err)
	}
	return fn, nil
}

func samePins(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := append([]string(nil), a...), append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
