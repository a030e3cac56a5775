// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"github.com/pkg/errors"
)

// a mounted part: the spec plus the mapping of its private pin names to wire
// names in the host chip.
type chipPart struct {
	spec  *PartSpec
	wires map[string]string
	// private names of unconnected output pins.
	free []string
}

type chip struct {
	PartSpec
	parts []chipPart
}

func (c *chip) mount(s *Socket) []Component {
	var cs []Component
	for i := range c.parts {
		p := &c.parts[i]
		sub := newSocket(s.c)
		for k, w := range p.wires {
			sub.m[k] = s.PinOrNew(w)
		}
		for _, k := range p.free {
			if _, ok := sub.m[k]; !ok {
				sub.m[k] = s.c.allocPin()
			}
		}
		cs = append(cs, p.spec.Mount(sub)...)
	}
	return cs
}

// Chip composes existing parts into a new part packaged into a chip.
// The pin names specified as inputs and outputs will be the inputs
// and outputs of the chip.
//
// An Xor gate could be created like this:
//
//	xor, err := Chip(
//		"XOR",
//		IO("a, b"),
//		IO("out"),
//		Parts{
//			Nand("a=a, b=b, out=nandAB"),
//			Nand("a=a, b=nandAB, out=w0"),
//			Nand("a=b, b=nandAB, out=w1"),
//			Nand("a=w0, b=w1, out=out"),
//		})
//
// The returned value is a function of type NewPartFn that can be used to
// compose the new part with others into other chips:
//
//	xnor, err := Chip(
//		"XNOR",
//		IO("a, b"),
//		IO("out"),
//		Parts{
//			xor("a=a, b=b, out=xorAB"),
//			Not("in=xorAB, out=out"),
//		})
//
// Wiring rules: part inputs left unconnected read false, chip outputs that
// are not driven by any part read false, an internal wire must be driven by
// exactly one part output and read by at least one part input. Outputs may
// not drive chip inputs or constants.
//
func Chip(name string, inputs []string, outputs []string, parts Parts) (NewPartFn, error) {
	nl := newNetlist()
	for _, i := range inputs {
		if err := nl.declare(i, wireInput); err != nil {
			return nil, err
		}
	}
	for _, o := range outputs {
		if err := nl.declare(o, wireOutput); err != nil {
			return nil, err
		}
	}
	widths := busWidths(inputs, outputs)

	conns := make([]map[string][]string, len(parts))
	for pnum, p := range parts {
		ex, err := expandConns(p, widths, nl)
		if err != nil {
			return nil, err
		}
		conns[pnum] = ex
	}

	// outputs first so that every internal wire has its driver before we
	// look at inputs.
	for pnum, p := range parts {
		groups := make(map[string][]string)
		var order []string
		for _, o := range p.Outputs {
			ws, ok := conns[pnum][o]
			if !ok {
				continue
			}
			k := p.private(o)
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], ws...)
		}
		for _, k := range order {
			if err := nl.drive(p.Name+"."+k, groups[k]); err != nil {
				return nil, err
			}
		}
	}
	for pnum, p := range parts {
		for _, i := range p.Inputs {
			ws, ok := conns[pnum][i]
			if !ok {
				continue
			}
			if len(ws) > 1 {
				return nil, errors.New(p.Name + " input pin " + i + " connected to more than one wire")
			}
			if err := nl.read(ws[0]); err != nil {
				return nil, err
			}
		}
	}
	if err := nl.check(); err != nil {
		return nil, err
	}

	c := &chip{
		PartSpec: PartSpec{
			Name:    name,
			Inputs:  inputs,
			Outputs: outputs,
			Pinout:  make(map[string]string, len(inputs)+len(outputs)),
		},
		parts: make([]chipPart, len(parts)),
	}
	for _, i := range inputs {
		c.Pinout[i] = i
	}
	for _, o := range outputs {
		c.Pinout[o] = nl.name(o)
	}
	for pnum, p := range parts {
		cp := chipPart{spec: p.PartSpec, wires: make(map[string]string)}
		for _, i := range p.Inputs {
			k := p.private(i)
			if ws, ok := conns[pnum][i]; ok {
				cp.wires[k] = nl.name(ws[0])
			} else {
				cp.wires[k] = False
			}
		}
		for _, o := range p.Outputs {
			k := p.private(o)
			if ws, ok := conns[pnum][o]; ok {
				cp.wires[k] = nl.name(ws[0])
			} else {
				cp.free = append(cp.free, k)
			}
		}
		c.parts[pnum] = cp
	}
	c.PartSpec.Mount = c.mount
	return c.PartSpec.NewPart, nil
}

// expandConns expands the connections of part p into a map of part pin names
// to chip wire names, checking pin names and widths.
func expandConns(p Part, chipWidths map[string]int, nl *netlist) (map[string][]string, error) {
	pw := busWidths(p.Inputs, p.Outputs)
	out := make(map[string][]string)
	for _, c := range p.Conns {
		pps, err := expandRef(c.PP, pw)
		if err != nil {
			return nil, errors.Wrap(err, p.Name)
		}
		for _, pp := range pps {
			if !p.isInput(pp) && !p.isOutput(pp) {
				return nil, errors.New("invalid pin name " + pp + " for part " + p.Name)
			}
		}
		for _, cp := range c.CP {
			cps, err := expandRef(cp, chipWidths)
			if err != nil {
				return nil, errors.Wrap(err, p.Name)
			}
			// plain names not known to the chip become internal buses
			// as wide as the part pin range.
			if len(pps) > 1 && len(cps) == 1 && cps[0] == cp && !nl.declared(cp) {
				if _, _, ok := splitBusPin(cp); !ok {
					cps = cps[:0]
					for i := range pps {
						cps = append(cps, BusPinName(cp, i))
					}
				}
			}
			switch {
			case len(pps) == len(cps):
				for i := range pps {
					out[pps[i]] = append(out[pps[i]], cps[i])
				}
			case len(pps) == 1:
				out[pps[0]] = append(out[pps[0]], cps...)
			case len(cps) == 1:
				for _, pp := range pps {
					out[pp] = append(out[pp], cps[0])
				}
			default:
				return nil, errors.New("pin count mismatch in pin mapping " + p.Name + "." + c.PP + "=" + cp)
			}
		}
	}
	return out, nil
}

const (
	wireInternal = iota
	wireInput
	wireOutput
	wireConst
)

type wire struct {
	name   string
	typ    int
	parent *wire
	driver string // driving part pin, if any.
	reads  int
	outs   []string // chip outputs in this net, in declaration order.
	order  int
}

func (w *wire) root() *wire {
	for w.parent != nil {
		w = w.parent
	}
	return w
}

// netlist groups the wires of a chip into nets. All wires in a net share
// the same circuit pin.
type netlist struct {
	wires map[string]*wire
	seq   int
}

func newNetlist() *netlist {
	nl := &netlist{wires: make(map[string]*wire)}
	for _, n := range []string{False, True, Clk} {
		nl.wires[n] = &wire{name: n, typ: wireConst}
	}
	return nl
}

func (nl *netlist) get(name string) *wire {
	w := nl.wires[name]
	if w == nil {
		nl.seq++
		w = &wire{name: name, typ: wireInternal, order: nl.seq}
		nl.wires[name] = w
	}
	return w
}

func (nl *netlist) declare(name string, typ int) error {
	if _, ok := nl.wires[name]; ok {
		return errors.New("duplicate pin name " + name)
	}
	nl.seq++
	w := &wire{name: name, typ: typ, order: nl.seq}
	if typ == wireOutput {
		w.outs = []string{name}
	}
	nl.wires[name] = w
	return nil
}

// declared returns true for chip pins and constants.
func (nl *netlist) declared(name string) bool {
	w, ok := nl.wires[name]
	return ok && w.typ != wireInternal
}

// drive connects the output pin pin to the named wires.
func (nl *netlist) drive(pin string, wires []string) error {
	var root *wire
	for _, n := range wires {
		w := nl.get(n).root()
		switch w.typ {
		case wireConst:
			return errors.New(pin + ":" + n + ": output pin connected to constant " + n + " input")
		case wireInput:
			return errors.New(pin + ":" + n + ": chip input pin used as output")
		}
		if w == root {
			continue
		}
		if w.driver != "" {
			return errors.New(pin + ":" + n + ": output pin already used as output")
		}
		if root == nil {
			root = w
			root.driver = pin
			continue
		}
		// merge w into root, keeping the chip output with the lowest
		// declaration order as the net root.
		if len(w.outs) > 0 && (len(root.outs) == 0 || w.order < root.order) {
			root, w = w, root
			root.driver = w.driver
			w.driver = ""
		}
		w.parent = root
		root.outs = append(root.outs, w.outs...)
		root.reads += w.reads
		w.outs = nil
	}
	return nil
}

func (nl *netlist) read(name string) error {
	w := nl.get(name).root()
	if w.typ == wireInternal && w.driver == "" {
		return errors.New("pin " + name + " not connected to any output")
	}
	w.reads++
	return nil
}

func (nl *netlist) check() error {
	for _, w := range nl.wires {
		if w.parent != nil || w.typ != wireInternal {
			continue
		}
		if w.driver != "" && w.reads == 0 && len(w.outs) == 0 {
			return errors.New("pin " + w.name + " not connected to any input")
		}
	}
	return nil
}

// name returns the name of the net a wire belongs to.
func (nl *netlist) name(n string) string {
	w, ok := nl.wires[n]
	if !ok {
		return n
	}
	return w.root().name
}
