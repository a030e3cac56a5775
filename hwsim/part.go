// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"strconv"

	"github.com/db47h/hwunit/internal/hdl"
	"github.com/pkg/errors"
)

// Constant input pin names.
//
const (
	False = "false"
	True  = "true"
	Clk   = "clk"
)

const (
	cstFalse = iota
	cstTrue
	cstClk
	cstCount
)

// A Component is a component in a circuit that can Get and Set states.
//
type Component func(c *Circuit)

// A MountFn mounts a part into socket s. MountFn's should query
// the socket for assigned pin numbers and return closures around
// these pin numbers.
//
// For example, a Not gate can be defined like this:
//
//	not := &PartSpec{
//		Name: "Not",
//		Inputs: IO("in"),
//		Outputs: IO("out"),
//		Mount: func (s *Socket) []Component {
//			in, out := s.Pin("in"), s.Pin("out")
//			return []Component{
//				func (c *Circuit) { c.Set(out, !c.Get(in)) }
//			}
//		}}
//
type MountFn func(s *Socket) []Component

// A PartSpec wraps a part specification (its blueprint).
//
// Custom parts are implemented by creating a PartSpec and using its NewPart
// method as a NewPartFn:
//
//	var notGate = notSpec.NewPart
//
// Which can the be used when building other chips:
//
//	c, _ := Chip("dummy", IO("a, b"), IO("c, d"), Parts{
//		notGate("in=a, out=c"),
//		notGate("in=b, out=d"),
//	})
//
type PartSpec struct {
	// Part name.
	Name string
	// Input pin names. Must be distinct pin names.
	// Use the IO() function to expand an input description like
	// "a, b, bus[2]" to []string{"a", "b", "bus[0]", "bus[1]"}
	Inputs []string
	// Output pin names. Must be distinct pin names.
	Outputs []string
	// Pinout maps the input and output pin names (public interface) of a part
	// to internal (private) names. If nil, the Inputs and Outputs values will
	// be used and mapped one to one. Several outputs may share the same
	// private name, in which case they are driven by the same wire.
	//
	// In a MountFn, only private pin names must be used when calling the
	// Socket methods. Custom part implementations should leave it nil.
	Pinout map[string]string

	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
// It panics if the connection string cannot be parsed.
//
func (p *PartSpec) NewPart(connections string) Part {
	cs, err := ParseConnections(connections)
	if err != nil {
		panic(err)
	}
	return Part{p, cs}
}

// Wire wraps p with the given connections into a Part.
//
func (p *PartSpec) Wire(conns []Connection) Part {
	return Part{p, conns}
}

// private returns the private name of public pin name.
func (p *PartSpec) private(name string) string {
	if p.Pinout == nil {
		return name
	}
	return p.Pinout[name]
}

func (p *PartSpec) isInput(name string) bool {
	for _, n := range p.Inputs {
		if n == name {
			return true
		}
	}
	return false
}

func (p *PartSpec) isOutput(name string) bool {
	for _, n := range p.Outputs {
		if n == name {
			return true
		}
	}
	return false
}

// A NewPartFn is a function that takes a connection configuration and returns a
// new Part. See ParseConnections for the syntax of the connection configuration
// string.
//
type NewPartFn func(c string) Part

// A Part wraps a part specification together with its connections within a host
// chip.
//
type Part struct {
	*PartSpec
	Conns []Connection
}

// Parts is a slice of Part.
//
type Parts []Part

// A Connection connects a part pin, bus or bus range (PP) to one or more pins,
// buses or bus ranges in the host chip (CP).
//
type Connection struct {
	PP string
	CP []string
}

// ParseConnections parses a connection configuration like "partPin1=chipPin1,
// partPin2=chipPin2". Part pins that appear more than once are connected to
// every chip pin they are assigned to. Buses are supported:
//
//	"a=x[0..3], b[0..1]=y, out=z"
//
func ParseConnections(c string) ([]Connection, error) {
	cs, err := hdl.ParseConnections(c)
	if err != nil {
		return nil, err
	}
	return Connect(cs), nil
}

// Connect converts connections as parsed from an HDL file to a Connection
// slice. Part pins that appear more than once are merged.
//
func Connect(cs []hdl.Conn) []Connection {
	var out []Connection
	idx := make(map[string]int)
	for _, c := range cs {
		pp := c.PP.String()
		if i, ok := idx[pp]; ok {
			out[i].CP = append(out[i].CP, c.CP.String())
			continue
		}
		idx[pp] = len(out)
		out = append(out, Connection{pp, []string{c.CP.String()}})
	}
	return out
}

// ParseIO parses a pin specification string and returns individual pin
// names in a slice, also expanding bus declarations to individual pin names.
// For example:
//
//	ParseIO("in[2], sel") // returns []string{"in[0]", "in[1]", "sel"}
//
func ParseIO(spec string) ([]string, error) {
	ds, err := hdl.ParseIO(spec)
	if err != nil {
		return nil, err
	}
	return expandDecls(ds), nil
}

// IO is like ParseIO but panics on error.
//
func IO(spec string) []string {
	out, err := ParseIO(spec)
	if err != nil {
		panic(err)
	}
	return out
}

func expandDecls(ds []hdl.PinDecl) []string {
	var out []string
	for _, d := range ds {
		if d.Width == 0 {
			out = append(out, d.Name)
			continue
		}
		for i := 0; i < d.Width; i++ {
			out = append(out, BusPinName(d.Name, i))
		}
	}
	return out
}

// Expand expands pin declarations as parsed from an HDL file to individual pin
// names.
//
func Expand(ds []hdl.PinDecl) []string { return expandDecls(ds) }

// BusPinName returns the pin name for the n-th bit of the named bus.
//
func BusPinName(bus string, bit int) string {
	return bus + "[" + strconv.Itoa(bit) + "]"
}

// busWidths returns the width of every bus found in the given pin lists.
func busWidths(pins ...[]string) map[string]int {
	w := make(map[string]int)
	for _, l := range pins {
		for _, n := range l {
			bus, bit, ok := splitBusPin(n)
			if ok && w[bus] < bit+1 {
				w[bus] = bit + 1
			}
		}
	}
	return w
}

func splitBusPin(name string) (bus string, bit int, ok bool) {
	i := len(name) - 1
	if i < 0 || name[i] != ']' {
		return name, 0, false
	}
	for j := i - 1; j > 0; j-- {
		if name[j] == '[' {
			bit, err := strconv.Atoi(name[j+1 : i])
			if err != nil {
				return name, 0, false
			}
			return name[:j], bit, true
		}
	}
	return name, 0, false
}

// expandRef expands a pin reference like "a", "a[2]" or "a[0..3]" into
// individual pin names. Plain bus names are expanded using the widths map.
func expandRef(ref string, widths map[string]int) ([]string, error) {
	r, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	switch {
	case r.End >= 0:
		out := make([]string, 0, r.End-r.Start+1)
		for i := r.Start; i <= r.End; i++ {
			out = append(out, BusPinName(r.Name, i))
		}
		return out, nil
	case r.Start >= 0:
		return []string{BusPinName(r.Name, r.Start)}, nil
	}
	if w := widths[r.Name]; w > 0 {
		out := make([]string, w)
		for i := range out {
			out[i] = BusPinName(r.Name, i)
		}
		return out, nil
	}
	return []string{r.Name}, nil
}

func parseRef(ref string) (hdl.PinRef, error) {
	r, err := hdl.ParsePinRef(ref)
	return r, errors.Wrap(err, "invalid pin reference")
}
